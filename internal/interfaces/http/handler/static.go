// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"ai-code-mother/internal/interfaces/http/dto"
)

const indexFile = "index.html"

// StaticHandler 预览与部署站点的静态文件服务
type StaticHandler struct {
	outputRoot string
	deployRoot string
}

// NewStaticHandler 创建静态文件处理器
func NewStaticHandler(outputRoot, deployRoot string) *StaticHandler {
	return &StaticHandler{outputRoot: outputRoot, deployRoot: deployRoot}
}

// Preview 预览生成产物，dir 形如 {mode}_{appId}
// @Summary 预览生成产物
// @Tags Static
// @Param dir path string true "产物目录"
// @Param filepath path string true "文件路径"
// @Router /static/{dir}/{filepath} [get]
func (h *StaticHandler) Preview(c *gin.Context) {
	h.serve(c, h.outputRoot, c.Param("dir"))
}

// Deployed 访问已部署站点
// @Summary 访问已部署站点
// @Tags Static
// @Param key path string true "部署标识"
// @Param filepath path string true "文件路径"
// @Router /deploy/{key}/{filepath} [get]
func (h *StaticHandler) Deployed(c *gin.Context) {
	h.serve(c, h.deployRoot, c.Param("key"))
}

// serve 目录请求返回 index.html，路径限制在 root/site 内
func (h *StaticHandler) serve(c *gin.Context, root, site string) {
	if site == "" || site == "." || site == ".." || strings.ContainsAny(site, `/\`) {
		dto.NotFound(c, "resource not found")
		return
	}

	rel := path.Clean("/" + c.Param("filepath"))
	target := filepath.Join(root, site, filepath.FromSlash(rel))

	info, err := os.Stat(target)
	if err == nil && info.IsDir() {
		if !strings.HasSuffix(c.Request.URL.Path, "/") {
			c.Redirect(http.StatusMovedPermanently, c.Request.URL.Path+"/")
			return
		}
		target = filepath.Join(target, indexFile)
		info, err = os.Stat(target)
	}
	if err != nil || info.IsDir() {
		dto.NotFound(c, "resource not found")
		return
	}
	c.File(target)
}
