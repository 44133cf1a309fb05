package codegen

import (
	"regexp"
	"strings"

	apperrors "ai-code-mother/pkg/errors"
)

// ArtifactField 产物字段
type ArtifactField string

const (
	FieldHTML ArtifactField = "html"
	FieldJS   ArtifactField = "js"
	FieldCSS  ArtifactField = "css"
)

// CodeArtifact 从线性模式文本中提取出的结构化产物
type CodeArtifact interface {
	Mode() GenerationMode
	Fields() map[ArtifactField]string
	sealed()
}

// SingleFileArtifact 单文件产物
type SingleFileArtifact struct {
	HTML string
}

func (SingleFileArtifact) Mode() GenerationMode { return ModeSingleFile }

func (a SingleFileArtifact) Fields() map[ArtifactField]string {
	return map[ArtifactField]string{FieldHTML: a.HTML}
}

func (SingleFileArtifact) sealed() {}

// MultiFileArtifact 多文件产物
type MultiFileArtifact struct {
	HTML string
	JS   string
	CSS  string
}

func (MultiFileArtifact) Mode() GenerationMode { return ModeMultiFile }

func (a MultiFileArtifact) Fields() map[ArtifactField]string {
	return map[ArtifactField]string{FieldHTML: a.HTML, FieldJS: a.JS, FieldCSS: a.CSS}
}

func (MultiFileArtifact) sealed() {}

var (
	htmlBlockPattern = regexp.MustCompile("(?is)```html\\s*\\n(.*?)```")
	jsBlockPattern   = regexp.MustCompile("(?is)```(?:javascript|js)\\s*\\n(.*?)```")
	cssBlockPattern  = regexp.MustCompile("(?is)```css\\s*\\n(.*?)```")
)

// Extract 按模式从完整响应文本中提取产物
func Extract(mode GenerationMode, text string) (CodeArtifact, error) {
	switch mode {
	case ModeSingleFile:
		return extractSingleFile(text), nil
	case ModeMultiFile:
		return extractMultiFile(text), nil
	case ModeProject:
		return nil, apperrors.New(apperrors.CodeUnsupportedMode, "project mode produces files through tool calls, not a text artifact")
	default:
		return nil, apperrors.Newf(apperrors.CodeUnsupportedMode, "unsupported generation mode: %q", mode)
	}
}

// extractSingleFile 取第一个 html 代码块，缺失或为空时退化为整段文本
func extractSingleFile(text string) SingleFileArtifact {
	if block, ok := firstBlock(htmlBlockPattern, text); ok {
		return SingleFileArtifact{HTML: block}
	}
	return SingleFileArtifact{HTML: strings.TrimSpace(text)}
}

// extractMultiFile 分别取第一个 html、js、css 代码块，缺失字段为空
func extractMultiFile(text string) MultiFileArtifact {
	var a MultiFileArtifact
	a.HTML, _ = firstBlock(htmlBlockPattern, text)
	a.JS, _ = firstBlock(jsBlockPattern, text)
	a.CSS, _ = firstBlock(cssBlockPattern, text)
	return a
}

func firstBlock(re *regexp.Regexp, text string) (string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	block := strings.TrimSpace(m[1])
	if block == "" {
		return "", false
	}
	return block, true
}
