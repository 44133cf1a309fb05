// Package prompt 管理代码生成使用的提示词模板
package prompt

import (
	"embed"
	"fmt"
	"path"
	"strings"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

// 模板变量
const (
	VarHistory = "history"
	VarMessage = "message"
)

type PromptID string

const (
	PromptSingleFileV1 PromptID = "codegen_single_file_v1"
	PromptMultiFileV1  PromptID = "codegen_multi_file_v1"
	PromptProjectV1    PromptID = "codegen_project_v1"
)

// 所有模式共用同一份用户消息模板
const userTemplate = "codegen_user_v1.txt"

var known = []PromptID{PromptSingleFileV1, PromptMultiFileV1, PromptProjectV1}

// Registry 首次使用时一次性加载全部模板
//
// 模板结构固定为：system 提示词、历史消息占位、当前用户消息。
// 模板使用 FString 语法，system 文本中不能出现花括号。
type Registry struct {
	once      sync.Once
	templates map[PromptID]einoprompt.ChatTemplate
	err       error
}

func NewRegistry() *Registry {
	return &Registry{}
}

// ChatTemplate 按 ID 返回模板
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}
	r.once.Do(r.load)
	if r.err != nil {
		return nil, r.err
	}
	tpl, ok := r.templates[id]
	if !ok {
		return nil, fmt.Errorf("unknown prompt id: %s", id)
	}
	return tpl, nil
}

func (r *Registry) load() {
	user, err := readTemplate(userTemplate)
	if err != nil {
		r.err = err
		return
	}

	r.templates = make(map[PromptID]einoprompt.ChatTemplate, len(known))
	for _, id := range known {
		system, err := readTemplate(string(id) + ".system.txt")
		if err != nil {
			r.err = err
			return
		}
		r.templates[id] = einoprompt.FromMessages(
			schema.FString,
			schema.SystemMessage(system),
			schema.MessagesPlaceholder(VarHistory, true),
			schema.UserMessage(user),
		)
	}
}

// Variables 组装模板变量
func Variables(history []*schema.Message, message string) map[string]any {
	return map[string]any{
		VarHistory: history,
		VarMessage: message,
	}
}

func readTemplate(name string) (string, error) {
	b, err := templatesFS.ReadFile(path.Join("templates", name))
	if err != nil {
		return "", fmt.Errorf("read prompt template %s: %w", name, err)
	}
	return strings.TrimSpace(string(b)), nil
}
