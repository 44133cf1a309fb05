// Package entity 定义领域实体
package entity

import "strings"

// Role 对话角色枚举
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// roleLegacyAI 早期写入的 AI 消息类型
const roleLegacyAI = "ai"

// ParseRole 解析历史消息角色，未知取值返回 false
func ParseRole(s string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleUser):
		return RoleUser, true
	case string(RoleAssistant), roleLegacyAI:
		return RoleAssistant, true
	case string(RoleSystem):
		return RoleSystem, true
	default:
		return "", false
	}
}

// IsChatRole 是否为可写入对话历史的角色
func (r Role) IsChatRole() bool {
	return r == RoleUser || r == RoleAssistant
}
