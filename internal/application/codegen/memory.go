package codegen

import (
	"sync"

	"github.com/cloudwego/eino/schema"
)

// DefaultMemoryWindow 默认保留的消息条数
const DefaultMemoryWindow = 20

// ConversationMemory 有界的对话窗口，超出容量时丢弃最早的消息
type ConversationMemory struct {
	mu       sync.RWMutex
	window   int
	messages []*schema.Message
}

// NewConversationMemory 创建对话窗口，window <= 0 时使用默认值
func NewConversationMemory(window int) *ConversationMemory {
	if window <= 0 {
		window = DefaultMemoryWindow
	}
	return &ConversationMemory{window: window}
}

// Add 追加消息
func (m *ConversationMemory) Add(msg *schema.Message) {
	if msg == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.messages = append(m.messages, msg)
	if over := len(m.messages) - m.window; over > 0 {
		m.messages = m.messages[over:]
	}
	// 窗口头部不能是失去对应调用的工具结果
	for len(m.messages) > 0 && m.messages[0].Role == schema.Tool {
		m.messages = m.messages[1:]
	}
}

// Messages 返回消息快照
func (m *ConversationMemory) Messages() []*schema.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*schema.Message, len(m.messages))
	copy(out, m.messages)
	return out
}

// Clear 清空窗口
func (m *ConversationMemory) Clear() {
	m.mu.Lock()
	m.messages = nil
	m.mu.Unlock()
}

// Len 当前消息数
func (m *ConversationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.messages)
}

// Window 窗口容量
func (m *ConversationMemory) Window() int {
	return m.window
}
