// Package model 包含了应用的数据模型定义。
package model

import "time"

// 消息角色。
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// ChatSession 代表一个对话会话。首条不带会话 ID 的消息会惰性创建一条记录，
// 标题取该消息的前 50 个字符。本系统不会修改或删除已有会话。
type ChatSession struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	Title     string    `gorm:"size:255" json:"title"`
}

func (ChatSession) TableName() string {
	return "chat_sessions"
}

// Message 代表会话中的一轮消息（user 或 assistant）。
// SearchResults 和 AIModelResponse 为可选的 JSON 文本列，写入后不可变。
type Message struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	SessionID       uint      `gorm:"index;not null" json:"session_id"`
	Role            string    `gorm:"size:50;not null" json:"role"`
	Content         string    `gorm:"type:text" json:"content"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	SearchResults   *string   `gorm:"type:text" json:"search_results"`
	AIModelResponse *string   `gorm:"type:text" json:"ai_model_response"`
}

func (Message) TableName() string {
	return "messages"
}
