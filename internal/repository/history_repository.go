// Package repository 提供了数据访问层的实现。
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"knowledge-assistant-go/internal/model"
)

// HistoryRepository 定义了聊天历史的持久化操作。
// 一次请求内的所有写入都应通过 Transaction 包裹，任一步失败整体回滚。
type HistoryRepository interface {
	CreateSession(ctx context.Context, title string) (*model.ChatSession, error)
	// AppendMessage 追加一条消息。searchResults 和 aiResponse 非 nil 时
	// 会被 JSON 序列化后写入对应的文本列。
	AppendMessage(ctx context.Context, sessionID uint, role, content string, searchResults, aiResponse interface{}) (*model.Message, error)
	// ListSessions 按创建时间倒序返回所有会话。
	ListSessions(ctx context.Context) ([]model.ChatSession, error)
	// ListMessages 按创建时间正序返回指定会话的所有消息。
	ListMessages(ctx context.Context, sessionID uint) ([]model.Message, error)
	// MostRecentSessionID 返回最近创建的会话 ID；不存在任何会话时第二个返回值为 false。
	MostRecentSessionID(ctx context.Context) (uint, bool, error)
	// Transaction 在单个数据库事务中执行 fn，fn 返回错误时回滚全部写入。
	Transaction(ctx context.Context, fn func(HistoryRepository) error) error
}

// historyRepository 是 HistoryRepository 接口的 GORM 实现。
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建一个新的 HistoryRepository 实例。
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// AutoMigrate 在启动时创建缺失的表结构。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&model.ChatSession{}, &model.Message{})
}

func (r *historyRepository) CreateSession(ctx context.Context, title string) (*model.ChatSession, error) {
	session := &model.ChatSession{Title: title}
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return nil, err
	}
	return session, nil
}

func (r *historyRepository) AppendMessage(ctx context.Context, sessionID uint, role, content string, searchResults, aiResponse interface{}) (*model.Message, error) {
	msg := &model.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
	}

	if searchResults != nil {
		serialized, err := json.Marshal(searchResults)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal search results: %w", err)
		}
		s := string(serialized)
		msg.SearchResults = &s
	}
	if aiResponse != nil {
		serialized, err := json.Marshal(aiResponse)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal ai model response: %w", err)
		}
		s := string(serialized)
		msg.AIModelResponse = &s
	}

	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, err
	}
	return msg, nil
}

func (r *historyRepository) ListSessions(ctx context.Context) ([]model.ChatSession, error) {
	var sessions []model.ChatSession
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&sessions).Error
	return sessions, err
}

func (r *historyRepository) ListMessages(ctx context.Context, sessionID uint) ([]model.Message, error) {
	var messages []model.Message
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC, id ASC").
		Find(&messages).Error
	return messages, err
}

func (r *historyRepository) MostRecentSessionID(ctx context.Context) (uint, bool, error) {
	var session model.ChatSession
	err := r.db.WithContext(ctx).Order("created_at DESC, id DESC").First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return session.ID, true, nil
}

func (r *historyRepository) Transaction(ctx context.Context, fn func(HistoryRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&historyRepository{db: tx})
	})
}
