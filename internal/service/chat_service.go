// Package service 包含了应用的业务逻辑层。
package service

import (
	"context"
	"fmt"
	"strings"

	"knowledge-assistant-go/internal/apperr"
	"knowledge-assistant-go/internal/model"
	"knowledge-assistant-go/internal/repository"
	"knowledge-assistant-go/pkg/llm"
	"knowledge-assistant-go/pkg/log"
	"knowledge-assistant-go/pkg/search"
)

// SessionPolicy 决定请求未携带会话 ID 时如何解析会话。
// 两个 HTTP 入口历史上的行为不同，这里保留为显式策略。
type SessionPolicy string

const (
	// SessionPolicyAlwaysCreate 每次都新建会话。
	SessionPolicyAlwaysCreate SessionPolicy = "always_create"
	// SessionPolicyMostRecent 复用最近创建的会话，没有时再新建。
	SessionPolicyMostRecent SessionPolicy = "most_recent"
)

// ParseSessionPolicy 解析配置中的策略字符串。
func ParseSessionPolicy(s string) (SessionPolicy, error) {
	switch SessionPolicy(s) {
	case SessionPolicyAlwaysCreate, SessionPolicyMostRecent:
		return SessionPolicy(s), nil
	}
	return "", fmt.Errorf("unknown session policy: %q", s)
}

// systemPrompt 是每轮对话固定的 system 消息。
const systemPrompt = "You are a helpful AI assistant. Use the provided web search results to help answer questions accurately. Keep your response concise and focused."

const (
	// promptResultLimit 限制进入 prompt 的搜索结果条数；存储时保留全部。
	promptResultLimit = 3
	// sessionTitleLimit 新会话标题取首条消息的前若干个字符。
	sessionTitleLimit = 50
)

// ChatInput 是一次编排请求的输入。
type ChatInput struct {
	Message   string
	Model     string
	SessionID *uint
	Policy    SessionPolicy
}

// ChatOutput 是一次编排请求的结果。
type ChatOutput struct {
	SessionID     uint
	Response      string
	SearchResults []search.Result
	Model         string
	// Prompt 是实际发送给补全接口的消息列表，供兼容端点估算用量。
	Prompt []llm.Message
}

// aiResponsePayload 是 assistant 消息 ai_model_response 列的 JSON 结构。
type aiResponsePayload struct {
	Response      string          `json:"response"`
	Model         string          `json:"model"`
	SearchResults []search.Result `json:"search_results"`
}

// ChatService 定义了问答编排的接口。
type ChatService interface {
	// Chat 执行一轮完整的编排：搜索、构建 prompt、补全、原子化落库。
	Chat(ctx context.Context, in ChatInput) (*ChatOutput, error)
}

type chatService struct {
	searchClient search.Client
	llmClient    llm.Client
	historyRepo  repository.HistoryRepository
	defaultModel string
}

// NewChatService 创建一个新的 ChatService 实例。
func NewChatService(searchClient search.Client, llmClient llm.Client, historyRepo repository.HistoryRepository, defaultModel string) ChatService {
	return &chatService{
		searchClient: searchClient,
		llmClient:    llmClient,
		historyRepo:  historyRepo,
		defaultModel: defaultModel,
	}
}

// Chat 协调一轮问答。两次出站调用串行执行（补全依赖搜索结果），
// 会话解析与两条消息的写入放在同一个事务里，补全失败时不会留下半轮数据。
func (s *chatService) Chat(ctx context.Context, in ChatInput) (*ChatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, apperr.Validation("message must not be empty")
	}

	// 1. 网络搜索
	results, err := s.searchClient.Search(ctx, in.Message)
	if err != nil {
		return nil, err
	}
	log.Infof("[Chat] Completed web search, got %d results", len(results))

	// 2. 构建 prompt 并调用补全
	messages := composeMessages(results, in.Message)
	resolvedModel := in.Model
	if resolvedModel == "" {
		resolvedModel = s.defaultModel
	}
	answer, err := s.llmClient.Complete(ctx, messages, resolvedModel)
	if err != nil {
		return nil, err
	}

	// 3. 原子化落库：会话解析、user 消息、assistant 消息同一事务提交
	var sessionID uint
	err = s.historyRepo.Transaction(ctx, func(tx repository.HistoryRepository) error {
		id, err := s.resolveSession(ctx, tx, in)
		if err != nil {
			return err
		}
		sessionID = id
		if _, err := tx.AppendMessage(ctx, sessionID, model.RoleUser, in.Message, results, nil); err != nil {
			return err
		}
		payload := aiResponsePayload{
			Response:      answer,
			Model:         resolvedModel,
			SearchResults: results,
		}
		if _, err := tx.AppendMessage(ctx, sessionID, model.RoleAssistant, answer, nil, payload); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		log.Error("[Chat] Failed to persist chat turn", err)
		return nil, apperr.Persistence(err)
	}
	log.Infof("[Chat] Stored chat turn for session %d", sessionID)

	return &ChatOutput{
		SessionID:     sessionID,
		Response:      answer,
		SearchResults: results,
		Model:         resolvedModel,
		Prompt:        messages,
	}, nil
}

// resolveSession 按策略确定本轮写入的会话。
func (s *chatService) resolveSession(ctx context.Context, tx repository.HistoryRepository, in ChatInput) (uint, error) {
	if in.SessionID != nil {
		return *in.SessionID, nil
	}

	if in.Policy == SessionPolicyMostRecent {
		id, ok, err := tx.MostRecentSessionID(ctx)
		if err != nil {
			return 0, err
		}
		if ok {
			return id, nil
		}
	}

	session, err := tx.CreateSession(ctx, sessionTitle(in.Message))
	if err != nil {
		return 0, err
	}
	log.Infof("[Chat] Created new session with ID: %d", session.ID)
	return session.ID, nil
}

// sessionTitle 取消息的前 50 个字符作为新会话标题。
func sessionTitle(message string) string {
	runes := []rune(message)
	if len(runes) > sessionTitleLimit {
		runes = runes[:sessionTitleLimit]
	}
	return string(runes)
}

// composeMessages 构建发送给补全接口的两条消息：
// 固定 system 提示，加上嵌入了前 3 条搜索结果和原始问题的 user 消息。
func composeMessages(results []search.Result, question string) []llm.Message {
	var contextBuilder strings.Builder
	contextBuilder.WriteString("Web search results:\n")
	for i, r := range results {
		if i >= promptResultLimit {
			break
		}
		contextBuilder.WriteString(fmt.Sprintf("%d. %s\n%s\n\n", i+1, r.Title, r.Snippet))
	}

	return []llm.Message{
		{Role: model.RoleSystem, Content: systemPrompt},
		{Role: model.RoleUser, Content: fmt.Sprintf("Context: %s\n\nQuestion: %s", contextBuilder.String(), question)},
	}
}
