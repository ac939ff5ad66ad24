package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"knowledge-assistant-go/internal/apperr"
	"knowledge-assistant-go/internal/service"
)

// CompletionHandler 负责 OpenAI 兼容的补全端点。
// 它把同一套编排逻辑包装成 chat.completion 响应信封。
type CompletionHandler struct {
	chatService service.ChatService
	policy      service.SessionPolicy
}

// NewCompletionHandler 创建一个新的 CompletionHandler。
func NewCompletionHandler(chatService service.ChatService, policy service.SessionPolicy) *CompletionHandler {
	return &CompletionHandler{chatService: chatService, policy: policy}
}

// CompletionMessage 是 OpenAI 风格请求中的一条消息。
type CompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// CompletionRequest 定义了 POST /v1/chat/completions 的请求体结构。
// temperature 与 stream 为兼容而接受，实际生成参数是固定的。
type CompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []CompletionMessage `json:"messages"`
	Temperature *float64            `json:"temperature"`
	Stream      *bool               `json:"stream"`
}

// CompletionChoice 是响应中的一条候选。
type CompletionChoice struct {
	Index        int               `json:"index"`
	Message      CompletionMessage `json:"message"`
	FinishReason string            `json:"finish_reason"`
}

// CompletionUsage 是按字符长度近似的用量统计，不是真实的分词计数。
type CompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CompletionResponse 定义了兼容端点的响应信封。
type CompletionResponse struct {
	ID      string             `json:"id"`
	Object  string             `json:"object"`
	Created int64              `json:"created"`
	Model   string             `json:"model"`
	Choices []CompletionChoice `json:"choices"`
	Usage   CompletionUsage    `json:"usage"`
}

// CreateChatCompletion 处理一次 OpenAI 兼容的补全请求。
// 取消息列表中最后一条的内容作为用户问题，走与 /chat/ 相同的编排。
func (h *CompletionHandler) CreateChatCompletion(c *gin.Context) {
	var req CompletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request payload"})
		return
	}
	if len(req.Messages) == 0 {
		respondError(c, apperr.Validation("messages must not be empty"))
		return
	}

	userMessage := req.Messages[len(req.Messages)-1].Content
	out, err := h.chatService.Chat(c.Request.Context(), service.ChatInput{
		Message: userMessage,
		Model:   req.Model,
		Policy:  h.policy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	// 用量按字符长度近似：prompt 取序列化后的消息列表长度，completion 取回答长度
	serializedPrompt, _ := json.Marshal(out.Prompt)
	promptTokens := len(serializedPrompt)
	completionTokens := len(out.Response)

	now := time.Now().Unix()
	c.JSON(http.StatusOK, CompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-%d", now),
		Object:  "chat.completion",
		Created: now,
		Model:   out.Model,
		Choices: []CompletionChoice{
			{
				Index: 0,
				Message: CompletionMessage{
					Role:    "assistant",
					Content: out.Response,
				},
				FinishReason: "stop",
			},
		},
		Usage: CompletionUsage{
			PromptTokens:     promptTokens,
			CompletionTokens: completionTokens,
			TotalTokens:      promptTokens + completionTokens,
		},
	})
}
