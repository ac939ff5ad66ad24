// Package handler 包含了处理 HTTP 请求的控制器逻辑。
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-assistant-go/internal/apperr"
	"knowledge-assistant-go/internal/service"
	"knowledge-assistant-go/pkg/log"
	"knowledge-assistant-go/pkg/search"
)

// ChatHandler 负责处理简单问答端点。
type ChatHandler struct {
	chatService service.ChatService
	policy      service.SessionPolicy
}

// NewChatHandler 创建一个新的 ChatHandler。policy 决定请求未携带
// session_id 时的会话解析方式。
func NewChatHandler(chatService service.ChatService, policy service.SessionPolicy) *ChatHandler {
	return &ChatHandler{chatService: chatService, policy: policy}
}

// ChatRequest 定义了 POST /chat/ 的请求体结构。
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	Model     string `json:"model"`
	SessionID *uint  `json:"session_id"`
}

// ChatResponse 定义了 POST /chat/ 的响应体结构。
type ChatResponse struct {
	SessionID     uint            `json:"session_id"`
	Response      string          `json:"response"`
	SearchResults []search.Result `json:"search_results"`
	Model         string          `json:"model"`
}

// Chat 处理一轮问答请求。
func (h *ChatHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warnf("Chat: Invalid request payload, error: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"detail": "message is required"})
		return
	}

	out, err := h.chatService.Chat(c.Request.Context(), service.ChatInput{
		Message:   req.Message,
		Model:     req.Model,
		SessionID: req.SessionID,
		Policy:    h.policy,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ChatResponse{
		SessionID:     out.SessionID,
		Response:      out.Response,
		SearchResults: out.SearchResults,
		Model:         out.Model,
	})
}

// respondError 将内部错误翻译为 HTTP 状态码 + {"detail": ...} 响应体。
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", err)
	} else {
		log.Warnf("Request failed with status %d: %v", status, err)
	}
	c.JSON(status, gin.H{"detail": apperr.Detail(err)})
}
