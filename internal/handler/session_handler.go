package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"knowledge-assistant-go/internal/repository"
	"knowledge-assistant-go/pkg/log"
)

// SessionHandler 处理会话与消息的只读查询。
type SessionHandler struct {
	historyRepo repository.HistoryRepository
}

// NewSessionHandler 创建一个新的 SessionHandler。
func NewSessionHandler(historyRepo repository.HistoryRepository) *SessionHandler {
	return &SessionHandler{historyRepo: historyRepo}
}

// GetSessions 返回所有会话，按创建时间倒序。
func (h *SessionHandler) GetSessions(c *gin.Context) {
	sessions, err := h.historyRepo.ListSessions(c.Request.Context())
	if err != nil {
		log.Error("GetSessions: Failed to list sessions", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to retrieve sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// GetSessionMessages 返回指定会话的所有消息，按创建时间正序。
func (h *SessionHandler) GetSessionMessages(c *gin.Context) {
	sessionID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid session id"})
		return
	}

	messages, err := h.historyRepo.ListMessages(c.Request.Context(), uint(sessionID))
	if err != nil {
		log.Error("GetSessionMessages: Failed to list messages", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to retrieve messages"})
		return
	}
	c.JSON(http.StatusOK, messages)
}
