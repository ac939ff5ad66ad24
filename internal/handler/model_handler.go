package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"knowledge-assistant-go/internal/service"
	"knowledge-assistant-go/pkg/log"
)

// ModelHandler 处理模型目录查询。
type ModelHandler struct {
	modelService service.ModelService
}

// NewModelHandler 创建一个新的 ModelHandler。
func NewModelHandler(modelService service.ModelService) *ModelHandler {
	return &ModelHandler{modelService: modelService}
}

// ListModels 透传上游的模型目录。
func (h *ModelHandler) ListModels(c *gin.Context) {
	log.Info("Getting available models")
	catalog, err := h.modelService.ListModels(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "application/json", catalog)
}
