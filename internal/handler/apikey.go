package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/osinthub/search-api/internal/handler/dto"
	"github.com/osinthub/search-api/internal/handler/middleware"
	"github.com/osinthub/search-api/internal/service"
	"go.uber.org/zap"
)

type APIKeyHandler struct {
	service *service.APIKeyService
	logger  *zap.Logger
}

func NewAPIKeyHandler(service *service.APIKeyService, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		service: service,
		logger:  logger.Named("APIKeyHandler"),
	}
}

// CurrentKey returns the caller's latest key and whether it is usable, for
// the dashboard.
func (h *APIKeyHandler) CurrentKey(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	key, usable, err := h.service.CurrentKey(c.Request.Context(), principal)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.CurrentKeyResponse{Success: true, Usable: usable}
	if key != nil {
		resp.Key = dto.NewAPIKeyResponse(key)
	}
	c.JSON(http.StatusOK, resp)
}
