package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/osinthub/search-api/internal/handler/dto"
	"github.com/osinthub/search-api/internal/handler/middleware"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/service"
	"go.uber.org/zap"
)

type SearchHandler struct {
	service *service.SearchService
	logger  *zap.Logger
}

func NewSearchHandler(service *service.SearchService, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger.Named("SearchHandler"),
	}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req dto.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind search request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	principal := middleware.GetPrincipal(c)

	result, err := h.service.Search(c.Request.Context(), principal, req.Query, req.Index)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.SearchResponse{
		Success:   true,
		Results:   result.Hits,
		Total:     result.Total,
		Remaining: result.Remaining,
	})
}

func (h *SearchHandler) History(c *gin.Context) {
	principal := middleware.GetPrincipal(c)

	entries, err := h.service.History(c.Request.Context(), principal, 20)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := dto.SearchHistoryResponse{Success: true, Entries: make([]dto.SearchHistoryEntry, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = dto.SearchHistoryEntry{
			Query:        e.Query,
			ResultsCount: e.ResultsCount,
			CreatedAt:    e.CreatedAt,
		}
	}
	c.JSON(http.StatusOK, resp)
}
