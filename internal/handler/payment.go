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

type PaymentHandler struct {
	service *service.PaymentService
	logger  *zap.Logger
}

func NewPaymentHandler(service *service.PaymentService, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		logger:  logger.Named("PaymentHandler"),
	}
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind create order request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	principal := middleware.GetPrincipal(c)

	orderID, err := h.service.CreateOrder(c.Request.Context(), principal, req.Plan, req.Price)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.CreateOrderResponse{Success: true, OrderID: orderID})
}

func (h *PaymentHandler) CaptureOrder(c *gin.Context) {
	var req dto.CaptureOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind capture order request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	principal := middleware.GetPrincipal(c)

	provisioned, err := h.service.CaptureOrder(c.Request.Context(), principal, req.OrderID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.CaptureOrderResponse{
		Success:   true,
		Message:   "Payment completed successfully",
		APIKey:    provisioned.KeyValue,
		Plan:      string(provisioned.Plan),
		ExpiresAt: provisioned.ExpiresAt,
	})
}

func (h *PaymentHandler) CreateManualPayment(c *gin.Context) {
	var req dto.ManualPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind manual payment request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	principal := middleware.GetPrincipal(c)

	reference, wallet, err := h.service.CreateManualPayment(c.Request.Context(), principal, req.Plan)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.ManualPaymentResponse{
		Success:   true,
		Reference: reference,
		Wallet:    wallet,
	})
}
