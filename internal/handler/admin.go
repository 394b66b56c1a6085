package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
	"github.com/osinthub/search-api/internal/handler/dto"
	"github.com/osinthub/search-api/internal/ierr"
	"github.com/osinthub/search-api/internal/service"
	"go.uber.org/zap"
)

// AdminHandler exposes the operator surface: login, payment history, manual
// settlement confirmation, and direct key administration.
type AdminHandler struct {
	adminAuth      *service.AdminAuthService
	paymentService *service.PaymentService
	apiKeyService  *service.APIKeyService
	logger         *zap.Logger
}

func NewAdminHandler(adminAuth *service.AdminAuthService, paymentService *service.PaymentService, apiKeyService *service.APIKeyService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminAuth:      adminAuth,
		paymentService: paymentService,
		apiKeyService:  apiKeyService,
		logger:         logger.Named("AdminHandler"),
	}
}

func (h *AdminHandler) Login(c *gin.Context) {
	var req dto.AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind admin login request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	token, err := h.adminAuth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, dto.AdminLoginResponse{AccessToken: token})
}

func (h *AdminHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	responses := make([]*dto.PaymentResponse, len(payments))
	for i, p := range payments {
		responses[i] = dto.NewPaymentResponse(p)
	}
	c.JSON(http.StatusOK, responses)
}

// ConfirmManualPayment completes a pending manual transfer and provisions the
// key. This is the human-in-the-loop settlement step for the crypto path.
func (h *AdminHandler) ConfirmManualPayment(c *gin.Context) {
	transactionID := c.Param("transactionId")
	if transactionID == "" {
		_ = c.Error(fmt.Errorf("%w: transaction id is required", ierr.ErrValidation))
		return
	}

	provisioned, err := h.paymentService.ConfirmManualPayment(c.Request.Context(), transactionID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	h.logger.Info("Manual payment confirmed via admin", zap.String("transaction_id", transactionID))
	c.JSON(http.StatusOK, dto.CaptureOrderResponse{
		Success:   true,
		Message:   "Manual transfer confirmed",
		APIKey:    provisioned.KeyValue,
		Plan:      string(provisioned.Plan),
		ExpiresAt: provisioned.ExpiresAt,
	})
}

func (h *AdminHandler) GrantKey(c *gin.Context) {
	var req dto.GrantKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("Failed to bind grant key request", zap.Error(err))
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	key, err := h.apiKeyService.GrantKey(c.Request.Context(), req.UserID, req.Plan)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewAPIKeyResponse(key))
}

func (h *AdminHandler) UpdateKeyStatus(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.logger.Warn("Invalid UUID format for key status update", zap.String("id_param", idStr))
		_ = c.Error(fmt.Errorf("%w: invalid api key id format", ierr.ErrValidation))
		return
	}

	var req dto.UpdateKeyStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(fmt.Errorf("%w: %v", ierr.ErrValidation, err))
		return
	}

	if err := h.apiKeyService.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		if errors.Is(err, apikey.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "API key not found"})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "API key status updated successfully"})
}
