package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/payment"
)

type CreateOrderRequest struct {
	Plan  string  `json:"plan" binding:"required"`
	Price float64 `json:"price" binding:"required,gt=0"`
}

type CreateOrderResponse struct {
	Success bool   `json:"success"`
	OrderID string `json:"orderId"`
}

type CaptureOrderRequest struct {
	OrderID string `json:"orderId" binding:"required"`
}

type CaptureOrderResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	APIKey    string    `json:"apiKey"`
	Plan      string    `json:"plan"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type ManualPaymentRequest struct {
	Plan string `json:"plan" binding:"required"`
}

type ManualPaymentResponse struct {
	Success   bool   `json:"success"`
	Reference string `json:"reference"`
	Wallet    string `json:"wallet"`
}

type PaymentResponse struct {
	ID            uuid.UUID      `json:"id"`
	UserID        uuid.UUID      `json:"user_id"`
	Amount        float64        `json:"amount"`
	Plan          string         `json:"plan"`
	Method        payment.Method `json:"payment_method"`
	Status        payment.Status `json:"status"`
	TransactionID string         `json:"transaction_id"`
	Currency      string         `json:"currency"`
	CreatedAt     time.Time      `json:"created_at"`
}

func NewPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.ID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Plan:          p.Plan,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		Currency:      p.Currency,
		CreatedAt:     p.CreatedAt,
	}
}
