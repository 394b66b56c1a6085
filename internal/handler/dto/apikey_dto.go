package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/osinthub/search-api/internal/domain/apikey"
)

type APIKeyResponse struct {
	ID            uuid.UUID     `json:"id"`
	KeyValue      string        `json:"key_value"`
	Plan          apikey.Plan   `json:"plan"`
	Status        apikey.Status `json:"status"`
	RequestsUsed  int           `json:"requests_used"`
	RequestsLimit int           `json:"requests_limit"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

func NewAPIKeyResponse(key *apikey.APIKey) *APIKeyResponse {
	return &APIKeyResponse{
		ID:            key.ID,
		KeyValue:      key.KeyValue,
		Plan:          key.Plan,
		Status:        key.Status,
		RequestsUsed:  key.RequestsUsed,
		RequestsLimit: key.RequestsLimit,
		ExpiresAt:     key.ExpiresAt,
		CreatedAt:     key.CreatedAt,
	}
}

type CurrentKeyResponse struct {
	Success bool            `json:"success"`
	Key     *APIKeyResponse `json:"key,omitempty"`
	Usable  bool            `json:"usable"`
}

type GrantKeyRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Plan   string    `json:"plan" binding:"required,oneof=basic pro enterprise"`
}

type UpdateKeyStatusRequest struct {
	Status apikey.Status `json:"status" binding:"required,oneof=pending active inactive expired"`
}
