package payment

import (
	"time"

	"github.com/google/uuid"
)

type Method string

const (
	MethodPayPal Method = "paypal"
	MethodCrypto Method = "crypto"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

type Payment struct {
	ID            uuid.UUID `db:"id"`
	UserID        uuid.UUID `db:"user_id"`
	Amount        float64   `db:"amount"`
	Plan          string    `db:"plan"`
	Method        Method    `db:"payment_method"`
	Status        Status    `db:"status"`
	TransactionID string    `db:"transaction_id"`
	Currency      string    `db:"currency"`
	CreatedAt     time.Time `db:"created_at"`
}
