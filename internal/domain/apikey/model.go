package apikey

import (
	"time"

	"github.com/google/uuid"
)

type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusExpired  Status = "expired"
)

const (
	// UnlimitedRequests is the sentinel limit used for the enterprise plan.
	UnlimitedRequests = 999999

	KeyValuePrefix  = "osint_"
	KeySecretLength = 32
	KeyValidity     = 1 // months
)

var PlanLimits = map[Plan]int{
	PlanBasic:      100,
	PlanPro:        1000,
	PlanEnterprise: UnlimitedRequests,
}

var PlanPrices = map[Plan]float64{
	PlanBasic:      29,
	PlanPro:        99,
	PlanEnterprise: 299,
}

func ParsePlan(s string) (Plan, bool) {
	p := Plan(s)
	_, ok := PlanLimits[p]
	return p, ok
}

type APIKey struct {
	ID            uuid.UUID  `db:"id"`
	UserID        uuid.UUID  `db:"user_id"`
	KeyValue      string     `db:"key_value"`
	Plan          Plan       `db:"plan"`
	Status        Status     `db:"status"`
	RequestsUsed  int        `db:"requests_used"`
	RequestsLimit int        `db:"requests_limit"`
	ExpiresAt     *time.Time `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

// IsExpired reports whether the key's expiry has elapsed. Expiry is observed
// lazily at check time; there is no background status sweep.
func (k *APIKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

func (k *APIKey) QuotaExhausted() bool {
	return k.RequestsUsed >= k.RequestsLimit
}

// IsUsable reports whether the key grants search access at the given instant.
func (k *APIKey) IsUsable(now time.Time) bool {
	return k.Status == StatusActive && !k.IsExpired(now) && !k.QuotaExhausted()
}
