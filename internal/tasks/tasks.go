package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePaymentExpire = "payment:expire:check"

	// StalePaymentAge is how long a processor payment may stay pending before
	// the sweep marks it failed. Processor orders expire server-side well
	// before this, so a capture can no longer succeed.
	StalePaymentAge = 72 * time.Hour
)

type ExpirePaymentPayload struct{}

func NewPaymentExpireTask(opts ...asynq.Option) (*asynq.Task, error) {
	payload := ExpirePaymentPayload{}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	uniqueOpt := asynq.Unique(1 * time.Hour)
	allOpts := append(opts, uniqueOpt)

	return asynq.NewTask(TypePaymentExpire, payloadBytes, allOpts...), nil
}
