package ierr

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrInvalidInput   = errors.New("invalid input")
	ErrInternalServer = errors.New("internal server error")

	ErrUnauthenticated = errors.New("authentication required or failed")
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrRateLimited     = errors.New("too many requests")

	ErrNoActiveKey   = errors.New("no active api key")
	ErrKeyExpired    = errors.New("api key expired")
	ErrQuotaExceeded = errors.New("search quota exceeded")

	ErrEngineMisconfigured = errors.New("search engine not configured")
	ErrEngineUnreachable   = errors.New("search engine unreachable")
	ErrEngineRejected      = errors.New("search engine rejected query")

	ErrProcessorUnavailable  = errors.New("payment processor unavailable")
	ErrProcessorAuthFailed   = errors.New("payment processor authentication failed")
	ErrOrderCaptureRejected  = errors.New("order capture rejected")
	ErrPaymentNotCompleted   = errors.New("payment not completed")
	ErrPaymentNotFound       = errors.New("payment not found")
	ErrKeyProvisioningFailed = errors.New("api key provisioning failed")

	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
