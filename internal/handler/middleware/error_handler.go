package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/osinthub/search-api/internal/handler/dto"
	"github.com/osinthub/search-api/internal/ierr"
	"go.uber.org/zap"
)

func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		log.Error("Request failed", zap.Error(err))

		status := http.StatusInternalServerError
		errResponse := dto.APIErrorResponse{
			Code:    "INTERNAL_ERROR",
			Message: "An unexpected error occurred.",
		}

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			status = http.StatusBadRequest
			errResponse.Code = "VALIDATION_ERROR"
			errResponse.Message = "Input validation failed."
			errResponse.Details = buildValidationErrors(ve)
		} else {
			switch {
			case errors.Is(err, ierr.ErrValidation), errors.Is(err, ierr.ErrInvalidInput):
				status = http.StatusBadRequest
				errResponse.Code = "INVALID_INPUT"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrUnauthenticated), errors.Is(err, ierr.ErrInvalidToken), errors.Is(err, ierr.ErrInvalidCredentials):
				status = http.StatusUnauthorized
				errResponse.Code = "UNAUTHENTICATED"
				errResponse.Message = "Authentication required or failed."
			case errors.Is(err, ierr.ErrNoActiveKey):
				status = http.StatusForbidden
				errResponse.Code = "NO_ACTIVE_KEY"
				errResponse.Message = "No active API key. Please purchase a plan."
			case errors.Is(err, ierr.ErrKeyExpired):
				status = http.StatusForbidden
				errResponse.Code = "KEY_EXPIRED"
				errResponse.Message = "Your API key has expired. Please renew your plan."
			case errors.Is(err, ierr.ErrQuotaExceeded):
				status = http.StatusForbidden
				errResponse.Code = "QUOTA_EXCEEDED"
				errResponse.Message = "You have reached your plan's search limit."
			case errors.Is(err, ierr.ErrRateLimited):
				status = http.StatusTooManyRequests
				errResponse.Code = "RATE_LIMITED"
				errResponse.Message = "Too many requests. Please wait a moment."
			case errors.Is(err, ierr.ErrPaymentNotFound):
				status = http.StatusNotFound
				errResponse.Code = "PAYMENT_NOT_FOUND"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrPaymentNotCompleted), errors.Is(err, ierr.ErrOrderCaptureRejected):
				status = http.StatusUnprocessableEntity
				errResponse.Code = "PAYMENT_NOT_COMPLETED"
				errResponse.Message = err.Error()
			case errors.Is(err, ierr.ErrProcessorUnavailable), errors.Is(err, ierr.ErrProcessorAuthFailed):
				status = http.StatusBadGateway
				errResponse.Code = "PROCESSOR_ERROR"
				errResponse.Message = "Payment processor is unavailable. Please try again later."
			case errors.Is(err, ierr.ErrEngineMisconfigured):
				status = http.StatusInternalServerError
				errResponse.Code = "ENGINE_MISCONFIGURED"
				errResponse.Message = "Search engine is not configured. Contact the administrator."
			case errors.Is(err, ierr.ErrEngineUnreachable), errors.Is(err, ierr.ErrEngineRejected):
				status = http.StatusInternalServerError
				errResponse.Code = "ENGINE_ERROR"
				errResponse.Message = "Search engine error. Verify the configuration."
			case errors.Is(err, ierr.ErrKeyProvisioningFailed):
				status = http.StatusInternalServerError
				errResponse.Code = "KEY_PROVISIONING_FAILED"
				errResponse.Message = "Failed to provision API key."
			default:
				errResponse.Message = err.Error()
			}
		}

		c.AbortWithStatusJSON(status, errResponse)
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
