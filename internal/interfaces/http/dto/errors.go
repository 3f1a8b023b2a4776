package dto

import "net/http"

// Error codes surfaced by the API. Handlers pass domain error codes
// through unchanged; the map below decides the HTTP status.
const (
	ErrCodeValidation          = "VALIDATION_ERROR"
	ErrCodeAuthFailure         = "AUTH_FAILURE"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeInsufficientStock   = "INSUFFICIENT_STOCK"
	ErrCodeAlreadyUsed         = "ALREADY_USED"
	ErrCodeCouponExpired       = "COUPON_EXPIRED"
	ErrCodeInvalidState        = "INVALID_STATE"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeUpstreamFailure     = "UPSTREAM_FAILURE"
	ErrCodeRateLimited         = "RATE_LIMITED"
	ErrCodeRequestTooLarge     = "REQUEST_TOO_LARGE"
	ErrCodeInternal            = "INTERNAL_ERROR"
)

// errorCodeHTTPStatus maps error codes to HTTP status codes
var errorCodeHTTPStatus = map[string]int{
	ErrCodeValidation:          http.StatusBadRequest,
	ErrCodeAuthFailure:         http.StatusUnauthorized,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeForbidden:           http.StatusForbidden,
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeInsufficientStock:   http.StatusConflict,
	ErrCodeAlreadyUsed:         http.StatusConflict,
	ErrCodeCouponExpired:       http.StatusGone,
	ErrCodeInvalidState:        http.StatusUnprocessableEntity,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeUpstreamFailure:     http.StatusBadGateway,
	ErrCodeRateLimited:         http.StatusTooManyRequests,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeInternal:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status for an error code.
// Unknown codes come back as 500 so nothing leaks with a misleading status.
func GetHTTPStatus(code string) int {
	if status, ok := errorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
