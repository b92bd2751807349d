package apierror

import (
	"encoding/json"
	"errors"
	"net/http"

	"mintgate-api/internal/sale"
)

// Error represents a structured API error response.
type Error struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// ToJSON converts the error to JSON bytes.
func (e *Error) ToJSON() []byte {
	response := map[string]interface{}{
		"success": false,
		"error": map[string]interface{}{
			"code":    e.Code,
			"message": e.Message,
		},
	}
	data, _ := json.Marshal(response)
	return data
}

// BadRequest creates a 400 Bad Request error.
func BadRequest(message string) *Error {
	return &Error{
		StatusCode: http.StatusBadRequest,
		Code:       "BAD_REQUEST",
		Message:    message,
	}
}

// Unauthorized creates a 401 Unauthorized error.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required"
	}
	return &Error{
		StatusCode: http.StatusUnauthorized,
		Code:       "UNAUTHORIZED",
		Message:    message,
	}
}

// NotFound creates a 404 Not Found error.
func NotFound(message string) *Error {
	if message == "" {
		message = "Resource not found"
	}
	return &Error{
		StatusCode: http.StatusNotFound,
		Code:       "NOT_FOUND",
		Message:    message,
	}
}

// Conflict creates a 409 Conflict error.
func Conflict(message string) *Error {
	return &Error{
		StatusCode: http.StatusConflict,
		Code:       "CONFLICT",
		Message:    message,
	}
}

// InternalError creates a 500 Internal Server Error.
func InternalError(message string) *Error {
	if message == "" {
		message = "An unexpected error occurred"
	}
	return &Error{
		StatusCode: http.StatusInternalServerError,
		Code:       "INTERNAL_ERROR",
		Message:    message,
	}
}

// saleErrors maps every engine sentinel to an HTTP status and a stable
// wire code.
var saleErrors = []struct {
	err    sale.Error
	status int
	code   string
}{
	{sale.ErrInvalidInput, http.StatusBadRequest, "INVALID_INPUT"},
	{sale.ErrNotFound, http.StatusNotFound, "WINDOW_NOT_FOUND"},
	{sale.ErrNotModifiable, http.StatusConflict, "WINDOW_NOT_MODIFIABLE"},
	{sale.ErrDuplicateID, http.StatusConflict, "DUPLICATE_WINDOW_ID"},
	{sale.ErrDuplicateStartTime, http.StatusConflict, "DUPLICATE_START_TIME"},
	{sale.ErrPastStartTime, http.StatusUnprocessableEntity, "PAST_START_TIME"},
	{sale.ErrEmptyMembershipRoot, http.StatusUnprocessableEntity, "EMPTY_MEMBERSHIP_ROOT"},
	{sale.ErrLimitsLengthMismatch, http.StatusUnprocessableEntity, "LIMITS_LENGTH_MISMATCH"},
	{sale.ErrSaleClosed, http.StatusConflict, "SALE_CLOSED"},
	{sale.ErrNotEligible, http.StatusForbidden, "NOT_ELIGIBLE"},
	{sale.ErrUnknownType, http.StatusUnprocessableEntity, "UNKNOWN_TYPE"},
	{sale.ErrSoldOut, http.StatusConflict, "SOLD_OUT"},
	{sale.ErrQuotaExceeded, http.StatusConflict, "QUOTA_EXCEEDED"},
	{sale.ErrInsufficientPayment, http.StatusPaymentRequired, "INSUFFICIENT_PAYMENT"},
	{sale.ErrPaymentRefundFailed, http.StatusBadGateway, "PAYMENT_REFUND_FAILED"},
	{sale.ErrReentrancy, http.StatusConflict, "REENTRANCY_DETECTED"},
}

// FromSale translates an engine error into an API error. Unknown errors
// become opaque 500s so collaborator failures never leak detail.
func FromSale(err error) *Error {
	for _, m := range saleErrors {
		if errors.Is(err, m.err) {
			return &Error{StatusCode: m.status, Code: m.code, Message: m.err.Error()}
		}
	}
	return InternalError("")
}
