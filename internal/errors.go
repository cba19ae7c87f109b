package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation    ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound      ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized  ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden     ErrorType = "FORBIDDEN"
	ErrorTypeConflict      ErrorType = "CONFLICT"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION_ERROR"
	ErrorTypeInternal      ErrorType = "INTERNAL_ERROR"
	ErrorTypeExternal      ErrorType = "EXTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeInvalidDate      ErrorCode = "INVALID_DATE"

	ErrCodeClientNotFound        ErrorCode = "CLIENT_NOT_FOUND"
	ErrCodePurchaseOrderNotFound ErrorCode = "PURCHASE_ORDER_NOT_FOUND"
	ErrCodeOrderSummaryNotFound  ErrorCode = "ORDER_SUMMARY_NOT_FOUND"
	ErrCodePaymentNotFound       ErrorCode = "PAYMENT_NOT_FOUND"
	ErrCodePaymentOrderNotFound  ErrorCode = "PAYMENT_ORDER_NOT_FOUND"

	ErrCodeAccessDenied      ErrorCode = "ACCESS_DENIED"
	ErrCodeInvalidOrderState ErrorCode = "INVALID_ORDER_STATE"

	ErrCodeGatewayNotConfigured ErrorCode = "GATEWAY_NOT_CONFIGURED"
	ErrCodeGatewayError         ErrorCode = "GATEWAY_ERROR"

	ErrCodeOverpaymentDetected     ErrorCode = "OVERPAYMENT_DETECTED"
	ErrCodePaymentExceedsPending   ErrorCode = "PAYMENT_EXCEEDS_PENDING_AMOUNT"
	ErrCodeCannotRefund            ErrorCode = "CANNOT_REFUND"
	ErrCodeRefundExceedsRefundable ErrorCode = "REFUND_EXCEEDS_REFUNDABLE"

	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodeTokenExpired       ErrorCode = "TOKEN_EXPIRED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewConfigurationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConfiguration,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewGatewayError wraps an upstream payment gateway failure. The upstream
// message is preserved verbatim for operator diagnosis.
func NewGatewayError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeExternal,
		Code:       ErrCodeGatewayError,
		Message:    message,
		StatusCode: http.StatusBadGateway,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrClientNotFound        = NewNotFoundError("Client not found", ErrCodeClientNotFound)
	ErrPurchaseOrderNotFound = NewNotFoundError("Purchase order not found", ErrCodePurchaseOrderNotFound)
	ErrOrderSummaryNotFound  = NewNotFoundError("Order summary not found", ErrCodeOrderSummaryNotFound)
	ErrPaymentNotFound       = NewNotFoundError("Payment not found", ErrCodePaymentNotFound)
	ErrPaymentOrderNotFound  = NewNotFoundError("No payment record found for gateway order", ErrCodePaymentOrderNotFound)

	ErrAccessDeniedToPurchaseOrder = NewForbiddenError("access denied to purchase order", ErrCodeAccessDenied)
	ErrAccessDeniedToPayment       = NewForbiddenError("access denied to payment", ErrCodeAccessDenied)

	ErrOnlyPendingApprovalCanBePaid = NewValidationError("only orders pending approval can receive a first payment", ErrCodeInvalidOrderState)
	ErrFollowUpRequiresApproval     = NewValidationError("follow-up payment requires a prior approval", ErrCodeInvalidOrderState)

	ErrGatewayKeyNotConfigured    = NewConfigurationError("gateway API key is not configured for this client", ErrCodeGatewayNotConfigured)
	ErrGatewaySecretNotConfigured = NewConfigurationError("gateway API secret is not configured for this client", ErrCodeGatewayNotConfigured)

	ErrPaymentDateRequired = NewValidationError("payment date is required", ErrCodeInvalidDate)
	ErrValidAmountRequired = NewValidationError("a positive payment amount is required", ErrCodeInvalidAmount)
	ErrCannotRefund        = NewValidationError("payment is not in a refundable state", ErrCodeCannotRefund)

	ErrInvalidCredentials = NewUnauthorizedError("Invalid email or password", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid token", ErrCodeInvalidToken)
	ErrTokenExpired       = NewUnauthorizedError("Token has expired", ErrCodeTokenExpired)
)

// NewOverpaymentError reports a net-paid total exceeding the order's grand
// total. Amounts are formatted in major units.
func NewOverpaymentError(totalPaid, grandTotal string) *AppError {
	return NewConflictError(
		fmt.Sprintf("total paid %s exceeds order grand total %s", totalPaid, grandTotal),
		ErrCodeOverpaymentDetected,
	)
}

func NewPaymentExceedsPendingError(requested, pending string) *AppError {
	return NewValidationError(
		fmt.Sprintf("payment amount %s exceeds pending amount %s", requested, pending),
		ErrCodePaymentExceedsPending,
	)
}

func NewRefundExceedsRefundableError(refundablePaise int64) *AppError {
	return NewValidationError(
		fmt.Sprintf("refund amount exceeds refundable amount of %d paise", refundablePaise),
		ErrCodeRefundExceedsRefundable,
	)
}

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
