package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Lookup (NF / FX) ----

func ErrNotFound(entity string) *AppError {
	return New("NF_001", fmt.Sprintf("%s not found", entity), http.StatusNotFound)
}

// ErrRateNotFound is distinct from generic not-found so callers can
// offer "try a supported currency" guidance.
func ErrRateNotFound(base, quote string) *AppError {
	return New("FX_001", fmt.Sprintf("No exchange rate available for %s/%s", base, quote), http.StatusNotFound)
}

// ---- Ledger Business Rules (LED) ----

func ErrInsufficientReserve() *AppError {
	return New("LED_001", "Insufficient reserve balance", http.StatusPaymentRequired)
}

func ErrInsufficientAvailable() *AppError {
	return New("LED_002", "Insufficient available balance", http.StatusPaymentRequired)
}

func ErrInvalidAmount() *AppError {
	return New("LED_003", "Amount must be positive", http.StatusBadRequest)
}

// Validation returns a request-validation error.
func Validation(message string) *AppError {
	return New("VAL_001", message, http.StatusBadRequest)
}

// ---- Merchant Profile (MER) ----

func ErrInvalidMerchantProfile(reason string) *AppError {
	return New("MER_001", reason, http.StatusBadRequest)
}

// ---- Admin & Settings (ADM / CFG) ----

func ErrInvalidAdjustment() *AppError {
	return New("ADM_001", "At least one bucket delta is required", http.StatusBadRequest)
}

func ErrInvalidSpread() *AppError {
	return New("ADM_002", "Spread percent must be between 0 and 10", http.StatusBadRequest)
}

func ErrUnknownSetting(key string) *AppError {
	return New("CFG_001", fmt.Sprintf("Unknown setting key: %s", key), http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrRateLimitExceeded() *AppError {
	return New("API_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// ErrConflictRetryable surfaces after the ledger has exhausted its
// internal retry budget on a concurrent-mutation conflict.
func ErrConflictRetryable(err error) *AppError {
	return Wrap("SYS_002", "Concurrent update conflict, retry the operation", http.StatusConflict, err)
}

func ErrEncryptionFailure(err error) *AppError {
	return Wrap("SYS_003", "Encryption service failure", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}
