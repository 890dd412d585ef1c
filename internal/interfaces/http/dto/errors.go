package dto

import (
	"net/http"

	"github.com/erp/receiving/internal/domain/receiving"
	"github.com/erp/receiving/internal/domain/shared"
)

// API error codes, formatted ERR_<DESCRIPTION>
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"

	ErrCodeValidation      = "ERR_VALIDATION"
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeInvalidReason   = "ERR_INVALID_REASON"
	ErrCodeInvalidEmployee = "ERR_INVALID_EMPLOYEE"

	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
	ErrCodeDuplicateRequest    = "ERR_DUPLICATE_REQUEST"

	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeNoChanges is informational: the batch was valid but empty
	ErrCodeNoChanges   = "ERR_NO_CHANGES"
	ErrCodePersistence = "ERR_PERSISTENCE"
)

// apiError is one row of the catalog. from is the domain error that maps to
// the code, nil for codes raised only by the transport layer.
type apiError struct {
	status int
	from   *shared.DomainError
}

var catalog = map[string]apiError{
	ErrCodeUnknown:  {http.StatusInternalServerError, nil},
	ErrCodeInternal: {http.StatusInternalServerError, nil},

	ErrCodeValidation:      {http.StatusBadRequest, receiving.ErrValidationFailed},
	ErrCodeBadRequest:      {http.StatusBadRequest, nil},
	ErrCodeInvalidInput:    {http.StatusBadRequest, shared.ErrInvalidInput},
	ErrCodeInvalidJSON:     {http.StatusBadRequest, nil},
	ErrCodeRequestTooLarge: {http.StatusRequestEntityTooLarge, nil},
	ErrCodeInvalidReason:   {http.StatusBadRequest, receiving.ErrForceCloseReasonRequired},
	ErrCodeInvalidEmployee: {http.StatusBadRequest, receiving.ErrEmployeeRequired},

	ErrCodeNotFound:            {http.StatusNotFound, shared.ErrNotFound},
	ErrCodeConflict:            {http.StatusConflict, nil},
	ErrCodeConcurrencyConflict: {http.StatusConflict, shared.ErrConcurrencyConflict},
	ErrCodeDuplicateRequest:    {http.StatusConflict, shared.ErrDuplicateRequest},

	ErrCodeInvalidState: {http.StatusUnprocessableEntity, shared.ErrInvalidState},
	ErrCodeNoChanges:    {http.StatusOK, receiving.ErrNoChanges},
	ErrCodePersistence:  {http.StatusInternalServerError, receiving.ErrPersistence},
}

// byDomainCode indexes the catalog by domain error code.
var byDomainCode = func() map[string]string {
	m := make(map[string]string, len(catalog))
	for code, e := range catalog {
		if e.from != nil {
			m[e.from.Code] = code
		}
	}
	return m
}()

// GetHTTPStatus returns the HTTP status for an API error code. Unknown codes
// map to 500.
func GetHTTPStatus(code string) int {
	if e, ok := catalog[code]; ok {
		return e.status
	}
	return http.StatusInternalServerError
}

// NormalizeErrorCode converts a domain error code to its API form. Codes
// already in API form, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if api, ok := byDomainCode[code]; ok {
		return api
	}
	return code
}

// ResolveDomainError returns the API code and HTTP status for err.
func ResolveDomainError(err *shared.DomainError) (string, int) {
	code := NormalizeErrorCode(err.Code)
	return code, GetHTTPStatus(code)
}
