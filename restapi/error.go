/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package restapi

// Error represents an error details.
type Error struct {
	Domain  string                 `json:"domain"`
	Code    string                 `json:"code"`
	Message string                 `json:"message,omitempty"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error codes.
// We are using "var" here because some services may want to use different error codes.
var (
	ErrCodeInternal         = "internalError"
	ErrCodeNotFound         = "notFound"
	ErrCodeMethodNotAllowed = "methodNotAllowed"
	ErrCodeTooManyAttempts  = "tooManyAttempts"
)

// Error messages.
// We are using "var" here because some services may want to use different error messages.
var (
	ErrMessageInternal         = "Internal error."
	ErrMessageNotFound         = "Not found."
	ErrMessageMethodNotAllowed = "Method not allowed."
	ErrMessageTooManyAttempts  = "Too many attempts. Try again later."
)

// NewError creates a new Error with specified params.
func NewError(domain, code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

// NewInternalError creates a new internal error with specified domain.
func NewInternalError(domain string) *Error {
	return NewError(domain, ErrCodeInternal, ErrMessageInternal)
}

// NewTooManyAttemptsError creates a new error that is returned for throttled requests.
func NewTooManyAttemptsError(domain string) *Error {
	return NewError(domain, ErrCodeTooManyAttempts, ErrMessageTooManyAttempts)
}

// AddContext adds value to error context.
func (e *Error) AddContext(field string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[field] = value
	return e
}
