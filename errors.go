package bpcheckout

import (
	"errors"
	"fmt"
)

// Error is a coded integration error. The code carries the failure class so
// callers can branch on taxonomy without string-matching messages.
type Error struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Failure classes.
const (
	ErrCodeGateway     = "gateway_failure"
	ErrCodeParse       = "invalid_payload"
	ErrCodeLookup      = "not_found"
	ErrCodeValidation  = "validation_failed"
	ErrCodePersistence = "persistence_failure"
)

// ErrNotFound is the sentinel lookup failure returned by stores and
// repositories when a record does not exist.
var ErrNotFound = errors.New("not found")

// NewGatewayError reports a provider API failure (network, auth, malformed
// response). The invoice-creation path treats it as fatal to the checkout
// attempt; the reconciler treats it as a no-op for the delivery.
func NewGatewayError(message string, details map[string]interface{}) *Error {
	return &Error{Code: ErrCodeGateway, Message: message, Details: details}
}

// NewParseError reports a malformed webhook body or a missing required field.
func NewParseError(message string, details map[string]interface{}) *Error {
	return &Error{Code: ErrCodeParse, Message: message, Details: details}
}

// NewLookupError reports an unknown invoice or order.
func NewLookupError(message string, details map[string]interface{}) *Error {
	return &Error{Code: ErrCodeLookup, Message: message, Details: details}
}

// NewValidationError reports a fetched invoice that contradicts the expected
// buyer/order association.
func NewValidationError(message string, details map[string]interface{}) *Error {
	return &Error{Code: ErrCodeValidation, Message: message, Details: details}
}

// NewPersistenceError reports a store write failure.
func NewPersistenceError(message string, details map[string]interface{}) *Error {
	return &Error{Code: ErrCodePersistence, Message: message, Details: details}
}

// CodeOf extracts the failure class from an error chain, or "" when the
// error carries no code.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
