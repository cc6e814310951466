// Package service holds the business logic between the HTTP handlers
// and the repositories: registration intake, the verification engine
// and the order bridge.  Services accept narrow interfaces so they can
// be exercised against fakes in tests and against the MySQL
// repositories in production.
package service

import (
	"fmt"
	"sort"
	"strings"
)

// Verification failure codes surfaced to callers.  AlreadyVerified is
// deliberately not here: an idempotent no-op is a success variant, not
// an error.
const (
	CodeRaceConditionDetected = "RACE_CONDITION_DETECTED"
	CodePaymentIntentNotFound = "PAYMENT_INTENT_NOT_FOUND"
	CodePaymentNotSucceeded   = "PAYMENT_NOT_SUCCEEDED"
)

// ValidationError carries itemized field errors from intake.  No state
// is mutated when one is returned.
type ValidationError struct {
	Fields map[string]string
}

// Error lists the offending fields in a stable order.
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// VerificationError is a coded failure from the verification engine.
// Handlers map the code to an HTTP status.
type VerificationError struct {
	Code    string
	Message string
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}
