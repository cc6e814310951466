// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. For example, ErrNotFound indicates that a lookup by id
// or payment-intent identifier matched no row, while ErrConflict
// signals that an operation cannot proceed due to existing state
// (e.g. completing a pair whose registration already failed).
package repository

import "errors"

// ErrNotFound is returned when a lookup matches no row. Handlers
// should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as attempting to complete a registration
// that has already transitioned to FAILED. Handlers should translate
// this into an HTTP 409 response.
var ErrConflict = errors.New("conflict")
