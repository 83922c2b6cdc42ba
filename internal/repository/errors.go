// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// services and handlers to distinguish between different failure
// scenarios. For example, ErrConflict signals that a state transition
// cannot proceed because the row is no longer in the expected state
// (slot already occupied, session no longer RESERVED), while
// ErrUnauthorized indicates an ownership or role check failed.
package repository

import "errors"

// ErrNotFound is returned when a session, slot, vehicle or rate row does
// not exist. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed due to the
// current state of the data: the slot is occupied or inactive, the
// session is not in the status the transition requires, or the vehicle
// already has an active session. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUnauthorized is returned when the caller does not own the resource
// or lacks the role required for the operation. Handlers should
// translate this into an HTTP 403 response.
var ErrUnauthorized = errors.New("unauthorized")

// ErrDuplicate is returned when a unique constraint rejects an insert,
// such as registering a plate or email twice.
var ErrDuplicate = errors.New("duplicate entry")
