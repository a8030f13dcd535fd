// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by
// someone else, while ErrDuplicatePending signals that a user
// already has a pending request for the same book.
package repository

import "errors"

// ErrBookNotFound is returned when a book cannot be found in the DB.
var ErrBookNotFound = errors.New("book not found")

// ErrRequestNotFound is returned when a request cannot be found in the DB.
var ErrRequestNotFound = errors.New("request not found")

// ErrForbidden is returned when the caller attempts an operation
// on a resource they do not own. Handlers should translate this
// into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an update cannot be performed because
// of conflicting state, such as deciding a request that has already
// been accepted or declined. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrDuplicatePending is returned when a user already has a pending
// request for a given book. The `requests` table enforces this with a
// unique index over (book_id, requester_id, pending_key), so two
// concurrent creates collapse to a single winner even though the
// handler-level existence check is a separate read.
var ErrDuplicatePending = errors.New("duplicate pending request")
