package model

import "time"

// Request statuses.  A request starts as pending and is moved exactly
// once to accepted or declined by the owner of the referenced book.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusDeclined = "declined"
)

// Request represents a user's ask to obtain another user's book.
// The authorization target of a request is derived: whoever owns the
// referenced book decides it.  The owner is therefore never stored on
// the row and is always resolved through a join at decision time.
//
// Fields:
//  ID          – primary key identifier.
//  BookID      – book being requested; immutable.
//  RequesterID – user who made the request; immutable, never the book's owner.
//  Status      – one of the Status* constants above.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – timestamp of last update.
type Request struct {
	ID          uint64    // requests.id
	BookID      uint64    // requests.book_id
	RequesterID uint64    // requests.requester_id
	Status      string    // requests.status
	CreatedAt   time.Time // requests.created_at
	UpdatedAt   time.Time // requests.updated_at
}

// RequestWithBook embeds the referenced book alongside a request for
// list and decision endpoints, mirroring a populate-style read.  The
// book's OwnerID is the live authorization target.
type RequestWithBook struct {
	Request
	Book Book // resolved row from books
}
