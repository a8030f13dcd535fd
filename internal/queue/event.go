// Package queue defines message payloads exchanged over the message broker.
package queue

// RequestDecidedEvent is published when a book's owner accepts or
// declines a request.  It carries enough information for downstream
// consumers to build an audit trail or trigger analytics without
// querying the primary database.
type RequestDecidedEvent struct {
	RequestID   uint64 `json:"request_id"`
	BookID      uint64 `json:"book_id"`
	BookTitle   string `json:"book_title"`
	BookAuthor  string `json:"book_author"`
	OwnerID     uint64 `json:"owner_id"`
	RequesterID uint64 `json:"requester_id"`
	Status      string `json:"status"`
	DecidedAt   string `json:"decided_at"`
}
