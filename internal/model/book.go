package model

import "time"

// Book conditions accepted by the API.  The zero value of a book's
// condition column is never empty: creation defaults to ConditionGood
// when the client omits the field, and any explicit value outside this
// set is rejected before it reaches the database.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like-new"
	ConditionGood    = "good"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// ValidCondition reports whether s is one of the accepted book conditions.
func ValidCondition(s string) bool {
	switch s {
	case ConditionNew, ConditionLikeNew, ConditionGood, ConditionFair, ConditionPoor:
		return true
	}
	return false
}

// Book represents a listing posted by a user for exchange.  Each
// book belongs to exactly one owner; only the owner may update or
// delete it.  This struct corresponds to a row in the `books` table.
//
// Fields:
//  ID        – primary key identifier.
//  OwnerID   – user ID of the posting owner; immutable after creation.
//  Title     – non-empty title of the book.
//  Author    – non-empty author name.
//  Condition – one of the Condition* constants above.
//  ImageURL  – optional cover image URL, empty when not provided.
//  CreatedAt – timestamp when the book was posted.
//  UpdatedAt – timestamp of last update.
type Book struct {
	ID        uint64    // books.id
	OwnerID   uint64    // books.owner_id
	Title     string    // books.title
	Author    string    // books.author
	Condition string    // books.cond
	ImageURL  string    // books.image_url
	CreatedAt time.Time // books.created_at
	UpdatedAt time.Time // books.updated_at
}

// BookWithOwner pairs a book with the minimal public identity of its
// owner for the public listing endpoint.  Only the owner's display
// name and email are carried, never credentials.
type BookWithOwner struct {
	Book
	OwnerName  string // users.display_name of the owner
	OwnerEmail string // users.email of the owner
}
