// Package repository contains data access logic separated from HTTP handlers.
// This file implements persistence for book requests. A request's
// authorization target (the owner of the referenced book) is never stored
// on the request row; every read that needs it joins the books table so
// the derivation stays live.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/bookswap/internal/model"
)

// RequestRepo encapsulates all database queries related to requests.
type RequestRepo struct {
	db *sql.DB
}

// NewRequestRepo constructs a RequestRepo with the provided DB handle.
func NewRequestRepo(db *sql.DB) *RequestRepo {
	return &RequestRepo{db: db}
}

// Create inserts a new pending request. The requests table carries a
// generated column pending_key (1 while status is 'pending', NULL
// otherwise) with a unique index over (book_id, requester_id,
// pending_key); a concurrent duplicate insert loses at the index and
// surfaces here as ErrDuplicatePending.
func (r *RequestRepo) Create(ctx context.Context, req *model.Request) error {
	const qInsert = "INSERT INTO requests (book_id, requester_id, status) VALUES (?, ?, 'pending')"
	res, err := r.db.ExecContext(ctx, qInsert, req.BookID, req.RequesterID)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return ErrDuplicatePending
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	req.ID = uint64(id)
	req.Status = model.StatusPending

	const qSelect = "SELECT created_at, updated_at FROM requests WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, req.ID).Scan(&req.CreatedAt, &req.UpdatedAt)
}

// HasPending reports whether the requester already has a pending
// request for the given book. Decided (accepted/declined) requests do
// not count; they never block a new ask.
func (r *RequestRepo) HasPending(ctx context.Context, bookID, requesterID uint64) (bool, error) {
	const q = "SELECT 1 FROM requests WHERE book_id = ? AND requester_id = ? AND status = 'pending' LIMIT 1"
	var one int
	err := r.db.QueryRowContext(ctx, q, bookID, requesterID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetWithBook fetches a request by id with its referenced book
// resolved. Returns ErrRequestNotFound when no row matches.
func (r *RequestRepo) GetWithBook(ctx context.Context, id uint64) (*model.RequestWithBook, error) {
	const q = `SELECT r.id, r.book_id, r.requester_id, r.status, r.created_at, r.updated_at,
	                  b.id, b.owner_id, b.title, b.author, b.cond, b.image_url, b.created_at, b.updated_at
	           FROM requests r
	           JOIN books b ON b.id = r.book_id
	           WHERE r.id = ?`
	var d model.RequestWithBook
	err := r.db.QueryRowContext(ctx, q, id).Scan(
		&d.ID, &d.BookID, &d.RequesterID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
		&d.Book.ID, &d.Book.OwnerID, &d.Book.Title, &d.Book.Author, &d.Book.Condition,
		&d.Book.ImageURL, &d.Book.CreatedAt, &d.Book.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return &d, nil
}

// ListByRequester returns all requests made by a user, each with its
// book resolved, ordered by id.
func (r *RequestRepo) ListByRequester(ctx context.Context, requesterID uint64) ([]*model.RequestWithBook, error) {
	const q = `SELECT r.id, r.book_id, r.requester_id, r.status, r.created_at, r.updated_at,
	                  b.id, b.owner_id, b.title, b.author, b.cond, b.image_url, b.created_at, b.updated_at
	           FROM requests r
	           JOIN books b ON b.id = r.book_id
	           WHERE r.requester_id = ?
	           ORDER BY r.id`
	return r.queryDetails(ctx, q, requesterID)
}

// ListByBookOwner returns all requests whose referenced book belongs
// to the given owner. The ownership filter lives in the join; nothing
// on the request row names the owner.
func (r *RequestRepo) ListByBookOwner(ctx context.Context, ownerID uint64) ([]*model.RequestWithBook, error) {
	const q = `SELECT r.id, r.book_id, r.requester_id, r.status, r.created_at, r.updated_at,
	                  b.id, b.owner_id, b.title, b.author, b.cond, b.image_url, b.created_at, b.updated_at
	           FROM requests r
	           JOIN books b ON b.id = r.book_id
	           WHERE b.owner_id = ?
	           ORDER BY r.id`
	return r.queryDetails(ctx, q, ownerID)
}

func (r *RequestRepo) queryDetails(ctx context.Context, q string, arg uint64) ([]*model.RequestWithBook, error) {
	rows, err := r.db.QueryContext(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.RequestWithBook
	for rows.Next() {
		d := new(model.RequestWithBook)
		if err := rows.Scan(
			&d.ID, &d.BookID, &d.RequesterID, &d.Status, &d.CreatedAt, &d.UpdatedAt,
			&d.Book.ID, &d.Book.OwnerID, &d.Book.Title, &d.Book.Author, &d.Book.Condition,
			&d.Book.ImageURL, &d.Book.CreatedAt, &d.Book.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Decide moves a pending request to accepted or declined. The WHERE
// clause pins the current status to 'pending', so a request can only
// ever be decided once even under concurrent PATCHes; the loser sees
// ErrConflict. ErrRequestNotFound is returned when the id does not
// exist at all.
func (r *RequestRepo) Decide(ctx context.Context, id uint64, status string) error {
	const q = `UPDATE requests
	           SET status = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ? AND status = 'pending'`
	res, err := r.db.ExecContext(ctx, q, status, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	// No row moved: either the request is gone or already decided.
	var current string
	err = r.db.QueryRowContext(ctx, "SELECT status FROM requests WHERE id = ?", id).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrRequestNotFound
	}
	if err != nil {
		return err
	}
	return ErrConflict
}
