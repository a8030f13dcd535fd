// Package repository contains data access logic separated from HTTP handlers.
// This file defines repository methods for book listings: CRUD plus the
// public catalogue query that joins in each owner's display identity.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/bookswap/internal/model"
)

// BookRepo encapsulates all database queries related to books. It
// depends on a sql.DB connection which should be configured elsewhere.
type BookRepo struct {
	db *sql.DB
}

// NewBookRepo constructs a BookRepo with the provided DB handle. This
// function allows dependency injection of the database in tests and at
// startup. There is no initialization logic beyond assigning the field.
func NewBookRepo(db *sql.DB) *BookRepo {
	return &BookRepo{db: db}
}

// Create inserts a new book into the database. On success the book's
// ID field will be populated with the auto-generated value. After the
// insert, a SELECT is executed to populate the CreatedAt and UpdatedAt
// fields so that callers receive a fully populated record.
func (r *BookRepo) Create(ctx context.Context, b *model.Book) error {
	const qInsert = "INSERT INTO books (owner_id, title, author, cond, image_url) VALUES (?, ?, ?, ?, ?)"
	res, err := r.db.ExecContext(ctx, qInsert, b.OwnerID, b.Title, b.Author, b.Condition, b.ImageURL)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = uint64(id)

	const qSelect = "SELECT created_at, updated_at FROM books WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, b.ID).Scan(&b.CreatedAt, &b.UpdatedAt)
}

// GetByID fetches a book by its ID regardless of owner. It returns
// ErrBookNotFound if no row is found. Ownership checks are left to
// callers so that "not found" and "forbidden" stay distinguishable.
func (r *BookRepo) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	const q = "SELECT id, owner_id, title, author, cond, image_url, created_at, updated_at FROM books WHERE id = ?"
	var b model.Book
	if err := r.db.QueryRowContext(ctx, q, id).Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Condition, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBookNotFound
		}
		return nil, err
	}
	return &b, nil
}

// ListAll returns every book joined with its owner's public identity.
// It backs the unauthenticated catalogue endpoint, so only the owner's
// display name and email are selected, never the password hash.
func (r *BookRepo) ListAll(ctx context.Context) ([]*model.BookWithOwner, error) {
	const q = `SELECT b.id, b.owner_id, b.title, b.author, b.cond, b.image_url, b.created_at, b.updated_at,
	                  u.display_name, u.email
	           FROM books b
	           JOIN users u ON u.id = b.owner_id
	           ORDER BY b.id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.BookWithOwner
	for rows.Next() {
		b := new(model.BookWithOwner)
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Condition, &b.ImageURL,
			&b.CreatedAt, &b.UpdatedAt, &b.OwnerName, &b.OwnerEmail); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByOwner returns all books posted by a specific owner ordered by id.
func (r *BookRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Book, error) {
	const q = `SELECT id, owner_id, title, author, cond, image_url, created_at, updated_at
	           FROM books WHERE owner_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Book
	for rows.Next() {
		b := new(model.Book)
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Title, &b.Author, &b.Condition, &b.ImageURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the mutable columns of a previously loaded book.
// Patch semantics live in the handler: it loads the row, overwrites
// only the fields present in the request body and hands the result
// here. Returns sql.ErrNoRows when the row vanished in between.
func (r *BookRepo) Update(ctx context.Context, b *model.Book) error {
	const q = `UPDATE books
	           SET title = ?, author = ?, cond = ?, image_url = ?, updated_at = CURRENT_TIMESTAMP
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, b.Title, b.Author, b.Condition, b.ImageURL, b.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	const qSelect = "SELECT updated_at FROM books WHERE id = ?"
	return r.db.QueryRowContext(ctx, qSelect, b.ID).Scan(&b.UpdatedAt)
}

// DeleteByIDAndOwner removes a book and all requests referencing it,
// provided it belongs to the specified owner. If the book does not
// exist, ErrBookNotFound is returned. If the book exists but is owned
// by a different user, ErrForbidden is returned. The deletion occurs
// within a transaction so a book row can never outlive its requests
// nor the other way around.
func (r *BookRepo) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			_ = tx.Commit()
		}
	}()
	// Verify book exists and ownership
	var dbOwnerID uint64
	if err = tx.QueryRowContext(ctx, `SELECT owner_id FROM books WHERE id = ?`, id).Scan(&dbOwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrBookNotFound
		}
		return err
	}
	if dbOwnerID != ownerID {
		err = ErrForbidden
		return err
	}
	// Cascade delete: requests referencing this book go first
	if _, err = tx.ExecContext(ctx, `DELETE FROM requests WHERE book_id = ?`, id); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM books WHERE id = ?`, id); err != nil {
		return err
	}
	return nil
}
