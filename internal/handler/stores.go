package handler

// Store interfaces consumed by the handlers.  The concrete
// implementations live in internal/repository; the handlers only need
// these narrow slices of them, which also keeps the authorization and
// lifecycle rules testable against in-memory fakes.

import (
	"context"
	"time"

	"github.com/iliyamo/bookswap/internal/model"
)

// BookStore is the persistence surface the book handlers require.
type BookStore interface {
	Create(ctx context.Context, b *model.Book) error
	GetByID(ctx context.Context, id uint64) (*model.Book, error)
	ListAll(ctx context.Context) ([]*model.BookWithOwner, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Book, error)
	Update(ctx context.Context, b *model.Book) error
	DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error
}

// RequestStore is the persistence surface the request handlers require.
type RequestStore interface {
	Create(ctx context.Context, req *model.Request) error
	HasPending(ctx context.Context, bookID, requesterID uint64) (bool, error)
	GetWithBook(ctx context.Context, id uint64) (*model.RequestWithBook, error)
	ListByRequester(ctx context.Context, requesterID uint64) ([]*model.RequestWithBook, error)
	ListByBookOwner(ctx context.Context, ownerID uint64) ([]*model.RequestWithBook, error)
	Decide(ctx context.Context, id uint64, status string) error
}

// UserStore is the persistence surface the auth handlers require.
type UserStore interface {
	Create(ctx context.Context, email, name, password string, cost int) (uint64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// TokenStore persists and validates refresh tokens by hash.
type TokenStore interface {
	StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}
