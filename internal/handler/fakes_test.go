package handler

// In-memory store fakes used by the handler tests.  They mirror the
// repository semantics exactly: the same sentinel errors, the cascade
// on book delete, the single-pending uniqueness rule and the
// decide-once guard, so the authorization and lifecycle rules can be
// exercised without a MySQL instance.

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/bookswap/internal/model"
	"github.com/iliyamo/bookswap/internal/repository"
	"github.com/iliyamo/bookswap/internal/utils"
)

type memStore struct {
	mu         sync.Mutex
	nextBookID uint64
	nextReqID  uint64
	books      map[uint64]*model.Book
	requests   map[uint64]*model.Request
	owners     map[uint64]model.User // public identity for ListAll joins
	failAll    bool                  // force store errors
}

func newMemStore() *memStore {
	return &memStore{
		books:    make(map[uint64]*model.Book),
		requests: make(map[uint64]*model.Request),
		owners:   make(map[uint64]model.User),
	}
}

func (s *memStore) addOwner(id uint64, name, email string) {
	s.owners[id] = model.User{ID: id, DisplayName: name, Email: email}
}

var errStore = sql.ErrConnDone

// ----- BookStore -----

func (s *memStore) Create(ctx context.Context, b *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStore
	}
	s.nextBookID++
	b.ID = s.nextBookID
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	cp := *b
	s.books[b.ID] = &cp
	return nil
}

func (s *memStore) GetByID(ctx context.Context, id uint64) (*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStore
	}
	b, ok := s.books[id]
	if !ok {
		return nil, repository.ErrBookNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *memStore) ListAll(ctx context.Context) ([]*model.BookWithOwner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStore
	}
	var out []*model.BookWithOwner
	for id := uint64(1); id <= s.nextBookID; id++ {
		b, ok := s.books[id]
		if !ok {
			continue
		}
		u := s.owners[b.OwnerID]
		out = append(out, &model.BookWithOwner{Book: *b, OwnerName: u.DisplayName, OwnerEmail: u.Email})
	}
	return out, nil
}

func (s *memStore) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Book, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStore
	}
	var out []*model.Book
	for id := uint64(1); id <= s.nextBookID; id++ {
		if b, ok := s.books[id]; ok && b.OwnerID == ownerID {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) Update(ctx context.Context, b *model.Book) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStore
	}
	if _, ok := s.books[b.ID]; !ok {
		return sql.ErrNoRows
	}
	b.UpdatedAt = time.Now().UTC()
	cp := *b
	s.books[b.ID] = &cp
	return nil
}

func (s *memStore) DeleteByIDAndOwner(ctx context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStore
	}
	b, ok := s.books[id]
	if !ok {
		return repository.ErrBookNotFound
	}
	if b.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	for rid, r := range s.requests {
		if r.BookID == id {
			delete(s.requests, rid)
		}
	}
	delete(s.books, id)
	return nil
}

// ----- RequestStore -----

func (s *memStore) CreateRequest(ctx context.Context, req *model.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStore
	}
	for _, r := range s.requests {
		if r.BookID == req.BookID && r.RequesterID == req.RequesterID && r.Status == model.StatusPending {
			return repository.ErrDuplicatePending
		}
	}
	s.nextReqID++
	req.ID = s.nextReqID
	req.Status = model.StatusPending
	now := time.Now().UTC()
	req.CreatedAt, req.UpdatedAt = now, now
	cp := *req
	s.requests[req.ID] = &cp
	return nil
}

func (s *memStore) HasPending(ctx context.Context, bookID, requesterID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return false, errStore
	}
	for _, r := range s.requests {
		if r.BookID == bookID && r.RequesterID == requesterID && r.Status == model.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) GetWithBook(ctx context.Context, id uint64) (*model.RequestWithBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStore
	}
	r, ok := s.requests[id]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	b, ok := s.books[r.BookID]
	if !ok {
		return nil, repository.ErrRequestNotFound
	}
	return &model.RequestWithBook{Request: *r, Book: *b}, nil
}

func (s *memStore) ListByRequester(ctx context.Context, requesterID uint64) ([]*model.RequestWithBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStore
	}
	var out []*model.RequestWithBook
	for id := uint64(1); id <= s.nextReqID; id++ {
		r, ok := s.requests[id]
		if !ok || r.RequesterID != requesterID {
			continue
		}
		if b, ok := s.books[r.BookID]; ok {
			out = append(out, &model.RequestWithBook{Request: *r, Book: *b})
		}
	}
	return out, nil
}

func (s *memStore) ListByBookOwner(ctx context.Context, ownerID uint64) ([]*model.RequestWithBook, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return nil, errStore
	}
	var out []*model.RequestWithBook
	for id := uint64(1); id <= s.nextReqID; id++ {
		r, ok := s.requests[id]
		if !ok {
			continue
		}
		if b, ok := s.books[r.BookID]; ok && b.OwnerID == ownerID {
			out = append(out, &model.RequestWithBook{Request: *r, Book: *b})
		}
	}
	return out, nil
}

func (s *memStore) Decide(ctx context.Context, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return errStore
	}
	r, ok := s.requests[id]
	if !ok {
		return repository.ErrRequestNotFound
	}
	if r.Status != model.StatusPending {
		return repository.ErrConflict
	}
	r.Status = status
	r.UpdatedAt = time.Now().UTC()
	return nil
}

// requestStoreView adapts memStore to the RequestStore interface; the
// book and request Create methods would otherwise collide on one type.
type requestStoreView struct{ *memStore }

func (v requestStoreView) Create(ctx context.Context, req *model.Request) error {
	return v.CreateRequest(ctx, req)
}

// ----- UserStore / TokenStore -----

type memUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{users: make(map[uint64]model.User)}
}

func (s *memUserStore) Create(ctx context.Context, email, name, password string, cost int) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	s.nextID++
	s.users[s.nextID] = model.User{ID: s.nextID, Email: email, DisplayName: name, PasswordHash: hash}
	return s.nextID, nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (s *memUserStore) GetByID(ctx context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

type memTokenStore struct {
	mu     sync.Mutex
	tokens map[string]model.RefreshToken
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{tokens: make(map[string]model.RefreshToken)}
}

func (s *memTokenStore) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[tokenHash] = model.RefreshToken{UserID: userID, TokenHash: tokenHash, ExpiresAt: exp}
	return nil
}

func (s *memTokenStore) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || time.Now().UTC().After(t.ExpiresAt) {
		return 0, sql.ErrNoRows
	}
	return t.UserID, nil
}

func (s *memTokenStore) RevokeByHash(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := time.Now().UTC()
		t.RevokedAt = &now
		s.tokens[tokenHash] = t
	}
	return nil
}

func (s *memTokenStore) RevokeAllForUser(ctx context.Context, userID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for h, t := range s.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
			s.tokens[h] = t
		}
	}
	return nil
}
