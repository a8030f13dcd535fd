package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookswap/internal/model"
	"github.com/iliyamo/bookswap/internal/repository"
)

// BookHandler implements the listing endpoints: the public catalogue,
// per-owner listing and the owner-only create/update/delete operations.
// All methods except ListBooks assume the JWT middleware has run.
type BookHandler struct {
	Books BookStore
}

// NewBookHandler constructs a new BookHandler and panics if the store is nil.
func NewBookHandler(books BookStore) *BookHandler {
	if books == nil {
		panic("nil store passed to NewBookHandler")
	}
	return &BookHandler{Books: books}
}

// ----- DTOs -----

type createBookReq struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Condition string `json:"condition"`
	ImageURL  string `json:"image_url"`
}

// updateBookReq uses pointer fields so that absent keys can be told
// apart from explicit empty values: only the fields present in the
// body are applied (patch, not replace).
type updateBookReq struct {
	Title     *string `json:"title"`
	Author    *string `json:"author"`
	Condition *string `json:"condition"`
	ImageURL  *string `json:"image_url"`
}

type bookResp struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Condition string    `json:"condition"`
	ImageURL  string    `json:"image_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ownerPart struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type publicBookResp struct {
	bookResp
	Owner ownerPart `json:"owner"`
}

func toBookResp(b *model.Book) bookResp {
	return bookResp{
		ID:        b.ID,
		OwnerID:   b.OwnerID,
		Title:     b.Title,
		Author:    b.Author,
		Condition: b.Condition,
		ImageURL:  b.ImageURL,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// parseBookID extracts and validates the :id path parameter.
func parseBookID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid book id")
	}
	return id, nil
}

// ListBooks handles GET /v1/books.  The catalogue is public; each book
// carries the owner's display name and email so visitors can see who
// posted it.  Registered behind the Redis response cache.
func (h *BookHandler) ListBooks(c echo.Context) error {
	books, err := h.Books.ListAll(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load books"})
	}
	items := make([]publicBookResp, 0, len(books))
	for _, b := range books {
		items = append(items, publicBookResp{
			bookResp: toBookResp(&b.Book),
			Owner:    ownerPart{ID: b.OwnerID, Name: b.OwnerName, Email: b.OwnerEmail},
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListMine handles GET /v1/books/mine and returns the caller's own listings.
func (h *BookHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	books, err := h.Books.ListByOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load books"})
	}
	items := make([]bookResp, 0, len(books))
	for _, b := range books {
		items = append(items, toBookResp(b))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// CreateBook handles POST /v1/books.  Title and author are required;
// condition defaults to "good" when omitted but an explicit value
// outside the accepted set is rejected rather than silently replaced.
func (h *BookHandler) CreateBook(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	req.Author = strings.TrimSpace(req.Author)
	if req.Title == "" || req.Author == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title and author are required"})
	}
	cond := strings.TrimSpace(req.Condition)
	if cond == "" {
		cond = model.ConditionGood
	} else if !model.ValidCondition(cond) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid condition"})
	}

	book := &model.Book{
		OwnerID:   userID,
		Title:     req.Title,
		Author:    req.Author,
		Condition: cond,
		ImageURL:  strings.TrimSpace(req.ImageURL),
	}
	if err := h.Books.Create(c.Request().Context(), book); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create book"})
	}
	return c.JSON(http.StatusCreated, toBookResp(book))
}

// UpdateBook handles PUT /v1/books/:id.  Only the owner may update a
// book, and only the fields present in the body are touched.
func (h *BookHandler) UpdateBook(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookID, err := parseBookID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req updateBookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx := c.Request().Context()
	book, err := h.Books.GetByID(ctx, bookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load book"})
	}
	if book.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "title must not be empty"})
		}
		book.Title = t
	}
	if req.Author != nil {
		a := strings.TrimSpace(*req.Author)
		if a == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "author must not be empty"})
		}
		book.Author = a
	}
	if req.Condition != nil {
		if !model.ValidCondition(*req.Condition) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid condition"})
		}
		book.Condition = *req.Condition
	}
	if req.ImageURL != nil {
		book.ImageURL = strings.TrimSpace(*req.ImageURL)
	}

	if err := h.Books.Update(ctx, book); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update book"})
	}
	return c.JSON(http.StatusOK, toBookResp(book))
}

// DeleteBook handles DELETE /v1/books/:id.  Only the owner may delete;
// the removal is permanent and takes the book's requests with it.
func (h *BookHandler) DeleteBook(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookID, err := parseBookID(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	if err := h.Books.DeleteByIDAndOwner(c.Request().Context(), bookID, userID); err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		if errors.Is(err, repository.ErrForbidden) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to delete book"})
	}
	return c.JSON(http.StatusOK, echo.Map{"deleted": true})
}
