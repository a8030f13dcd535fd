package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/bookswap/internal/model"
	"github.com/iliyamo/bookswap/internal/queue"
	"github.com/iliyamo/bookswap/internal/repository"
)

// RequestHandler implements the book-request workflow: creating a
// request, listing requests made and received, and letting the owner
// of the requested book accept or decline.  Every decision resolves
// the book live; the request row never names its arbiter.
type RequestHandler struct {
	Requests RequestStore
	Books    BookStore
	// Publish is invoked after a successful decision.  Failures are
	// logged by the publisher and otherwise ignored; the decision
	// itself has already been persisted.  May be nil (tests, or a
	// deployment without a broker).
	Publish func(ctx context.Context, ev queue.RequestDecidedEvent) error
}

// NewRequestHandler constructs a new RequestHandler and panics if a
// store is nil.  The publisher is optional.
func NewRequestHandler(requests RequestStore, books BookStore, publish func(ctx context.Context, ev queue.RequestDecidedEvent) error) *RequestHandler {
	if requests == nil || books == nil {
		panic("nil store passed to NewRequestHandler")
	}
	return &RequestHandler{Requests: requests, Books: books, Publish: publish}
}

// ----- DTOs -----

type createRequestReq struct {
	BookID uint64 `json:"book_id"`
}

type decideRequestReq struct {
	Status string `json:"status"`
}

type requestResp struct {
	ID          uint64    `json:"id"`
	BookID      uint64    `json:"book_id"`
	RequesterID uint64    `json:"requester_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type requestWithBookResp struct {
	requestResp
	Book bookResp `json:"book"`
}

func toRequestResp(r *model.Request) requestResp {
	return requestResp{
		ID:          r.ID,
		BookID:      r.BookID,
		RequesterID: r.RequesterID,
		Status:      r.Status,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func toRequestWithBookResp(d *model.RequestWithBook) requestWithBookResp {
	return requestWithBookResp{
		requestResp: toRequestResp(&d.Request),
		Book:        toBookResp(&d.Book),
	}
}

// CreateRequest handles POST /v1/requests.  A user may request any
// book except their own, and holds at most one pending request per
// book at a time.  A previously declined or accepted request does not
// block a new one.
func (h *RequestHandler) CreateRequest(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req createRequestReq
	if err := c.Bind(&req); err != nil || req.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id is required"})
	}

	ctx := c.Request().Context()
	book, err := h.Books.GetByID(ctx, req.BookID)
	if err != nil {
		if errors.Is(err, repository.ErrBookNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load book"})
	}
	if book.OwnerID == userID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot request your own book"})
	}

	// Friendly pre-check; the unique index on the requests table is
	// what actually closes the race between two concurrent creates.
	exists, err := h.Requests.HasPending(ctx, req.BookID, userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to check existing requests"})
	}
	if exists {
		return c.JSON(http.StatusConflict, echo.Map{"error": "you already have a pending request for this book"})
	}

	r := &model.Request{BookID: req.BookID, RequesterID: userID}
	if err := h.Requests.Create(ctx, r); err != nil {
		if errors.Is(err, repository.ErrDuplicatePending) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "you already have a pending request for this book"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to create request"})
	}
	return c.JSON(http.StatusCreated, toRequestResp(r))
}

// ListMine handles GET /v1/requests/mine and returns the requests the
// caller has made, each with its book embedded.
func (h *RequestHandler) ListMine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Requests.ListByRequester(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load requests"})
	}
	items := make([]requestWithBookResp, 0, len(list))
	for _, d := range list {
		items = append(items, toRequestWithBookResp(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ListReceived handles GET /v1/requests/received and returns the
// requests made against the caller's books.  Ownership is computed
// through the book join, never read off the request row.
func (h *RequestHandler) ListReceived(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Requests.ListByBookOwner(c.Request().Context(), userID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load requests"})
	}
	items := make([]requestWithBookResp, 0, len(list))
	for _, d := range list {
		items = append(items, toRequestWithBookResp(d))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Decide handles PATCH /v1/requests/:id.  Only the owner of the
// referenced book may decide, the only accepted targets are
// "accepted" and "declined", and a request can be decided exactly
// once: re-deciding an already decided request yields 409.
func (h *RequestHandler) Decide(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	reqID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || reqID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}
	var body decideRequestReq
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if body.Status != model.StatusAccepted && body.Status != model.StatusDeclined {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "status must be accepted or declined"})
	}

	ctx := c.Request().Context()
	detail, err := h.Requests.GetWithBook(ctx, reqID)
	if err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to load request"})
	}
	if detail.Book.OwnerID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if err := h.Requests.Decide(ctx, reqID, body.Status); err != nil {
		if errors.Is(err, repository.ErrRequestNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		}
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "request already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update request"})
	}
	detail.Status = body.Status
	detail.UpdatedAt = time.Now().UTC()

	if h.Publish != nil {
		_ = h.Publish(ctx, queue.RequestDecidedEvent{
			RequestID:   detail.ID,
			BookID:      detail.BookID,
			BookTitle:   detail.Book.Title,
			BookAuthor:  detail.Book.Author,
			OwnerID:     detail.Book.OwnerID,
			RequesterID: detail.RequesterID,
			Status:      detail.Status,
			DecidedAt:   detail.UpdatedAt.Format(time.RFC3339),
		})
	}
	return c.JSON(http.StatusOK, toRequestWithBookResp(detail))
}
