package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bookswap/internal/model"
	"github.com/iliyamo/bookswap/internal/queue"
)

func newRequestHandler(store *memStore) *RequestHandler {
	return NewRequestHandler(requestStoreView{store}, store, nil)
}

func TestCreateRequest_OwnBookRejected(t *testing.T) {
	store := newMemStore()
	seedBook(t, store, 1, "Dune")
	h := newRequestHandler(store)

	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, 1)
	require.NoError(t, h.CreateRequest(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRequest_BookNotFound(t *testing.T) {
	h := newRequestHandler(newMemStore())
	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":42}`, 1)
	require.NoError(t, h.CreateRequest(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateRequest_MissingBookID(t *testing.T) {
	h := newRequestHandler(newMemStore())
	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{}`, 1)
	require.NoError(t, h.CreateRequest(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRequest_DuplicatePending(t *testing.T) {
	store := newMemStore()
	seedBook(t, store, 1, "Dune")
	h := newRequestHandler(store)

	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, 2)
	require.NoError(t, h.CreateRequest(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.StatusPending, decodeBody(t, rec)["status"])

	c, rec = newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, 2)
	require.NoError(t, h.CreateRequest(c))
	assert.Equal(t, http.StatusConflict, rec.Code)

	// the first request is untouched by the rejected duplicate
	d, err := store.GetWithBook(t.Context(), 1)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, d.Status)
}

func TestCreateRequest_UniqueIndexBacksPrecheck(t *testing.T) {
	// Simulates the losing side of the create race: the pre-check
	// passed but the store's unique index rejected the insert.
	store := newMemStore()
	seedBook(t, store, 1, "Dune")
	require.NoError(t, store.CreateRequest(t.Context(), &model.Request{BookID: 1, RequesterID: 2}))

	err := store.CreateRequest(t.Context(), &model.Request{BookID: 1, RequesterID: 2})
	assert.ErrorContains(t, err, "duplicate pending")
}

func TestCreateRequest_AllowedAfterDecision(t *testing.T) {
	store := newMemStore()
	seedBook(t, store, 1, "Dune")
	h := newRequestHandler(store)

	c, rec := newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, 2)
	require.NoError(t, h.CreateRequest(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.NoError(t, store.Decide(t.Context(), 1, model.StatusDeclined))

	// a decided request does not block a fresh ask
	c, rec = newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, 2)
	require.NoError(t, h.CreateRequest(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestListMineAndReceived(t *testing.T) {
	store := newMemStore()
	seedBook(t, store, 1, "Dune")        // owned by 1
	seedBook(t, store, 2, "Neuromancer") // owned by 2
	require.NoError(t, store.CreateRequest(t.Context(), &model.Request{BookID: 1, RequesterID: 3}))
	require.NoError(t, store.CreateRequest(t.Context(), &model.Request{BookID: 2, RequesterID: 3}))
	h := newRequestHandler(store)

	c, rec := newTestContext(t, http.MethodGet, "/v1/requests/mine", "", 3)
	require.NoError(t, h.ListMine(c))
	require.Equal(t, http.StatusOK, rec.Code)
	items := decodeBody(t, rec)["items"].([]any)
	require.Len(t, items, 2)
	// the referenced book rides along on each item
	assert.Equal(t, "Dune", items[0].(map[string]any)["book"].(map[string]any)["title"])

	c, rec = newTestContext(t, http.MethodGet, "/v1/requests/received", "", 1)
	require.NoError(t, h.ListReceived(c))
	require.Equal(t, http.StatusOK, rec.Code)
	items = decodeBody(t, rec)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Dune", items[0].(map[string]any)["book"].(map[string]any)["title"])
}

func TestDecide_Validation(t *testing.T) {
	tests := []struct {
		name   string
		userID uint64
		reqID  string
		body   string
		want   int
	}{
		{"bad_id", 1, "abc", `{"status":"accepted"}`, http.StatusBadRequest},
		{"unknown_request", 1, "99", `{"status":"accepted"}`, http.StatusNotFound},
		{"invalid_status", 1, "1", `{"status":"maybe"}`, http.StatusBadRequest},
		{"pending_not_a_target", 1, "1", `{"status":"pending"}`, http.StatusBadRequest},
		{"not_book_owner", 3, "1", `{"status":"accepted"}`, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			seedBook(t, store, 1, "Dune")
			require.NoError(t, store.CreateRequest(t.Context(), &model.Request{BookID: 1, RequesterID: 2}))
			h := newRequestHandler(store)

			c, rec := newTestContext(t, http.MethodPatch, "/", tt.body, tt.userID)
			c.SetParamNames("id")
			c.SetParamValues(tt.reqID)
			require.NoError(t, h.Decide(c))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestDecide_AcceptOnceThenConflict(t *testing.T) {
	store := newMemStore()
	seedBook(t, store, 1, "Dune")
	require.NoError(t, store.CreateRequest(t.Context(), &model.Request{BookID: 1, RequesterID: 2}))
	h := newRequestHandler(store)

	c, rec := newTestContext(t, http.MethodPatch, "/", `{"status":"accepted"}`, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Decide(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusAccepted, decodeBody(t, rec)["status"])

	// decided requests are terminal
	c, rec = newTestContext(t, http.MethodPatch, "/", `{"status":"declined"}`, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Decide(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDecide_PublishesEvent(t *testing.T) {
	store := newMemStore()
	seedBook(t, store, 1, "Dune")
	require.NoError(t, store.CreateRequest(t.Context(), &model.Request{BookID: 1, RequesterID: 2}))

	var got queue.RequestDecidedEvent
	h := NewRequestHandler(requestStoreView{store}, store, func(ctx context.Context, ev queue.RequestDecidedEvent) error {
		got = ev
		return nil
	})

	c, rec := newTestContext(t, http.MethodPatch, "/", `{"status":"declined"}`, 1)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, h.Decide(c))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, uint64(1), got.RequestID)
	assert.Equal(t, uint64(1), got.BookID)
	assert.Equal(t, "Dune", got.BookTitle)
	assert.Equal(t, uint64(1), got.OwnerID)
	assert.Equal(t, uint64(2), got.RequesterID)
	assert.Equal(t, model.StatusDeclined, got.Status)
}

// Full walkthrough: A lists a book, C asks for it twice, A accepts,
// an unrelated user tries to decline.
func TestSwapWalkthrough(t *testing.T) {
	store := newMemStore()
	bh := NewBookHandler(store)
	rh := newRequestHandler(store)

	const userA, userB, userC = 1, 2, 3

	c, rec := newTestContext(t, http.MethodPost, "/v1/books",
		`{"title":"Dune","author":"Herbert"}`, userA)
	require.NoError(t, bh.CreateBook(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, userC)
	require.NoError(t, rh.CreateRequest(c))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, model.StatusPending, decodeBody(t, rec)["status"])

	c, rec = newTestContext(t, http.MethodPost, "/v1/requests", `{"book_id":1}`, userC)
	require.NoError(t, rh.CreateRequest(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	c, rec = newTestContext(t, http.MethodPatch, "/", `{"status":"accepted"}`, userA)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, rh.Decide(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.StatusAccepted, decodeBody(t, rec)["status"])

	c, rec = newTestContext(t, http.MethodPatch, "/", `{"status":"declined"}`, userB)
	c.SetParamNames("id")
	c.SetParamValues("1")
	require.NoError(t, rh.Decide(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
