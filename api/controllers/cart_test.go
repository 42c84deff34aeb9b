package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopstack/shopstack-backend/api/middleware"
	cartsvc "github.com/shopstack/shopstack-backend/internal/cart"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

type stubCartService struct {
	cartID     uuid.UUID
	addErr     error
	updateRes  *cartsvc.UpdateResult
	updateErr  error
	listView   *cartsvc.View
	listErr    error
	lastUser   uuid.UUID
	lastProd   uuid.UUID
	lastOp     string
	addCalls   int
	updateOps  int
	listCalls  int
}

func (s *stubCartService) AddItem(_ context.Context, userID, productID uuid.UUID) (uuid.UUID, error) {
	s.addCalls++
	s.lastUser = userID
	s.lastProd = productID
	if s.addErr != nil {
		return uuid.Nil, s.addErr
	}
	return s.cartID, nil
}

func (s *stubCartService) UpdateItem(_ context.Context, userID, productID uuid.UUID, operation string) (*cartsvc.UpdateResult, error) {
	s.updateOps++
	s.lastUser = userID
	s.lastProd = productID
	s.lastOp = operation
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return s.updateRes, nil
}

func (s *stubCartService) ListItems(_ context.Context, userID uuid.UUID) (*cartsvc.View, error) {
	s.listCalls++
	s.lastUser = userID
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listView, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
}

func authedRequest(method, target, body string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestCartAddItemSuccess(t *testing.T) {
	svc := &stubCartService{cartID: uuid.New()}
	handler := CartAddItem(svc, testLogger())

	rec := httptest.NewRecorder()
	productID := uuid.New()
	handler(rec, authedRequest(http.MethodPost, "/api/cart/add-item", `{"product_id":"`+productID.String()+`"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, false, body["is_error"])
	assert.Equal(t, "Cart item successfully added", body["message"])
	assert.Equal(t, svc.cartID.String(), body["cart_id"])
	assert.Equal(t, productID, svc.lastProd)
}

func TestCartAddItemMissingProductID(t *testing.T) {
	svc := &stubCartService{}
	handler := CartAddItem(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodPost, "/api/cart/add-item", `{}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["is_error"])
	assert.Equal(t, "Product ID is required.", body["message"])
	assert.Zero(t, svc.addCalls)
}

func TestCartAddItemProductNotFound(t *testing.T) {
	svc := &stubCartService{addErr: pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")}
	handler := CartAddItem(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodPost, "/api/cart/add-item", `{"product_id":"`+uuid.NewString()+`"}`))

	require.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["is_error"])
	assert.Equal(t, "Product not found", body["message"])
}

func TestCartAddItemWithoutUserContext(t *testing.T) {
	handler := CartAddItem(&stubCartService{}, testLogger())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/cart/add-item", strings.NewReader(`{"product_id":"`+uuid.NewString()+`"}`))
	handler(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCartUpdateItemSoftValidation(t *testing.T) {
	svc := &stubCartService{updateErr: pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required.").Soft()}
	handler := CartUpdateItem(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodPost, "/api/cart/update-item", `{"operation":"add"}`))

	// business rejection: HTTP 200 with the error flag set
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["is_error"])
	assert.Equal(t, "Product ID is required.", body["message"])
	assert.Equal(t, uuid.Nil, svc.lastProd)
}

func TestCartUpdateItemUpdatedMessage(t *testing.T) {
	cartID := uuid.New()
	svc := &stubCartService{updateRes: &cartsvc.UpdateResult{CartID: cartID}}
	handler := CartUpdateItem(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodPost, "/api/cart/update-item", `{"product_id":"`+uuid.NewString()+`","operation":"add"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Cart item successfully updated", body["message"])
	assert.Equal(t, cartID.String(), body["cart_id"])
	assert.Equal(t, "add", svc.lastOp)
}

func TestCartUpdateItemDeletedMessage(t *testing.T) {
	svc := &stubCartService{updateRes: &cartsvc.UpdateResult{CartID: uuid.New(), Removed: true}}
	handler := CartUpdateItem(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodPost, "/api/cart/update-item", `{"product_id":"`+uuid.NewString()+`","operation":"remove"}`))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Cart item successfully deleted", body["message"])
}

func TestCartItemsSuccess(t *testing.T) {
	view := &cartsvc.View{
		CartID: uuid.New(),
		Items: []cartsvc.ItemView{
			{ItemID: uuid.New(), ProductID: uuid.New(), ProductName: "widget", Quantity: 2},
		},
	}
	svc := &stubCartService{listView: view}
	handler := CartItems(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodGet, "/api/cart/items", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, "Cart items retrieved successfully", body["message"])
	items, ok := body["cart_items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestCartItemsNoCartIsSoft(t *testing.T) {
	svc := &stubCartService{listErr: pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found").Soft()}
	handler := CartItems(svc, testLogger())

	rec := httptest.NewRecorder()
	handler(rec, authedRequest(http.MethodGet, "/api/cart/items", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.Equal(t, true, body["is_error"])
	assert.Equal(t, "Cart not found", body["message"])
}
