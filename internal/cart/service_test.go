package cart

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/internal/products"
	pkgdb "github.com/shopstack/shopstack-backend/pkg/db"
	"github.com/shopstack/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

func setupCartTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	ddl := []string{
		`CREATE TABLE products (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  price NUMERIC NOT NULL,
  attachment_key TEXT,
  tags TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'active',
  total_cost NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  cost NUMERIC NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE UNIQUE INDEX idx_carts_user_active ON carts(user_id) WHERE status = 'active';`,
	}
	for _, stmt := range ddl {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

type gormTxRunner struct {
	db *gorm.DB
}

func (r gormTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

type stubSigner struct {
	url string
	err error
}

func (s stubSigner) SignedReadURL(objectKey string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.url + objectKey, nil
}

func newCartService(t *testing.T, db *gorm.DB, signer AttachmentSigner) Service {
	t.Helper()

	logg := logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
	svc, err := NewService(NewRepository(db), products.NewRepository(db), gormTxRunner{db: db}, signer, logg)
	require.NoError(t, err)
	return svc
}

func seedProduct(t *testing.T, db *gorm.DB, price string) *models.Product {
	t.Helper()

	product := &models.Product{
		Name:     "test product",
		Price:    decimal.RequireFromString(price),
		IsActive: true,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func cartTotal(t *testing.T, db *gorm.DB, cartID uuid.UUID) decimal.Decimal {
	t.Helper()

	var cart models.Cart
	require.NoError(t, db.First(&cart, "id = ?", cartID).Error)
	return cart.TotalCost
}

func TestAddItemCreatesCartOnFirstAdd(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	userID := uuid.New()
	product := seedProduct(t, db, "19.99")

	cartID, err := svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, cartID)

	var items []models.CartItem
	require.NoError(t, db.Find(&items, "cart_id = ?", cartID).Error)
	require.Len(t, items, 1)
	assert.Equal(t, 1, items[0].Quantity)
	assert.True(t, items[0].Cost.Equal(product.Price))
	assert.True(t, cartTotal(t, db, cartID).Equal(product.Price))
}

func TestAddItemReusesActiveCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	userID := uuid.New()
	first := seedProduct(t, db, "10.00")
	second := seedProduct(t, db, "5.50")

	cartID, err := svc.AddItem(context.Background(), userID, first.ID)
	require.NoError(t, err)
	again, err := svc.AddItem(context.Background(), userID, second.ID)
	require.NoError(t, err)
	assert.Equal(t, cartID, again)

	assert.True(t, cartTotal(t, db, cartID).Equal(decimal.RequireFromString("15.50")))
}

func TestAddItemAppendsSecondLineForSameProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	userID := uuid.New()
	product := seedProduct(t, db, "4.00")

	cartID, err := svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
	assert.True(t, cartTotal(t, db, cartID).Equal(decimal.RequireFromString("8.00")))
}

func TestAddItemUnknownProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
	assert.False(t, typed.IsSoft())
}

func TestAddItemSkipsInactiveProduct(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	product := seedProduct(t, db, "9.99")
	require.NoError(t, db.Model(product).Update("is_active", false).Error)

	_, err := svc.AddItem(context.Background(), uuid.New(), product.ID)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestSecondActiveCartHitsUniqueIndex(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()

	_, err := repo.Create(context.Background(), &models.Cart{UserID: userID, TotalCost: decimal.Zero})
	require.NoError(t, err)

	_, err = repo.Create(context.Background(), &models.Cart{UserID: userID, TotalCost: decimal.Zero})
	require.Error(t, err)
	assert.True(t, pkgdb.IsUniqueViolation(err, activeCartIndex))
	assert.False(t, pkgdb.IsUniqueViolation(fmt.Errorf("connection reset"), activeCartIndex))
}

func TestUpdateItemAddsOneUnit(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	userID := uuid.New()
	product := seedProduct(t, db, "3.25")

	cartID, err := svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)

	result, err := svc.UpdateItem(context.Background(), userID, product.ID, OpAdd)
	require.NoError(t, err)
	assert.Equal(t, cartID, result.CartID)
	assert.False(t, result.Removed)

	var item models.CartItem
	require.NoError(t, db.First(&item, "cart_id = ? AND product_id = ?", cartID, product.ID).Error)
	assert.Equal(t, 2, item.Quantity)
	assert.True(t, item.Cost.Equal(decimal.RequireFromString("6.50")))
	assert.True(t, cartTotal(t, db, cartID).Equal(decimal.RequireFromString("6.50")))
}

func TestUpdateItemRemoveDeletesLineAtZero(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	userID := uuid.New()
	product := seedProduct(t, db, "7.00")

	cartID, err := svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)

	result, err := svc.UpdateItem(context.Background(), userID, product.ID, "remove")
	require.NoError(t, err)
	assert.True(t, result.Removed)

	var count int64
	require.NoError(t, db.Model(&models.CartItem{}).Where("cart_id = ?", cartID).Count(&count).Error)
	assert.Zero(t, count)
	assert.True(t, cartTotal(t, db, cartID).IsZero())
}

func TestUpdateItemSoftErrors(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)
	userID := uuid.New()
	product := seedProduct(t, db, "2.00")

	// no cart yet
	_, err := svc.UpdateItem(context.Background(), userID, product.ID, OpAdd)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.True(t, typed.IsSoft())
	assert.Equal(t, "Cart not found", typed.Message())

	// cart exists but the product was never added
	other := seedProduct(t, db, "6.00")
	_, err = svc.AddItem(context.Background(), userID, other.ID)
	require.NoError(t, err)

	_, err = svc.UpdateItem(context.Background(), userID, product.ID, OpAdd)
	typed = pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.True(t, typed.IsSoft())
	assert.Equal(t, "Cart item not found", typed.Message())
}

func TestListItemsSignsAttachments(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, stubSigner{url: "https://signed.example/"})
	userID := uuid.New()

	product := seedProduct(t, db, "12.00")
	key := "docs/manual.pdf"
	require.NoError(t, db.Model(product).Update("attachment_key", key).Error)
	plain := seedProduct(t, db, "1.00")

	_, err := svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)
	_, err = svc.AddItem(context.Background(), userID, plain.ID)
	require.NoError(t, err)

	view, err := svc.ListItems(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 2)
	assert.True(t, view.TotalCost.Equal(decimal.RequireFromString("13.00")))

	byProduct := map[uuid.UUID]ItemView{}
	for _, item := range view.Items {
		byProduct[item.ProductID] = item
	}
	assert.Equal(t, "https://signed.example/"+key, byProduct[product.ID].SignedURL)
	assert.Empty(t, byProduct[plain.ID].SignedURL)
}

func TestListItemsSigningFailureIsNotFatal(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, stubSigner{err: fmt.Errorf("signer unavailable")})
	userID := uuid.New()

	product := seedProduct(t, db, "12.00")
	require.NoError(t, db.Model(product).Update("attachment_key", "docs/manual.pdf").Error)
	_, err := svc.AddItem(context.Background(), userID, product.ID)
	require.NoError(t, err)

	view, err := svc.ListItems(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Empty(t, view.Items[0].SignedURL)
}

func TestListItemsNoCart(t *testing.T) {
	db := setupCartTestDB(t)
	svc := newCartService(t, db, nil)

	_, err := svc.ListItems(context.Background(), uuid.New())
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.True(t, typed.IsSoft())
	assert.Equal(t, "Cart not found", typed.Message())
}
