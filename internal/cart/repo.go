package cart

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/pkg/db/models"
	"github.com/shopstack/shopstack-backend/pkg/enums"
)

// ItemView is a cart line joined with its product for the listing endpoint.
type ItemView struct {
	ItemID        uuid.UUID       `gorm:"column:item_id" json:"id"`
	ProductID     uuid.UUID       `gorm:"column:product_id" json:"product_id"`
	ProductName   string          `gorm:"column:product_name" json:"product_name"`
	Description   *string         `gorm:"column:description" json:"description,omitempty"`
	UnitPrice     decimal.Decimal `gorm:"column:unit_price" json:"unit_price"`
	Quantity      int             `gorm:"column:quantity" json:"quantity"`
	Cost          decimal.Decimal `gorm:"column:cost" json:"cost"`
	AttachmentKey *string         `gorm:"column:attachment_key" json:"-"`
	SignedURL     string          `gorm:"-" json:"signed_url,omitempty"`
}

// Repository encapsulates cart and cart item persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided GORM handle.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx scopes the repository to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindActiveByUser returns the user's live cart.
func (r *Repository) FindActiveByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, enums.CartStatusActive).
		Order("created_at DESC").
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// Create inserts the provided cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.Status == "" {
		cart.Status = enums.CartStatusActive
	}
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// InsertItem appends a new line to the cart.
func (r *Repository) InsertItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

// FindItemForProduct returns the first line matching (cart, product).
func (r *Repository) FindItemForProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND product_id = ?", cartID, productID).
		Order("created_at ASC").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateItem persists the line's quantity and cost.
func (r *Repository) UpdateItem(ctx context.Context, item *models.CartItem) error {
	return r.db.WithContext(ctx).
		Model(&models.CartItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]any{
			"quantity": item.Quantity,
			"cost":     item.Cost,
		}).Error
}

// DeleteItem removes the line.
func (r *Repository) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", itemID).
		Delete(&models.CartItem{}).Error
}

// AdjustTotal applies the delta to the cart total inside the database, so
// concurrent mutations cannot lose updates to a stale read.
func (r *Repository) AdjustTotal(ctx context.Context, cartID uuid.UUID, delta decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("total_cost", gorm.Expr("total_cost + ?", delta)).Error
}

// Items returns the cart's raw lines, oldest first.
func (r *Repository) Items(ctx context.Context, cartID uuid.UUID) ([]models.CartItem, error) {
	var items []models.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// ItemsWithProducts returns the cart's lines joined with product data.
func (r *Repository) ItemsWithProducts(ctx context.Context, cartID uuid.UUID) ([]ItemView, error) {
	var views []ItemView
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select(`cart_items.id AS item_id,
			cart_items.product_id,
			products.name AS product_name,
			products.description,
			products.price AS unit_price,
			products.attachment_key,
			cart_items.quantity,
			cart_items.cost`).
		Joins("JOIN products ON products.id = cart_items.product_id").
		Where("cart_items.cart_id = ?", cartID).
		Order("cart_items.created_at ASC").
		Scan(&views).Error
	if err != nil {
		return nil, err
	}
	return views, nil
}

// ClearItems deletes every line in the cart.
func (r *Repository) ClearItems(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Delete(&models.CartItem{}).Error
}

// ZeroTotal resets the cart total.
func (r *Repository) ZeroTotal(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Cart{}).
		Where("id = ?", cartID).
		Update("total_cost", decimal.Zero).Error
}
