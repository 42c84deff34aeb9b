package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/pkg/db/models"
	"github.com/shopstack/shopstack-backend/pkg/enums"
)

// Row is one order line flattened with its order header and product for the
// listing endpoint. OrderUUID carries the gateway order id, the only order
// identity callers ever see.
type Row struct {
	OrderUUID   string            `gorm:"column:order_uuid" json:"order_uuid"`
	Status      enums.OrderStatus `gorm:"column:status" json:"status"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount" json:"total_amount"`
	OrderItemID uuid.UUID         `gorm:"column:order_item_id" json:"order_item_id"`
	ProductID   uuid.UUID         `gorm:"column:product_id" json:"product_id"`
	ProductName string            `gorm:"column:product_name" json:"product_name"`
	Quantity    int               `gorm:"column:quantity" json:"quantity"`
	Cost        decimal.Decimal   `gorm:"column:cost" json:"cost"`
	CreatedAt   time.Time         `gorm:"column:created_at" json:"created_at"`
}

// ItemDetail is a single order line joined with its product.
type ItemDetail struct {
	OrderItemID   uuid.UUID         `gorm:"column:order_item_id" json:"id"`
	OrderUUID     string            `gorm:"column:order_uuid" json:"order_uuid"`
	OrderStatus   enums.OrderStatus `gorm:"column:order_status" json:"order_status"`
	ProductID     uuid.UUID         `gorm:"column:product_id" json:"product_id"`
	ProductName   string            `gorm:"column:product_name" json:"product_name"`
	Description   *string           `gorm:"column:description" json:"description,omitempty"`
	Quantity      int               `gorm:"column:quantity" json:"quantity"`
	Cost          decimal.Decimal   `gorm:"column:cost" json:"cost"`
	AttachmentKey *string           `gorm:"column:attachment_key" json:"-"`
	SignedURL     string            `gorm:"-" json:"signed_url,omitempty"`
}

// Repository encapsulates order and order item persistence.
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

// Create inserts the order header together with its item snapshot rows.
func (r *Repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

// FindByGatewayIDAndUser returns the order only when it belongs to the user.
func (r *Repository) FindByGatewayIDAndUser(ctx context.Context, gatewayOrderID string, userID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Where("gateway_order_id = ? AND user_id = ?", gatewayOrderID, userID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusAndPayment records the reported payment outcome on the order.
func (r *Repository) UpdateStatusAndPayment(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, paymentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{
			"status":     status,
			"payment_id": paymentID,
		}).Error
}

// ListByUser returns every order line of the user, newest order first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Row, error) {
	var rows []Row
	err := r.db.WithContext(ctx).
		Table("orders").
		Select(`orders.gateway_order_id AS order_uuid,
			orders.status,
			orders.total_amount,
			order_items.id AS order_item_id,
			order_items.product_id,
			products.name AS product_name,
			order_items.quantity,
			order_items.cost,
			orders.created_at`).
		Joins("JOIN order_items ON order_items.order_id = orders.id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("orders.user_id = ?", userID).
		Order("orders.created_at DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FindItemDetail returns the order line joined with its product, scoped to
// the owning user.
func (r *Repository) FindItemDetail(ctx context.Context, orderItemID, userID uuid.UUID) (*ItemDetail, error) {
	var detail ItemDetail
	err := r.db.WithContext(ctx).
		Table("order_items").
		Select(`order_items.id AS order_item_id,
			orders.gateway_order_id AS order_uuid,
			orders.status AS order_status,
			order_items.product_id,
			products.name AS product_name,
			products.description,
			order_items.quantity,
			order_items.cost,
			products.attachment_key`).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id").
		Where("order_items.id = ? AND orders.user_id = ?", orderItemID, userID).
		Take(&detail).Error
	if err != nil {
		return nil, err
	}
	return &detail, nil
}
