package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/pkg/enums"
)

// Order is the priced snapshot produced at checkout. GatewayOrderID is the
// payment gateway's identifier and the order's caller-facing identity; the
// row is immutable after creation except for Status and PaymentID.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	AddressID      uuid.UUID         `gorm:"column:address_id;type:uuid;not null" json:"address_id"`
	GatewayOrderID string            `gorm:"column:gateway_order_id;not null;uniqueIndex" json:"gateway_order_id"`
	TotalAmount    decimal.Decimal   `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'pending'" json:"status"`
	PaymentID      *string           `gorm:"column:payment_id" json:"payment_id,omitempty"`
	Items          []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.Status == "" {
		o.Status = enums.OrderStatusPending
	}
	return nil
}
