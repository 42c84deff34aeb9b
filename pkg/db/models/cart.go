package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/pkg/enums"
)

// Cart is a user's shopping-in-progress aggregate. A user has at most one
// active cart; TotalCost is denormalized and must equal the sum of the line
// item costs after every committed mutation.
type Cart struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID        `gorm:"column:user_id;type:uuid;not null;index" json:"user_id"`
	Status    enums.CartStatus `gorm:"column:status;not null;default:'active'" json:"status"`
	TotalCost decimal.Decimal  `gorm:"column:total_cost;type:numeric(12,2);not null" json:"total_cost"`
	Items     []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items,omitempty"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (c *Cart) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = enums.CartStatusActive
	}
	return nil
}
