package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is the catalog entity whose unit price seeds cart line costs.
// AttachmentKey points at the product's object-storage document, if any.
type Product struct {
	ID            uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"column:name;not null" json:"name"`
	Description   *string         `gorm:"column:description" json:"description,omitempty"`
	Price         decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	AttachmentKey *string         `gorm:"column:attachment_key" json:"-"`
	Tags          pq.StringArray  `gorm:"column:tags;type:text[]" json:"tags,omitempty"`
	IsActive      bool            `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
