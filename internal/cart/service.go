package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/internal/products"
	"github.com/shopstack/shopstack-backend/pkg/db"
	"github.com/shopstack/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

// OpAdd increments a line by one unit; any other operation decrements.
const OpAdd = "add"

// activeCartIndex is the partial unique index enforcing one live cart per user.
const activeCartIndex = "idx_carts_user_active"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AttachmentSigner mints short-lived download URLs for product documents.
type AttachmentSigner interface {
	SignedReadURL(objectKey string) (string, error)
}

// UpdateResult reports the outcome of a line mutation.
type UpdateResult struct {
	CartID  uuid.UUID
	Removed bool
}

// View is the live cart with product-joined lines.
type View struct {
	CartID    uuid.UUID
	TotalCost decimal.Decimal
	Items     []ItemView
}

// Service defines the cart aggregate operations.
type Service interface {
	AddItem(ctx context.Context, userID, productID uuid.UUID) (uuid.UUID, error)
	UpdateItem(ctx context.Context, userID, productID uuid.UUID, operation string) (*UpdateResult, error)
	ListItems(ctx context.Context, userID uuid.UUID) (*View, error)
}

type service struct {
	carts    *Repository
	products *products.Repository
	tx       txRunner
	signer   AttachmentSigner
	logg     *logger.Logger
}

// NewService builds the cart service. The signer is optional; without it
// listing simply omits download URLs.
func NewService(carts *Repository, prods *products.Repository, tx txRunner, signer AttachmentSigner, logg *logger.Logger) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if prods == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		carts:    carts,
		products: prods,
		tx:       tx,
		signer:   signer,
		logg:     logg,
	}, nil
}

// AddItem appends a one-unit line for the product to the user's live cart,
// creating the cart when absent. A product already in the cart gets a second
// line rather than a quantity bump; update-item is the merge path.
func (s *service) AddItem(ctx context.Context, userID, productID uuid.UUID) (uuid.UUID, error) {
	if userID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required.")
	}

	var cartID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		carts := s.carts.WithTx(tx)
		cart, err := carts.FindActiveByUser(ctx, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
			}
			cart = &models.Cart{UserID: userID, TotalCost: decimal.Zero}
			if _, err := carts.Create(ctx, cart); err != nil {
				if !db.IsUniqueViolation(err, activeCartIndex) {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
				}
				// lost the create race; a concurrent request made the live cart
				cart, err = carts.FindActiveByUser(ctx, userID)
				if err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
				}
			}
		}

		item := &models.CartItem{
			CartID:    cart.ID,
			ProductID: productID,
			Quantity:  1,
			Cost:      product.Price,
		}
		if err := carts.InsertItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
		}
		if err := carts.AdjustTotal(ctx, cart.ID, product.Price); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart total")
		}

		cartID = cart.ID
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return cartID, nil
}

// UpdateItem moves the line for (cart, product) one unit up or down. A line
// driven to zero or below is removed.
func (s *service) UpdateItem(ctx context.Context, userID, productID uuid.UUID, operation string) (*UpdateResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required.").Soft()
	}
	if operation == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Operation is required.").Soft()
	}

	result := &UpdateResult{}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}

		carts := s.carts.WithTx(tx)
		cart, err := carts.FindActiveByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found").Soft()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		line, err := carts.FindItemForProduct(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found").Soft()
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		unit := product.Price
		var newQty int
		var delta decimal.Decimal
		if operation == OpAdd {
			newQty = line.Quantity + 1
			delta = unit
		} else {
			newQty = line.Quantity - 1
			delta = unit.Neg()
		}

		result.CartID = cart.ID

		if newQty <= 0 {
			if err := carts.DeleteItem(ctx, line.ID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
			}
			if err := carts.AdjustTotal(ctx, cart.ID, delta); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart total")
			}
			result.Removed = true
			return nil
		}

		line.Quantity = newQty
		line.Cost = line.Cost.Add(delta)
		if err := carts.UpdateItem(ctx, line); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		if err := carts.AdjustTotal(ctx, cart.ID, delta); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart total")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListItems returns the live cart joined with product data. Download URLs are
// best effort: a signing failure logs a warning and leaves the field empty.
func (s *service) ListItems(ctx context.Context, userID uuid.UUID) (*View, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	cart, err := s.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found").Soft()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	items, err := s.carts.ItemsWithProducts(ctx, cart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}

	for i := range items {
		key := items[i].AttachmentKey
		if s.signer == nil || key == nil || *key == "" {
			continue
		}
		url, signErr := s.signer.SignedReadURL(*key)
		if signErr != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "product_id", items[i].ProductID.String()), "sign attachment url failed")
			}
			continue
		}
		items[i].SignedURL = url
	}

	return &View{
		CartID:    cart.ID,
		TotalCost: cart.TotalCost,
		Items:     items,
	}, nil
}
