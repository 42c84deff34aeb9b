package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/internal/cart"
	"github.com/shopstack/shopstack-backend/pkg/enums"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// AttachmentSigner mints short-lived download URLs for product documents.
type AttachmentSigner interface {
	SignedReadURL(objectKey string) (string, error)
}

// Service reconciles payment outcomes and serves order reads.
type Service interface {
	UpdateStatus(ctx context.Context, userID uuid.UUID, orderUUID, status, transactionID string) error
	ListOrders(ctx context.Context, userID uuid.UUID) ([]Row, error)
	ItemDetail(ctx context.Context, userID, orderItemID uuid.UUID) (*ItemDetail, error)
}

type service struct {
	orders *Repository
	carts  *cart.Repository
	tx     txRunner
	signer AttachmentSigner
	logg   *logger.Logger
}

// NewService builds the orders service. The signer is optional; without it
// item detail responses omit download URLs.
func NewService(orders *Repository, carts *cart.Repository, tx txRunner, signer AttachmentSigner, logg *logger.Logger) (Service, error) {
	if orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		orders: orders,
		carts:  carts,
		tx:     tx,
		signer: signer,
		logg:   logg,
	}, nil
}

// UpdateStatus records the payment outcome the client reports after the
// gateway flow. Terminal statuses are monotonic: once an order is completed,
// failed, or cancelled, later reports are acknowledged without mutation. A
// terminal success clears the user's current live cart; the cart row itself
// stays active so the next add starts from an empty cart.
func (s *service) UpdateStatus(ctx context.Context, userID uuid.UUID, orderUUID, status, transactionID string) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	orderUUID = strings.TrimSpace(orderUUID)
	status = strings.TrimSpace(status)
	if orderUUID == "" || status == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Order ID and status are required.")
	}
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "Transaction ID is required.")
	}

	order, err := s.orders.FindByGatewayIDAndUser(ctx, orderUUID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown order for this user; acknowledge without mutation.
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if order.Status.IsTerminal() {
		return nil
	}

	next := enums.OrderStatus(status)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.orders.WithTx(tx).UpdateStatusAndPayment(ctx, order.ID, next, transactionID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !next.IsTerminalSuccess() {
			return nil
		}

		carts := s.carts.WithTx(tx)
		liveCart, err := carts.FindActiveByUser(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}
		if err := carts.ClearItems(ctx, liveCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart items")
		}
		if err := carts.ZeroTotal(ctx, liveCart.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset cart total")
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_uuid": orderUUID,
			"status":     status,
		}), "order status updated")
	}
	return nil
}

// ListOrders returns the caller's flattened order history.
func (s *service) ListOrders(ctx context.Context, userID uuid.UUID) ([]Row, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	rows, err := s.orders.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load orders")
	}
	return rows, nil
}

// ItemDetail returns one purchased line with its product. The download URL
// is best effort: a signing failure logs a warning and leaves it empty.
func (s *service) ItemDetail(ctx context.Context, userID, orderItemID uuid.UUID) (*ItemDetail, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if orderItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order item not found")
	}

	detail, err := s.orders.FindItemDetail(ctx, orderItemID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Order item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order item")
	}

	if s.signer != nil && detail.AttachmentKey != nil && *detail.AttachmentKey != "" {
		url, signErr := s.signer.SignedReadURL(*detail.AttachmentKey)
		if signErr != nil {
			if s.logg != nil {
				s.logg.Warn(s.logg.WithField(ctx, "product_id", detail.ProductID.String()), "sign attachment url failed")
			}
		} else {
			detail.SignedURL = url
		}
	}
	return detail, nil
}
