package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/shopstack/shopstack-backend/internal/address"
	"github.com/shopstack/shopstack-backend/internal/cart"
	"github.com/shopstack/shopstack-backend/internal/orders"
	"github.com/shopstack/shopstack-backend/pkg/db/models"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
	"github.com/shopstack/shopstack-backend/pkg/razorpay"
)

// minorUnitFactor converts decimal major units to the gateway's integer
// minor units (cents).
var minorUnitFactor = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// OrderGateway registers orders with the payment gateway.
type OrderGateway interface {
	CreateOrder(ctx context.Context, params razorpay.OrderCreateParams) (*razorpay.Order, error)
	Currency() string
	NewReceipt() string
}

// Result carries the created order's external identity plus the raw gateway
// order for the client-side payment flow.
type Result struct {
	OrderUUID string
	Gateway   *razorpay.Order
}

// Service turns a live cart into a priced, gateway-registered order.
type Service interface {
	CreateOrder(ctx context.Context, userID, addressID uuid.UUID) (*Result, error)
}

type service struct {
	carts     *cart.Repository
	addresses *address.Repository
	orders    *orders.Repository
	gateway   OrderGateway
	tx        txRunner
	logg      *logger.Logger
}

// NewService builds the checkout service and validates its collaborators.
func NewService(
	carts *cart.Repository,
	addresses *address.Repository,
	ordersRepo *orders.Repository,
	gateway OrderGateway,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if addresses == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("order gateway required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		carts:     carts,
		addresses: addresses,
		orders:    ordersRepo,
		gateway:   gateway,
		tx:        tx,
		logg:      logg,
	}, nil
}

// CreateOrder validates ownership of the delivery address, prices the live
// cart, registers the amount with the gateway, and persists the order header
// plus line snapshots in one transaction. The gateway call runs outside the
// transaction; a persistence failure afterwards leaves an orphaned remote
// order, so that error carries a step marker for reconciliation.
func (s *service) CreateOrder(ctx context.Context, userID, addressID uuid.UUID) (*Result, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Address ID not found").Soft()
	}

	if _, err := s.addresses.FindByIDAndUser(ctx, addressID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "Invalid address ID for this user").Soft()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}

	liveCart, err := s.carts.FindActiveByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "Cart not found").Soft()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	lines, err := s.carts.Items(ctx, liveCart.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart items")
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "Cart is empty").Soft()
	}

	// Minor units: the gateway takes cents, the cart stores decimal dollars.
	amount := liveCart.TotalCost.Mul(minorUnitFactor).IntPart()
	gatewayOrder, err := s.gateway.CreateOrder(ctx, razorpay.OrderCreateParams{
		Amount:   amount,
		Currency: s.gateway.Currency(),
		Receipt:  s.gateway.NewReceipt(),
		Notes:    map[string]any{"userId": userID.String()},
	})
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		UserID:         userID,
		AddressID:      addressID,
		GatewayOrderID: gatewayOrder.ID,
		TotalAmount:    liveCart.TotalCost,
	}
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Cost:      line.Cost,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.orders.WithTx(tx).Create(ctx, order)
	})
	if err != nil {
		// The remote order exists but has no local row.
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order").
			WithDetails(map[string]any{
				"step":             "persist_order",
				"gateway_order_id": gatewayOrder.ID,
			})
	}

	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"order_uuid": gatewayOrder.ID,
			"cart_id":    liveCart.ID.String(),
			"amount":     amount,
		}), "order created")
	}

	return &Result{OrderUUID: gatewayOrder.ID, Gateway: gatewayOrder}, nil
}
