package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopstack/shopstack-backend/api/responses"
	"github.com/shopstack/shopstack-backend/api/validators"
	checkoutsvc "github.com/shopstack/shopstack-backend/internal/checkout"
	orderssvc "github.com/shopstack/shopstack-backend/internal/orders"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

type createOrderRequest struct {
	AddressID string `json:"address_id"`
}

type updateOrderStatusRequest struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// OrderCreate converts the caller's live cart into a gateway-registered order.
func OrderCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID := uuid.Nil
		if payload.AddressID != "" {
			addressID, err = uuid.Parse(payload.AddressID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid address id").Soft())
				return
			}
		}

		result, err := svc.CreateOrder(r.Context(), userID, addressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, http.StatusCreated, "Order successfully created", map[string]any{
			"order_uuid": result.OrderUUID,
			"razorpay":   result.Gateway,
		})
	}
}

// OrderUpdateStatus records the payment outcome the client reports back.
func OrderUpdateStatus(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateOrderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateStatus(r.Context(), userID, payload.OrderID, payload.Status, payload.TransactionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, http.StatusOK, "Order status successfully updated", nil)
	}
}

// OrdersList returns the caller's flattened order history.
func OrdersList(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListOrders(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, http.StatusOK, "Orders retrieved successfully", map[string]any{
			"orders": rows,
		})
	}
}

// OrderItem returns one purchased line with its product and download URL.
func OrderItem(svc orderssvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderItemID, err := uuid.Parse(chi.URLParam(r, "orderItemId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "Order item not found"))
			return
		}

		detail, err := svc.ItemDetail(r.Context(), userID, orderItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, http.StatusOK, "Order item retrieved successfully", map[string]any{
			"order_item": detail,
			"signed_url": detail.SignedURL,
		})
	}
}
