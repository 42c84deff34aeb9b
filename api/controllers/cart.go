package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/shopstack/shopstack-backend/api/middleware"
	"github.com/shopstack/shopstack-backend/api/responses"
	"github.com/shopstack/shopstack-backend/api/validators"
	cartsvc "github.com/shopstack/shopstack-backend/internal/cart"
	pkgerrors "github.com/shopstack/shopstack-backend/pkg/errors"
	"github.com/shopstack/shopstack-backend/pkg/logger"
)

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
}

type updateCartItemRequest struct {
	ProductID string `json:"product_id"`
	Operation string `json:"operation"`
}

// CartAddItem appends one unit of the product to the caller's live cart.
func CartAddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.ProductID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Product ID is required."))
			return
		}
		productID, err := uuid.Parse(payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
			return
		}

		cartID, err := svc.AddItem(r.Context(), userID, productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, http.StatusCreated, "Cart item successfully added", map[string]any{
			"cart_id": cartID,
		})
	}
}

// CartUpdateItem moves a cart line one unit up or down; reaching zero deletes
// the line. Validation failures on this path are business rejections, so they
// render as HTTP 200 with is_error set.
func CartUpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := uuid.Nil
		if payload.ProductID != "" {
			productID, err = uuid.Parse(payload.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id").Soft())
				return
			}
		}

		result, err := svc.UpdateItem(r.Context(), userID, productID, payload.Operation)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		message := "Cart item successfully updated"
		if result.Removed {
			message = "Cart item successfully deleted"
		}
		responses.WriteSuccess(w, http.StatusOK, message, map[string]any{
			"cart_id": result.CartID,
		})
	}
}

// CartItems lists the live cart's lines joined with product data.
func CartItems(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.ListItems(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, http.StatusOK, "Cart items retrieved successfully", map[string]any{
			"cart_id":    view.CartID,
			"total_cost": view.TotalCost,
			"cart_items": view.Items,
		})
	}
}

// callerID resolves the authenticated user from the request context.
func callerID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user context")
	}
	return userID, nil
}
