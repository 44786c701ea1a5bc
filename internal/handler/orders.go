package handler

import (
	"net/http"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/order"
	"storefront-be/internal/returns"
	"storefront-be/internal/transport"

	"github.com/go-chi/chi/v5"
)

// OrderHandlers exposes the caller's own orders.
type OrderHandlers struct {
	orders  order.Service
	returns returns.Service
}

func NewOrderHandlers(orders order.Service, rs returns.Service) *OrderHandlers {
	return &OrderHandlers{orders: orders, returns: rs}
}

func (h *OrderHandlers) Routes(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Post("/one-click", h.oneClick)
	r.Get("/", h.list)
	r.Get("/{orderID}", h.get)
	r.Post("/{orderID}/cancel", h.cancel)
	r.Post("/{orderID}/returns", h.requestReturn)
	r.Get("/{orderID}/returns", h.listReturns)
}

func (h *OrderHandlers) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var req checkoutRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(ctx, w, err)
		return
	}

	o, err := h.orders.Checkout(ctx, a.UserID, req.ShippingAddress)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandlers) oneClick(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var req oneClickRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(ctx, w, err)
		return
	}

	o, err := h.orders.OneClickBuy(ctx, a.UserID, req.ShippingAddress, req.PaymentMethod)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *OrderHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var f order.Filter
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st := order.Status(strings.ToUpper(raw))
		f.Status = &st
	}
	if f.Limit, err = queryInt(r, "limit"); err != nil {
		transport.Error(ctx, w, err)
		return
	}
	if f.Page, err = queryInt(r, "page"); err != nil {
		transport.Error(ctx, w, err)
		return
	}

	orders, err := h.orders.ListOrders(ctx, a, f)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, map[string]any{"orders": toOrderResponses(orders)})
}

func (h *OrderHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	o, err := h.orders.GetOrder(ctx, a, orderID)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandlers) cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	o, err := h.orders.CancelOrder(ctx, a, orderID)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandlers) requestReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var req returnRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(ctx, w, err)
		return
	}
	if strings.TrimSpace(req.Reason) == "" {
		transport.Error(ctx, w, apperror.Validation("invalid_reason", "reason is required",
			map[string]string{"reason": "required"}))
		return
	}

	ret, err := h.returns.RequestReturn(ctx, a, orderID, returnsReason(req.Reason), req.Description)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusCreated, toReturnResponse(ret))
}

func (h *OrderHandlers) listReturns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	orderID, err := pathID(r, "orderID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	rs, err := h.returns.ListReturns(ctx, a, orderID)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, map[string]any{"returns": toReturnResponses(rs)})
}
