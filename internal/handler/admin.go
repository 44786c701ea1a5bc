package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"storefront-be/internal/apperror"
	"storefront-be/internal/ledger"
	"storefront-be/internal/order"
	"storefront-be/internal/returns"
	"storefront-be/internal/transport"

	"github.com/go-chi/chi/v5"
)

// DriftChecker reports disagreements between cached statuses and the ledger.
type DriftChecker interface {
	Check(ctx context.Context) ([]ledger.Drift, error)
}

// AdminHandlers serves status overrides, the return queue and ledger reports.
type AdminHandlers struct {
	orders  order.Service
	returns returns.Service
	ledger  ledger.Store
	drift   DriftChecker
}

func NewAdminHandlers(orders order.Service, rs returns.Service, store ledger.Store, drift DriftChecker) *AdminHandlers {
	return &AdminHandlers{orders: orders, returns: rs, ledger: store, drift: drift}
}

func (h *AdminHandlers) Routes(r chi.Router) {
	r.Patch("/orders/{orderID}/status", h.updateStatus)
	r.Get("/returns", h.pendingReturns)
	r.Post("/returns/{returnID}/approve", h.approveReturn)
	r.Post("/returns/{returnID}/reject", h.rejectReturn)
	r.Get("/ledger/summary", h.summary)
	r.Get("/ledger/orders/{orderID}", h.orderTransactions)
	r.Get("/ledger/reconcile", h.reconcile)
}

func (h *AdminHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := pathID(r, "orderID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var req updateStatusRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(ctx, w, err)
		return
	}

	o, err := h.orders.UpdateStatus(ctx, orderID, order.Status(strings.ToUpper(strings.TrimSpace(req.Status))))
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *AdminHandlers) pendingReturns(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit, err := queryInt(r, "limit")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	rs, err := h.returns.ListPending(ctx, limit)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, map[string]any{"returns": toReturnResponses(rs)})
}

func (h *AdminHandlers) approveReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	returnID, err := pathID(r, "returnID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var req approveRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(ctx, w, err)
		return
	}

	ret, err := h.returns.ApproveReturn(ctx, returnID, req.RefundAmount, req.Note)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, toReturnResponse(ret))
}

func (h *AdminHandlers) rejectReturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	returnID, err := pathID(r, "returnID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	var req rejectRequest
	if err := transport.Decode(w, r, &req); err != nil {
		transport.Error(ctx, w, err)
		return
	}

	ret, err := h.returns.RejectReturn(ctx, returnID, req.Note)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, toReturnResponse(ret))
}

func (h *AdminHandlers) summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	from, err := queryTime(r, "from")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	sum, err := h.ledger.Summary(ctx, from, to)
	if errors.Is(err, ledger.ErrInvalidDateRange) {
		transport.Error(ctx, w, apperror.Validation("invalid_date_range", err.Error(),
			map[string]string{"from": "must not be after to"}))
		return
	}
	if err != nil {
		transport.Error(ctx, w, apperror.Internal(err))
		return
	}
	transport.JSON(w, http.StatusOK, sum)
}

func (h *AdminHandlers) orderTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	orderID, err := pathID(r, "orderID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	txs, err := h.ledger.ListByOrder(ctx, orderID)
	if err != nil {
		transport.Error(ctx, w, apperror.Internal(err))
		return
	}
	if txs == nil {
		txs = []*ledger.Transaction{}
	}
	transport.JSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *AdminHandlers) reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	drift, err := h.drift.Check(ctx)
	if err != nil {
		transport.Error(ctx, w, apperror.Internal(err))
		return
	}
	if drift == nil {
		drift = []ledger.Drift{}
	}
	transport.JSON(w, http.StatusOK, map[string]any{
		"consistent": len(drift) == 0,
		"drift":      drift,
	})
}
