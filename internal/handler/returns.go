package handler

import (
	"net/http"
	"strings"

	"storefront-be/internal/returns"
	"storefront-be/internal/transport"

	"github.com/go-chi/chi/v5"
)

func returnsReason(raw string) returns.Reason {
	return returns.Reason(strings.ToUpper(strings.TrimSpace(raw)))
}

type ReturnHandlers struct {
	returns returns.Service
}

func NewReturnHandlers(rs returns.Service) *ReturnHandlers {
	return &ReturnHandlers{returns: rs}
}

func (h *ReturnHandlers) Routes(r chi.Router) {
	r.Get("/{returnID}", h.get)
}

func (h *ReturnHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	a, err := actor(r)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	returnID, err := pathID(r, "returnID")
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}

	ret, err := h.returns.GetReturn(ctx, a, returnID)
	if err != nil {
		transport.Error(ctx, w, err)
		return
	}
	transport.JSON(w, http.StatusOK, toReturnResponse(ret))
}
