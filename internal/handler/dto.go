package handler

import (
	"time"

	"storefront-be/internal/order"
	"storefront-be/internal/returns"
)

type OrderLineResponse struct {
	ProductID   uint   `json:"product_id"`
	ProductName string `json:"product_name"`
	UnitPrice   int64  `json:"unit_price"`
	Quantity    int    `json:"quantity"`
	Subtotal    int64  `json:"subtotal"`
}

type OrderResponse struct {
	ID              uint                `json:"id"`
	UserID          uint                `json:"user_id"`
	Status          string              `json:"status"`
	ShippingAddress string              `json:"shipping_address"`
	TotalAmount     int64               `json:"total_amount"`
	Lines           []OrderLineResponse `json:"lines"`
	CreatedAt       string              `json:"created_at"`
	UpdatedAt       string              `json:"updated_at"`
}

type ReturnResponse struct {
	ID            uint    `json:"id"`
	OrderID       uint    `json:"order_id"`
	UserID        uint    `json:"user_id"`
	Reason        string  `json:"reason"`
	Description   *string `json:"description,omitempty"`
	Status        string  `json:"status"`
	RefundAmount  *int64  `json:"refund_amount,omitempty"`
	AdminNote     *string `json:"admin_note,omitempty"`
	TransactionID *uint   `json:"transaction_id,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

func toOrderResponse(o *order.Order) *OrderResponse {
	if o == nil {
		return nil
	}
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal,
		})
	}
	return &OrderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          string(o.Status),
		ShippingAddress: o.ShippingAddress,
		TotalAmount:     o.TotalAmount,
		Lines:           lines,
		CreatedAt:       o.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.Format(time.RFC3339),
	}
}

func toOrderResponses(orders []*order.Order) []*OrderResponse {
	out := make([]*OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func toReturnResponse(r *returns.OrderReturn) *ReturnResponse {
	if r == nil {
		return nil
	}
	return &ReturnResponse{
		ID:            r.ID,
		OrderID:       r.OrderID,
		UserID:        r.UserID,
		Reason:        string(r.Reason),
		Description:   r.Description,
		Status:        string(r.Status),
		RefundAmount:  r.RefundAmount,
		AdminNote:     r.AdminNote,
		TransactionID: r.TransactionID,
		CreatedAt:     r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     r.UpdatedAt.Format(time.RFC3339),
	}
}

func toReturnResponses(rs []*returns.OrderReturn) []*ReturnResponse {
	out := make([]*ReturnResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, toReturnResponse(r))
	}
	return out
}

type checkoutRequest struct {
	ShippingAddress string `json:"shipping_address"`
}

type oneClickRequest struct {
	ShippingAddress string `json:"shipping_address"`
	PaymentMethod   string `json:"payment_method"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type returnRequest struct {
	Reason      string `json:"reason"`
	Description string `json:"description"`
}

type approveRequest struct {
	RefundAmount int64  `json:"refund_amount"`
	Note         string `json:"note"`
}

type rejectRequest struct {
	Note string `json:"note"`
}
