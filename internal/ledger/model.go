package ledger

import "time"

type TransactionType string

const (
	TypePurchase   TransactionType = "PURCHASE"
	TypeRefund     TransactionType = "REFUND"
	TypeAdjustment TransactionType = "ADJUSTMENT"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TypePurchase, TypeRefund, TypeAdjustment:
		return true
	}
	return false
}

type TransactionStatus string

const (
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusFailed    TransactionStatus = "FAILED"
)

// Transaction is an immutable ledger record. Amounts are minor units.
type Transaction struct {
	ID          uint              `json:"id"`
	Reference   string            `json:"reference"`
	Type        TransactionType   `json:"type"`
	Amount      int64             `json:"amount"`
	Status      TransactionStatus `json:"status"`
	OrderID     uint              `json:"order_id"`
	UserID      uint              `json:"user_id"`
	Description string            `json:"description"`
	GatewayRef  *string           `json:"gateway_ref,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// Entry is the input to Append.
type Entry struct {
	Type        TransactionType
	Amount      int64
	Status      TransactionStatus
	OrderID     uint
	UserID      uint
	Description string
	GatewayRef  string
}

// Summary is derived from the ledger at query time.
type Summary struct {
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	Revenue     int64      `json:"revenue"`
	Cancelled   int64      `json:"cancelled"`
	Refunds     int64      `json:"refunds"`
	Adjustments int64      `json:"adjustments"`
	NetRevenue  int64      `json:"net_revenue"`
	Purchases   int64      `json:"purchase_count"`
	RefundCount int64      `json:"refund_count"`
}

// DriftKind names one kind of disagreement between cached state and the ledger.
type DriftKind string

const (
	DriftReturnedWithoutRefund   DriftKind = "RETURNED_WITHOUT_REFUND"
	DriftOrderWithoutPurchase    DriftKind = "ORDER_WITHOUT_PURCHASE"
	DriftCompletedReturnUnlinked DriftKind = "COMPLETED_RETURN_UNLINKED"
	// DriftApprovedReturnStalled is a return claimed for refund that never
	// completed, usually a gateway refund the ledger did not record.
	DriftApprovedReturnStalled DriftKind = "APPROVED_RETURN_STALLED"
)

type Drift struct {
	Kind     DriftKind `json:"kind"`
	OrderID  uint      `json:"order_id"`
	ReturnID *uint     `json:"return_id,omitempty"`
	Status   string    `json:"status"`
}
