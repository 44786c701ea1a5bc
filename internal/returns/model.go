package returns

import (
	"time"

	"storefront-be/internal/lifecycle"
)

type Reason string

const (
	ReasonDefective        Reason = "DEFECTIVE"
	ReasonWrongItem        Reason = "WRONG_ITEM"
	ReasonNotAsDescribed   Reason = "NOT_AS_DESCRIBED"
	ReasonDamagedInTransit Reason = "DAMAGED_IN_TRANSIT"
	ReasonChangedMind      Reason = "CHANGED_MIND"
	ReasonOther            Reason = "OTHER"
)

var Reasons = []Reason{
	ReasonDefective,
	ReasonWrongItem,
	ReasonNotAsDescribed,
	ReasonDamagedInTransit,
	ReasonChangedMind,
	ReasonOther,
}

func (r Reason) Valid() bool {
	for _, v := range Reasons {
		if r == v {
			return true
		}
	}
	return false
}

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCompleted Status = "COMPLETED"
)

// Transitions is the return state machine. APPROVED marks a return claimed
// for refund; it is completed once the refund is recorded.
var Transitions = lifecycle.NewTable("return", map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
})

const (
	MaxTextLength    = 1000
	DefaultListLimit = 20
	MaxListLimit     = 100

	// openReturnIndex is the partial unique index allowing one PENDING or
	// APPROVED return per order.
	openReturnIndex = "order_returns_one_open_idx"
)

type OrderReturn struct {
	ID            uint
	OrderID       uint
	UserID        uint
	Reason        Reason
	Description   *string
	Status        Status
	RefundAmount  *int64
	AdminNote     *string
	TransactionID *uint
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
