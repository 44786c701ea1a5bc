package order

import (
	"time"

	"storefront-be/internal/cart"
	"storefront-be/internal/lifecycle"
	"storefront-be/internal/product"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
	StatusReturned   Status = "RETURNED"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusReturned,
}

func (s Status) Valid() bool {
	return Transitions.Known(s)
}

// Transitions is the order state machine. CANCELLED and RETURNED are terminal.
var Transitions = lifecycle.NewTable("order", map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {StatusReturned},
})

// Entry points recorded on the orders.created metric.
const (
	EntryCheckout = "checkout"
	EntryOneClick = "one_click"
)

const (
	MaxShippingAddressLength = 500
	DefaultListLimit         = 20
	MaxListLimit             = 100
	// MaxListPage keeps the computed OFFSET well inside int range.
	MaxListPage = 10000
)

type Order struct {
	ID              uint
	UserID          uint
	Status          Status
	ShippingAddress string
	TotalAmount     int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []Line
}

// Line is an immutable snapshot of what was bought and at which price.
type Line struct {
	ID          uint
	OrderID     uint
	ProductID   uint
	ProductName string
	UnitPrice   int64
	Quantity    int
	Subtotal    int64
}

// CartLines returns the stored quantities in the shape the inventory ledger
// consumes.
func (o *Order) CartLines() []cart.Line {
	out := make([]cart.Line, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, cart.Line{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return out
}

// Total sums unit price times quantity over lines.
func Total(lines []Line) int64 {
	var total int64
	for _, l := range lines {
		total += l.UnitPrice * int64(l.Quantity)
	}
	return total
}

// priceLines snapshots the current product price into each line. Every
// product referenced by lines must be present in products.
func priceLines(lines []cart.Line, products map[uint]*product.Product) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		p := products[l.ProductID]
		out = append(out, Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			UnitPrice:   p.Price,
			Quantity:    l.Quantity,
			Subtotal:    p.Price * int64(l.Quantity),
		})
	}
	return out
}

func newOrder(userID uint, address string, status Status, lines []Line) *Order {
	return &Order{
		UserID:          userID,
		Status:          status,
		ShippingAddress: address,
		TotalAmount:     Total(lines),
		Lines:           lines,
	}
}

// Filter narrows ListOrders. A zero Limit or Page takes the default.
type Filter struct {
	Status *Status
	Limit  int
	Page   int
}

func (f Filter) normalize() (limit, offset int) {
	limit = f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	page := min(f.Page, MaxListPage)
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}
