package cart

import "sort"

// Line is one candidate order line taken from a user's cart.
type Line struct {
	ProductID uint `json:"product_id"`
	Quantity  int  `json:"quantity"`
}

// Merge folds duplicate products together and orders lines by product id so
// stock rows are always touched in the same order.
func Merge(lines []Line) []Line {
	byProduct := make(map[uint]int, len(lines))
	for _, l := range lines {
		byProduct[l.ProductID] += l.Quantity
	}

	out := make([]Line, 0, len(byProduct))
	for id, qty := range byProduct {
		out = append(out, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Equal reports whether two merged line sets hold the same quantities.
func Equal(a, b []Line) bool {
	a, b = Merge(a), Merge(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ProductIDs lists the distinct product ids of the lines.
func ProductIDs(lines []Line) []uint {
	merged := Merge(lines)
	ids := make([]uint, 0, len(merged))
	for _, l := range merged {
		ids = append(ids, l.ProductID)
	}
	return ids
}
