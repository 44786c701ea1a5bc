package product

// Product is the catalog view needed by checkout. Prices are minor units.
type Product struct {
	ID            uint   `json:"id"`
	Name          string `json:"name"`
	Price         int64  `json:"price"`
	Stock         int    `json:"stock"`
	CriticalStock int    `json:"critical_stock"`
	IsActive      bool   `json:"is_active"`
}

// Covers reports whether current stock can satisfy qty.
func (p *Product) Covers(qty int) bool {
	return p != nil && qty > 0 && p.Stock >= qty
}
