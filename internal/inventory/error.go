package inventory

import "errors"

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrFailedUpdateStock = errors.New("failed to update stock")
)

// StockError names the product whose reservation failed.
type StockError struct {
	ProductID uint
	Requested int
	Err       error
}

func (e *StockError) Error() string {
	return e.Err.Error()
}

func (e *StockError) Unwrap() error {
	return e.Err
}
