package cart

import "errors"

var (
	ErrInvalidUser = errors.New("user ID is required")

	ErrFailedGetCartRows = errors.New("failed to get cart rows")
	ErrFailedClearCart   = errors.New("failed to clear cart")
)
