package product

import "errors"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrFailedGetProduct = errors.New("failed to get product")
)
