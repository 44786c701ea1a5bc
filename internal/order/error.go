package order

import "errors"

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrFailedInsertOrder  = errors.New("failed to insert order")
	ErrFailedGetOrder     = errors.New("failed to get order")
	ErrFailedUpdateStatus = errors.New("failed to update order status")
	// ErrStatusChanged means the guarded UPDATE found the order in another
	// status than the one the caller read.
	ErrStatusChanged = errors.New("order status changed concurrently")
)
