package ledger

import "errors"

var (
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidAmount    = errors.New("transaction amount must not be negative")
	ErrMissingOrder     = errors.New("transaction must reference an order")
	ErrFailedAppend     = errors.New("failed to append transaction")
	ErrFailedQuery      = errors.New("failed to query ledger")
	ErrInvalidDateRange = errors.New("from must be before to")
)
