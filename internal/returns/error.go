package returns

import "errors"

var (
	ErrReturnNotFound       = errors.New("return not found")
	ErrReturnAlreadyPending = errors.New("a return is already pending for this order")
	ErrFailedInsertReturn   = errors.New("failed to insert return")
	ErrFailedGetReturn      = errors.New("failed to get return")
	ErrFailedUpdateReturn   = errors.New("failed to update return")
	ErrStatusChanged        = errors.New("return status changed concurrently")
)
