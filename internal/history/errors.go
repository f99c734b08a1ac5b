package history

import "codeberg.org/mutker/gpucarbon/internal/errors"

const (
	ErrNoData      = errors.ErrorCode("history_no_data")
	ErrWriteFailed = errors.ErrorCode("history_write_failed")
)
