package config

import "codeberg.org/mutker/gpucarbon/internal/errors"

const (
	ErrInvalidListen      = errors.ErrorCode("config_invalid_listen_address")
	ErrInvalidInterval    = errors.ErrorCode("config_invalid_interval")
	ErrInvalidThreshold   = errors.ErrorCode("config_invalid_threshold")
	ErrInvalidHistorySize = errors.ErrorCode("config_invalid_history_size")
	ErrInvalidDatabase    = errors.ErrorCode("config_invalid_database_path")
)
