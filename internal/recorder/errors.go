package recorder

import "codeberg.org/mutker/gpucarbon/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("recorder_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("recorder_invalid_db_path")

	// Collection Errors
	ErrInvalidRow     = errors.ErrorCode("recorder_invalid_row")
	ErrRecordFailed   = errors.ErrorCode("recorder_record_failed")
	ErrOperationAbort = errors.ErrorCode("recorder_operation_aborted")

	// Storage Errors
	ErrStorageInit       = errors.ErrorCode("recorder_storage_init_failed")
	ErrStorageClose      = errors.ErrorCode("recorder_storage_close_failed")
	ErrSchemaInitFailed  = errors.ErrorCode("recorder_schema_init_failed")
	ErrTransactionFailed = errors.ErrorCode("recorder_transaction_failed")
)
