package archive

import "codeberg.org/mutker/pgsampler/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("archive_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("archive_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("archive_schema_validation_failed")
	ErrSchemaMigrationFailed  = errors.ErrorCode("archive_schema_migration_failed")
	ErrTransactionFailed      = errors.ErrorCode("archive_transaction_failed")

	// Storage Errors
	ErrStorageAccess = errors.ErrorCode("archive_storage_access_failed")
	ErrStorageInit   = errors.ErrInitFailed
	ErrStorageClose  = errors.ErrShutdownFailed

	// Recording Errors
	ErrInvalidSample = errors.ErrorCode("archive_invalid_sample")
	ErrRecordFailed  = errors.ErrorCode("archive_record_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrTimeout
)
