package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Invocation errors
	ErrUsage           ErrorCode = "invalid_usage"
	ErrInvalidDuration ErrorCode = "invalid_duration"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Operation errors
	ErrTimeout         ErrorCode = "operation_timeout"
	ErrCanceled        ErrorCode = "operation_canceled"
	ErrWriteReport     ErrorCode = "write_report_failed"
	ErrCollectionSetup ErrorCode = "collection_setup_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:        "Internal error occurred",
	ErrInvalidArgument: "Invalid argument provided",
	ErrAlreadyRunning:  "Another collection run with the same parameters is active",
	ErrUsage:           "Invalid usage",
	ErrInvalidDuration: "Duration must be a non-negative whole number of minutes",
	ErrInvalidConfig:   "Invalid configuration",
	ErrBindFlags:       "Failed to bind flags",
	ErrReadConfig:      "Failed to read config file",
	ErrInvalidInterval: "Invalid interval value",
	ErrInvalidLogLevel: "Invalid log level",
	ErrInitFailed:      "Initialization failed",
	ErrShutdownFailed:  "Shutdown failed",
	ErrTimeout:         "Operation timed out",
	ErrCanceled:        "Operation canceled",
	ErrWriteReport:     "Failed to write report",
	ErrCollectionSetup: "Failed to set up collection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
