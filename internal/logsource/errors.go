package logsource

import "codeberg.org/mutker/pgsampler/internal/errors"

const (
	ErrUnsupportedSource = errors.ErrorCode("logsource_unsupported")
	ErrInvalidConfig     = errors.ErrorCode("logsource_invalid_config")
	ErrConnect           = errors.ErrorCode("logsource_connect_failed")
	ErrFetch             = errors.ErrorCode("logsource_fetch_failed")
)
