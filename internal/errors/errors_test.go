package errors_test

import (
	stderrors "errors"
	"testing"

	"codeberg.org/mutker/pgsampler/internal/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	f := errors.New()

	assert.Equal(t, "Invalid log level", f.New(errors.ErrInvalidLogLevel).Error())
	assert.Equal(t, "custom", f.WithMessage(errors.ErrInternal, "custom").Error())
	assert.Equal(t, "unknown_code", f.New(errors.ErrorCode("unknown_code")).Error())
	assert.Equal(t, "Invalid usage: want 2 arguments", f.WithData(errors.ErrUsage, "want 2 arguments").Error())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("boom")
	err := errors.New().Wrap(errors.ErrWriteReport, cause)

	assert.Equal(t, "Failed to write report: boom", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, errors.ErrWriteReport, err.Code())
}

func TestHasCode(t *testing.T) {
	inner := errors.New().New(errors.ErrInvalidDuration)
	outer := errors.New().Wrap(errors.ErrUsage, inner)

	assert.True(t, errors.HasCode(outer, errors.ErrUsage))
	assert.True(t, errors.HasCode(outer, errors.ErrInvalidDuration))
	assert.False(t, errors.HasCode(outer, errors.ErrInternal))
	assert.False(t, errors.HasCode(nil, errors.ErrInternal))
}

func TestWithMessageKeepsCode(t *testing.T) {
	err := errors.New().New(errors.ErrInvalidConfig).WithMessage("bad output_dir")

	assert.Equal(t, errors.ErrInvalidConfig, err.Code())
	assert.Equal(t, "bad output_dir", err.Error())
}
