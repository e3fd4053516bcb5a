package logsource

import (
	"context"
	"os"

	"codeberg.org/mutker/pgsampler/internal/errors"
)

// FileSource re-reads a captured log file on every fetch.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Fetch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", errors.New().Wrap(ErrFetch, err)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", errors.New().Wrap(ErrFetch, err)
	}
	return string(data), nil
}

func (*FileSource) Close() error {
	return nil
}
