// Package logsource provides the raw log text the sampler polls.
package logsource

import "context"

// Source fetches the current batch of raw log text.
type Source interface {
	Fetch(ctx context.Context) (string, error)
	Close() error
}

// Kind selects a Source implementation.
type Kind string

const (
	KindHeroku Kind = "heroku"
	KindFile   Kind = "file"
	KindNATS   Kind = "nats"
)
