package archive

import (
	"context"
	"time"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/sample"
)

// Recorder stores the samples and summaries of one run.
type Recorder interface {
	Record(ctx context.Context, s *sample.Sample) error
	RecordSummaries(ctx context.Context, summaries []aggregate.Summary) error
	RunID() string
	Close() error
}

// Repository defines the interface for archive storage
type Repository interface {
	StartRun(ctx context.Context, run Run) error
	Store(entry *Entry) error
	StoreSummaries(ctx context.Context, runID string, summaries []aggregate.Summary) error
	Close() error
}

// Entry is one archived sample
type Entry struct {
	RunID    string
	Target   string
	Recorded time.Time
	Sample   sample.Sample
}
