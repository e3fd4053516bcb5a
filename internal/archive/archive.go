package archive

import (
	"context"
	"time"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"codeberg.org/mutker/pgsampler/internal/sample"
	"github.com/google/uuid"
)

type service struct {
	repo   Repository
	runID  string
	target string
	now    func() time.Time
}

// No-op implementation
type noopRecorder struct{}

// NewService opens the archive for one run of target. A disabled archive
// yields a recorder that drops everything.
func NewService(ctx context.Context, cfg Config, target string, minutes int, log logger.Logger) (Recorder, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		log.Debug().Msg("Sample archive disabled, using no-op recorder")
		return &noopRecorder{}, nil
	}

	repo, err := NewRepository(cfg, log)
	if err != nil {
		return nil, err
	}

	s := &service{
		repo:   repo,
		runID:  uuid.NewString(),
		target: target,
		now:    time.Now,
	}

	if err := repo.StartRun(ctx, Run{ID: s.runID, Target: target, Started: s.now(), Duration: minutes}); err != nil {
		repo.Close()
		return nil, err
	}

	log.Debug().
		Str("run_id", s.runID).
		Str("db_path", cfg.DBPath).
		Msg("Sample archive initialized")

	return s, nil
}

func (s *service) RunID() string {
	return s.runID
}

func (s *service) Record(ctx context.Context, smp *sample.Sample) error {
	errFactory := errors.New()

	if smp == nil || smp.Role == sample.Unknown {
		return errFactory.New(ErrInvalidSample)
	}

	select {
	case <-ctx.Done():
		return errFactory.Wrap(ErrOperationTimeout, ctx.Err())
	default:
		if err := s.repo.Store(&Entry{RunID: s.runID, Target: s.target, Recorded: s.now(), Sample: *smp}); err != nil {
			return errFactory.Wrap(ErrRecordFailed, err)
		}
	}

	return nil
}

func (s *service) RecordSummaries(ctx context.Context, summaries []aggregate.Summary) error {
	if len(summaries) == 0 {
		return nil
	}
	if err := s.repo.StoreSummaries(ctx, s.runID, summaries); err != nil {
		return errors.New().Wrap(ErrRecordFailed, err)
	}
	return nil
}

func (s *service) Close() error {
	if err := s.repo.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}

func (*noopRecorder) Record(_ context.Context, _ *sample.Sample) error {
	return nil
}

func (*noopRecorder) RecordSummaries(_ context.Context, _ []aggregate.Summary) error {
	return nil
}

func (*noopRecorder) RunID() string {
	return ""
}

func (*noopRecorder) Close() error {
	return nil
}
