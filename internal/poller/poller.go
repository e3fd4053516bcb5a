package poller

import (
	"context"
	"strings"
	"time"

	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"codeberg.org/mutker/pgsampler/internal/logsource"
	"codeberg.org/mutker/pgsampler/internal/sample"
)

const DefaultInterval = 10 * time.Second

// State of the collection window.
type State int

const (
	Running State = iota
	Done
)

func (s State) String() string {
	if s == Done {
		return "done"
	}
	return "running"
}

// Recorder receives every buffered sample, e.g. an archive.
type Recorder interface {
	Record(ctx context.Context, s *sample.Sample) error
}

type Config struct {
	Duration time.Duration
	Interval time.Duration
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if c.Duration < 0 {
		return errFactory.WithData(errors.ErrInvalidDuration, c.Duration)
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	return nil
}

// Result is the frozen outcome of a window.
type Result struct {
	Primary       []sample.Sample
	Follower      []sample.Sample
	Iterations    int
	FetchFailures int
	Discarded     int
	Elapsed       time.Duration
}

// Option configures a Poller.
type Option func(*Poller)

func WithClock(c Clock) Option {
	return func(p *Poller) { p.clock = c }
}

func WithRecorder(r Recorder) Option {
	return func(p *Poller) { p.recorder = r }
}

func WithLogger(l logger.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// Poller drives one bounded collection window.
type Poller struct {
	cfg      Config
	source   logsource.Source
	builder  *sample.Builder
	clock    Clock
	recorder Recorder
	log      logger.Logger

	state    State
	primary  *sample.Buffer
	follower *sample.Buffer
	result   Result
}

func New(cfg Config, source logsource.Source, builder *sample.Builder, opts ...Option) (*Poller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Poller{
		cfg:      cfg,
		source:   source,
		builder:  builder,
		clock:    realClock{},
		log:      logger.Nop(),
		primary:  sample.NewBuffer(sample.Primary),
		follower: sample.NewBuffer(sample.Follower),
	}
	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Poller) State() State {
	return p.state
}

// Run polls until the window has elapsed. The first iteration always
// happens, so a zero duration yields exactly one fetch. A canceled context
// aborts the window without a result.
func (p *Poller) Run(ctx context.Context) (Result, error) {
	errFactory := errors.New()
	start := p.clock.Now()

	p.log.Info().
		Dur("duration", p.cfg.Duration).
		Dur("interval", p.cfg.Interval).
		Msg("Collection window started")

	for p.state == Running {
		if err := ctx.Err(); err != nil {
			return Result{}, errFactory.Wrap(errors.ErrCanceled, err)
		}

		p.iterate(ctx)

		if p.expired(start) {
			p.state = Done
			break
		}

		if err := p.clock.Sleep(ctx, p.cfg.Interval); err != nil {
			return Result{}, errFactory.Wrap(errors.ErrCanceled, err)
		}

		// a sleep that crosses the deadline ends the window without another fetch
		if p.expired(start) {
			p.state = Done
		}
	}

	p.result.Primary = p.primary.Snapshot()
	p.result.Follower = p.follower.Snapshot()
	p.result.Elapsed = p.clock.Now().Sub(start)

	p.log.Info().
		Int("iterations", p.result.Iterations).
		Int("primary_samples", len(p.result.Primary)).
		Int("follower_samples", len(p.result.Follower)).
		Int("fetch_failures", p.result.FetchFailures).
		Int("discarded", p.result.Discarded).
		Msg("Collection window finished")

	return p.result, nil
}

func (p *Poller) expired(start time.Time) bool {
	return p.clock.Now().Sub(start) >= p.cfg.Duration
}

func (p *Poller) iterate(ctx context.Context) {
	p.result.Iterations++

	text, err := p.source.Fetch(ctx)
	if err != nil {
		p.result.FetchFailures++
		p.logFetchError(err)
		return
	}

	accepted := 0
	for _, line := range strings.Split(text, "\n") {
		if !sample.IsSampleLine(line) {
			continue
		}

		s := p.builder.Build(line)
		switch s.Role {
		case sample.Primary:
			p.primary.Append(s)
		case sample.Follower:
			p.follower.Append(s)
		default:
			p.result.Discarded++
			continue
		}
		accepted++

		if p.recorder != nil {
			if err := p.recorder.Record(ctx, &s); err != nil {
				p.log.Warn().Err(err).Msg("Failed to archive sample")
			}
		}
	}

	p.log.Debug().
		Int("iteration", p.result.Iterations).
		Int("samples", accepted).
		Msg("Poll complete")
}

func (p *Poller) logFetchError(err error) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		p.log.ErrorWithCode(appErr).Msg("Failed to fetch logs")
		return
	}
	p.log.Error().Err(err).Msg("Failed to fetch logs")
}
