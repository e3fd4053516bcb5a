package logsource

import (
	"time"

	"codeberg.org/mutker/pgsampler/internal/errors"
)

const (
	defaultHerokuBinary      = "heroku"
	defaultNATSURL           = "nats://localhost:4222"
	defaultNATSSubject       = "heroku.postgres.logs"
	defaultNATSDrainTimeout  = 200 * time.Millisecond
	defaultHerokuLogsProcess = "heroku-postgres"
)

type Config struct {
	Kind   Kind
	Target string

	HerokuBinary string
	File         string

	NATSURL          string
	NATSSubject      string
	NATSDrainTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		Kind:             KindHeroku,
		HerokuBinary:     defaultHerokuBinary,
		NATSURL:          defaultNATSURL,
		NATSSubject:      defaultNATSSubject,
		NATSDrainTimeout: defaultNATSDrainTimeout,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	switch c.Kind {
	case KindHeroku:
		if c.HerokuBinary == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "heroku binary must be set")
		}
		if c.Target == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "heroku source needs a target app")
		}
	case KindFile:
		if c.File == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "file source needs a log file path")
		}
	case KindNATS:
		if c.NATSURL == "" || c.NATSSubject == "" {
			return errFactory.WithMessage(ErrInvalidConfig, "nats source needs a url and a subject")
		}
		if c.NATSDrainTimeout <= 0 {
			return errFactory.WithMessage(ErrInvalidConfig, "nats drain timeout must be positive")
		}
	default:
		return errFactory.WithData(ErrUnsupportedSource, c.Kind)
	}

	return nil
}
