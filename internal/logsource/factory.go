package logsource

import "codeberg.org/mutker/pgsampler/internal/logger"

// New builds the Source selected by cfg.Kind.
func New(cfg Config, log logger.Logger) (Source, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Kind {
	case KindFile:
		return NewFileSource(cfg.File), nil
	case KindNATS:
		src, err := NewNATSSource(cfg.NATSURL, cfg.NATSSubject, cfg.NATSDrainTimeout, log)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return NewHerokuSource(cfg.HerokuBinary, cfg.Target, log), nil
	}
}
