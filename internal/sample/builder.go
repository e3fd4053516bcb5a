package sample

import "codeberg.org/mutker/pgsampler/internal/logger"

// Builder turns sample lines into Samples.
type Builder struct {
	classifier Classifier
	log        logger.Logger
}

func NewBuilder(classifier Classifier, log logger.Logger) *Builder {
	if log == nil {
		log = logger.Nop()
	}
	return &Builder{classifier: classifier, log: log}
}

// Build parses every catalog field of line. Absent fields take their
// default; malformed values are zeroed and logged at debug level.
func (b *Builder) Build(line string) Sample {
	s := Sample{Source: SourceToken(line)}
	s.Role = b.classifier.Classify(s.Source)
	s.MaxIOPS = s.Role.MaxIOPS()

	for _, spec := range catalog {
		raw := ExtractToken(line, spec.Prefix, spec.Default)
		v, err := spec.Convert(raw)
		if err != nil {
			b.log.Debug().
				Str("field", spec.Name).
				Str("value", raw).
				Err(err).
				Msg("Malformed sample value, using zero")
			v = 0
		}
		s.Values[spec.Field] = v
	}

	return s
}
