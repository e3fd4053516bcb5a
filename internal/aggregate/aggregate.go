package aggregate

import "codeberg.org/mutker/pgsampler/internal/sample"

// Stat holds the running statistics of one field.
type Stat struct {
	Average float64
	Minimum float64
	Maximum float64
}

// FieldStat pairs a catalog field with its statistics.
type FieldStat struct {
	Spec sample.Spec
	Stat
}

// Summary is the aggregate of one role's buffer.
type Summary struct {
	Role    sample.Role
	Samples int
	Fields  []FieldStat
}

// MaxIOPS is the role's constant capacity.
func (s Summary) MaxIOPS() int {
	return s.Role.MaxIOPS()
}

// Get returns the statistics of f, if aggregated.
func (s Summary) Get(f sample.Field) (Stat, bool) {
	for _, fs := range s.Fields {
		if fs.Spec.Field == f {
			return fs.Stat, true
		}
	}
	return Stat{}, false
}

type running struct {
	sum, min, max float64
}

// Aggregate reduces samples to per-field statistics. It returns false for
// an empty buffer, which must not produce a report section.
func Aggregate(role sample.Role, samples []sample.Sample) (Summary, bool) {
	if len(samples) == 0 {
		return Summary{}, false
	}

	specs := sample.AggregatedFields()
	acc := make([]running, len(specs))
	for i, spec := range specs {
		v := samples[0].Value(spec.Field)
		acc[i] = running{min: v, max: v}
	}

	for j := range samples {
		for i, spec := range specs {
			v := samples[j].Value(spec.Field)
			acc[i].sum += v
			acc[i].min = min(acc[i].min, v)
			acc[i].max = max(acc[i].max, v)
		}
	}

	n := float64(len(samples))
	out := Summary{
		Role:    role,
		Samples: len(samples),
		Fields:  make([]FieldStat, len(specs)),
	}
	for i, spec := range specs {
		avg := acc[i].sum / n
		// float summation can land an ulp outside the observed range
		avg = min(max(avg, acc[i].min), acc[i].max)
		out.Fields[i] = FieldStat{
			Spec: spec,
			Stat: Stat{Average: avg, Minimum: acc[i].min, Maximum: acc[i].max},
		}
	}

	return out, true
}
