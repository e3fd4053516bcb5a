package aggregate_test

import (
	"math/rand"
	"testing"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withValues(role sample.Role, vals map[sample.Field]float64) sample.Sample {
	s := sample.Sample{Role: role, MaxIOPS: role.MaxIOPS()}
	for f, v := range vals {
		s.Values[f] = v
	}
	return s
}

func TestAggregateEmpty(t *testing.T) {
	_, ok := aggregate.Aggregate(sample.Primary, nil)
	assert.False(t, ok)
}

func TestAggregateSingleSample(t *testing.T) {
	s := withValues(sample.Primary, map[sample.Field]float64{
		sample.ActiveConnections: 5,
		sample.MemoryTotal:       16.09,
		sample.LoadAverage1m:     0.015,
	})

	sum, ok := aggregate.Aggregate(sample.Primary, []sample.Sample{s})
	require.True(t, ok)
	assert.Equal(t, 1, sum.Samples)

	for _, fs := range sum.Fields {
		v := s.Value(fs.Spec.Field)
		assert.Equal(t, v, fs.Average, fs.Spec.Name)
		assert.Equal(t, v, fs.Minimum, fs.Spec.Name)
		assert.Equal(t, v, fs.Maximum, fs.Spec.Name)
	}
}

func TestAggregateValues(t *testing.T) {
	samples := []sample.Sample{
		withValues(sample.Follower, map[sample.Field]float64{sample.ActiveConnections: 2, sample.ReadIOPS: 1.5}),
		withValues(sample.Follower, map[sample.Field]float64{sample.ActiveConnections: 7, sample.ReadIOPS: 0.5}),
		withValues(sample.Follower, map[sample.Field]float64{sample.ActiveConnections: 3, sample.ReadIOPS: 1}),
	}

	sum, ok := aggregate.Aggregate(sample.Follower, samples)
	require.True(t, ok)
	assert.Equal(t, 3000, sum.MaxIOPS())

	active, ok := sum.Get(sample.ActiveConnections)
	require.True(t, ok)
	assert.Equal(t, aggregate.Stat{Average: 4, Minimum: 2, Maximum: 7}, active)

	reads, ok := sum.Get(sample.ReadIOPS)
	require.True(t, ok)
	assert.Equal(t, aggregate.Stat{Average: 1, Minimum: 0.5, Maximum: 1.5}, reads)
}

func TestAggregateSkipsMaxConnections(t *testing.T) {
	s := withValues(sample.Primary, map[sample.Field]float64{sample.MaxConnections: 500})

	sum, ok := aggregate.Aggregate(sample.Primary, []sample.Sample{s})
	require.True(t, ok)

	_, found := sum.Get(sample.MaxConnections)
	assert.False(t, found)
	assert.Len(t, sum.Fields, len(sample.AggregatedFields()))
}

func TestAggregateOrderingInvariant(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 50; round++ {
		n := 1 + rng.Intn(40)
		samples := make([]sample.Sample, n)
		for i := range samples {
			samples[i].Role = sample.Primary
			for f := sample.Field(0); f < sample.FieldCount; f++ {
				samples[i].Values[f] = rng.Float64() * 1000
			}
		}

		sum, ok := aggregate.Aggregate(sample.Primary, samples)
		require.True(t, ok)
		for _, fs := range sum.Fields {
			assert.LessOrEqual(t, fs.Minimum, fs.Average, fs.Spec.Name)
			assert.LessOrEqual(t, fs.Average, fs.Maximum, fs.Spec.Name)
		}
	}
}
