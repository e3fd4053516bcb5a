package report_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/report"
	"codeberg.org/mutker/pgsampler/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summary(t *testing.T, role sample.Role, lines ...string) aggregate.Summary {
	t.Helper()

	b := sample.NewBuilder(sample.NewClassifier(""), nil)
	samples := make([]sample.Sample, 0, len(lines))
	for _, l := range lines {
		samples = append(samples, b.Build(l))
	}
	s, ok := aggregate.Aggregate(role, samples)
	require.True(t, ok)
	return s
}

func render(t *testing.T, r report.Report) string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, r))
	return buf.String()
}

func TestRenderNoSections(t *testing.T) {
	out := render(t, report.New(5))

	assert.Equal(t, "Heroku Postgres Metrics Summary:\n- Source: MIXED\n\nMetrics collected over 5 minutes.\n", out)
}

func TestRenderPrimarySection(t *testing.T) {
	s := summary(t, sample.Primary,
		"source=DATABASE sample#active-connections=5 sample#waiting-connections=0 sample#max-connections=500 sample#connections-percentage-used=0.01")

	out := render(t, report.New(0, s))

	assert.True(t, strings.HasPrefix(out, "Heroku Postgres Metrics Summary:\n- Source: MIXED\n\nPrimary Database:\n"))
	assert.Contains(t, out, "  - Active Connections:\n    - Average: 5.00\n    - Minimum: 5\n    - Maximum: 5\n")
	assert.Contains(t, out, "  - Waiting Connections:\n    - Average: 0.00\n    - Minimum: 0\n    - Maximum: 0\n")
	assert.Contains(t, out, "  - Connections Percentage Used:\n    - Average: 1.00\n    - Minimum: 1.00\n    - Maximum: 1.00\n")
	assert.Contains(t, out, "  - Max IOPS: 12000\n\n")
	assert.NotContains(t, out, "Max Connections")
	assert.NotContains(t, out, "Follower Database")
	assert.True(t, strings.HasSuffix(out, "Metrics collected over 0 minutes.\n"))
}

func TestRenderRateKeepsPrecision(t *testing.T) {
	s := summary(t, sample.Follower,
		"source=HEROKU_POSTGRESQL_GRAY sample#load-avg-1m=0.015",
		"source=HEROKU_POSTGRESQL_GRAY sample#load-avg-1m=0.025")

	out := render(t, report.New(1, s))

	assert.Contains(t, out, "  - Load Average (1m):\n    - Average: 0.020\n    - Minimum: 0.015\n    - Maximum: 0.025\n")
	assert.Contains(t, out, "  - Max IOPS: 3000\n")
}

func TestRenderSingleRateSampleIsConsistent(t *testing.T) {
	s := summary(t, sample.Follower,
		"source=HEROKU_POSTGRESQL_GRAY sample#load-avg-1m=0.015 sample#read-iops=0.004 sample#write-iops=12.5")

	out := render(t, report.New(1, s))

	assert.Contains(t, out, "  - Load Average (1m):\n    - Average: 0.015\n    - Minimum: 0.015\n    - Maximum: 0.015\n")
	assert.Contains(t, out, "  - Read IOPS:\n    - Average: 0.004\n    - Minimum: 0.004\n    - Maximum: 0.004\n")
	assert.Contains(t, out, "  - Write IOPS:\n    - Average: 12.50\n    - Minimum: 12.50\n    - Maximum: 12.50\n")
}

func TestRenderRateAverageStaysInRange(t *testing.T) {
	s := summary(t, sample.Primary,
		"source=DATABASE sample#read-iops=0.004",
		"source=DATABASE sample#read-iops=0.005",
		"source=DATABASE sample#read-iops=0.006")

	out := render(t, report.New(1, s))

	assert.Contains(t, out, "  - Read IOPS:\n    - Average: 0.005\n    - Minimum: 0.004\n    - Maximum: 0.006\n")
}

func TestNewOrdersSectionsAndSkipsEmpty(t *testing.T) {
	primary := summary(t, sample.Primary, "source=DATABASE sample#active-connections=1")
	follower := summary(t, sample.Follower, "source=HEROKU_POSTGRESQL_GRAY sample#active-connections=2")

	r := report.New(3, follower, aggregate.Summary{Role: sample.Primary}, primary)
	require.Len(t, r.Sections, 2)
	assert.Equal(t, sample.Primary, r.Sections[0].Role)
	assert.Equal(t, sample.Follower, r.Sections[1].Role)

	out := render(t, r)
	assert.Less(t, strings.Index(out, "Primary Database:"), strings.Index(out, "Follower Database:"))
}

func TestRenderFieldOrder(t *testing.T) {
	s := summary(t, sample.Primary, "source=DATABASE")
	out := render(t, report.New(1, s))

	last := -1
	for _, spec := range sample.AggregatedFields() {
		idx := strings.Index(out, "  - "+spec.Name+":\n")
		require.GreaterOrEqual(t, idx, 0, spec.Name)
		assert.Greater(t, idx, last, spec.Name)
		last = idx
	}
}

func TestRenderDeterministic(t *testing.T) {
	s := summary(t, sample.Primary, "source=DATABASE sample#read-iops=3", "source=DATABASE sample#read-iops=4")
	r := report.New(2, s)

	assert.Equal(t, render(t, r), render(t, r))
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "heroku_postgres_metrics_my-app_15min.txt", report.FileName("my-app", 15))
	assert.Equal(t, "heroku_postgres_metrics_.._.._etc_passwd_5min.txt", report.FileName("../../etc/passwd", 5))
	assert.Equal(t, "heroku_postgres_metrics_my_app_1min.txt", report.FileName("my app", 1))
}

func TestWriteFileStaysInDir(t *testing.T) {
	dir := t.TempDir()

	path, err := report.WriteFile(dir, "../escape", report.New(1))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.FileExists(t, path)
}

func TestWriteFileOverwrites(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "reports")

	path, err := report.WriteFile(dir, "my-app", report.New(10, summary(t, sample.Primary, "source=DATABASE")))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "heroku_postgres_metrics_my-app_10min.txt"), path)

	path2, err := report.WriteFile(dir, "my-app", report.New(10))
	require.NoError(t, err)
	assert.Equal(t, path, path2)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Heroku Postgres Metrics Summary:\n- Source: MIXED\n\nMetrics collected over 10 minutes.\n", string(data))
}
