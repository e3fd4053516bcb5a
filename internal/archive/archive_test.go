package archive_test

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/archive"
	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"codeberg.org/mutker/pgsampler/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enabledConfig(t *testing.T) archive.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := archive.DefaultConfig()
	cfg.Enabled = true
	cfg.DBPath = filepath.Join(dir, "archive", "pgsampler.db")
	cfg.BackupDir = filepath.Join(dir, "backups")
	cfg.BatchSize = 2
	return cfg
}

func openDB(t *testing.T, path string) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func count(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

func TestDisabledArchiveIsNoop(t *testing.T) {
	rec, err := archive.NewService(context.Background(), archive.DefaultConfig(), "my-app", 5, logger.Nop())
	require.NoError(t, err)

	assert.Empty(t, rec.RunID())
	assert.NoError(t, rec.Record(context.Background(), &sample.Sample{Role: sample.Primary}))
	assert.NoError(t, rec.RecordSummaries(context.Background(), nil))
	assert.NoError(t, rec.Close())
}

func TestConfigValidate(t *testing.T) {
	cfg := archive.DefaultConfig()
	cfg.DBPath = ""
	assert.NoError(t, cfg.Validate(), "disabled archive ignores paths")

	cfg.Enabled = true
	assert.True(t, errors.HasCode(cfg.Validate(), archive.ErrInvalidDBPath))

	cfg.DBPath = "x.db"
	cfg.BatchSize = 0
	assert.True(t, errors.HasCode(cfg.Validate(), archive.ErrInvalidConfig))
}

func TestRecordSamplesAndSummaries(t *testing.T) {
	cfg := enabledConfig(t)
	ctx := context.Background()

	rec, err := archive.NewService(ctx, cfg, "my-app", 5, logger.Nop())
	require.NoError(t, err)
	require.NotEmpty(t, rec.RunID())

	b := sample.NewBuilder(sample.NewClassifier(""), nil)
	lines := []string{
		"source=DATABASE sample#active-connections=4 sample#memory-total=16000000kB",
		"source=DATABASE sample#active-connections=6",
		"source=HEROKU_POSTGRESQL_GRAY sample#active-connections=1",
	}
	var primary []sample.Sample
	for _, l := range lines {
		s := b.Build(l)
		require.NoError(t, rec.Record(ctx, &s))
		if s.Role == sample.Primary {
			primary = append(primary, s)
		}
	}

	sum, ok := aggregate.Aggregate(sample.Primary, primary)
	require.True(t, ok)
	require.NoError(t, rec.RecordSummaries(ctx, []aggregate.Summary{sum}))
	// upsert keeps one row per field
	require.NoError(t, rec.RecordSummaries(ctx, []aggregate.Summary{sum}))

	runID := rec.RunID()
	require.NoError(t, rec.Close())

	db := openDB(t, cfg.DBPath)
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM runs WHERE run_id = ? AND target = 'my-app'", runID))
	assert.Equal(t, 3, count(t, db, "SELECT count(*) FROM samples WHERE run_id = ?", runID))
	assert.Equal(t, 1, count(t, db, "SELECT count(*) FROM samples WHERE role = 'follower' AND max_iops = 3000"))
	assert.Equal(t, len(sample.AggregatedFields()), count(t, db, "SELECT count(*) FROM summaries WHERE run_id = ?", runID))

	var avg, total float64
	require.NoError(t, db.QueryRow("SELECT average FROM summaries WHERE field = 'active_connections'").Scan(&avg))
	assert.Equal(t, 5.0, avg)
	require.NoError(t, db.QueryRow("SELECT memory_total FROM samples WHERE active_connections = 4").Scan(&total))
	assert.Equal(t, 16.0, total)
}

func TestRecordRejectsUnknownRole(t *testing.T) {
	rec, err := archive.NewService(context.Background(), enabledConfig(t), "my-app", 1, logger.Nop())
	require.NoError(t, err)
	defer rec.Close()

	err = rec.Record(context.Background(), &sample.Sample{})
	assert.True(t, errors.HasCode(err, archive.ErrInvalidSample))
	assert.True(t, errors.HasCode(rec.Record(context.Background(), nil), archive.ErrInvalidSample))
}

func TestSchemaMismatchIsBackedUp(t *testing.T) {
	cfg := enabledConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755))

	db := openDB(t, cfg.DBPath)
	_, err := db.Exec(`
		CREATE TABLE schema_versions (version INTEGER PRIMARY KEY, applied_at TEXT NOT NULL);
		INSERT INTO schema_versions (version, applied_at) VALUES (99, datetime('now'));`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	rec, err := archive.NewService(context.Background(), cfg, "my-app", 1, logger.Nop())
	require.NoError(t, err)
	require.NoError(t, rec.Close())

	backups, err := filepath.Glob(filepath.Join(cfg.BackupDir, "archive_v99_*.db"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)

	db = openDB(t, cfg.DBPath)
	version, err := archive.GetSchemaVersion(db)
	require.NoError(t, err)
	assert.Equal(t, archive.SchemaVersion, version)
}

func TestReopenKeepsPreviousRuns(t *testing.T) {
	cfg := enabledConfig(t)

	for i := 0; i < 2; i++ {
		rec, err := archive.NewService(context.Background(), cfg, "my-app", 1, logger.Nop())
		require.NoError(t, err)
		require.NoError(t, rec.Close())
	}

	db := openDB(t, cfg.DBPath)
	assert.Equal(t, 2, count(t, db, "SELECT count(*) FROM runs"))
	ok, err := archive.TableExists(db, "samples")
	require.NoError(t, err)
	assert.True(t, ok)
}
