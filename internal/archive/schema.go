package archive

import (
	"database/sql"
	"fmt"
	"strings"

	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"codeberg.org/mutker/pgsampler/internal/sample"
)

const (
	SchemaVersion = 1

	createBaseTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS runs (
	       run_id           TEXT PRIMARY KEY,
	       target           TEXT NOT NULL,
	       started_at       INTEGER NOT NULL,
	       duration_minutes INTEGER NOT NULL CHECK (duration_minutes >= 0)
	   );
	   CREATE TABLE IF NOT EXISTS summaries (
	       run_id   TEXT NOT NULL REFERENCES runs(run_id),
	       role     TEXT NOT NULL CHECK (role IN ('primary', 'follower')),
	       field    TEXT NOT NULL,
	       samples  INTEGER NOT NULL,
	       average  REAL NOT NULL,
	       minimum  REAL NOT NULL,
	       maximum  REAL NOT NULL,
	       PRIMARY KEY (run_id, role, field)
	   );`

	insertRunSQL = `
    INSERT INTO runs (run_id, target, started_at, duration_minutes)
    VALUES (?, ?, ?, ?)`

	upsertSummarySQL = `
    INSERT INTO summaries (
        run_id, role, field, samples, average, minimum, maximum
    ) VALUES (?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(run_id, role, field) DO UPDATE SET
        samples = excluded.samples,
        average = excluded.average,
        minimum = excluded.minimum,
        maximum = excluded.maximum`
)

var (
	createSamplesSQL = buildCreateSamplesSQL()
	insertSampleSQL  = buildInsertSampleSQL()
)

// columnName derives the samples column of a catalog field from its token prefix.
func columnName(spec sample.Spec) string {
	name := strings.TrimSuffix(strings.TrimPrefix(spec.Prefix, sample.Marker), "=")
	return strings.ReplaceAll(name, "-", "_")
}

func buildCreateSamplesSQL() string {
	var b strings.Builder
	b.WriteString(`
	   CREATE TABLE IF NOT EXISTS samples (
	       id          INTEGER PRIMARY KEY AUTOINCREMENT,
	       run_id      TEXT NOT NULL REFERENCES runs(run_id),
	       recorded_at INTEGER NOT NULL,
	       role        TEXT NOT NULL CHECK (role IN ('primary', 'follower')),
	       source      TEXT NOT NULL,
	       max_iops    INTEGER NOT NULL`)
	for _, spec := range sample.Catalog() {
		fmt.Fprintf(&b, ",\n\t       %s REAL NOT NULL", columnName(spec))
	}
	b.WriteString("\n\t   );")
	return b.String()
}

func buildInsertSampleSQL() string {
	cols := []string{"run_id", "recorded_at", "role", "source", "max_iops"}
	for _, spec := range sample.Catalog() {
		cols = append(cols, columnName(spec))
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	return fmt.Sprintf("INSERT INTO samples (%s) VALUES (%s)", strings.Join(cols, ", "), placeholders)
}

// InitSchema creates a new database schema with the current version
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	log.Debug().Msg("Creating archive database...")

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	// Track transaction state
	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil {
				if !errors.Is(err, sql.ErrTxDone) {
					log.Debug().Err(err).Msg("Failed to rollback transaction")
				}
			}
		}
	}()

	for _, stmt := range []string{createBaseTablesSQL, createSamplesSQL} {
		log.Debug().Str("sql", stmt).Msg("Executing SQL statement")
		if _, err := tx.Exec(stmt); err != nil {
			return errFactory.WithData(ErrSchemaInitFailed, struct {
				Error string
				SQL   string
			}{
				Error: err.Error(),
				SQL:   stmt,
			})
		}
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Info().
		Int("version", SchemaVersion).
		Msg("Archive schema initialized")

	return nil
}

// GetSchemaVersion returns the current schema version, 0 for a fresh database
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	exists, err := TableExists(db, "schema_versions")
	if err != nil {
		return 0, errFactory.Wrap(ErrSchemaValidationFailed, err)
	}
	if !exists {
		return 0, nil
	}

	var version int
	err = db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Error string
		}{
			Phase: "get_version",
			Error: err.Error(),
		})
	}

	return version, nil
}

// TableExists checks if a table exists
func TableExists(db *sql.DB, tableName string) (bool, error) {
	errFactory := errors.New()
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, errFactory.WithData(ErrSchemaValidationFailed, struct {
			Phase string
			Table string
			Error string
		}{
			Phase: "check_table_exists",
			Table: tableName,
			Error: err.Error(),
		})
	}
	return exists, nil
}
