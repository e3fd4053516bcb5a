package archive

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	_ "github.com/mattn/go-sqlite3"
)

// Run describes one collection window
type Run struct {
	ID       string
	Target   string
	Started  time.Time
	Duration int
}

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
	mu     sync.Mutex
	buffer []*Entry
}

func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	dsn := cfg.DBPath + "?_journal=WAL&_foreign_keys=1"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}

	if err := ValidateAndUpdateSchema(db, cfg.BackupDir, log); err != nil {
		db.Close()
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "schema_version",
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("batch_size", cfg.BatchSize).
		Msg("Archive repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
		buffer: make([]*Entry, 0, cfg.BatchSize),
	}, nil
}

func (r *repository) StartRun(ctx context.Context, run Run) error {
	if _, err := r.db.ExecContext(ctx, insertRunSQL,
		run.ID, run.Target, run.Started.Unix(), run.Duration); err != nil {
		return errors.New().Wrap(ErrStorageAccess, err)
	}
	return nil
}

func (r *repository) Store(entry *Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.buffer = append(r.buffer, entry)

	if len(r.buffer) >= r.cfg.BatchSize {
		return r.flush()
	}

	return nil
}

func (r *repository) StoreSummaries(ctx context.Context, runID string, summaries []aggregate.Summary) error {
	errFactory := errors.New()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.PrepareContext(ctx, upsertSummarySQL)
	if err != nil {
		tx.Rollback()
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, s := range summaries {
		for _, fs := range s.Fields {
			if _, err := stmt.ExecContext(ctx,
				runID, s.Role.String(), columnName(fs.Spec), s.Samples,
				fs.Average, fs.Minimum, fs.Maximum); err != nil {
				tx.Rollback()
				return errFactory.Wrap(ErrStorageAccess, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	return nil
}

func (r *repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	if err := r.flush(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to flush archive on close")
	}

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "checkpoint_wal",
			Error: err.Error(),
		})
	}

	if err := r.db.Close(); err != nil {
		return errFactory.WithData(ErrStorageClose, struct {
			Phase string
			Error string
		}{
			Phase: "close_database",
			Error: err.Error(),
		})
	}

	r.logger.Info().Msg("Archive repository closed")

	return nil
}

func (r *repository) flush() error {
	if len(r.buffer) == 0 {
		return nil
	}

	errFactory := errors.New()

	tx, err := r.db.Begin()
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to begin transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	stmt, err := tx.Prepare(insertSampleSQL)
	if err != nil {
		r.logger.Error().Err(err).Msg("Failed to prepare statement")
		if err := tx.Rollback(); err != nil {
			r.logger.Error().Err(err).Msg("Failed to roll back transaction")
		}
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for _, entry := range r.buffer {
		values := make([]interface{}, 0, 5+len(entry.Sample.Values))
		values = append(values,
			entry.RunID,
			entry.Recorded.Unix(),
			entry.Sample.Role.String(),
			entry.Sample.Source,
			int64(entry.Sample.MaxIOPS),
		)
		for _, v := range entry.Sample.Values {
			values = append(values, v)
		}

		if _, err := stmt.Exec(values...); err != nil {
			r.logger.Error().Err(err).Msg("Failed to execute insert")
			if err := tx.Rollback(); err != nil {
				r.logger.Error().Err(err).Msg("Failed to roll back transaction")
			}
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error().Err(err).Msg("Failed to commit transaction")
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	r.logger.Debug().Int("records", len(r.buffer)).Msg("Flushed samples to archive")
	r.buffer = r.buffer[:0]

	return nil
}
