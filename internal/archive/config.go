package archive

import "codeberg.org/mutker/pgsampler/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm   = 0o755
	defaultDBPath    = "pgsampler.db"
	defaultBackupDir = "backups"
	defaultBatchSize = 50
)

type Config struct {
	DBPath    string
	BackupDir string
	BatchSize int
	Enabled   bool
}

func DefaultConfig() Config {
	return Config{
		DBPath:    defaultDBPath,
		BackupDir: defaultBackupDir,
		BatchSize: defaultBatchSize,
		Enabled:   false, // Disabled by default
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	// Only validate paths if the archive is enabled
	if !c.Enabled {
		return nil
	}
	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.BatchSize < 1 {
		return errFactory.WithData(ErrInvalidConfig, struct {
			Field string
			Value int
		}{
			Field: "batch_size",
			Value: c.BatchSize,
		})
	}
	return nil
}
