package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/pgsampler/internal/archive"
	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"codeberg.org/mutker/pgsampler/internal/logsource"
	"codeberg.org/mutker/pgsampler/internal/poller"
	"codeberg.org/mutker/pgsampler/internal/sample"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	defaultEnvPrefix  = "PGSAMPLER"
	defaultConfigName = "pgsampler"
	defaultEnvFile    = ".env"
	defaultOutputDir  = "."
	defaultLogLevel   = "info"

	usageLine = "Usage: pgsampler [flags] <target> <minutes>"
)

type sourceConfig struct {
	Kind             string        `mapstructure:"kind"`
	HerokuBinary     string        `mapstructure:"heroku_binary"`
	File             string        `mapstructure:"file"`
	NATSURL          string        `mapstructure:"nats_url"`
	NATSSubject      string        `mapstructure:"nats_subject"`
	NATSDrainTimeout time.Duration `mapstructure:"nats_drain_timeout"`
}

type archiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	DBPath    string `mapstructure:"db_path"`
	BatchSize int    `mapstructure:"batch_size"`
	BackupDir string `mapstructure:"backup_dir"`
}

// Config is the resolved configuration of a single collection run.
type Config struct {
	Target  string `mapstructure:"-"`
	Minutes int    `mapstructure:"-"`

	Interval       time.Duration `mapstructure:"interval"`
	FollowerSource string        `mapstructure:"follower_source"`
	OutputDir      string        `mapstructure:"output_dir"`
	LogLevel       string        `mapstructure:"log_level"`
	EnvFile        string        `mapstructure:"env_file"`

	Source  sourceConfig  `mapstructure:"source"`
	Archive archiveConfig `mapstructure:"archive"`
}

// flagKeys maps flag names to configuration keys.
var flagKeys = map[string]string{
	"interval":        "interval",
	"follower-source": "follower_source",
	"output-dir":      "output_dir",
	"log-level":       "log_level",
	"env-file":        "env_file",
	"source":          "source.kind",
	"heroku-binary":   "source.heroku_binary",
	"log-file":        "source.file",
	"nats-url":        "source.nats_url",
	"nats-subject":    "source.nats_subject",
	"archive":         "archive.enabled",
	"archive-db":      "archive.db_path",
}

func newFlagSet() *pflag.FlagSet {
	src := logsource.DefaultConfig()
	arc := archive.DefaultConfig()

	fs := pflag.NewFlagSet("pgsampler", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Duration("interval", poller.DefaultInterval, "Time between log fetches")
	fs.String("follower-source", sample.DefaultFollowerSource, "Source identifier of the follower database")
	fs.String("output-dir", defaultOutputDir, "Directory the report is written to")
	fs.String("log-level", defaultLogLevel, "Log level (debug, info, warn, error)")
	fs.String("env-file", defaultEnvFile, "Environment file loaded before reading PGSAMPLER_* variables")
	fs.String("source", string(src.Kind), "Log source (heroku, file, nats)")
	fs.String("heroku-binary", src.HerokuBinary, "Heroku CLI executable")
	fs.String("log-file", src.File, "Log file read by the file source")
	fs.String("nats-url", src.NATSURL, "NATS server URL for the nats source")
	fs.String("nats-subject", src.NATSSubject, "NATS subject carrying log lines")
	fs.Bool("archive", arc.Enabled, "Archive samples and summaries to SQLite")
	fs.String("archive-db", arc.DBPath, "Path to the archive database")

	return fs
}

func setDefaults(v *viper.Viper) {
	src := logsource.DefaultConfig()
	arc := archive.DefaultConfig()

	v.SetDefault("interval", poller.DefaultInterval)
	v.SetDefault("follower_source", sample.DefaultFollowerSource)
	v.SetDefault("output_dir", defaultOutputDir)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("env_file", defaultEnvFile)
	v.SetDefault("source.kind", string(src.Kind))
	v.SetDefault("source.heroku_binary", src.HerokuBinary)
	v.SetDefault("source.file", src.File)
	v.SetDefault("source.nats_url", src.NATSURL)
	v.SetDefault("source.nats_subject", src.NATSSubject)
	v.SetDefault("source.nats_drain_timeout", src.NATSDrainTimeout)
	v.SetDefault("archive.enabled", arc.Enabled)
	v.SetDefault("archive.db_path", arc.DBPath)
	v.SetDefault("archive.batch_size", arc.BatchSize)
	v.SetDefault("archive.backup_dir", arc.BackupDir)
}

// Usage writes the command line synopsis and flag help to w.
func Usage(w io.Writer) {
	fmt.Fprintln(w, usageLine)
	fmt.Fprintln(w)
	fmt.Fprint(w, newFlagSet().FlagUsages())
}

// Load resolves the configuration from args (without the program name),
// the environment, an optional .env file and an optional TOML file.
func Load(args []string, opts ...Option) (*Config, error) {
	errFactory := errors.New()

	o := options{}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
		}
	}

	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, errFactory.Wrap(errors.ErrUsage, err)
	}

	target, minutes, err := parsePositional(fs.Args())
	if err != nil {
		return nil, err
	}

	if err := loadEnvFile(fs); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(defaultEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, errFactory.Wrap(errors.ErrBindFlags, err)
		}
	}

	if err := readConfigFile(v, o); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errFactory.Wrap(errors.ErrInvalidConfig, err)
	}
	cfg.Target = target
	cfg.Minutes = minutes

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parsePositional(args []string) (string, int, error) {
	errFactory := errors.New()

	if len(args) != 2 {
		return "", 0, errFactory.WithMessage(errors.ErrUsage, usageLine)
	}

	target := strings.TrimSpace(args[0])
	if target == "" {
		return "", 0, errFactory.WithMessage(errors.ErrUsage, "target must not be empty")
	}

	minutes, err := strconv.Atoi(args[1])
	if err != nil || minutes < 0 {
		return "", 0, errFactory.WithData(errors.ErrInvalidDuration, args[1])
	}

	return target, minutes, nil
}

// loadEnvFile populates the process environment from the env file. Values
// already present in the environment are kept. A missing default file is
// not an error.
func loadEnvFile(fs *pflag.FlagSet) error {
	path := defaultEnvFile
	explicit := false
	if fs.Changed("env-file") {
		path, _ = fs.GetString("env-file")
		explicit = true
	} else if p, ok := os.LookupEnv(defaultEnvPrefix + "_ENV_FILE"); ok && p != "" {
		path = p
		explicit = true
	}

	if err := godotenv.Load(path); err != nil {
		if !explicit && os.IsNotExist(err) {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

func readConfigFile(v *viper.Viper, o options) error {
	v.SetConfigType("toml")

	path := o.configPath
	if path == "" {
		if p, ok := os.LookupEnv(defaultEnvPrefix + "_CONFIG"); ok {
			path = p
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(defaultConfigName)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pgsampler")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return errors.New().Wrap(errors.ErrReadConfig, err)
	}

	return nil
}

// Validate checks the run-level settings and each component configuration.
func (c *Config) Validate() error {
	errFactory := errors.New()

	if c.Minutes < 0 {
		return errFactory.WithData(errors.ErrInvalidDuration, c.Minutes)
	}
	if c.Interval <= 0 {
		return errFactory.WithData(errors.ErrInvalidInterval, c.Interval)
	}
	if strings.TrimSpace(c.FollowerSource) == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "follower source must not be empty")
	}
	if c.OutputDir == "" {
		return errFactory.WithMessage(errors.ErrInvalidConfig, "output directory must not be empty")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if err := c.LogSource().Validate(); err != nil {
		return err
	}
	if err := c.ArchiveConfig().Validate(); err != nil {
		return err
	}

	return nil
}

// Level returns the parsed log level. Load has already validated it.
func (c *Config) Level() logger.LogLevel {
	level, err := logger.ParseLevel(c.LogLevel)
	if err != nil {
		return logger.InfoLevel
	}
	return level
}

func (c *Config) Duration() time.Duration {
	return time.Duration(c.Minutes) * time.Minute
}

func (c *Config) LogSource() logsource.Config {
	return logsource.Config{
		Kind:             logsource.Kind(strings.ToLower(c.Source.Kind)),
		Target:           c.Target,
		HerokuBinary:     c.Source.HerokuBinary,
		File:             c.Source.File,
		NATSURL:          c.Source.NATSURL,
		NATSSubject:      c.Source.NATSSubject,
		NATSDrainTimeout: c.Source.NATSDrainTimeout,
	}
}

func (c *Config) ArchiveConfig() archive.Config {
	return archive.Config{
		DBPath:    c.Archive.DBPath,
		BackupDir: c.Archive.BackupDir,
		BatchSize: c.Archive.BatchSize,
		Enabled:   c.Archive.Enabled,
	}
}

func (c *Config) Poller() poller.Config {
	return poller.Config{
		Duration: c.Duration(),
		Interval: c.Interval,
	}
}
