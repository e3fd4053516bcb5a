package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/archive"
	"codeberg.org/mutker/pgsampler/internal/config"
	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
	"codeberg.org/mutker/pgsampler/internal/logsource"
	"codeberg.org/mutker/pgsampler/internal/pid"
	"codeberg.org/mutker/pgsampler/internal/poller"
	"codeberg.org/mutker/pgsampler/internal/report"
	"codeberg.org/mutker/pgsampler/internal/sample"
)

const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2
	exitCanceled = 130
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, err := config.Load(args)
	if err != nil {
		if errors.HasCode(err, errors.ErrUsage) || errors.HasCode(err, errors.ErrInvalidDuration) {
			fmt.Fprintf(os.Stderr, "%v\n\n", err)
			config.Usage(os.Stderr)
			return exitUsage
		}
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return exitFailure
	}

	log := logger.Init(cfg.Level(), logger.IsService())
	log.Debug().Msg("Config loaded")

	lock := pid.New("", cfg.Target, cfg.Minutes)
	if err := lock.Acquire(); err != nil {
		logError(log, err, "Failed to acquire run lock")
		return exitFailure
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logError(log, err, "Failed to remove run lock")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, err := collect(ctx, cfg, log)
	if err != nil {
		if errors.HasCode(err, errors.ErrCanceled) {
			log.Info().Msg("Received termination signal, no report written")
			return exitCanceled
		}
		logError(log, err, "Collection failed")
		return exitFailure
	}

	fmt.Printf("Heroku Postgres metrics have been saved to '%s'.\n", path)
	return exitOK
}

func collect(ctx context.Context, cfg *config.Config, log logger.Logger) (string, error) {
	errFactory := errors.New()

	source, err := logsource.New(cfg.LogSource(), log)
	if err != nil {
		return "", errFactory.Wrap(errors.ErrCollectionSetup, err)
	}
	defer source.Close()

	recorder, err := archive.NewService(ctx, cfg.ArchiveConfig(), cfg.Target, cfg.Minutes, log)
	if err != nil {
		logError(log, err, "Sample archive unavailable, continuing without it")
		recorder, _ = archive.NewService(ctx, archive.DefaultConfig(), cfg.Target, cfg.Minutes, log)
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logError(log, err, "Failed to close sample archive")
		}
	}()

	builder := sample.NewBuilder(sample.NewClassifier(cfg.FollowerSource), log)
	p, err := poller.New(cfg.Poller(), source, builder,
		poller.WithRecorder(recorder),
		poller.WithLogger(log),
	)
	if err != nil {
		return "", errFactory.Wrap(errors.ErrCollectionSetup, err)
	}

	result, err := p.Run(ctx)
	if err != nil {
		return "", err
	}

	var summaries []aggregate.Summary
	if s, ok := aggregate.Aggregate(sample.Primary, result.Primary); ok {
		summaries = append(summaries, s)
	}
	if s, ok := aggregate.Aggregate(sample.Follower, result.Follower); ok {
		summaries = append(summaries, s)
	}

	if err := recorder.RecordSummaries(ctx, summaries); err != nil {
		logError(log, err, "Failed to archive summaries")
	}

	path, err := report.WriteFile(cfg.OutputDir, cfg.Target, report.New(cfg.Minutes, summaries...))
	if err != nil {
		return "", err
	}

	log.Info().
		Str("path", path).
		Int("sections", len(summaries)).
		Msg("Report written")

	return path, nil
}

func logError(log logger.Logger, err error, msg string) {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		log.ErrorWithCode(appErr).Msg(msg)
		return
	}
	log.Error().Err(err).Msg(msg)
}
