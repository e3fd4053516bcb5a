package logsource

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/logger"
)

const stderrLimit = 8 << 10 // 8 KiB

// HerokuSource shells out to the Heroku CLI for the add-on's log stream.
type HerokuSource struct {
	binary string
	app    string
	log    logger.Logger
}

func NewHerokuSource(binary, app string, log logger.Logger) *HerokuSource {
	if log == nil {
		log = logger.Nop()
	}
	return &HerokuSource{binary: binary, app: app, log: log}
}

func (h *HerokuSource) args() []string {
	return []string{"logs", "-p", defaultHerokuLogsProcess, "-a", h.app}
}

// Fetch runs the CLI to completion. There is no timeout beyond ctx.
func (h *HerokuSource) Fetch(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, h.binary, h.args()...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	h.log.Debug().Str("cmd", cmd.String()).Msg("Fetching logs")

	out, err := cmd.Output()
	if err != nil {
		s := stderr.String()
		if len(s) > stderrLimit {
			s = s[:stderrLimit] + "… (truncated)"
		}
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return "", errors.New().Wrap(ErrFetch, err).WithData(struct {
			App    string
			Stderr string
			Error  string
		}{
			App:    h.app,
			Stderr: strings.TrimSpace(s),
			Error:  err.Error(),
		})
	}

	return string(out), nil
}

func (*HerokuSource) Close() error {
	return nil
}
