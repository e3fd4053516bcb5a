package pid

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/pgsampler/internal/errors"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Lock guards one (target, duration) run so concurrent runs do not
// overwrite the same report.
type Lock struct {
	path string
}

// New returns the lock for a run of target over minutes, rooted in dir
// (os.TempDir when empty).
func New(dir, target string, minutes int) *Lock {
	if dir == "" {
		dir = os.TempDir()
	}
	name := fmt.Sprintf("pgsampler_%s_%dmin.pid", unsafeChars.ReplaceAllString(target, "_"), minutes)
	return &Lock{path: filepath.Join(dir, name)}
}

func (l *Lock) Path() string {
	return l.path
}

// Acquire writes the current process ID to the PID file. A file left by a
// process that is no longer running is replaced.
func (l *Lock) Acquire() error {
	errFactory := errors.New()

	if bytes, err := os.ReadFile(l.path); err == nil {
		pid, err := strconv.Atoi(strings.TrimSpace(string(bytes)))
		if err == nil && isRunning(pid) {
			return errFactory.WithData(errors.ErrAlreadyRunning, struct {
				PID  int
				Path string
			}{
				PID:  pid,
				Path: l.path,
			})
		}
	} else if !os.IsNotExist(err) {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return errFactory.Wrap(errors.ErrInternal, err)
	}

	return nil
}

// Release removes the PID file.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}

	return nil
}

func isRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
