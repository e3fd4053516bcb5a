package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"codeberg.org/mutker/pgsampler/internal/aggregate"
	"codeberg.org/mutker/pgsampler/internal/errors"
	"codeberg.org/mutker/pgsampler/internal/sample"
)

const (
	defaultDirPerm  = 0o755
	defaultFilePerm = 0o644

	header = "Heroku Postgres Metrics Summary:\n- Source: MIXED\n\n"
)

// Report is the outcome of one collection window.
type Report struct {
	Minutes  int
	Sections []aggregate.Summary
}

// New builds a report from the per-role summaries that exist. Primary
// always precedes Follower.
func New(minutes int, summaries ...aggregate.Summary) Report {
	r := Report{Minutes: minutes}
	for _, role := range []sample.Role{sample.Primary, sample.Follower} {
		for _, s := range summaries {
			if s.Role == role && s.Samples > 0 {
				r.Sections = append(r.Sections, s)
			}
		}
	}
	return r
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName is the deterministic artifact name for a run. Characters outside
// [A-Za-z0-9._-] in target become underscores so the name stays a single
// path element.
func FileName(target string, minutes int) string {
	return fmt.Sprintf("heroku_postgres_metrics_%s_%dmin.txt", unsafeChars.ReplaceAllString(target, "_"), minutes)
}

// Render writes the text report to w.
func Render(w io.Writer, r Report) error {
	bw := bufio.NewWriter(w)

	bw.WriteString(header)
	for _, s := range r.Sections {
		fmt.Fprintf(bw, "%s:\n", s.Role.Title())
		for _, fs := range s.Fields {
			fmt.Fprintf(bw, "  - %s:\n", fs.Spec.Name)
			prec := precision(fs)
			fmt.Fprintf(bw, "    - Average: %s\n", strconv.FormatFloat(fs.Average, 'f', prec, 64))
			fmt.Fprintf(bw, "    - Minimum: %s\n", formatBound(fs.Spec.Kind, fs.Minimum, prec))
			fmt.Fprintf(bw, "    - Maximum: %s\n", formatBound(fs.Spec.Kind, fs.Maximum, prec))
		}
		fmt.Fprintf(bw, "  - Max IOPS: %d\n\n", s.MaxIOPS())
	}
	fmt.Fprintf(bw, "Metrics collected over %d minutes.\n", r.Minutes)

	return bw.Flush()
}

// WriteFile renders r into dir, replacing any previous report of the same run.
func WriteFile(dir, target string, r Report) (string, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", errFactory.Wrap(errors.ErrWriteReport, err)
	}

	path := filepath.Join(dir, FileName(target, r.Minutes))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return "", errFactory.Wrap(errors.ErrWriteReport, err)
	}

	if err := Render(f, r); err != nil {
		f.Close()
		return "", errFactory.Wrap(errors.ErrWriteReport, err)
	}
	if err := f.Close(); err != nil {
		return "", errFactory.Wrap(errors.ErrWriteReport, err)
	}

	return path, nil
}

// precision is the number of decimals shared by a field's average and, for
// rates, its bounds. Rates keep every digit the log carried. Rounding is
// monotonic, so the printed average never leaves the printed range.
func precision(fs aggregate.FieldStat) int {
	prec := 2
	if fs.Spec.Kind == sample.Rate {
		prec = max(prec, decimals(fs.Minimum), decimals(fs.Maximum))
	}
	return prec
}

// decimals is the number of fractional digits in the shortest form of v.
func decimals(v float64) int {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		return len(s) - i - 1
	}
	return 0
}

func formatBound(kind sample.Kind, v float64, prec int) string {
	if kind == sample.Count {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}
