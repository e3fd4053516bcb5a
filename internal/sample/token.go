package sample

import "strings"

const (
	// Marker identifies a log line that carries sample# tokens.
	Marker = "sample#"

	sourcePrefix = "source="
)

// IsSampleLine reports whether line carries embedded metric samples.
func IsSampleLine(line string) bool {
	return strings.Contains(line, Marker)
}

// ExtractToken returns the value following prefix in the first
// whitespace-delimited token of line that starts with prefix, or def.
func ExtractToken(line, prefix, def string) string {
	for _, tok := range strings.Fields(line) {
		if v, ok := strings.CutPrefix(tok, prefix); ok {
			return v
		}
	}
	return def
}

// SourceToken returns the raw source= value of line, empty when absent.
func SourceToken(line string) string {
	return ExtractToken(line, sourcePrefix, "")
}
