package sample

import (
	"math"
	"strconv"
	"strings"
)

const (
	bytesPerGB = 1_000_000_000
	kbPerGB    = 1_000_000
	kbSuffix   = "kB"
)

// round2 rounds half to even at two decimal places.
func round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// BytesToGB converts bytes to decimal gigabytes.
func BytesToGB(bytes float64) float64 {
	return round2(bytes / bytesPerGB)
}

// KBToGB converts a kilobyte value, bare or "kB"-suffixed, to decimal gigabytes.
func KBToGB(raw string) (float64, error) {
	kb, err := strconv.ParseInt(strings.TrimSuffix(strings.TrimSpace(raw), kbSuffix), 10, 64)
	if err != nil {
		return 0, err
	}
	return round2(float64(kb) / kbPerGB), nil
}

// FractionToPercent converts a 0-1 ratio to a percentage.
func FractionToPercent(f float64) float64 {
	return round2(f * 100)
}
