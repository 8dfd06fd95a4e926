// Package timefmt converts between clock strings ("SS", "MM:SS", "HH:MM:SS")
// and whole seconds.
package timefmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxSeconds bounds parsed values so they always fit a 32-bit int.
const MaxSeconds = math.MaxInt32

// ParseSeconds parses "SS", "MM:SS" or "HH:MM:SS" into seconds.
// Components must be non-negative integers. The second result is false for
// empty or malformed input and for totals above MaxSeconds.
func ParseSeconds(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 || n > MaxSeconds {
			return 0, false
		}
		if total > (MaxSeconds-n)/60 {
			return 0, false
		}
		total = total*60 + n
	}
	return total, true
}

// ParseOptional is ParseSeconds for optional request fields: nil when the
// input is blank or malformed.
func ParseOptional(s string) *int {
	n, ok := ParseSeconds(s)
	if !ok {
		return nil
	}
	return &n
}

// Format renders seconds as "M:SS", or "H:MM:SS" once an hour is reached.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	hrs := seconds / 3600
	mins := (seconds % 3600) / 60
	secs := seconds % 60
	if hrs > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hrs, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}
