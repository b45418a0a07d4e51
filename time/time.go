// Package time formats durations for console output and history listings.
package time

import (
	"strings"
	"time"
)

// ShortDur shortens the string representation of a time.Duration from d.String().
func ShortDur(d time.Duration) string {
	s := d.String()
	if d == 0 {
		return "0s"
	}
	if strings.HasSuffix(s, "m0s") {
		s = s[:len(s)-2]
	}
	if strings.HasSuffix(s, "h0m") {
		s = s[:len(s)-2]
	}
	return s
}

// Elapsed rounds d to a precision suited to its magnitude and shortens it.
// Sub-millisecond values keep microseconds, sub-second values keep
// milliseconds and longer values keep hundredths of a second.
func Elapsed(d time.Duration) string {
	abs := d
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs < time.Millisecond:
		d = d.Round(time.Microsecond)
	case abs < time.Second:
		d = d.Round(time.Millisecond)
	default:
		d = d.Round(10 * time.Millisecond)
	}
	return ShortDur(d)
}

// Millis converts a millisecond count, as stored in the history, to a
// duration.
func Millis(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}
