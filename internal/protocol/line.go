// Package protocol defines the line grammar shared by the dispatcher and the
// services that compose push lines.
package protocol

import (
	"strings"
	"time"
)

const (
	// Delim separates the verb and arguments of a wire line.
	Delim = "|"
	// End is the sentinel terminating every multi-row response.
	End = "END"
	// Greeting is the first line sent on every new connection.
	Greeting = "WELCOME"
)

// Wire formats. DateTime accepts both forms the desktop client emits for
// ISO_LOCAL_DATE_TIME (seconds are omitted when zero).
const (
	DateLayout      = "2006-01-02"
	ClockLayout     = "15:04"
	DateTimeLayout  = "2006-01-02T15:04"
	TimestampLayout = "2006-01-02 15:04:05"
)

var sanitizer = strings.NewReplacer(Delim, " ", "\n", " ", "\r", " ")

// Sanitize replaces the field delimiter and line breaks in user-supplied text
// so a stored value can never corrupt the line grammar when echoed.
func Sanitize(s string) string {
	return sanitizer.Replace(s)
}

// Join assembles a wire line from its fields.
func Join(fields ...string) string {
	return strings.Join(fields, Delim)
}

// ParseDate parses a wire date ("2006-01-02") in the local zone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.Local)
}

// ParseDateTime parses a wire timestamp with or without seconds.
func ParseDateTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", s, time.Local); err == nil {
		return t, nil
	}
	return time.ParseInLocation(DateTimeLayout, s, time.Local)
}

// FormatTimestamp renders a stored timestamp for the wire.
func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// FormatDateTime renders a timestamp in the compact form used by APPT rows.
func FormatDateTime(t time.Time) string {
	return t.Format(DateTimeLayout)
}
