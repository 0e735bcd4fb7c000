// Package timezone resolves learner time zones and local calendar days.
//
// Streaks and "reviewed today" counts are defined on the learner's local
// calendar day, so every day boundary in the service goes through here.
package timezone

import (
	"fmt"
	"log/slog"
	"time"
)

// UTC is the coordinated universal time timezone
var UTC = time.UTC

// ParseTimezone parses an IANA timezone identifier (e.g., "Asia/Shanghai").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return UTC, nil
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}

	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}

	_, err := time.LoadLocation(tz)
	return err == nil
}

// ResolveLocation returns the learner's zone, falling back to the server
// default and then to UTC. An unloadable learner zone is logged and skipped.
func ResolveLocation(userTZ, defaultTZ string) *time.Location {
	if userTZ != "" {
		loc, err := ParseTimezone(userTZ)
		if err == nil {
			return loc
		}
		slog.Warn("ignoring invalid user timezone", slog.String("timezone", userTZ), slog.String("error", err.Error()))
	}
	loc, err := ParseTimezone(defaultTZ)
	if err != nil {
		return UTC
	}
	return loc
}

// ToUserTimezone converts a Unix timestamp to the user's timezone.
func ToUserTimezone(ts int64, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	return time.Unix(ts, 0).In(tz)
}

// StartOfDay returns the start of the day (00:00:00) in the given timezone.
func StartOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, tz)
}

// EndOfDay returns the end of the day (23:59:59.999999999) in the given timezone.
func EndOfDay(t time.Time, tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	local := t.In(tz)
	return time.Date(local.Year(), local.Month(), local.Day(), 23, 59, 59, 999999999, tz)
}

// NowInTimezone returns the current time in the given timezone.
func NowInTimezone(tz *time.Location) time.Time {
	if tz == nil {
		tz = UTC
	}
	return time.Now().In(tz)
}
