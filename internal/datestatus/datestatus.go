// Package datestatus classifies (start, end) date pairs into a presentation
// status for warranties and service windows.
package datestatus

import (
	"fmt"
	"time"
)

// DefaultWarnDays is the warning window applied when the caller passes a
// non-positive value.
const DefaultWarnDays = 14

// Level is the presentation severity of a status.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelDanger  Level = "danger"
)

// Status is the classification result. Label is carried through unchanged so
// callers can render "Warranty", "Service" etc. next to the message.
type Status struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
	Label   string `json:"label,omitempty"`
}

// shortWindow is the fast-path cutoff for windows of two days or less.
const shortWindow = 48 * time.Hour

// Classify maps a (start, end) pair to a Status as of today. Returns nil when
// both dates are nil. warnDays controls how close to end the status turns into
// a warning.
func Classify(start, end *time.Time, today time.Time, warnDays int, label string) *Status {
	if start == nil && end == nil {
		return nil
	}
	if warnDays <= 0 {
		warnDays = DefaultWarnDays
	}

	if start == nil {
		return classifyEnd(*end, today, warnDays, label)
	}

	if today.Before(*start) {
		n := daysBetween(today, *start)
		return &Status{
			Level:   LevelInfo,
			Message: fmt.Sprintf("Starts in %s", pluralDays(n)),
			Label:   label,
		}
	}

	if end != nil {
		// Short windows go straight to danger/warning without the
		// success band in between.
		if end.Sub(*start) <= shortWindow {
			if !end.After(today) {
				n := daysBetween(*end, today)
				return &Status{
					Level:   LevelDanger,
					Message: fmt.Sprintf("Expired %s ago", pluralDays(n)),
					Label:   label,
				}
			}
			n := daysBetween(today, *end)
			return &Status{
				Level:   LevelWarning,
				Message: fmt.Sprintf("Expires in %s", pluralDays(n)),
				Label:   label,
			}
		}
		return classifyEnd(*end, today, warnDays, label)
	}

	// Started, no end date.
	return &Status{Level: LevelSuccess, Message: "Active", Label: label}
}

func classifyEnd(end, today time.Time, warnDays int, label string) *Status {
	daysUntil := daysBetween(today, end)
	switch {
	case daysUntil <= 0:
		return &Status{
			Level:   LevelDanger,
			Message: fmt.Sprintf("Expired %s ago", pluralDays(-daysUntil)),
			Label:   label,
		}
	case daysUntil <= warnDays:
		return &Status{
			Level:   LevelWarning,
			Message: fmt.Sprintf("Expires in %s", pluralDays(daysUntil)),
			Label:   label,
		}
	default:
		return &Status{
			Level:   LevelSuccess,
			Message: "Valid until " + end.Format("2006-01-02"),
			Label:   label,
		}
	}
}

// daysBetween returns the whole-day difference from a to b, negative when b is
// before a. Both arguments are treated as calendar dates.
func daysBetween(a, b time.Time) int {
	a = time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	b = time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

func pluralDays(n int) string {
	if n < 0 {
		n = -n
	}
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}
