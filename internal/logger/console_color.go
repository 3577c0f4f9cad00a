package logger

import (
	"strings"

	"github.com/fatih/color"
	"github.com/harrison/devscan/internal/models"
)

// colorScheme defines consistent colors for scan output.
type colorScheme struct {
	success *color.Color
	fail    *color.Color
	warn    *color.Color
	label   *color.Color
	muted   *color.Color
}

func newColorScheme() *colorScheme {
	return &colorScheme{
		success: color.New(color.FgGreen),
		fail:    color.New(color.FgRed),
		warn:    color.New(color.FgYellow),
		label:   color.New(color.FgCyan),
		muted:   color.New(color.FgHiBlack),
	}
}

// colorLevel paints a level tag.
func colorLevel(level string) string {
	switch strings.ToUpper(level) {
	case "TRACE":
		return color.New(color.FgHiBlack).Sprint(level)
	case "DEBUG":
		return color.New(color.FgCyan).Sprint(level)
	case "INFO":
		return color.New(color.FgBlue).Sprint(level)
	case "WARN":
		return color.New(color.FgYellow).Sprint(level)
	case "ERROR":
		return color.New(color.FgRed).Sprint(level)
	default:
		return level
	}
}

// colorState paints a scan state: green for done, red for failure, yellow
// for paused or stopped, cyan while working, grey while queued.
func colorState(s models.ScanState) string {
	scheme := newColorScheme()
	name := s.String()
	switch s {
	case models.StateCompleted:
		return scheme.success.Sprint(name)
	case models.StateFailed:
		return scheme.fail.Sprint(name)
	case models.StatePaused, models.StateStopped:
		return scheme.warn.Sprint(name)
	case models.StateCounting, models.StateRunning:
		return scheme.label.Sprint(name)
	default:
		return scheme.muted.Sprint(name)
	}
}

// ColorConfidence paints a 0-1 score: green at or above 0.8, yellow at or
// above 0.6, plain below.
func ColorConfidence(value float64, text string) string {
	scheme := newColorScheme()
	switch {
	case value >= 0.8:
		return scheme.success.Sprint(text)
	case value >= 0.6:
		return scheme.warn.Sprint(text)
	default:
		return text
	}
}

// ColorStatus paints a decision status.
func ColorStatus(status models.DecisionStatus) string {
	scheme := newColorScheme()
	switch status {
	case models.StatusAccepted:
		return scheme.success.Sprint(string(status))
	case models.StatusRejected:
		return scheme.fail.Sprint(string(status))
	default:
		return scheme.label.Sprint(string(status))
	}
}
