// Package logger provides logging implementations for devscan.
//
// The console logger prints leveled messages and scan lifecycle events with
// timestamps; the file logger keeps a per-run log on disk. Both are safe for
// concurrent use and satisfy the event sink the scan coordinator reports to.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/harrison/devscan/internal/models"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs messages and scan events to a writer with timestamps.
// All output is prefixed with [HH:MM:SS]. Color output is enabled only when
// writing to a terminal.
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
	now         func() time.Time
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
		now:         time.Now,
	}
}

// isTerminal reports whether w is a TTY that should receive ANSI colors.
// NO_COLOR is honored through fatih/color.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	if color.NoColor && (f == os.Stdout || f == os.Stderr) {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

// Debugf formats and logs at debug level.
func (cl *ConsoleLogger) Debugf(format string, args ...interface{}) {
	cl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

// Infof formats and logs at info level.
func (cl *ConsoleLogger) Infof(format string, args ...interface{}) {
	cl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

// Warnf formats and logs at warn level.
func (cl *ConsoleLogger) Warnf(format string, args ...interface{}) {
	cl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

// Errorf formats and logs at error level.
func (cl *ConsoleLogger) Errorf(format string, args ...interface{}) {
	cl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	var formatted string
	if cl.colorOutput {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, colorLevel(level), message)
	} else {
		formatted = fmt.Sprintf("[%s] [%s] %s\n", ts, level, message)
	}
	cl.writer.Write([]byte(formatted))
}

// ScanProgress logs a progress event at INFO level.
// Format: "[HH:MM:SS] scan <id8> Running [====      ] 40/100 (40%) /path"
// Queued scans print their queue reason instead of a bar.
func (cl *ConsoleLogger) ScanProgress(p models.ScanProgress) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}
	line := formatProgressLine(p, cl.colorOutput)

	cl.mutex.Lock()
	defer cl.mutex.Unlock()
	fmt.Fprintf(cl.writer, "[%s] %s\n", cl.timestamp(), line)
}

// ScanCompleted logs the end of a successful scan at INFO level.
func (cl *ConsoleLogger) ScanCompleted(scanID, outputPath string) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	done := "complete"
	if cl.colorOutput {
		done = color.New(color.FgGreen).Sprint(done)
	}
	fmt.Fprintf(cl.writer, "[%s] scan %s %s: %s\n", cl.timestamp(), shortID(scanID), done, outputPath)
}

// ScanFailed logs a failed scan at ERROR level.
func (cl *ConsoleLogger) ScanFailed(scanID, errText string) {
	if cl.writer == nil || !cl.shouldLog("error") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	failed := "failed"
	if cl.colorOutput {
		failed = color.New(color.FgRed).Sprint(failed)
	}
	fmt.Fprintf(cl.writer, "[%s] scan %s %s: %s\n", cl.timestamp(), shortID(scanID), failed, errText)
}

// LogScanSummary logs the outcome of a finished scan.
func (cl *ConsoleLogger) LogScanSummary(p models.ScanProgress, suggestions int, elapsed time.Duration) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := cl.timestamp()
	header := "=== Scan Summary ==="
	state := p.State.String()
	if cl.colorOutput {
		header = color.New(color.Bold).Sprint(header)
		state = colorState(p.State)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", ts, header)
	fmt.Fprintf(&b, "[%s] Scan: %s (%s)\n", ts, p.ScanID, p.Mode)
	fmt.Fprintf(&b, "[%s] State: %s\n", ts, state)
	fmt.Fprintf(&b, "[%s] Files scanned: %d\n", ts, p.FilesScanned)
	fmt.Fprintf(&b, "[%s] Suggestions: %d\n", ts, suggestions)
	fmt.Fprintf(&b, "[%s] Duration: %s\n", ts, formatDuration(elapsed))
	if p.Error != "" {
		fmt.Fprintf(&b, "[%s] Error: %s\n", ts, p.Error)
	}
	cl.writer.Write([]byte(b.String()))
}

func (cl *ConsoleLogger) timestamp() string {
	return cl.now().Format("15:04:05")
}

// formatProgressLine renders one progress event without timestamp.
func formatProgressLine(p models.ScanProgress, useColor bool) string {
	state := p.State.String()
	if useColor {
		state = colorState(p.State)
	}
	line := fmt.Sprintf("scan %s %s", shortID(p.ScanID), state)

	switch {
	case p.State == models.StateQueued && p.QueueReason != "":
		line += " (" + p.QueueReason + ")"
	case p.TotalFiles != nil:
		pb := NewProgressBar(*p.TotalFiles, 10, useColor)
		pb.Update(p.FilesScanned)
		line += " " + pb.Render()
	case p.FilesScanned > 0:
		line += fmt.Sprintf(" %d files", p.FilesScanned)
	}
	if p.CurrentPath != "" && !p.State.IsTerminal() {
		line += " " + p.CurrentPath
	}
	return line
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}

// NoOpLogger discards all log messages and events.
// Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// NewNoOpLogger creates a NoOpLogger instance.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debugf(format string, args ...interface{}) {}
func (n *NoOpLogger) Infof(format string, args ...interface{}) {}
func (n *NoOpLogger) Warnf(format string, args ...interface{}) {}
func (n *NoOpLogger) Errorf(format string, args ...interface{}) {}
func (n *NoOpLogger) ScanProgress(p models.ScanProgress) {}
func (n *NoOpLogger) ScanCompleted(scanID, outputPath string) {}
func (n *NoOpLogger) ScanFailed(scanID, errText string) {}
