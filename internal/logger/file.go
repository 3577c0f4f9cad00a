package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/devscan/internal/models"
)

// FileLogger writes a timestamped per-run log under logDir and keeps a
// latest.log symlink pointing at the newest run.
type FileLogger struct {
	logDir   string
	runLog   *os.File
	runFile  string
	logLevel string
	mu       sync.Mutex
}

// NewFileLogger creates logDir if needed and opens run-YYYYMMDD-HHMMSS.log.
func NewFileLogger(logDir string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	stamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", stamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:   logDir,
		runLog:   file,
		runFile:  runFile,
		logLevel: normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== devscan run log ===\n")
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// Path returns the run log file.
func (fl *FileLogger) Path() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

func (fl *FileLogger) Debugf(format string, args ...interface{}) {
	fl.logWithLevel("DEBUG", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Infof(format string, args ...interface{}) {
	fl.logWithLevel("INFO", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Warnf(format string, args ...interface{}) {
	fl.logWithLevel("WARN", fmt.Sprintf(format, args...))
}

func (fl *FileLogger) Errorf(format string, args ...interface{}) {
	fl.logWithLevel("ERROR", fmt.Sprintf(format, args...))
}

// ScanProgress records progress at DEBUG level; state changes into a
// terminal state are recorded by ScanCompleted and ScanFailed.
func (fl *FileLogger) ScanProgress(p models.ScanProgress) {
	fl.logWithLevel("DEBUG", formatProgressLine(p, false))
}

// ScanCompleted records a finished scan and its snapshot path.
func (fl *FileLogger) ScanCompleted(scanID, outputPath string) {
	fl.logWithLevel("INFO", fmt.Sprintf("scan %s complete: %s", scanID, outputPath))
}

// ScanFailed records a failed scan.
func (fl *FileLogger) ScanFailed(scanID, errText string) {
	fl.logWithLevel("ERROR", fmt.Sprintf("scan %s failed: %s", scanID, errText))
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}

	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		fl.runLog.Sync()
	}
}
