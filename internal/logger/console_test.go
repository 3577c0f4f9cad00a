package logger

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/devscan/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 1, 14, 5, 9, 0, time.UTC)
}

func newTestLogger(level string) (*ConsoleLogger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	l := NewConsoleLogger(buf, level)
	l.now = fixedClock
	return l, buf
}

// TestNewConsoleLogger verifies the constructor defaults.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "DEBUG")
		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "debug" {
			t.Errorf("expected log level %q, got %q", "debug", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("buffer output must not be colored")
		}
	})

	t.Run("invalid level defaults to info", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "chatty")
		if logger.logLevel != "info" {
			t.Errorf("expected info, got %q", logger.logLevel)
		}
	})

	t.Run("nil writer discards", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "trace")
		logger.Infof("nothing %d", 1)
		logger.ScanProgress(models.ScanProgress{ScanID: "x"})
		logger.ScanCompleted("x", "/out.json")
		logger.ScanFailed("x", "boom")
	})
}

// TestLogLevelFiltering verifies that messages are filtered based on log level.
func TestLogLevelFiltering(t *testing.T) {
	tests := []struct {
		logLevel string
		want     []string
	}{
		{"trace", []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{"debug", []string{"DEBUG", "INFO", "WARN", "ERROR"}},
		{"info", []string{"INFO", "WARN", "ERROR"}},
		{"warn", []string{"WARN", "ERROR"}},
		{"error", []string{"ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.logLevel, func(t *testing.T) {
			logger, buf := newTestLogger(tt.logLevel)
			logger.LogTrace("m")
			logger.Debugf("m")
			logger.Infof("m")
			logger.Warnf("m")
			logger.Errorf("m")

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			if len(lines) != len(tt.want) {
				t.Fatalf("got %d lines, want %d: %q", len(lines), len(tt.want), buf.String())
			}
			for i, level := range tt.want {
				if !strings.Contains(lines[i], "["+level+"]") {
					t.Errorf("line %d = %q, want level %s", i, lines[i], level)
				}
			}
		})
	}
}

func TestFormattedMessage(t *testing.T) {
	logger, buf := newTestLogger("info")
	logger.Warnf("root %d skipped: %s", 7, "missing")

	want := "[14:05:09] [WARN] root 7 skipped: missing\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestScanProgressFormatting(t *testing.T) {
	total := int64(200)
	tests := []struct {
		name     string
		progress models.ScanProgress
		want     string
	}{
		{
			name: "queued with reason",
			progress: models.ScanProgress{
				ScanID:      "0123456789abcdef",
				State:       models.StateQueued,
				QueueReason: models.ReasonWaitingDisk("/data"),
			},
			want: "[14:05:09] scan 01234567 Queued (waiting for disk /data)\n",
		},
		{
			name: "counting without total",
			progress: models.ScanProgress{
				ScanID:       "abc",
				State:        models.StateCounting,
				FilesScanned: 42,
				CurrentPath:  "/src/app",
			},
			want: "[14:05:09] scan abc Counting 42 files /src/app\n",
		},
		{
			name: "running with total",
			progress: models.ScanProgress{
				ScanID:       "abc",
				State:        models.StateRunning,
				FilesScanned: 100,
				TotalFiles:   &total,
				CurrentPath:  "/src/app/main.go",
			},
			want: "[14:05:09] scan abc Running [=====     ] 100/200 (50%) /src/app/main.go\n",
		},
		{
			name: "terminal hides current path",
			progress: models.ScanProgress{
				ScanID:       "abc",
				State:        models.StateStopped,
				FilesScanned: 5,
				CurrentPath:  "/src",
			},
			want: "[14:05:09] scan abc Stopped 5 files\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newTestLogger("info")
			logger.ScanProgress(tt.progress)
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestScanProgressSuppressedAboveInfo(t *testing.T) {
	logger, buf := newTestLogger("warn")
	logger.ScanProgress(models.ScanProgress{ScanID: "abc", State: models.StateRunning})
	logger.ScanCompleted("abc", "/snap.json")
	if buf.Len() != 0 {
		t.Errorf("expected no output at warn level, got %q", buf.String())
	}

	logger.ScanFailed("abc", "disk vanished")
	if !strings.Contains(buf.String(), "scan abc failed: disk vanished") {
		t.Errorf("failure must be logged at warn level, got %q", buf.String())
	}
}

func TestScanCompleted(t *testing.T) {
	logger, buf := newTestLogger("info")
	logger.ScanCompleted("0123456789", "/home/op/.devscan/snapshots/0123456789.json")

	want := "[14:05:09] scan 01234567 complete: /home/op/.devscan/snapshots/0123456789.json\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestLogScanSummary(t *testing.T) {
	logger, buf := newTestLogger("info")
	logger.LogScanSummary(models.ScanProgress{
		ScanID:       "scan-1",
		Mode:         models.ModeChanged,
		State:        models.StateFailed,
		FilesScanned: 12,
		Error:        "permission denied",
	}, 3, 90*time.Second)

	out := buf.String()
	for _, want := range []string{
		"=== Scan Summary ===",
		"Scan: scan-1 (changed)",
		"State: Failed",
		"Files scanned: 12",
		"Suggestions: 3",
		"Duration: 1m30s",
		"Error: permission denied",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "0s"},
		{5 * time.Second, "5s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

// TestConcurrentLogging verifies lines are never interleaved.
func TestConcurrentLogging(t *testing.T) {
	logger, buf := newTestLogger("info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.Infof("worker %d", n)
			logger.ScanProgress(models.ScanProgress{ScanID: "abc", State: models.StateRunning})
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 40 {
		t.Fatalf("expected 40 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.HasPrefix(line, "[14:05:09] ") {
			t.Errorf("malformed line %q", line)
		}
	}
}

func TestColorHelpers(t *testing.T) {
	if got := ColorConfidence(0.4, "0.40"); got != "0.40" {
		t.Errorf("low confidence must stay plain, got %q", got)
	}
	if got := colorLevel("CUSTOM"); got != "CUSTOM" {
		t.Errorf("unknown level must stay plain, got %q", got)
	}
	for st := models.StateQueued; st <= models.StateStopped; st++ {
		if !strings.Contains(colorState(st), st.String()) {
			t.Errorf("colorState(%v) lost the state name", st)
		}
	}
	if !strings.Contains(ColorStatus(models.StatusAccepted), "Accepted") {
		t.Error("ColorStatus lost the status name")
	}
}

func TestNoOpLoggerSatisfiesSink(t *testing.T) {
	var s Sink = NewNoOpLogger()
	s.Infof("ignored")
	s.ScanFailed("x", "y")
}
