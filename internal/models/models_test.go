package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanStateIsBlocking(t *testing.T) {
	tests := []struct {
		name   string
		state  ScanState
		reason string
		want   bool
	}{
		{"running blocks", StateRunning, "", true},
		{"counting blocks", StateCounting, "", true},
		{"paused blocks", StatePaused, "", true},
		{"queued without reason blocks", StateQueued, "", true},
		{"queued on disk blocks", StateQueued, ReasonWaitingDisk("/dev/sda1"), true},
		{"queued behind whole scan does not block", StateQueued, ReasonWaitingWhole, false},
		{"completed does not block", StateCompleted, "", false},
		{"failed does not block", StateFailed, "", false},
		{"stopped does not block", StateStopped, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.IsBlocking(tt.reason))
		})
	}
}

func TestScanStateRoundTrip(t *testing.T) {
	for st := StateQueued; st <= StateStopped; st++ {
		parsed, err := ParseScanState(st.String())
		require.NoError(t, err)
		assert.Equal(t, st, parsed)
	}
	_, err := ParseScanState("Sleeping")
	assert.Error(t, err)
}

func TestParseScanMode(t *testing.T) {
	mode, err := ParseScanMode("Whole")
	require.NoError(t, err)
	assert.Equal(t, ModeWhole, mode)

	_, err = ParseScanMode("partial")
	assert.Error(t, err)
}

func TestScanProgressPercent(t *testing.T) {
	total := int64(200)
	p := ScanProgress{FilesScanned: 50, TotalFiles: &total}
	assert.Equal(t, 25, p.Percent())

	p.TotalFiles = nil
	assert.Equal(t, -1, p.Percent())

	over := int64(10)
	p = ScanProgress{FilesScanned: 50, TotalFiles: &over}
	assert.Equal(t, 100, p.Percent())
}

func TestExtensionSummary(t *testing.T) {
	summary := FormatExtensionSummary(map[string]int{"cs": 12, "json": 1, "h": 1, "": 4})
	assert.Equal(t, "cs=12, h=1, json=1", summary)

	hist := ParseExtensionSummary(summary)
	assert.Equal(t, map[string]int{"cs": 12, "h": 1, "json": 1}, hist)
}

func TestParseExtensionSummaryMalformed(t *testing.T) {
	hist := ParseExtensionSummary("cs=abc, =3, .CPP=4; garbage, py=-1")
	assert.Equal(t, map[string]int{"cpp": 4}, hist)
	assert.Empty(t, ParseExtensionSummary(""))
}

func TestParseStringList(t *testing.T) {
	assert.Equal(t, []string{".sln", ".csproj"}, ParseStringList(`[".sln", " .csproj ", ""]`))
	assert.Empty(t, ParseStringList(`{"not":"a list"}`))
	assert.Empty(t, ParseStringList(`[1, 2`))
	assert.Empty(t, ParseStringList(""))
	assert.Equal(t, "[]", EncodeStringList(nil))
	assert.Equal(t, `["a","b"]`, EncodeStringList([]string{"a", "b"}))
}
