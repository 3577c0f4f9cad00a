package logger

import (
	"strings"
	"sync"
	"testing"
)

// TestProgressBarRender verifies correct ASCII bar rendering
func TestProgressBarRender(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		total    int64
		width    int
		expected string
	}{
		{"empty progress", 0, 10, 10, "[          ] 0/10 (0%)"},
		{"half progress", 5, 10, 10, "[=====     ] 5/10 (50%)"},
		{"full progress", 10, 10, 10, "[==========] 10/10 (100%)"},
		{"quarter progress", 2, 8, 8, "[==      ] 2/8 (25%)"},
		{"large width", 30, 100, 20, "[======              ] 30/100 (30%)"},
		{"overflow clamps", 150, 100, 10, "[==========] 150/100 (100%)"},
		{"zero total", 3, 0, 4, "[    ] 3/0 (0%)"},
		{"invalid width defaults", 1, 2, 0, "[=====     ] 1/2 (50%)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := NewProgressBar(tt.total, tt.width, false)
			pb.Update(tt.current)
			if got := pb.Render(); got != tt.expected {
				t.Errorf("Render() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestProgressBarColor(t *testing.T) {
	pb := NewProgressBar(4, 4, true)
	pb.Update(1)
	if got := pb.Render(); !strings.HasPrefix(got, "\033[36m") {
		t.Errorf("in-progress bar should be cyan, got %q", got)
	}
	pb.Update(4)
	if got := pb.Render(); !strings.HasPrefix(got, "\033[32m") {
		t.Errorf("complete bar should be green, got %q", got)
	}
}

func TestProgressBarPrefixAndAccessors(t *testing.T) {
	pb := NewProgressBar(8, 8, false)
	pb.SetPrefix("files ")
	pb.Increment()
	pb.Increment()

	if pb.Current() != 2 || pb.Total() != 8 || pb.Percentage() != 25 {
		t.Errorf("got current=%d total=%d perc=%d", pb.Current(), pb.Total(), pb.Percentage())
	}
	if got := pb.Render(); !strings.HasPrefix(got, "files [==") {
		t.Errorf("prefix missing: %q", got)
	}
}

func TestProgressBarConcurrentIncrement(t *testing.T) {
	pb := NewProgressBar(1000, 10, false)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				pb.Increment()
			}
		}()
	}
	wg.Wait()
	if pb.Current() != 1000 {
		t.Errorf("Current() = %d, want 1000", pb.Current())
	}
}
