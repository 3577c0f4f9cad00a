package logger

import (
	"fmt"
	"strings"
	"sync"
)

// ProgressBar renders an ASCII bar for file counts, with color support.
type ProgressBar struct {
	current     int64
	total       int64
	width       int
	enableColor bool
	prefix      string
	mu          sync.RWMutex
}

// NewProgressBar creates a new progress bar
func NewProgressBar(total int64, width int, enableColor bool) *ProgressBar {
	if width < 1 {
		width = 10
	}
	return &ProgressBar{
		total:       total,
		width:       width,
		enableColor: enableColor,
	}
}

// Update sets the current progress value
func (pb *ProgressBar) Update(current int64) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current = current
}

// Increment increments the current progress by 1
func (pb *ProgressBar) Increment() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.current++
}

// Current returns the current progress value
func (pb *ProgressBar) Current() int64 {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.current
}

// Total returns the total progress value
func (pb *ProgressBar) Total() int64 {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.total
}

// Percentage returns the progress percentage (0-100)
func (pb *ProgressBar) Percentage() int {
	pb.mu.RLock()
	defer pb.mu.RUnlock()
	return pb.percentLocked()
}

func (pb *ProgressBar) percentLocked() int {
	if pb.total <= 0 {
		return 0
	}
	perc := (pb.current * 100) / pb.total
	if perc > 100 {
		perc = 100
	}
	if perc < 0 {
		perc = 0
	}
	return int(perc)
}

// SetPrefix sets a custom prefix for the progress bar
func (pb *ProgressBar) SetPrefix(prefix string) {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	pb.prefix = prefix
}

// Render generates the ASCII progress bar string.
// Format: "[=====     ] 50/100 (50%)"
func (pb *ProgressBar) Render() string {
	pb.mu.RLock()
	defer pb.mu.RUnlock()

	perc := pb.percentLocked()
	filled := (perc * pb.width) / 100

	bar := "[" + strings.Repeat("=", filled) + strings.Repeat(" ", pb.width-filled) + "]"
	result := fmt.Sprintf("%s%s %d/%d (%d%%)", pb.prefix, bar, pb.current, pb.total, perc)

	if pb.enableColor && perc < 100 {
		result = fmt.Sprintf("\033[36m%s\033[0m", result) // Cyan for in-progress
	} else if pb.enableColor && perc == 100 {
		result = fmt.Sprintf("\033[32m%s\033[0m", result) // Green for complete
	}

	return result
}
