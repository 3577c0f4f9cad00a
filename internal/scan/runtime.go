package scan

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/devscan/internal/models"
)

// DefaultProgressInterval is the minimum wall-clock gap between throttled
// progress reports.
const DefaultProgressInterval = 500 * time.Millisecond

// allowedTransitions is the scan lifecycle. Running -> Queued and
// Running -> Counting happen when a multi-root scan moves to its next root.
var allowedTransitions = map[models.ScanState][]models.ScanState{
	models.StateQueued:   {models.StateCounting, models.StateRunning, models.StateFailed, models.StateStopped},
	models.StateCounting: {models.StateRunning, models.StateFailed, models.StateStopped},
	models.StateRunning:  {models.StatePaused, models.StateQueued, models.StateCounting, models.StateCompleted, models.StateFailed, models.StateStopped},
	models.StatePaused:   {models.StateRunning, models.StateFailed, models.StateStopped},
}

// Runtime is the mutable state of one in-flight scan. All methods are safe
// for concurrent use.
type Runtime struct {
	id         uuid.UUID
	mode       models.ScanMode
	depthLimit *int

	ctx    context.Context
	cancel context.CancelFunc
	gate   *PauseGate
	done   chan struct{}

	filesScanned atomic.Int64

	mu             sync.Mutex
	state          models.ScanState
	queueReason    string
	diskKey        string
	currentPath    string
	totalFiles     *int64
	errText        string
	reportInterval time.Duration
	lastReportedAt time.Time
	onProgress     func(models.ScanProgress)
}

// NewRuntime creates a Queued runtime whose context derives from parent.
func NewRuntime(parent context.Context, mode models.ScanMode, depthLimit *int, reportInterval time.Duration) *Runtime {
	if reportInterval <= 0 {
		reportInterval = DefaultProgressInterval
	}
	ctx, cancel := context.WithCancel(parent)
	return &Runtime{
		id:             uuid.New(),
		mode:           mode,
		depthLimit:     depthLimit,
		ctx:            ctx,
		cancel:         cancel,
		gate:           NewPauseGate(),
		done:           make(chan struct{}),
		state:          models.StateQueued,
		reportInterval: reportInterval,
	}
}

// ID returns the scan identifier.
func (r *Runtime) ID() uuid.UUID { return r.id }

// Mode returns the scan mode.
func (r *Runtime) Mode() models.ScanMode { return r.mode }

// Context is cancelled when the scan is stopped.
func (r *Runtime) Context() context.Context { return r.ctx }

// Done is closed once the scan has reached a terminal state and released
// its locks.
func (r *Runtime) Done() <-chan struct{} { return r.done }

// State returns the current lifecycle state.
func (r *Runtime) State() models.ScanState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// IsBlocking reports whether this scan keeps a whole-machine scan waiting.
func (r *Runtime) IsBlocking() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.IsBlocking(r.queueReason)
}

// Progress returns a point-in-time copy of the scan's progress.
func (r *Runtime) Progress() models.ScanProgress {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progressLocked()
}

func (r *Runtime) progressLocked() models.ScanProgress {
	p := models.ScanProgress{
		ScanID:       r.id.String(),
		Mode:         r.mode,
		State:        r.state,
		FilesScanned: r.filesScanned.Load(),
		CurrentPath:  r.currentPath,
		QueueReason:  r.queueReason,
		DiskKey:      r.diskKey,
		Error:        r.errText,
	}
	if r.totalFiles != nil {
		total := *r.totalFiles
		p.TotalFiles = &total
	}
	return p
}

// setProgressHook installs the callback used for throttled reports.
func (r *Runtime) setProgressHook(fn func(models.ScanProgress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onProgress = fn
}

// transition moves the runtime to state to. It is the only place the state
// field changes. Leaving Paused reopens the gate.
func (r *Runtime) transition(to models.ScanState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.transitionLocked(to)
}

func (r *Runtime) transitionLocked(to models.ScanState) error {
	from := r.state
	if from == to {
		return nil
	}
	legal := false
	for _, s := range allowedTransitions[from] {
		if s == to {
			legal = true
			break
		}
	}
	if !legal {
		return &TransitionError{From: from.String(), To: to.String()}
	}

	switch to {
	case models.StatePaused:
		r.gate.Close()
	case models.StateQueued, models.StateCounting, models.StateRunning,
		models.StateCompleted, models.StateFailed, models.StateStopped:
		r.gate.Open()
	}
	if to != models.StateQueued {
		r.queueReason = ""
	}
	r.state = to
	r.lastReportedAt = time.Now()
	return nil
}

// advance is the walker's transition: it waits out a pause first so the
// walker never moves a scan the operator has paused.
func (r *Runtime) advance(ctx context.Context, to models.ScanState) error {
	for {
		if err := r.gate.Wait(ctx); err != nil {
			return err
		}
		r.mu.Lock()
		if r.state == models.StatePaused {
			r.mu.Unlock()
			continue
		}
		err := r.transitionLocked(to)
		r.mu.Unlock()
		return err
	}
}

// queue moves the runtime to Queued with reason, or updates the reason
// when it is already queued.
func (r *Runtime) queue(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != models.StateQueued {
		if err := r.transitionLocked(models.StateQueued); err != nil {
			return
		}
	}
	r.queueReason = reason
}

// clearQueueReason empties the reason while still holding whatever lock
// the scan just acquired.
func (r *Runtime) clearQueueReason() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.queueReason = ""
}

func (r *Runtime) setDiskKey(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.diskKey = key
}

// addTotal adds n to the pre-counted total.
func (r *Runtime) addTotal(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := n
	if r.totalFiles != nil {
		total += *r.totalFiles
	}
	r.totalFiles = &total
}

func (r *Runtime) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errText = err.Error()
	_ = r.transitionLocked(models.StateFailed)
}

// Pause halts a running scan at its next suspension point. It returns
// false when the scan was not running.
func (r *Runtime) Pause() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != models.StateRunning {
		return false
	}
	return r.transitionLocked(models.StatePaused) == nil
}

// Resume continues a paused scan. It returns false when the scan was not
// paused.
func (r *Runtime) Resume() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != models.StatePaused {
		return false
	}
	return r.transitionLocked(models.StateRunning) == nil
}

// Stop requests cancellation. Stopping a finished scan is a no-op.
func (r *Runtime) Stop() {
	r.cancel()
}

// Checkpoint is the walk's suspension point: it blocks while the scan is
// paused and returns the cancellation error once the scan is stopped.
func (r *Runtime) Checkpoint(ctx context.Context) error {
	if err := r.gate.Wait(ctx); err != nil {
		return err
	}
	return ctx.Err()
}

// FileVisited records one included file and emits a throttled report.
func (r *Runtime) FileVisited(path string) {
	r.filesScanned.Add(1)

	r.mu.Lock()
	r.currentPath = path
	var (
		report models.ScanProgress
		hook   func(models.ScanProgress)
	)
	if r.shouldReportLocked(time.Now()) {
		report = r.progressLocked()
		hook = r.onProgress
	}
	r.mu.Unlock()

	if hook != nil {
		hook(report)
	}
}

// ShouldReport applies the progress throttle: it returns true at most once
// per report interval and records now as the last report time when it does.
func (r *Runtime) ShouldReport(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.shouldReportLocked(now)
}

func (r *Runtime) shouldReportLocked(now time.Time) bool {
	if !r.lastReportedAt.IsZero() && now.Sub(r.lastReportedAt) < r.reportInterval {
		return false
	}
	r.lastReportedAt = now
	return true
}

// FilesScanned returns the number of files included so far.
func (r *Runtime) FilesScanned() int64 {
	return r.filesScanned.Load()
}
