package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/policy"
	"github.com/harrison/devscan/internal/snapshot"
)

// RootResolver maps stored roots to filesystem locations.
type RootResolver interface {
	ResolveRoot(ctx context.Context, id int64) (models.RootRecord, error)
	DirtyRoots(ctx context.Context) ([]models.RootRecord, error)
	MarkClean(ctx context.Context, ids []int64) error
}

// SessionSink persists scan sessions.
type SessionSink interface {
	SaveProgress(ctx context.Context, p models.ScanProgress) error
	AttachOutput(ctx context.Context, scanID, path string) error
}

// EventSink receives lifecycle events.
type EventSink interface {
	ScanProgress(p models.ScanProgress)
	ScanCompleted(scanID, outputPath string)
	ScanFailed(scanID, errText string)
}

// SuggestionSink stores the project suggestions produced by a scan.
type SuggestionSink interface {
	SaveProjectSuggestions(ctx context.Context, scanID string, suggestions []models.ProjectSuggestion) error
}

// History answers whether the operator already rejected a candidate.
type History interface {
	IsProjectRejected(ctx context.Context, path string, kind models.SuggestionKind, fingerprint string) (bool, error)
}

// ProjectClassifier turns a finished snapshot into project suggestions.
type ProjectClassifier interface {
	Classify(roots []*snapshot.DirectoryNode) []models.ProjectSuggestion
}

// Logger is the subset of the console logger the coordinator uses.
type Logger interface {
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
}

// Options configures a Coordinator.
type Options struct {
	SnapshotDir       string
	ProgressInterval  time.Duration
	QueuePollInterval time.Duration
	MaxSampleLines    int
	MaxSampleChars    int
	IgnoreFile        string
}

// Deps are the coordinator's collaborators. Events, History and Logger may
// be nil.
type Deps struct {
	Roots       RootResolver
	Sessions    SessionSink
	Events      EventSink
	Suggestions SuggestionSink
	History     History
	Volumes     VolumeLister
	Classifier  ProjectClassifier
	Logger      Logger
}

// target is one resolved root to walk.
type target struct {
	rootID  int64
	path    string
	diskKey string
}

// Coordinator owns the in-flight scans and their locks.
type Coordinator struct {
	opts  Options
	deps  Deps
	locks *LockArena

	baseCtx    context.Context
	baseCancel context.CancelFunc
	wg         sync.WaitGroup

	mu       sync.Mutex
	active   map[uuid.UUID]*Runtime
	finished map[uuid.UUID]models.ScanProgress
}

// NewCoordinator creates a Coordinator. Close stops every scan it started.
func NewCoordinator(opts Options, deps Deps) *Coordinator {
	if deps.Volumes == nil {
		deps.Volumes = NewMountTableLister()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		opts:       opts,
		deps:       deps,
		locks:      NewLockArena(opts.QueuePollInterval),
		baseCtx:    ctx,
		baseCancel: cancel,
		active:     make(map[uuid.UUID]*Runtime),
		finished:   make(map[uuid.UUID]models.ScanProgress),
	}
}

// Start validates req, registers a Queued scan, and runs it in the
// background. Configuration errors are returned as *ConfigError and leave
// nothing queued. ctx bounds root resolution only; the scan itself lives
// until it finishes, is stopped, or the coordinator is closed.
func (c *Coordinator) Start(ctx context.Context, req models.ScanRequest) (uuid.UUID, error) {
	targets, err := c.resolveTargets(ctx, req)
	if err != nil {
		return uuid.Nil, err
	}

	rt := NewRuntime(c.baseCtx, req.Mode, req.DepthLimit, c.opts.ProgressInterval)
	rt.setProgressHook(func(models.ScanProgress) { c.report(rt) })

	c.mu.Lock()
	c.active[rt.ID()] = rt
	c.mu.Unlock()

	c.report(rt)
	c.infof("Scan %s queued (%s)", rt.ID(), req.Mode)

	c.wg.Add(1)
	go c.run(rt, targets)
	return rt.ID(), nil
}

func (c *Coordinator) resolveTargets(ctx context.Context, req models.ScanRequest) ([]target, error) {
	switch req.Mode {
	case models.ModeWhole:
		// volumes are discovered when the walk starts
		return nil, nil

	case models.ModeRoots:
		if req.RootID == 0 {
			return nil, NewConfigError(0, "a root is required for a roots scan", nil)
		}
		t, err := c.resolveRoot(ctx, req.RootID)
		if err != nil {
			return nil, err
		}
		return []target{t}, nil

	case models.ModeChanged:
		if req.RootID != 0 {
			t, err := c.resolveRoot(ctx, req.RootID)
			if err != nil {
				return nil, err
			}
			return []target{t}, nil
		}
		dirty, err := c.deps.Roots.DirtyRoots(ctx)
		if err != nil {
			return nil, NewConfigError(0, "failed to list changed roots", err)
		}
		if len(dirty) == 0 {
			return nil, NewConfigError(0, "no roots are flagged as changed", nil)
		}
		targets := make([]target, 0, len(dirty))
		for _, r := range dirty {
			t, err := checkRoot(r)
			if err != nil {
				return nil, err
			}
			targets = append(targets, t)
		}
		return targets, nil

	default:
		return nil, NewConfigError(0, fmt.Sprintf("unsupported scan mode %s", req.Mode), nil)
	}
}

func (c *Coordinator) resolveRoot(ctx context.Context, id int64) (target, error) {
	rec, err := c.deps.Roots.ResolveRoot(ctx, id)
	if err != nil {
		return target{}, NewConfigError(id, "root not found", err)
	}
	return checkRoot(rec)
}

func checkRoot(rec models.RootRecord) (target, error) {
	info, err := os.Stat(rec.Path)
	if err != nil {
		return target{}, NewConfigError(rec.ID, fmt.Sprintf("root path %s cannot be resolved", rec.Path), err)
	}
	if !info.IsDir() {
		return target{}, NewConfigError(rec.ID, fmt.Sprintf("root path %s is not a directory", rec.Path), nil)
	}
	key := rec.DiskKey
	if key == "" {
		key = rec.Path
	}
	return target{rootID: rec.ID, path: rec.Path, diskKey: key}, nil
}

// heldLocks tracks the release functions of the locks a scan holds so the
// terminal state can be reported before any of them is released.
type heldLocks struct {
	releases []func()
}

func (h *heldLocks) add(release func()) {
	h.releases = append(h.releases, release)
}

// releaseLast releases the most recently taken lock.
func (h *heldLocks) releaseLast() {
	if n := len(h.releases); n > 0 {
		h.releases[n-1]()
		h.releases = h.releases[:n-1]
	}
}

func (h *heldLocks) releaseAll() {
	for len(h.releases) > 0 {
		h.releaseLast()
	}
}

// run is the top of a scan's goroutine. Every fault, including a panic,
// resolves the scan to Failed; cancellation resolves it to Stopped.
func (c *Coordinator) run(rt *Runtime, targets []target) {
	defer c.wg.Done()

	held := &heldLocks{}
	var (
		output string
		err    error
	)
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("scan panicked: %v", p)
			}
		}()
		output, err = c.execute(rt, targets, held)
		if err == nil {
			// a pause that lands after the walk holds completion until resumed
			err = rt.advance(rt.Context(), models.StateCompleted)
		}
	}()

	id := rt.ID().String()
	failed := false
	switch {
	case err == nil:
		c.report(rt)
		c.infof("Scan %s completed: %d files, snapshot %s", id, rt.FilesScanned(), output)
	case errors.Is(err, context.Canceled) || rt.Context().Err() != nil:
		_ = rt.transition(models.StateStopped)
		c.report(rt)
		c.infof("Scan %s stopped", id)
	default:
		failed = true
		rt.fail(err)
		c.report(rt)
		c.warnf("Scan %s failed: %v", id, err)
	}

	held.releaseAll()

	c.mu.Lock()
	delete(c.active, rt.ID())
	c.finished[rt.ID()] = rt.Progress()
	c.mu.Unlock()

	if c.deps.Events != nil {
		switch {
		case failed:
			c.deps.Events.ScanFailed(id, err.Error())
		case err == nil:
			c.deps.Events.ScanCompleted(id, output)
		}
	}
	rt.cancel()
	close(rt.done)
}

func (c *Coordinator) execute(rt *Runtime, targets []target, held *heldLocks) (string, error) {
	ctx := rt.Context()
	started := time.Now()

	onWaitWhole := func() {
		rt.queue(models.ReasonWaitingWhole)
		c.report(rt)
	}

	release, err := c.locks.AcquireWhole(ctx, onWaitWhole)
	if err != nil {
		return "", err
	}
	// the reason must be gone before the whole lock can be taken by
	// another scan, or that scan's drain would skip this one
	rt.clearQueueReason()

	if rt.Mode() != models.ModeWhole {
		// a non-whole scan only asserts that no whole scan is running
		release()
		roots, err := c.walkAll(ctx, rt, targets, true, held)
		if err != nil {
			return "", err
		}
		return c.finalize(ctx, rt, started, roots, targets)
	}

	held.add(release)
	err = c.locks.WaitUntil(ctx, func() bool { return !c.othersBlocking(rt.ID()) }, func() {
		rt.queue(models.ReasonWaitingOthers)
		c.report(rt)
	})
	if err != nil {
		return "", err
	}

	vols, err := c.deps.Volumes.Volumes(ctx)
	if err != nil {
		return "", fmt.Errorf("list volumes: %w", err)
	}
	vtargets := make([]target, 0, len(vols))
	for _, v := range vols {
		vtargets = append(vtargets, target{path: v.Path, diskKey: v.DiskKey})
	}
	roots, err := c.walkAll(ctx, rt, vtargets, false, held)
	if err != nil {
		return "", err
	}
	return c.finalize(ctx, rt, started, roots, nil)
}

// walkAll walks each target under its disk lock. Between targets the scan
// drops back to Queued before releasing the previous disk; the last disk
// lock stays held until the scan's terminal state has been reported.
func (c *Coordinator) walkAll(ctx context.Context, rt *Runtime, targets []target, count bool, held *heldLocks) ([]*snapshot.DirectoryNode, error) {
	roots := make([]*snapshot.DirectoryNode, 0, len(targets))
	for i, t := range targets {
		node, err := c.walk(ctx, rt, t, count, held)
		if err != nil {
			return nil, err
		}
		roots = append(roots, node)
		if i < len(targets)-1 {
			if err := rt.advance(ctx, models.StateQueued); err != nil {
				return nil, err
			}
			held.releaseLast()
		}
	}
	return roots, nil
}

// walk takes the target's disk lock, then runs an optional count pass and
// the build pass.
func (c *Coordinator) walk(ctx context.Context, rt *Runtime, t target, count bool, held *heldLocks) (*snapshot.DirectoryNode, error) {
	release, err := c.locks.AcquireDisk(ctx, t.diskKey, func() {
		rt.queue(models.ReasonWaitingDisk(t.diskKey))
		c.report(rt)
	})
	if err != nil {
		return nil, err
	}
	held.add(release)
	rt.setDiskKey(t.diskKey)

	matcher, err := policy.LoadMatcher(t.path, c.opts.IgnoreFile)
	if err != nil {
		c.warnf("Scan %s: ignoring unreadable ignore file: %v", rt.ID(), err)
	}
	b := snapshot.NewBuilder(snapshot.Options{
		DepthLimit:     rt.depthLimit,
		MaxSampleLines: c.opts.MaxSampleLines,
		MaxSampleChars: c.opts.MaxSampleChars,
		Matcher:        matcher,
	})

	if count {
		if err := rt.advance(ctx, models.StateCounting); err != nil {
			return nil, err
		}
		c.report(rt)
		n, err := b.Count(ctx, t.path, rt)
		if err != nil {
			return nil, err
		}
		rt.addTotal(n)
	}

	if err := rt.advance(ctx, models.StateRunning); err != nil {
		return nil, err
	}
	c.report(rt)
	node, err := b.Build(ctx, t.path, rt)
	if err != nil {
		return nil, err
	}
	c.infof("Scan %s: walked %s (%d files)", rt.ID(), t.path, node.FileCount())
	return node, nil
}

// finalize writes the snapshot document, attaches it to the session, and
// hands the classifier's suggestions to the suggestion sink.
func (c *Coordinator) finalize(ctx context.Context, rt *Runtime, started time.Time, roots []*snapshot.DirectoryNode, targets []target) (string, error) {
	id := rt.ID().String()
	progress := rt.Progress()

	snap := &snapshot.Snapshot{
		Version:      snapshot.DocumentVersion,
		ScanID:       id,
		StartedAt:    started,
		FinishedAt:   time.Now(),
		DepthLimit:   rt.depthLimit,
		TotalFiles:   progress.TotalFiles,
		FilesScanned: progress.FilesScanned,
		Roots:        roots,
	}
	if snap.Roots == nil {
		snap.Roots = []*snapshot.DirectoryNode{}
	}

	path := snapshot.DocumentPath(c.opts.SnapshotDir, id)
	if err := snapshot.Write(path, snap); err != nil {
		return "", err
	}
	if err := c.deps.Sessions.AttachOutput(ctx, id, path); err != nil {
		return "", fmt.Errorf("attach snapshot to session: %w", err)
	}

	suggestions := c.filterRejected(ctx, c.deps.Classifier.Classify(snap.Roots))
	if err := c.deps.Suggestions.SaveProjectSuggestions(ctx, id, suggestions); err != nil {
		return "", fmt.Errorf("save project suggestions: %w", err)
	}

	if rt.Mode() == models.ModeChanged {
		ids := make([]int64, 0, len(targets))
		for _, t := range targets {
			ids = append(ids, t.rootID)
		}
		if err := c.deps.Roots.MarkClean(ctx, ids); err != nil {
			return "", fmt.Errorf("mark roots clean: %w", err)
		}
	}
	return path, nil
}

// filterRejected drops candidates the operator rejected before with the
// same path, kind and fingerprint. Lookup errors keep the candidate.
func (c *Coordinator) filterRejected(ctx context.Context, in []models.ProjectSuggestion) []models.ProjectSuggestion {
	if c.deps.History == nil {
		return in
	}
	out := in[:0]
	for _, s := range in {
		rejected, err := c.deps.History.IsProjectRejected(ctx, s.Path, s.Kind, s.Fingerprint)
		if err != nil {
			c.warnf("Rejection lookup failed for %s: %v", s.Path, err)
		}
		if rejected {
			continue
		}
		out = append(out, s)
	}
	return out
}

// othersBlocking reports whether any other registered scan keeps a whole
// scan waiting. A registered scan in a terminal state still holds its locks
// until it is evicted.
func (c *Coordinator) othersBlocking(self uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, rt := range c.active {
		if id == self {
			continue
		}
		if rt.IsBlocking() || rt.State().IsTerminal() {
			return true
		}
	}
	return false
}

// report persists and emits the runtime's current progress.
func (c *Coordinator) report(rt *Runtime) {
	p := rt.Progress()
	if err := c.deps.Sessions.SaveProgress(context.Background(), p); err != nil {
		c.warnf("Failed to save progress for scan %s: %v", p.ScanID, err)
	}
	if c.deps.Events != nil {
		c.deps.Events.ScanProgress(p)
	}
}

func (c *Coordinator) lookup(id uuid.UUID) (*Runtime, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rt, ok := c.active[id]
	if !ok {
		return nil, ErrScanNotFound
	}
	return rt, nil
}

// Pause pauses a running scan. Pausing a scan that is not running is a
// no-op.
func (c *Coordinator) Pause(id uuid.UUID) error {
	rt, err := c.lookup(id)
	if err != nil {
		return err
	}
	if rt.Pause() {
		c.report(rt)
	}
	return nil
}

// Resume resumes a paused scan. Resuming a scan that is not paused is a
// no-op.
func (c *Coordinator) Resume(id uuid.UUID) error {
	rt, err := c.lookup(id)
	if err != nil {
		return err
	}
	if rt.Resume() {
		c.report(rt)
	}
	return nil
}

// Stop cancels a scan. Stopping a finished scan is a no-op.
func (c *Coordinator) Stop(id uuid.UUID) error {
	rt, err := c.lookup(id)
	if err != nil {
		if errors.Is(err, ErrScanNotFound) && c.isFinished(id) {
			return nil
		}
		return err
	}
	rt.Stop()
	return nil
}

// StopAll cancels every in-flight scan.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rt := range c.active {
		rt.Stop()
	}
}

// Active returns the progress of every in-flight scan, ordered by ID.
func (c *Coordinator) Active() []models.ScanProgress {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]models.ScanProgress, 0, len(c.active))
	for _, rt := range c.active {
		out = append(out, rt.Progress())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScanID < out[j].ScanID })
	return out
}

// Progress returns the current or final progress of a scan.
func (c *Coordinator) Progress(id uuid.UUID) (models.ScanProgress, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rt, ok := c.active[id]; ok {
		return rt.Progress(), nil
	}
	if p, ok := c.finished[id]; ok {
		return p, nil
	}
	return models.ScanProgress{}, ErrScanNotFound
}

// Wait blocks until the scan reaches a terminal state and returns its
// final progress.
func (c *Coordinator) Wait(ctx context.Context, id uuid.UUID) (models.ScanProgress, error) {
	c.mu.Lock()
	rt, active := c.active[id]
	c.mu.Unlock()

	if active {
		select {
		case <-rt.Done():
		case <-ctx.Done():
			return models.ScanProgress{}, ctx.Err()
		}
	}
	return c.Progress(id)
}

func (c *Coordinator) isFinished(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.finished[id]
	return ok
}

// Close stops every scan and waits for their goroutines to exit.
func (c *Coordinator) Close() {
	c.baseCancel()
	c.wg.Wait()
}

func (c *Coordinator) infof(format string, args ...interface{}) {
	if c.deps.Logger != nil {
		c.deps.Logger.Infof(format, args...)
	}
}

func (c *Coordinator) warnf(format string, args ...interface{}) {
	if c.deps.Logger != nil {
		c.deps.Logger.Warnf(format, args...)
	}
}
