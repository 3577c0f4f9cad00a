package scan

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/snapshot"
)

func TestRuntimeTransitions(t *testing.T) {
	tests := []struct {
		name    string
		path    []models.ScanState
		wantErr bool
	}{
		{"count then run", []models.ScanState{models.StateCounting, models.StateRunning, models.StateCompleted}, false},
		{"whole skips counting", []models.ScanState{models.StateRunning, models.StateCompleted}, false},
		{"pause resume", []models.ScanState{models.StateRunning, models.StatePaused, models.StateRunning, models.StateCompleted}, false},
		{"stop while paused", []models.ScanState{models.StateRunning, models.StatePaused, models.StateStopped}, false},
		{"fail while counting", []models.ScanState{models.StateCounting, models.StateFailed}, false},
		{"pause from queued", []models.ScanState{models.StatePaused}, true},
		{"complete from queued", []models.ScanState{models.StateCompleted}, true},
		{"leave terminal", []models.ScanState{models.StateRunning, models.StateCompleted, models.StateRunning}, true},
		{"count from paused", []models.ScanState{models.StateRunning, models.StatePaused, models.StateCounting}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := NewRuntime(context.Background(), models.ModeRoots, nil, 0)
			var err error
			for _, s := range tt.path {
				if err = rt.transition(s); err != nil {
					break
				}
			}
			if tt.wantErr {
				var te *TransitionError
				assert.ErrorAs(t, err, &te)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.path[len(tt.path)-1], rt.State())
			}
		})
	}
}

func TestRuntimePauseResumeIdempotent(t *testing.T) {
	rt := NewRuntime(context.Background(), models.ModeRoots, nil, 0)

	assert.False(t, rt.Pause(), "queued scan cannot be paused")
	assert.False(t, rt.Resume(), "queued scan cannot be resumed")

	require.NoError(t, rt.transition(models.StateRunning))
	assert.True(t, rt.Pause())
	assert.False(t, rt.Pause(), "second pause is a no-op")
	assert.Equal(t, models.StatePaused, rt.State())

	assert.True(t, rt.Resume())
	assert.False(t, rt.Resume(), "second resume is a no-op")
	assert.Equal(t, models.StateRunning, rt.State())

	rt.Stop()
	rt.Stop()
	assert.Error(t, rt.Context().Err())
}

func TestRuntimeStopUnblocksPausedCheckpoint(t *testing.T) {
	rt := NewRuntime(context.Background(), models.ModeRoots, nil, 0)
	require.NoError(t, rt.transition(models.StateRunning))
	require.True(t, rt.Pause())

	done := make(chan error, 1)
	go func() { done <- rt.Checkpoint(rt.Context()) }()

	select {
	case <-done:
		t.Fatal("checkpoint must block while paused")
	case <-time.After(30 * time.Millisecond):
	}

	rt.Stop()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("stop did not release the paused checkpoint")
	}
}

func TestRuntimeProgressThrottle(t *testing.T) {
	rt := NewRuntime(context.Background(), models.ModeRoots, nil, 500*time.Millisecond)
	base := time.Now()

	assert.True(t, rt.ShouldReport(base))
	assert.False(t, rt.ShouldReport(base.Add(100*time.Millisecond)))
	assert.False(t, rt.ShouldReport(base.Add(499*time.Millisecond)))
	assert.True(t, rt.ShouldReport(base.Add(500*time.Millisecond)))
	assert.False(t, rt.ShouldReport(base.Add(600*time.Millisecond)))
}

func TestRuntimeIsBlocking(t *testing.T) {
	rt := NewRuntime(context.Background(), models.ModeRoots, nil, 0)
	assert.True(t, rt.IsBlocking(), "queued without a reason blocks")

	rt.queue(models.ReasonWaitingWhole)
	assert.False(t, rt.IsBlocking())

	rt.queue(models.ReasonWaitingDisk("/"))
	assert.True(t, rt.IsBlocking())

	rt.clearQueueReason()
	require.NoError(t, rt.transition(models.StateRunning))
	assert.True(t, rt.IsBlocking())
	require.NoError(t, rt.transition(models.StateCompleted))
	assert.False(t, rt.IsBlocking())
}

func TestPauseHaltsFilesScanned(t *testing.T) {
	root := t.TempDir()
	const total = 40
	for i := 0; i < total; i++ {
		path := filepath.Join(root, fmt.Sprintf("d%02d", i), "main.c")
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte("int main(void) { return 0; }\n"), 0644))
	}

	rt := NewRuntime(context.Background(), models.ModeRoots, nil, time.Nanosecond)
	require.NoError(t, rt.transition(models.StateRunning))

	const pauseAt = 5
	paused := make(chan struct{})
	rt.setProgressHook(func(p models.ScanProgress) {
		if p.FilesScanned == pauseAt {
			rt.Pause()
			close(paused)
		}
	})

	type result struct {
		tree *snapshot.DirectoryNode
		err  error
	}
	done := make(chan result, 1)
	go func() {
		tree, err := snapshot.NewBuilder(snapshot.Options{}).Build(rt.Context(), root, rt)
		done <- result{tree, err}
	}()

	select {
	case <-paused:
	case <-time.After(5 * time.Second):
		t.Fatal("scan never reached the pause point")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int64(pauseAt), rt.FilesScanned(), "no files are visited while paused")
	assert.Equal(t, models.StatePaused, rt.State())

	require.True(t, rt.Resume())
	select {
	case res := <-done:
		require.NoError(t, res.err)
		assert.Equal(t, total, res.tree.FileCount())
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not finish after resume")
	}
	assert.Equal(t, int64(total), rt.FilesScanned(), "resume continues without loss or duplication")
}

func TestAdvanceWaitsOutPause(t *testing.T) {
	rt := NewRuntime(context.Background(), models.ModeRoots, nil, 0)
	require.NoError(t, rt.transition(models.StateRunning))
	require.True(t, rt.Pause())

	done := make(chan error, 1)
	go func() { done <- rt.advance(rt.Context(), models.StateCompleted) }()

	select {
	case <-done:
		t.Fatal("advance must wait while paused")
	case <-time.After(30 * time.Millisecond):
	}

	require.True(t, rt.Resume())
	select {
	case err := <-done:
		require.NoError(t, err)
		assert.Equal(t, models.StateCompleted, rt.State())
	case <-time.After(time.Second):
		t.Fatal("advance did not proceed after resume")
	}
}
