package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/devscan/internal/config"
	"github.com/harrison/devscan/internal/models"
	"github.com/harrison/devscan/internal/store"
)

// execute runs the CLI with a fresh command tree and returns stdout and
// stderr separately.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// setupHome points DEVSCAN_HOME at a temp dir with a fast-polling config.
func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	cfg := "scan:\n  progress_interval: 20ms\n  queue_poll_interval: 20ms\n"
	require.NoError(t, os.WriteFile(config.ConfigPath(home), []byte(cfg), 0644))
	return home
}

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
}

func openTestStore(t *testing.T, home string) *store.Store {
	t.Helper()
	st, err := store.NewStore(filepath.Join(home, "devscan.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestScanRequestFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    models.ScanRequest
		wantErr bool
	}{
		{"root", []string{"--root", "3"}, models.ScanRequest{Mode: models.ModeRoots, RootID: 3}, false},
		{"whole", []string{"--whole"}, models.ScanRequest{Mode: models.ModeWhole}, false},
		{"changed all", []string{"--changed"}, models.ScanRequest{Mode: models.ModeChanged}, false},
		{"changed one", []string{"--changed", "--root", "2"}, models.ScanRequest{Mode: models.ModeChanged, RootID: 2}, false},
		{"nothing", nil, models.ScanRequest{}, true},
		{"whole and root", []string{"--whole", "--root", "1"}, models.ScanRequest{}, true},
		{"whole and changed", []string{"--whole", "--changed"}, models.ScanRequest{}, true},
		{"zero root", []string{"--root", "0"}, models.ScanRequest{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewScanCommand()
			require.NoError(t, cmd.ParseFlags(tt.args))

			got, err := scanRequestFromFlags(cmd)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id, err := parseID("root", "42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"0", "-1", "abc", ""} {
		_, err := parseID("root", bad)
		assert.Error(t, err, bad)
	}
}

func TestRootsCommands(t *testing.T) {
	setupHome(t)
	dir := t.TempDir()

	out, _, err := execute(t, "roots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No roots registered")

	out, _, err = execute(t, "roots", "add", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "root 1: "+dir)

	out, _, err = execute(t, "roots", "list")
	require.NoError(t, err)
	assert.Contains(t, out, dir)
	assert.Contains(t, out, "yes", "new roots start flagged as changed")

	_, _, err = execute(t, "roots", "dirty", "99")
	assert.Error(t, err)

	file := filepath.Join(dir, "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))
	_, _, err = execute(t, "roots", "add", file)
	assert.ErrorContains(t, err, "not a directory")
}

func TestInvalidConfigIsReported(t *testing.T) {
	home := t.TempDir()
	t.Setenv(config.HomeEnv, home)
	require.NoError(t, os.WriteFile(config.ConfigPath(home), []byte("tags:\n  min_confidence: 3\n"), 0644))

	_, _, err := execute(t, "roots", "list")
	assert.ErrorContains(t, err, "invalid configuration")
}

func TestScanUnknownRoot(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "scan", "--root", "7")
	assert.ErrorContains(t, err, "cannot start scan")
}

func TestSuggestionsListRejectsBadStatus(t *testing.T) {
	setupHome(t)

	_, _, err := execute(t, "suggestions", "list", "--status", "maybe")
	assert.Error(t, err)
}

// TestScanAcceptTagAndRegress drives the whole workflow through the CLI.
func TestScanAcceptTagAndRegress(t *testing.T) {
	home := setupHome(t)
	ws := filepath.Join(t.TempDir(), "ws")
	writeFiles(t, ws, map[string]string{
		"Api/Api.csproj":   "<Project Sdk=\"Microsoft.NET.Sdk\"></Project>\n",
		"Api/Program.cs":   "class Program { static void Main() {} }\n",
		"Api/bin/Api.dll":  "binary",
		"notes/readme.txt": "todo\n",
	})

	_, _, err := execute(t, "roots", "add", ws)
	require.NoError(t, err)

	out, stderr, err := execute(t, "scan", "--root", "1")
	require.NoError(t, err, stderr)
	apiPath := filepath.Join(ws, "Api")
	assert.Contains(t, out, apiPath)
	assert.Contains(t, stderr, "=== Scan Summary ===")
	assert.Contains(t, stderr, "State: Completed")

	st := openTestStore(t, home)
	pending, err := st.ListProjectSuggestions(context.Background(), "", models.StatusPending)
	require.NoError(t, err)
	var apiID int64
	for _, sg := range pending {
		if sg.Path == apiPath {
			apiID = sg.ID
		}
	}
	require.NotZero(t, apiID, "expected a suggestion for %s", apiPath)

	sessions, err := st.ListSessions(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, models.StateCompleted, sessions[0].State)
	assert.FileExists(t, sessions[0].OutputPath)

	out, _, err = execute(t, "sessions")
	require.NoError(t, err)
	assert.Contains(t, out, sessions[0].ScanID)

	out, _, err = execute(t, "suggestions", "accept", itoa(apiID))
	require.NoError(t, err)
	assert.Contains(t, out, "accepted as project 1")

	out, _, err = execute(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, apiPath)

	_, _, err = execute(t, "tags", "add", "csharp", "rust")
	require.NoError(t, err)

	out, _, err = execute(t, "tags", "suggest", "--project", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "csharp")
	assert.NotContains(t, out, "rust")

	out, _, err = execute(t, "tags", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "csharp")

	tagSuggestions, err := st.ListTagSuggestions(context.Background(), 1, models.StatusPending)
	require.NoError(t, err)
	require.NotEmpty(t, tagSuggestions)

	_, _, err = execute(t, "tags", "accept", itoa(tagSuggestions[0].ID))
	require.NoError(t, err)

	out, _, err = execute(t, "projects")
	require.NoError(t, err)
	assert.Contains(t, out, "tags: csharp")

	out, _, err = execute(t, "regress")
	require.NoError(t, err)
	assert.Contains(t, out, "Scans analyzed: 1")
	assert.Contains(t, out, "Accepted missing: 0")
}

func TestRegressFlagsMissingAcceptedProject(t *testing.T) {
	home := setupHome(t)
	ws := filepath.Join(t.TempDir(), "ws")
	writeFiles(t, ws, map[string]string{"Api/Api.csproj": "<Project/>\n"})

	_, _, err := execute(t, "roots", "add", ws)
	require.NoError(t, err)
	_, stderr, err := execute(t, "scan", "--root", "1")
	require.NoError(t, err, stderr)

	st := openTestStore(t, home)
	ctx := context.Background()
	pending, err := st.ListProjectSuggestions(ctx, "", models.StatusPending)
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	// an accepted path the classifier never produced
	bogus := *pending[0]
	bogus.Path = filepath.Join(ws, "Gone")
	bogus.Fingerprint = "gone"
	require.NoError(t, st.SaveProjectSuggestions(ctx, pending[0].ScanID, []models.ProjectSuggestion{bogus.ProjectSuggestion}))
	stored, err := st.ListProjectSuggestions(ctx, pending[0].ScanID, models.StatusPending)
	require.NoError(t, err)
	for _, sg := range stored {
		if sg.Path == bogus.Path {
			_, err := st.DecideProjectSuggestion(ctx, sg.ID, models.StatusAccepted)
			require.NoError(t, err)
		}
	}

	out, _, err := execute(t, "regress", "--json")
	assert.ErrorContains(t, err, "no longer detected")
	assert.Contains(t, out, "\"accepted_missing_count\": 1")
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
