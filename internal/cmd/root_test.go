package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--help returned error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "devscan") {
		t.Errorf("Help text should mention devscan, got: %s", output)
	}
	if !strings.Contains(output, "developer projects") {
		t.Errorf("Help text should describe project discovery, got: %s", output)
	}
}

func TestRootCommandHasSubcommands(t *testing.T) {
	cmd := NewRootCommand()
	if cmd.Use != "devscan" {
		t.Errorf("Expected Use to be 'devscan', got '%s'", cmd.Use)
	}

	want := []string{"roots", "scan", "sessions", "suggestions", "projects", "tags", "regress"}
	have := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		have[sub.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestPersistentFlags(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"log-level", "db"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("missing persistent flag --%s", name)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	cmd := NewRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("--version returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "version") {
		t.Errorf("Version output should contain 'version', got: %s", buf.String())
	}
}
