package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/odvcencio/hull/pkg/repo"
)

func TestLogCmd_Oneline(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	if err != nil {
		t.Fatalf("repo.Init: %v", err)
	}

	writeRepoFile(t, dir, "a.go", "package demo\n")
	stageAndCommit(t, r, "a.go", "add a")

	writeRepoFile(t, dir, "b.go", "package demo\n")
	stageAndCommit(t, r, "b.go", "add b")

	output := runLogCommand(t, dir, "--oneline", "--limit", "10")
	lines := nonEmptyLines(output)
	if len(lines) != 2 {
		t.Fatalf("log returned %d lines, want 2\noutput:\n%s", len(lines), output)
	}
	assertLineContainsMessage(t, lines[0], "add b")
	assertLineContainsMessage(t, lines[1], "add a")
}

func TestLogCmd_Full(t *testing.T) {
	dir := t.TempDir()
	r, err := repo.Init(dir)
	if err != nil {
		t.Fatalf("repo.Init: %v", err)
	}

	writeRepoFile(t, dir, "a.go", "package demo\n")
	stageAndCommit(t, r, "a.go", "add a")

	output := runLogCommand(t, dir, "--limit", "10")
	if !strings.Contains(output, "Author:") {
		t.Fatalf("full log output missing Author line:\n%s", output)
	}
	if !strings.Contains(output, "add a") {
		t.Fatalf("full log output missing commit message:\n%s", output)
	}
}

func stageAndCommit(t *testing.T, r *repo.Repo, path, message string) {
	t.Helper()

	if err := r.Add([]string{path}); err != nil {
		t.Fatalf("Add(%q): %v", path, err)
	}
	if _, err := r.Commit(message, "tester"); err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
}

func writeRepoFile(t *testing.T, root, relPath, content string) {
	t.Helper()

	absPath := filepath.Join(root, relPath)
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		t.Fatalf("MkdirAll(%q): %v", relPath, err)
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile(%q): %v", relPath, err)
	}
}

func runLogCommand(t *testing.T, repoDir string, args ...string) string {
	t.Helper()

	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(repoDir); err != nil {
		t.Fatalf("Chdir(%q): %v", repoDir, err)
	}
	defer func() {
		if err := os.Chdir(prevWD); err != nil {
			t.Fatalf("restore cwd: %v", err)
		}
	}()

	cmd := newLogCmd()
	cmd.SetArgs(args)

	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(&output)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("log command failed (%v): %v\noutput:\n%s", args, err, output.String())
	}

	return output.String()
}

func nonEmptyLines(s string) []string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "\n")
}

func assertLineContainsMessage(t *testing.T, line, message string) {
	t.Helper()

	if !strings.Contains(line, message) {
		t.Fatalf("line %q does not contain %q", line, message)
	}
}
