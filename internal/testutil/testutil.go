// Package testutil provides sandboxed test environments and config helpers.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// TestEnv is a per-test temporary directory. Paths handed to it are relative
// to the directory and may not escape it.
type TestEnv struct {
	t       testing.TB
	rootDir string
}

// NewTestEnv creates a sandbox that is removed when the test completes.
func NewTestEnv(t testing.TB) *TestEnv {
	t.Helper()
	return &TestEnv{t: t, rootDir: t.TempDir()}
}

// RootDir returns the sandbox directory.
func (e *TestEnv) RootDir() string {
	return e.rootDir
}

// Path joins elem under the sandbox and fails the test if the result
// leaves it.
func (e *TestEnv) Path(elem ...string) string {
	e.t.Helper()

	path := filepath.Join(append([]string{e.rootDir}, elem...)...)
	rel, err := filepath.Rel(e.rootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		e.t.Fatalf("path %q escapes the test sandbox %q", filepath.Join(elem...), e.rootDir)
	}
	return path
}

// WriteFile writes content to path, creating parent directories.
func (e *TestEnv) WriteFile(path string, content []byte) {
	e.t.Helper()

	abs := e.Path(path)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		e.t.Fatalf("create parent of %q: %v", path, err)
	}
	if err := os.WriteFile(abs, content, 0644); err != nil {
		e.t.Fatalf("write %q: %v", path, err)
	}
}

// WriteFileString writes a string to path.
func (e *TestEnv) WriteFileString(path, content string) {
	e.t.Helper()
	e.WriteFile(path, []byte(content))
}

// ReadFile returns the content of path.
func (e *TestEnv) ReadFile(path string) []byte {
	e.t.Helper()

	data, err := os.ReadFile(e.Path(path))
	if err != nil {
		e.t.Fatalf("read %q: %v", path, err)
	}
	return data
}

// ReadFileString returns the content of path as a string.
func (e *TestEnv) ReadFileString(path string) string {
	e.t.Helper()
	return string(e.ReadFile(path))
}

// MkdirAll creates path and its parents.
func (e *TestEnv) MkdirAll(path string) {
	e.t.Helper()

	if err := os.MkdirAll(e.Path(path), 0755); err != nil {
		e.t.Fatalf("mkdir %q: %v", path, err)
	}
}

// FileExists reports whether path exists, file or directory.
func (e *TestEnv) FileExists(path string) bool {
	e.t.Helper()

	_, err := os.Stat(e.Path(path))
	return err == nil
}

// ListFiles returns the sorted entry names of directory path.
func (e *TestEnv) ListFiles(path string) []string {
	e.t.Helper()

	entries, err := os.ReadDir(e.Path(path))
	if err != nil {
		e.t.Fatalf("list %q: %v", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	slices.Sort(names)
	return names
}

// Chdir switches the working directory to path until the test ends.
func (e *TestEnv) Chdir(path string) {
	e.t.Helper()

	orig, err := os.Getwd()
	if err != nil {
		e.t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(e.Path(path)); err != nil {
		e.t.Fatalf("chdir %q: %v", path, err)
	}
	e.t.Cleanup(func() {
		if err := os.Chdir(orig); err != nil {
			e.t.Errorf("restore working directory %q: %v", orig, err)
		}
	})
}

func (e *TestEnv) String() string {
	return fmt.Sprintf("TestEnv{%s}", e.rootDir)
}
