// Package fileutil holds file naming and writing helpers shared by the
// catalog and the CLI.
package fileutil

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeFilename reduces name to one safe path component made of ASCII
// letters, digits, '.', '-' and '_'. Whitespace becomes '_', accents are
// folded away and leading dots or underscores are dropped.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	clean := strings.Map(func(r rune) rune {
		switch {
		case r > unicode.MaxASCII:
			return -1
		case unicode.IsSpace(r):
			return '_'
		case unicode.IsLetter(r), unicode.IsDigit(r), strings.ContainsRune(".-_", r):
			return r
		}
		return -1
	}, norm.NFKD.String(name))

	return strings.TrimLeft(clean, "._")
}

// FileExists reports whether path exists and is not a directory.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteJSONFile writes data to path as indented JSON. An existing file is
// left alone unless overwrite is set; the result reports whether it wrote.
func WriteJSONFile(data any, path string, overwrite bool) (bool, error) {
	if !overwrite && FileExists(path) {
		slog.Info("Output file exists, not overwriting", "path", path)
		return false, nil
	}

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return false, fmt.Errorf("encode %s: %w", path, err)
	}
	if err := WriteFileAtomic(path, func(f *os.File) error {
		_, err := f.Write(append(body, '\n'))
		return err
	}); err != nil {
		return false, err
	}

	slog.Info("Wrote JSON file", "path", path, "bytes", len(body)+1)
	return true, nil
}

// WriteFileAtomic creates the parent directories of path, lets write fill a
// temporary file next to it and renames that into place. On error nothing
// is left at path.
func WriteFileAtomic(path string, write func(*os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Chmod(0644); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
