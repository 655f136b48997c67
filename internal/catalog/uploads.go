package catalog

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lepinkainen/bookfinder/internal/book"
	"github.com/lepinkainen/bookfinder/internal/fileutil"
)

// DefaultMaxUploadBytes is the largest accepted upload (50 MiB).
const DefaultMaxUploadBytes = 50 << 20

// ErrFileTooLarge is returned for uploads over the size limit.
var ErrFileTooLarge = stderrors.New("file too large")

var allowedExtensions = map[string]bool{
	".pdf":  true,
	".epub": true,
}

// Uploads stores e-book files under Dir.
type Uploads struct {
	Dir      string
	MaxBytes int64

	now func() time.Time
}

// NewUploads creates an upload store rooted at dir.
func NewUploads(dir string, maxBytes int64) *Uploads {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &Uploads{Dir: dir, MaxBytes: maxBytes, now: time.Now}
}

// Allowed reports whether name has a PDF or EPUB extension.
func Allowed(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Save writes r to "<YYYYmmdd_HHMMSS>_<sanitized name>" under Dir and returns
// the stored filename and full path. Nothing is left on disk when it fails.
func (u *Uploads) Save(name string, r io.Reader) (string, string, error) {
	clean := fileutil.SanitizeFilename(name)
	if !Allowed(clean) || strings.TrimSuffix(clean, filepath.Ext(clean)) == "" {
		return "", "", fmt.Errorf("%w: %q", book.ErrUnsupportedFile, name)
	}

	if err := os.MkdirAll(u.Dir, 0755); err != nil {
		return "", "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	filename := u.now().Format("20060102_150405") + "_" + clean
	path := filepath.Join(u.Dir, filename)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		return "", "", fmt.Errorf("failed to create upload file: %w", err)
	}

	// one extra byte tells an exact-limit file from an oversized one
	written, err := io.Copy(f, io.LimitReader(r, u.MaxBytes+1))
	closeErr := f.Close()
	if err == nil && written > u.MaxBytes {
		err = ErrFileTooLarge
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		if stderrors.Is(err, ErrFileTooLarge) {
			return "", "", err
		}
		return "", "", fmt.Errorf("failed to write upload: %w", err)
	}

	slog.Debug("Upload stored", "path", path, "bytes", written)
	return filename, path, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (u *Uploads) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove upload: %w", err)
	}
	return nil
}
