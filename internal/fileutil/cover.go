package fileutil

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultCoverWidth is the width covers are scaled down to.
const DefaultCoverWidth = 400

// CoverFetcher downloads cover images into Dir as JPEG, scaled down to at
// most MaxWidth pixels wide.
type CoverFetcher struct {
	Dir      string
	MaxWidth int
	// Refresh downloads again even when the file exists.
	Refresh bool
	Client  *http.Client
}

// CoverFilename returns the file name used for the cover of title.
func CoverFilename(title string) string {
	name := SanitizeFilename(title)
	if name == "" {
		name = "untitled"
	}
	return name + "_-_cover.jpg"
}

// Fetch stores the image at url as name inside Dir and returns its path.
// downloaded is false when an existing file was kept. An empty url yields
// an empty path and no error.
func (f CoverFetcher) Fetch(ctx context.Context, url, name string) (path string, downloaded bool, err error) {
	if url == "" {
		return "", false, nil
	}

	path = filepath.Join(f.Dir, name)
	if !f.Refresh && FileExists(path) {
		slog.Debug("Keeping existing cover", "path", path)
		return path, false, nil
	}

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("download cover: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode/100 != 2 {
		return "", false, fmt.Errorf("download cover %s: status %d", url, resp.StatusCode)
	}

	img, err := imaging.Decode(resp.Body, imaging.AutoOrientation(true))
	if err != nil {
		return "", false, fmt.Errorf("decode cover %s: %w", url, err)
	}
	width := f.MaxWidth
	if width <= 0 {
		width = DefaultCoverWidth
	}
	if img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}

	err = WriteFileAtomic(path, func(out *os.File) error {
		return imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(85))
	})
	if err != nil {
		return "", false, err
	}

	slog.Info("Downloaded cover", "path", path, "width", img.Bounds().Dx())
	return path, true, nil
}
