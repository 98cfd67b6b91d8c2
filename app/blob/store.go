package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// Downloader streams a remote private file into w.
type Downloader interface {
	Download(ctx context.Context, url string, w io.Writer) error
}

// Source identifies a remote file to fetch.
type Source struct {
	ID       string
	Name     string
	URL      string
	MimeType string
}

// Handle points at a fetched local copy.
type Handle struct {
	Path     string
	MimeType string
}

type Store struct {
	dir        string
	downloader Downloader
}

var unsafeChars = regexp.MustCompile(`[^\w.-]+`)

func NewStore(dir string, downloader Downloader) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create blob directory: %w", err)
	}
	return &Store{dir: dir, downloader: downloader}, nil
}

func (s *Store) Dir() string {
	return s.dir
}

// Fetch downloads src into the store. Files are namespaced by the remote file
// ID so concurrent submissions never share a path.
func (s *Store) Fetch(ctx context.Context, src Source) (Handle, error) {
	if src.ID == "" || src.URL == "" {
		return Handle{}, fmt.Errorf("incomplete blob source: id=%q url=%q", src.ID, src.URL)
	}

	path := filepath.Join(s.dir, fileName(src))

	f, err := os.Create(path)
	if err != nil {
		return Handle{}, fmt.Errorf("failed to create local file: %w", err)
	}

	if err := s.downloader.Download(ctx, src.URL, f); err != nil {
		f.Close()
		os.Remove(path)
		return Handle{}, fmt.Errorf("failed to download file %s: %w", src.ID, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return Handle{}, fmt.Errorf("failed to write file %s: %w", src.ID, err)
	}

	slog.Debug("Blob fetched", "file_id", src.ID, "path", path)

	return Handle{Path: path, MimeType: src.MimeType}, nil
}

// Delete removes a fetched file. Deleting a missing file is not an error.
func (s *Store) Delete(h Handle) error {
	if h.Path == "" {
		return nil
	}
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Sweep deletes stored files whose modification time is older than maxAge.
func (s *Store) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read blob directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		path := filepath.Join(s.dir, entry.Name())
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Warn("Failed to remove stale blob", "path", path, "error", err)
			continue
		}
		removed++
	}

	return removed, nil
}

func fileName(src Source) string {
	name := unsafeChars.ReplaceAllString(filepath.Base(src.Name), "_")
	if name == "" || name == "." || name == ".." {
		name = "video"
	}
	return unsafeChars.ReplaceAllString(src.ID, "_") + "_" + name
}
