package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
)

// Downloader fetches remote videos to local files via yt-dlp.
type Downloader struct {
	binPath   string
	outputDir string
	logger    *slog.Logger
}

// NewDownloader creates a downloader writing into outputDir. The directory is
// created if missing.
func NewDownloader(binPath, outputDir string, logger *slog.Logger) (*Downloader, error) {
	if binPath == "" {
		binPath = "yt-dlp"
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create video output dir: %w", err)
	}

	return &Downloader{
		binPath:   binPath,
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// Fetch downloads the video at url and returns the local file path. The path
// is returned even on failure so a partially written file can be released.
func (d *Downloader) Fetch(ctx context.Context, url, jobID string) (string, error) {
	path := filepath.Join(d.outputDir, jobID+".mp4")

	cmd := exec.CommandContext(ctx, d.binPath,
		"--format", "best",
		"--output", path,
		"--quiet",
		"--no-warnings",
		url,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return path, fmt.Errorf("failed to download video: %v (%s)", err, string(output))
	}

	d.logger.Info("Video downloaded",
		slog.String("job_id", jobID),
		slog.String("path", path),
	)
	return path, nil
}

// Release removes a downloaded file. Safe to call more than once and for
// files that were never written.
func (d *Downloader) Release(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		d.logger.Warn("Failed to remove downloaded file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
