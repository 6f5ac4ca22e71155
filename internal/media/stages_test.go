package media

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cuongbtq/clipsight-be/internal/jobs"
	"github.com/cuongbtq/clipsight-be/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDownloaderRelease(t *testing.T) {
	dir := t.TempDir()
	downloader, err := NewDownloader("yt-dlp", dir, testLogger())
	require.NoError(t, err)

	path := filepath.Join(dir, "job-1.mp4")
	require.NoError(t, os.WriteFile(path, []byte("video bytes"), 0o644))

	downloader.Release(path)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	// Releasing again, or releasing a path that was never written, is safe.
	downloader.Release(path)
	downloader.Release("")
}

func TestExtractTextStageWithoutOCR(t *testing.T) {
	stage := &ExtractTextStage{OCR: nil, Logger: testLogger()}
	state := &pipeline.State{JobID: "no-ocr", OCRText: "stale"}

	require.NoError(t, stage.Run(context.Background(), state))
	assert.Empty(t, state.OCRText)
}

func TestTranscribeStage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, header, err := r.FormFile("file")
		require.NoError(t, err)
		assert.Equal(t, "clip.mp4", header.Filename)

		json.NewEncoder(w).Encode(map[string]string{"text": "transcribed speech"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake media"), 0o644))

	stage := &TranscribeStage{
		Transcriber: NewTranscriber(srv.URL, 5*time.Second, testLogger()),
	}
	state := &pipeline.State{
		JobID:    "t-1",
		Input:    jobs.Input{SourceURL: "https://example.com/v"},
		Artifact: path,
	}

	require.NoError(t, stage.Run(context.Background(), state))
	assert.Equal(t, "transcribed speech", state.Transcript)
}

func TestExtractTextStage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": "SALE 50% OFF"})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake media"), 0o644))

	stage := &ExtractTextStage{
		OCR:    NewOCRClient(srv.URL, 5*time.Second, testLogger()),
		Logger: testLogger(),
	}
	state := &pipeline.State{JobID: "o-1", Artifact: path}

	require.NoError(t, stage.Run(context.Background(), state))
	assert.Equal(t, "SALE 50% OFF", state.OCRText)
}

func TestTranscriberServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, []byte("fake media"), 0o644))

	transcriber := NewTranscriber(srv.URL, 5*time.Second, testLogger())
	_, err := transcriber.Transcribe(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestNewOCRClientDisabled(t *testing.T) {
	assert.Nil(t, NewOCRClient("", 0, testLogger()))
}
