package media

import (
	"context"
	"log/slog"

	"github.com/cuongbtq/clipsight-be/internal/pipeline"
)

// Stage labels exposed to polling clients while each stage runs.
const (
	StageDownloading    = "downloading"
	StageTranscribing   = "transcribing"
	StageExtractingText = "extracting_text"
	StageSummarizing    = "summarizing"
)

// FetchStage downloads the source video and registers its release.
type FetchStage struct {
	Downloader *Downloader
}

func (s *FetchStage) Name() string { return StageDownloading }

func (s *FetchStage) Run(ctx context.Context, state *pipeline.State) error {
	path, err := s.Downloader.Fetch(ctx, state.Input.SourceURL, state.JobID)
	if path != "" {
		// Register cleanup even when the download failed partway, so a
		// half-written file is still removed.
		state.OnCleanup(func() { s.Downloader.Release(path) })
	}
	if err != nil {
		return err
	}
	state.Artifact = path
	return nil
}

// TranscribeStage produces the audio transcript of the fetched video.
type TranscribeStage struct {
	Transcriber *Transcriber
}

func (s *TranscribeStage) Name() string { return StageTranscribing }

func (s *TranscribeStage) Run(ctx context.Context, state *pipeline.State) error {
	text, err := s.Transcriber.Transcribe(ctx, state.Artifact)
	if err != nil {
		return err
	}
	state.Transcript = text
	return nil
}

// ExtractTextStage pulls on-screen text out of the video frames. When no OCR
// service is configured the stage yields empty text instead of failing.
type ExtractTextStage struct {
	OCR    *OCRClient
	Logger *slog.Logger
}

func (s *ExtractTextStage) Name() string { return StageExtractingText }

func (s *ExtractTextStage) Run(ctx context.Context, state *pipeline.State) error {
	if s.OCR == nil {
		s.Logger.Warn("OCR service not configured, skipping text extraction",
			slog.String("job_id", state.JobID),
		)
		state.OCRText = ""
		return nil
	}

	text, err := s.OCR.ExtractText(ctx, state.Artifact)
	if err != nil {
		return err
	}
	state.OCRText = text
	return nil
}

// SummarizeStage generates the structured summary from the collected text.
type SummarizeStage struct {
	Summarizer *Summarizer
}

func (s *SummarizeStage) Name() string { return StageSummarizing }

func (s *SummarizeStage) Run(ctx context.Context, state *pipeline.State) error {
	summary, err := s.Summarizer.Summarize(ctx, state.Transcript, state.OCRText, state.Input.Schema, state.Input.Prompt)
	if err != nil {
		return err
	}
	state.Summary = summary
	return nil
}
