package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cuongbtq/clipsight-be/internal/api/dto"
	"github.com/cuongbtq/clipsight-be/internal/jobs"
	"github.com/cuongbtq/clipsight-be/internal/service"
	"github.com/gin-gonic/gin"
)

// ProcessVideo handles POST /api/v1/process
// Accepts a processing request and returns a job id immediately.
func (h *ProcessHandler) ProcessVideo(c *gin.Context) {
	var req dto.ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	input := jobs.Input{
		SourceURL: req.URL,
		Schema:    req.Schema,
		Prompt:    req.Prompt,
	}

	jobID, err := h.submitter.Submit(c.Request.Context(), input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Missing video URL",
			})
			return
		}
		h.logger.Error("Failed to submit job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	c.JSON(http.StatusAccepted, dto.ProcessResponse{
		JobID:   jobID,
		Status:  string(jobs.StatusQueued),
		Message: "Video processing started",
	})
}

// GetStatus handles GET /api/v1/status/:job_id
func (h *ProcessHandler) GetStatus(c *gin.Context) {
	jobID := c.Param("job_id")

	view, err := h.query.GetStatus(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			h.logger.Warn("Status request for unknown job", slog.String("job_id", jobID))
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job status", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job status",
		})
		return
	}

	resp := dto.StatusResponse{
		JobID:  view.JobID,
		Status: string(view.Status),
		Error:  view.Error,
	}
	if view.Progress != nil {
		resp.Progress = &dto.ProgressResponse{
			Step:  view.Progress.Step,
			Total: view.Progress.Total,
			Stage: view.Progress.Stage,
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetResult handles GET /api/v1/result/:job_id
func (h *ProcessHandler) GetResult(c *gin.Context) {
	jobID := c.Param("job_id")

	result, err := h.query.GetResult(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			h.logger.Warn("Result request for unknown job", slog.String("job_id", jobID))
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}

		var notReady *service.NotReadyError
		if errors.As(err, &notReady) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "Job not completed",
				"status": string(notReady.Status),
			})
			return
		}

		h.logger.Error("Failed to get job result", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job result",
		})
		return
	}

	c.JSON(http.StatusOK, dto.ResultResponse{
		JobID:  jobID,
		Status: string(jobs.StatusCompleted),
		Result: map[string]any{
			"transcription": result.Transcription,
			"ocr_text":      result.OCRText,
			"summary":       result.Summary,
		},
	})
}
