package handler

import (
	"log/slog"

	"github.com/cuongbtq/clipsight-be/internal/service"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Submitter    *service.Submitter
	Query        *service.Query
	StoreBackend string
}

// ProcessHandler handles video processing HTTP requests
type ProcessHandler struct {
	logger    *slog.Logger
	submitter *service.Submitter
	query     *service.Query
}

// NewProcessHandler creates a new ProcessHandler instance
func NewProcessHandler(deps *Dependencies) *ProcessHandler {
	return &ProcessHandler{
		logger:    deps.Logger,
		submitter: deps.Submitter,
		query:     deps.Query,
	}
}
