package media

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// OCRClient extracts on-screen text from a media file through an external
// vision service.
type OCRClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOCRClient creates a client for the OCR service at baseURL. Returns nil
// when no URL is configured; the extract stage treats a nil client as
// "OCR disabled" and yields empty text.
func NewOCRClient(baseURL string, timeout time.Duration, logger *slog.Logger) *OCRClient {
	if baseURL == "" {
		return nil
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &OCRClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ExtractText uploads the file and returns the text found in its frames.
func (c *OCRClient) ExtractText(ctx context.Context, path string) (string, error) {
	body, contentType, err := fileUploadBody(path, "file")
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", body)
	if err != nil {
		return "", fmt.Errorf("failed to build ocr request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ocr request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr server error (status %d): %s", resp.StatusCode, string(msg))
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode ocr response: %w", err)
	}

	c.logger.Info("OCR completed",
		slog.Int("characters", len(out.Text)),
	)
	return out.Text, nil
}
