package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedOutput marks a summarizer response that could not be parsed
// into, or validated against, the requested schema.
var ErrMalformedOutput = errors.New("malformed summarizer output")

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// Summarizer turns a transcript and on-screen text into a structured summary
// through a Gemini-style generateContent endpoint.
type Summarizer struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// SummarizerConfig holds summarizer client settings.
type SummarizerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewSummarizer creates a summarizer client.
func NewSummarizer(cfg *SummarizerConfig, logger *slog.Logger) (*Summarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("summarizer api key is required")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}

	return &Summarizer{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Summarize generates a structured summary matching the caller-supplied
// schema. A response that cannot be parsed or that violates the schema fails
// with ErrMalformedOutput rather than returning partial data.
func (s *Summarizer) Summarize(ctx context.Context, transcript, ocrText string, schema map[string]any, prompt string) (map[string]any, error) {
	fullPrompt := buildPrompt(transcript, ocrText, schema, prompt)

	s.logger.Debug("Requesting summary",
		slog.String("model", s.model),
		slog.Int("prompt_length", len(fullPrompt)),
	)

	text, err := s.generate(ctx, fullPrompt)
	if err != nil {
		return nil, err
	}

	return parseSummary(text, schema)
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

func (s *Summarizer) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{
			{Parts: []geminiPart{{Text: prompt}}},
		},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to encode summarizer request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", s.baseURL, s.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build summarizer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("summarizer error (status %d): %s", resp.StatusCode, string(msg))
	}

	var out geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode summarizer response: %w", err)
	}

	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: response contains no candidates", ErrMalformedOutput)
	}
	return out.Candidates[0].Content.Parts[0].Text, nil
}

// buildPrompt composes the schema, transcript, on-screen text and user
// instructions into one prompt.
func buildPrompt(transcript, ocrText string, schema map[string]any, userPrompt string) string {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		schemaJSON = []byte("{}")
	}

	parts := []string{
		"# Output Schema",
		"Generate a JSON object matching this schema:",
		string(schemaJSON),
		"",
		"# Video Content",
		"",
		"## Transcription (Audio)",
		orPlaceholder(transcript, "(No transcription available)"),
		"",
		"## On-Screen Text (OCR)",
		orPlaceholder(ocrText, "(No text detected)"),
	}

	if userPrompt != "" {
		parts = append(parts, "", "# Additional Instructions", userPrompt)
	}

	parts = append(parts,
		"",
		"# Task",
		"Analyze the video content above and generate a JSON object that matches the provided schema.",
		"Extract relevant information from both the transcription and on-screen text.",
		"Return ONLY valid JSON without any markdown formatting or code blocks.",
	)

	return strings.Join(parts, "\n")
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// parseSummary parses the model response into a JSON object and validates it
// against the caller's schema when one was supplied.
func parseSummary(text string, schema map[string]any) (map[string]any, error) {
	cleaned := stripCodeFences(text)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformedOutput, err)
	}

	if len(schema) > 0 {
		if err := validateAgainstSchema(data, schema); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// stripCodeFences removes a surrounding markdown code block, which models
// emit despite being told not to.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func validateAgainstSchema(data, schema map[string]any) error {
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}

	compiled, err := jsonschema.CompileString("request-schema.json", string(schemaJSON))
	if err != nil {
		return fmt.Errorf("invalid output schema: %w", err)
	}

	// Round-trip through interface{} values the validator understands.
	var doc any
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode summary: %w", err)
	}

	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}
