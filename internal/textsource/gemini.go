package textsource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultEndpoint = "https://generativelanguage.googleapis.com"
	DefaultModel    = "gemini-2.5-flash"
)

// ProviderError is returned when the generative API answers with a
// non-200 status.
type ProviderError struct {
	StatusCode int
	Status     string // e.g. RESOURCE_EXHAUSTED
	Message    string
}

func (err *ProviderError) Error() string {
	if err.Status != "" {
		return fmt.Sprintf("textsource: HTTP %d: %s: %s", err.StatusCode, err.Status, err.Message)
	}
	return fmt.Sprintf("textsource: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports whether the service refused for quota reasons.
func (err *ProviderError) IsRateLimited() bool {
	return err.StatusCode == http.StatusTooManyRequests || err.Status == "RESOURCE_EXHAUSTED"
}

// Gemini calls the generateContent REST method.
type Gemini struct {
	httpClient *http.Client
	endpoint   string
	model      string
	apiKey     string
}

// NewGemini creates a client. Empty endpoint and model fall back to defaults.
func NewGemini(httpClient *http.Client, endpoint, model, apiKey string) *Gemini {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		apiKey:     apiKey,
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	ResponseMIMEType string   `json:"responseMimeType,omitempty"`
	Temperature      *float64 `json:"temperature,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Generate sends one request and returns the concatenated text of the
// first candidate.
func (g *Gemini) Generate(ctx context.Context, system, prompt string) (string, error) {
	temperature := 1.0
	wireRequest := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: prompt}}},
		},
		GenerationConfig: geminiGenerationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      &temperature,
		},
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return "", fmt.Errorf("textsource: marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.endpoint, g.model)
	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("textsource: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-goog-api-key", g.apiKey)

	httpResponse, err := g.httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("textsource: sending request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return "", readProviderError(httpResponse)
	}

	var wireResponse geminiResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return "", fmt.Errorf("textsource: decoding response: %w", err)
	}
	if len(wireResponse.Candidates) == 0 {
		return "", fmt.Errorf("textsource: response has no candidates")
	}

	var text strings.Builder
	for _, part := range wireResponse.Candidates[0].Content.Parts {
		text.WriteString(part.Text)
	}
	return text.String(), nil
}

// readProviderError parses Google's error envelope:
// {"error":{"code":429,"message":"...","status":"RESOURCE_EXHAUSTED"}}.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Status:     wireError.Error.Status,
			Message:    wireError.Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    string(body),
	}
}
