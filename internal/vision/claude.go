package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/imaging"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// DefaultTimeout bounds a single vision call. Multimodal inference on
// several images regularly takes tens of seconds, so the budget is generous.
const DefaultTimeout = 120 * time.Second

// extractionTemperature is kept low because the task is structured field
// extraction, not creative writing.
const extractionTemperature = 0.1

// ClaudeClient implements Analyzer using the Anthropic Messages API with
// image content blocks.
type ClaudeClient struct {
	apiKey     string
	baseURL    string
	model      string
	maxDim     int
	httpClient *http.Client
}

// ClaudeOption configures the Claude client.
type ClaudeOption func(*ClaudeClient)

// WithClaudeModel sets the model name.
func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeClient) { c.model = model }
}

// WithTimeout overrides the per-call timeout.
func WithTimeout(d time.Duration) ClaudeOption {
	return func(c *ClaudeClient) { c.httpClient.Timeout = d }
}

// WithBaseURL overrides the API endpoint (for tests and proxies).
func WithBaseURL(url string) ClaudeOption {
	return func(c *ClaudeClient) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithMaxImageDimension sets the downscale bound for transported images.
func WithMaxImageDimension(px int) ClaudeOption {
	return func(c *ClaudeClient) { c.maxDim = px }
}

// NewClaudeClient creates a new Anthropic vision client.
func NewClaudeClient(apiKey string, opts ...ClaudeOption) *ClaudeClient {
	c := &ClaudeClient{
		apiKey:  apiKey,
		baseURL: "https://api.anthropic.com",
		model:   "claude-sonnet-4-20250514",
		maxDim:  imaging.DefaultMaxDimension,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float64         `json:"temperature"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Role    string        `json:"role"`
	Content []claudeBlock `json:"content"`
}

type claudeBlock struct {
	Type   string        `json:"type"`
	Text   string        `json:"text,omitempty"`
	Source *claudeSource `json:"source,omitempty"`
}

type claudeSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// apiError represents an error response from the API that may or may not be
// retryable.
type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// isRetryable returns true for transient errors (rate limit, server errors).
func (e *apiError) isRetryable() bool {
	return e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// AnalyzeItem encodes the images, sends one vision request, and decodes the
// model's free-form answer into a Listing. It retries once with backoff on
// transient failures.
func (c *ClaudeClient) AnalyzeItem(ctx context.Context, imagePaths []string) (*model.Listing, error) {
	if len(imagePaths) == 0 {
		return nil, fmt.Errorf("no images to analyze")
	}

	blocks := make([]claudeBlock, 0, len(imagePaths)+1)
	for _, path := range imagePaths {
		data, mime, err := imaging.PrepareForTransport(path, c.maxDim)
		if err != nil {
			return nil, fmt.Errorf("preparing %s: %w", path, err)
		}
		blocks = append(blocks, claudeBlock{
			Type: "image",
			Source: &claudeSource{
				Type:      "base64",
				MediaType: mime,
				Data:      base64.StdEncoding.EncodeToString(data),
			},
		})
	}
	blocks = append(blocks, claudeBlock{Type: "text", Text: listingPrompt(len(imagePaths))})

	reqBody := claudeRequest{
		Model:       c.model,
		MaxTokens:   2048,
		Temperature: extractionTemperature,
		Messages: []claudeMessage{
			{Role: "user", Content: blocks},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	const maxAttempts = 2
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		raw, err := c.doRequest(ctx, body)
		if err == nil {
			return DecodeListing(raw), nil
		}
		lastErr = err

		if isTimeout(err) {
			return nil, fmt.Errorf("vision call: %w", model.ErrTimeout)
		}
		var ae *apiError
		if errors.As(err, &ae) && !ae.isRetryable() {
			return nil, fmt.Errorf("vision: %w", err)
		}

		if attempt < maxAttempts-1 {
			backoff := time.Duration(attempt+1) * 2 * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("vision: %w", lastErr)
}

func (c *ClaudeClient) doRequest(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", &apiError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var claudeResp claudeResponse
	if err := json.Unmarshal(respBody, &claudeResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if claudeResp.Error != nil {
		return "", fmt.Errorf("api error: %s", claudeResp.Error.Message)
	}

	for _, block := range claudeResp.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}

	return "", fmt.Errorf("no text content in response")
}

// isTimeout reports whether err is a deadline or network timeout, which
// callers surface to the user as "try again" rather than a hard failure.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
