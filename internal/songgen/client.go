package songgen

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Client talks to the external song-generation provider. Errors are decided
// once here, at the HTTP boundary: callers get *ValidationError,
// *RateLimitError or a plain wrapped error and never re-derive the class
// from message text.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

type GenerationRequest struct {
	RecipientName string `json:"recipient_name"`
	Occasion      string `json:"occasion,omitempty"`
	Genre         string `json:"genre,omitempty"`
	Mood          string `json:"mood,omitempty"`
	Prompt        string `json:"prompt"`
	// VariantNumber seeds the provider so repeated variants of one order
	// come out different.
	VariantNumber int `json:"variant_number"`
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Generate renders one audio variant and returns the MP3 bytes.
func (c *Client) Generate(req GenerationRequest) ([]byte, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(c.baseURL, "/") + "/generate"
	httpReq, err := http.NewRequest("POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.errorFromResponse(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if len(data) == 0 {
		return nil, &ValidationError{Message: "provider returned empty audio"}
	}

	return data, nil
}

func (c *Client) errorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return &ValidationError{
			StatusCode: resp.StatusCode,
			Message:    string(body),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &RateLimitError{
			RetryAfter: retryAfterHint(resp),
		}
	default:
		return fmt.Errorf("generation failed: status %d, body: %s", resp.StatusCode, string(body))
	}
}

// retryAfterHint reads the provider's Retry-After header; zero means the
// provider gave no hint and the caller applies its own default.
func retryAfterHint(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	return 0
}
