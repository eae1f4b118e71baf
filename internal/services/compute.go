package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// ComputeRequest is the body POSTed to the video-processing endpoint. Exactly
// one of S3Key and YouTubeURL is set.
type ComputeRequest struct {
	Mode         string `json:"mode"`
	YouTubeURL   string `json:"youtube_url,omitempty"`
	S3Key        string `json:"s3_key,omitempty"`
	OutputPrefix string `json:"output_prefix,omitempty"`
}

// ComputeResult carries whatever the endpoint chose to report. Clips are
// discovered in object storage, not read from here.
type ComputeResult struct {
	StatusCode   int    `json:"-"`
	OutputPrefix string `json:"output_prefix"`
}

// ComputeError is a non-2xx answer from the endpoint.
type ComputeError struct {
	StatusCode int
	Body       string
}

func (e *ComputeError) Error() string {
	return fmt.Sprintf("process-video endpoint failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors. Client errors (bad token,
// rejected payload) will not get better on a second attempt.
func (e *ComputeError) IsRetryable() bool {
	return e.StatusCode >= 500
}

type ComputeClient struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

func NewComputeClient(endpoint, token string, timeout time.Duration) *ComputeClient {
	return &ComputeClient{
		endpoint:   endpoint,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Process blocks until the endpoint has finished writing clips to storage.
func (c *ComputeClient) Process(ctx context.Context, payload ComputeRequest) (*ComputeResult, error) {
	if (payload.S3Key == "") == (payload.YouTubeURL == "") {
		return nil, fmt.Errorf("compute request needs exactly one of s3_key or youtube_url")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal compute payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create compute request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compute request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ComputeError{StatusCode: resp.StatusCode, Body: truncate(string(respBody), 512)}
	}

	result := &ComputeResult{StatusCode: resp.StatusCode}
	if len(bytes.TrimSpace(respBody)) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			log.Printf("Compute endpoint returned a non-JSON body (%d bytes), ignoring", len(respBody))
		}
	}

	log.Printf("Compute endpoint finished in %s (mode: %s)", time.Since(started).Round(time.Second), payload.Mode)
	return result, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
