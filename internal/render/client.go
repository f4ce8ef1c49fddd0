package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Receipt acknowledges an accepted job.
type Receipt struct {
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	StatusURL string `json:"statusUrl,omitempty"`
}

type Client interface {
	Submit(ctx context.Context, job Job) (*Receipt, error)
}

// SubmitError is a non-2xx reply from the render service.
type SubmitError struct {
	StatusCode int
	Body       string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("render submit failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors. Client errors are permanent.
func (e *SubmitError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPClient posts jobs to a render service. It never retries on its own.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

func (c *HTTPClient) Submit(ctx context.Context, job Job) (*Receipt, error) {
	body, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal render job: %w", err)
	}

	url := c.baseURL + "/api/render/jobs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Reelforge-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Info("submitting render job",
		"url", url,
		"job_id", job.ID,
		"title", job.Title,
		"segments", len(job.Segments),
		"body_bytes", len(body),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &SubmitError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	receipt := Receipt{JobID: job.ID, Status: "submitted"}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &receipt); err != nil {
			c.logger.Warn("unreadable render receipt", "error", err)
		}
	}
	if receipt.JobID == "" {
		receipt.JobID = job.ID
	}
	return &receipt, nil
}

// StubClient accepts every job without rendering. It is used when no render
// service is configured.
type StubClient struct {
	logger *slog.Logger
}

func NewStubClient(logger *slog.Logger) *StubClient {
	return &StubClient{logger: logger}
}

func (c *StubClient) Submit(ctx context.Context, job Job) (*Receipt, error) {
	c.logger.Info("render stub: job accepted but not rendered",
		"job_id", job.ID, "title", job.Title, "duration_frames", job.DurationFrames)
	return &Receipt{JobID: job.ID, Status: "stub"}, nil
}
