package encoder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"mezzpress/internal/config"
	"mezzpress/internal/ladder"
	"mezzpress/internal/services"
)

const userAgent = "Mezzpress-Go/0.1.0"

// JobState is the lifecycle state the service reports for a job.
type JobState string

const (
	StateQueued   JobState = "queued"
	StateRunning  JobState = "running"
	StateFinished JobState = "finished"
	StateErrored  JobState = "errored"
	StateUnknown  JobState = "unknown"
)

// ErrJobNotFound marks queries for references the service does not know.
var ErrJobNotFound = errors.New("encoder job not found")

// Request is one fully resolved encode submission.
type Request struct {
	ManifestID              string       `json:"manifest_id"`
	IdempotencyKey          string       `json:"idempotency_key"`
	SourcePath              string       `json:"source_path"`
	OutputPrefix            string       `json:"output_prefix"`
	ExpectedDurationSeconds float64      `json:"expected_duration_seconds"`
	Plan                    *ladder.Plan `json:"plan"`
}

// JobStatus is the service's view of one job.
type JobStatus struct {
	Reference string   `json:"reference"`
	State     JobState `json:"state"`
	Message   string   `json:"message,omitempty"`
}

// Client is the transcoding surface the workflow depends on.
type Client interface {
	// Submit hands the job to the service and returns its reference.
	Submit(ctx context.Context, req Request) (string, error)
	// AwaitCompletion blocks until the job reaches a terminal state or the
	// wait ceiling lapses.
	AwaitCompletion(ctx context.Context, reference string) (JobStatus, error)
	// QueryJob reports current job state without waiting. Used by the
	// reconciliation sweep.
	QueryJob(ctx context.Context, reference string) (JobStatus, error)
}

type httpClient struct {
	endpoint    string
	token       string
	client      *http.Client
	waitCeiling time.Duration
}

// NewClient builds the HTTP client for the configured service endpoint.
func NewClient(cfg *config.Config) Client {
	return &httpClient{
		endpoint:    strings.TrimRight(cfg.Encoder.Endpoint, "/"),
		token:       cfg.Encoder.Token,
		client:      &http.Client{Timeout: time.Duration(cfg.Encoder.SubmitTimeout) * time.Second},
		waitCeiling: time.Duration(cfg.Encoder.WaitCeiling) * time.Second,
	}
}

func (c *httpClient) Submit(ctx context.Context, req Request) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", services.Wrap(services.ErrInput, "encoder", "submit", "encode request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", services.Wrap(services.ErrInput, "encoder", "submit", "build request", err)
	}
	c.decorate(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")
	// The service deduplicates on this header, which keeps a retried submit
	// after an ambiguous network failure from creating a second job.
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		// The request may or may not have landed. Resubmitting is safe only
		// because the service deduplicates on the Idempotency-Key header.
		return "", services.Wrap(services.ErrTransient, "encoder", "submit", "request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, "submit"); err != nil {
		return "", err
	}

	var payload struct {
		Reference string `json:"reference"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", services.Wrap(services.ErrTransient, "encoder", "submit", "decode response", err)
	}
	if payload.Reference == "" {
		return "", services.Wrap(services.ErrTransient, "encoder", "submit", "service returned no job reference", nil)
	}
	return payload.Reference, nil
}

func (c *httpClient) AwaitCompletion(ctx context.Context, reference string) (JobStatus, error) {
	waitCtx, cancel := context.WithTimeout(ctx, c.waitCeiling)
	defer cancel()

	url := fmt.Sprintf("%s/v1/jobs/%s/wait", c.endpoint, reference)
	httpReq, err := http.NewRequestWithContext(waitCtx, http.MethodGet, url, nil)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrInput, "encoder", "wait", "build request", err)
	}
	c.decorate(httpReq)

	// The wait endpoint long-polls until the job terminates, so the only
	// timeout that applies here is the ceiling, not the submit timeout.
	waitClient := &http.Client{}
	resp, err := waitClient.Do(httpReq)
	if err != nil {
		if waitCtx.Err() != nil && ctx.Err() == nil {
			return JobStatus{}, services.Wrap(services.ErrAmbiguous, "encoder", "wait",
				fmt.Sprintf("job %s did not finish within %s", reference, c.waitCeiling), waitCtx.Err())
		}
		return JobStatus{}, services.Wrap(services.ErrTransient, "encoder", "wait", "request failed", err)
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp, "wait"); err != nil {
		return JobStatus{}, err
	}
	return decodeStatus(resp.Body, reference, "wait")
}

func (c *httpClient) QueryJob(ctx context.Context, reference string) (JobStatus, error) {
	url := fmt.Sprintf("%s/v1/jobs/%s", c.endpoint, reference)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrInput, "encoder", "query", "build request", err)
	}
	c.decorate(httpReq)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return JobStatus{}, services.Wrap(services.ErrTransient, "encoder", "query", "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return JobStatus{}, fmt.Errorf("%w: %s", ErrJobNotFound, reference)
	}
	if err := classifyStatus(resp, "query"); err != nil {
		return JobStatus{}, err
	}
	return decodeStatus(resp.Body, reference, "query")
}

func (c *httpClient) decorate(req *http.Request) {
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func decodeStatus(body io.Reader, reference, operation string) (JobStatus, error) {
	var status JobStatus
	if err := json.NewDecoder(body).Decode(&status); err != nil {
		return JobStatus{}, services.Wrap(services.ErrTransient, "encoder", operation, "decode response", err)
	}
	if status.Reference == "" {
		status.Reference = reference
	}
	if status.State == "" {
		status.State = StateUnknown
	}
	return status, nil
}

// classifyStatus maps HTTP responses onto the error taxonomy: throttling and
// server faults are retryable, everything else in the 4xx range means the
// request itself is unacceptable.
func classifyStatus(resp *http.Response, operation string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	detail := fmt.Sprintf("service returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return services.Wrap(services.ErrTransient, "encoder", operation, detail, nil)
	}
	return services.Wrap(services.ErrInput, "encoder", operation, detail, nil)
}
