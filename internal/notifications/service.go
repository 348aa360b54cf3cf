package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"mezzpress/internal/config"
	"mezzpress/internal/outputcheck"
)

const userAgent = "Mezzpress-Go/0.1.0"

// Event names carried in the webhook payload.
const (
	EventJobCompleted   = "job_completed"
	EventJobFailed      = "job_failed"
	EventIdempotentSkip = "idempotent_skip"
	EventTest           = "test"
)

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, manifestID, key, outputPrefix string, validation outputcheck.Result) error
	NotifyJobFailed(ctx context.Context, manifestID, key, reason, classification string, validation *outputcheck.Result) error
	NotifyIdempotentSkip(ctx context.Context, manifestID, key string) error
	TestNotification(ctx context.Context) error
}

// event is the wire payload. Consumers deduplicate on idempotency_key plus
// outcome.
type event struct {
	Event              string   `json:"event"`
	ManifestID         string   `json:"manifest_id,omitempty"`
	IdempotencyKey     string   `json:"idempotency_key,omitempty"`
	Outcome            string   `json:"outcome,omitempty"`
	Reason             string   `json:"reason,omitempty"`
	Classification     string   `json:"classification,omitempty"`
	OutputPrefix       string   `json:"output_prefix,omitempty"`
	DurationDelta      *float64 `json:"duration_delta_seconds,omitempty"`
	MissingSegments    []string `json:"missing_segments,omitempty"`
	MalformedManifests []string `json:"malformed_manifests,omitempty"`
	Timestamp          string   `json:"timestamp"`
}

// NewService builds a webhook-backed notification service. When no webhook
// URL is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	url := strings.TrimSpace(cfg.Notifications.WebhookURL)
	if url == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &webhookService{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		success: cfg.Notifications.Success,
		failure: cfg.Notifications.Failure,
		skip:    cfg.Notifications.IdempotentSkip,
	}
}

type webhookService struct {
	url     string
	client  *http.Client
	success bool
	failure bool
	skip    bool
}

func (s *webhookService) NotifyJobCompleted(ctx context.Context, manifestID, key, outputPrefix string, validation outputcheck.Result) error {
	if !s.success {
		return nil
	}
	delta := validation.DurationDeltaSeconds
	return s.send(ctx, event{
		Event:          EventJobCompleted,
		ManifestID:     manifestID,
		IdempotencyKey: key,
		Outcome:        "completed",
		OutputPrefix:   outputPrefix,
		DurationDelta:  &delta,
	})
}

func (s *webhookService) NotifyJobFailed(ctx context.Context, manifestID, key, reason, classification string, validation *outputcheck.Result) error {
	if !s.failure {
		return nil
	}
	evt := event{
		Event:          EventJobFailed,
		ManifestID:     manifestID,
		IdempotencyKey: key,
		Outcome:        "failed",
		Reason:         reason,
		Classification: classification,
	}
	if validation != nil {
		delta := validation.DurationDeltaSeconds
		evt.DurationDelta = &delta
		evt.MissingSegments = validation.MissingSegments
		evt.MalformedManifests = validation.MalformedManifests
	}
	return s.send(ctx, evt)
}

func (s *webhookService) NotifyIdempotentSkip(ctx context.Context, manifestID, key string) error {
	if !s.skip {
		return nil
	}
	return s.send(ctx, event{
		Event:          EventIdempotentSkip,
		ManifestID:     manifestID,
		IdempotencyKey: key,
		Outcome:        "completed",
		Reason:         "content already transcoded under this key",
	})
}

func (s *webhookService) TestNotification(ctx context.Context) error {
	return s.send(ctx, event{Event: EventTest, Reason: "mezzpress webhook connectivity test"})
}

func (s *webhookService) send(ctx context.Context, evt event) error {
	evt.Timestamp = time.Now().UTC().Format(time.RFC3339)
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notification endpoint returned %s", resp.Status)
	}
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string, string, outputcheck.Result) error {
	return nil
}

func (noopService) NotifyJobFailed(context.Context, string, string, string, string, *outputcheck.Result) error {
	return nil
}

func (noopService) NotifyIdempotentSkip(context.Context, string, string) error { return nil }

func (noopService) TestNotification(context.Context) error { return nil }
