package notifications_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mezzpress/internal/notifications"
	"mezzpress/internal/outputcheck"
	"mezzpress/internal/testsupport"
)

func TestNewServiceReturnsNoopWhenURLMissing(t *testing.T) {
	svc := notifications.NewService(testsupport.NewConfig(t))
	if err := svc.NotifyIdempotentSkip(context.Background(), "ep-0001", "abc"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestWebhookServiceFormatsEvents(t *testing.T) {
	var received []map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var payload map[string]any
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("bad payload: %v", err)
		}
		received = append(received, payload)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	svc := notifications.NewService(testsupport.NewConfig(t, testsupport.WithWebhookURL(server.URL)))
	ctx := context.Background()

	if err := svc.NotifyJobCompleted(ctx, "ep-0001", "key-1", "series/S01E001/ep-0001", outputcheck.Result{IsValid: true, DurationDeltaSeconds: -0.2}); err != nil {
		t.Fatalf("completed: %v", err)
	}
	validation := &outputcheck.Result{
		DurationDeltaSeconds: 240.0,
		MalformedManifests:   []string{"duration drift 240.00s exceeds tolerance 0.50s"},
	}
	if err := svc.NotifyJobFailed(ctx, "ep-0001", "key-1", "output validation failed", "validation", validation); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if err := svc.NotifyIdempotentSkip(ctx, "ep-0001", "key-1"); err != nil {
		t.Fatalf("skip: %v", err)
	}

	if len(received) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(received))
	}

	completed := received[0]
	if completed["event"] != "job_completed" || completed["outcome"] != "completed" {
		t.Fatalf("unexpected completed event: %v", completed)
	}
	if completed["idempotency_key"] != "key-1" {
		t.Fatalf("missing idempotency key: %v", completed)
	}

	failed := received[1]
	if failed["event"] != "job_failed" || failed["classification"] != "validation" {
		t.Fatalf("unexpected failed event: %v", failed)
	}
	if failed["duration_delta_seconds"] != 240.0 {
		t.Fatalf("missing validation diagnostics: %v", failed)
	}

	skip := received[2]
	if skip["event"] != "idempotent_skip" || skip["outcome"] != "completed" {
		t.Fatalf("unexpected skip event: %v", skip)
	}
}

func TestWebhookServiceHonorsToggles(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithWebhookURL(server.URL))
	cfg.Notifications.Success = false
	cfg.Notifications.IdempotentSkip = false
	svc := notifications.NewService(cfg)
	ctx := context.Background()

	if err := svc.NotifyJobCompleted(ctx, "ep", "k", "p", outputcheck.Result{}); err != nil {
		t.Fatalf("completed: %v", err)
	}
	if err := svc.NotifyIdempotentSkip(ctx, "ep", "k"); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if calls != 0 {
		t.Fatalf("disabled events were delivered: %d", calls)
	}

	if err := svc.NotifyJobFailed(ctx, "ep", "k", "boom", "transient", nil); err != nil {
		t.Fatalf("failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected exactly one delivery, got %d", calls)
	}
}

func TestWebhookServiceSurfacesHTTPFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	svc := notifications.NewService(testsupport.NewConfig(t, testsupport.WithWebhookURL(server.URL)))
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected delivery error")
	}
}
