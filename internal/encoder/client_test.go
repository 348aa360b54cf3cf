package encoder_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mezzpress/internal/encoder"
	"mezzpress/internal/services"
	"mezzpress/internal/testsupport"
)

func newClient(t *testing.T, handler http.Handler) encoder.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return encoder.NewClient(testsupport.NewConfig(t, testsupport.WithEncoderEndpoint(server.URL)))
}

func TestSubmitSendsJobAndReturnsReference(t *testing.T) {
	var gotKey, gotAuth string
	var gotBody map[string]any
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/jobs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		if r.Header.Get("X-Request-Id") == "" {
			t.Error("missing X-Request-Id header")
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"reference": "job-123"})
	}))

	ref, err := client.Submit(context.Background(), encoder.Request{
		ManifestID:     "ep-0001",
		IdempotencyKey: "abc123",
		SourcePath:     "series/ep-0001.mov",
		OutputPrefix:   "series/S01E001/ep-0001",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ref != "job-123" {
		t.Fatalf("unexpected reference %q", ref)
	}
	if gotKey != "abc123" {
		t.Fatalf("unexpected idempotency header %q", gotKey)
	}
	if gotAuth != "" {
		t.Fatalf("no token configured but Authorization sent: %q", gotAuth)
	}
	if gotBody["manifest_id"] != "ep-0001" {
		t.Fatalf("unexpected body: %v", gotBody)
	}
}

func TestSubmitClassifiesFailures(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		wantMarker error
	}{
		{"throttled", http.StatusTooManyRequests, services.ErrTransient},
		{"server fault", http.StatusBadGateway, services.ErrTransient},
		{"rejected job", http.StatusBadRequest, services.ErrInput},
		{"unauthorized", http.StatusUnauthorized, services.ErrInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, tt.name, tt.statusCode)
			}))
			_, err := client.Submit(context.Background(), encoder.Request{IdempotencyKey: "k"})
			if !errors.Is(err, tt.wantMarker) {
				t.Fatalf("expected %v classification, got %v", tt.wantMarker, err)
			}
		})
	}
}

func TestAwaitCompletionReturnsTerminalStatus(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/jobs/job-9/wait" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(encoder.JobStatus{Reference: "job-9", State: encoder.StateFinished})
	}))

	status, err := client.AwaitCompletion(context.Background(), "job-9")
	if err != nil {
		t.Fatalf("await: %v", err)
	}
	if status.State != encoder.StateFinished {
		t.Fatalf("unexpected state %s", status.State)
	}
}

func TestAwaitCompletionCeilingIsAmbiguous(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	t.Cleanup(server.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithEncoderEndpoint(server.URL))
	cfg.Encoder.WaitCeiling = 1
	client := encoder.NewClient(cfg)

	_, err := client.AwaitCompletion(context.Background(), "job-slow")
	if !errors.Is(err, services.ErrAmbiguous) {
		t.Fatalf("expected ambiguous classification on ceiling, got %v", err)
	}
}

func TestQueryJobReportsNotFound(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	_, err := client.QueryJob(context.Background(), "job-unknown")
	if !errors.Is(err, encoder.ErrJobNotFound) {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestQueryJobReturnsState(t *testing.T) {
	client := newClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(encoder.JobStatus{State: encoder.StateRunning})
	}))
	status, err := client.QueryJob(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if status.State != encoder.StateRunning || status.Reference != "job-2" {
		t.Fatalf("unexpected status %+v", status)
	}
}
