package render

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/reelforge/reelforge-agent/internal/logging"
)

func TestHTTPClient_Submit_Success(t *testing.T) {
	var received Job
	var receivedAuth, requestID string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/render/jobs" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		receivedAuth = r.Header.Get("Authorization")
		requestID = r.Header.Get("X-Reelforge-Request-Id")

		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)

		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(Receipt{Status: "queued", StatusURL: "/jobs/1"})
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL+"/", "render-token", logging.Discard())
	receipt, err := client.Submit(context.Background(), Job{ID: "job-1", Title: "My-Reel", FPS: 30})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if receivedAuth != "Bearer render-token" {
		t.Errorf("auth = %q", receivedAuth)
	}
	if requestID == "" {
		t.Error("expected X-Reelforge-Request-Id header")
	}
	if received.Title != "My-Reel" || received.FPS != 30 {
		t.Errorf("payload = %+v", received)
	}
	if receipt.JobID != "job-1" || receipt.Status != "queued" || receipt.StatusURL != "/jobs/1" {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestHTTPClient_Submit_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Error("no token configured, no header expected")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	receipt, err := NewHTTPClient(server.URL, "", logging.Discard()).Submit(context.Background(), Job{ID: "job-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.JobID != "job-2" || receipt.Status != "submitted" {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestHTTPClient_Submit_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		retryable bool
	}{
		{"bad request", http.StatusBadRequest, false},
		{"unauthorized", http.StatusUnauthorized, false},
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"detail":"nope"}`))
			}))
			defer server.Close()

			_, err := NewHTTPClient(server.URL, "t", logging.Discard()).Submit(context.Background(), Job{ID: "j"})
			var submitErr *SubmitError
			if !errors.As(err, &submitErr) {
				t.Fatalf("expected SubmitError, got %T (%v)", err, err)
			}
			if submitErr.StatusCode != tt.status || submitErr.IsRetryable() != tt.retryable {
				t.Errorf("err = %+v, retryable = %v", submitErr, submitErr.IsRetryable())
			}
			if !strings.Contains(submitErr.Error(), "nope") {
				t.Errorf("Error() = %q", submitErr.Error())
			}
		})
	}
}

func TestHTTPClient_Submit_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPClient(url, "t", logging.Discard()).Submit(context.Background(), Job{ID: "j"})
	if err == nil {
		t.Fatal("expected transport error")
	}
	var submitErr *SubmitError
	if errors.As(err, &submitErr) {
		t.Fatal("transport errors are not SubmitErrors")
	}
}

func TestStubClient_Submit(t *testing.T) {
	receipt, err := NewStubClient(logging.Discard()).Submit(context.Background(), Job{ID: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receipt.JobID != "abc" || receipt.Status != "stub" {
		t.Errorf("receipt = %+v", receipt)
	}
}
