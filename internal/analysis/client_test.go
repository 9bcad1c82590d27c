package analysis

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"modgate/internal/config"
	"modgate/internal/gate"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewHTTPClient(HTTPOptions{
		BaseURL:      srv.URL,
		APIKey:       "secret",
		PollInterval: time.Millisecond,
	}, gate.NewNopLogger())
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	return c
}

func TestHTTPClient_Submit(t *testing.T) {
	var gotAuth string
	var gotBody submitRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/jobs" {
			t.Errorf("request = %s %s, want POST /v1/jobs", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &gotBody); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
		w.Write([]byte(`{"id":"job-1"}`))
	})

	job, err := c.Submit(context.Background(), "s3://bucket/content/video/a", gate.FeaturesFor(gate.ModalityAudio))
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if job.ID != "job-1" {
		t.Errorf("job.ID = %q, want %q", job.ID, "job-1")
	}
	if job.Modality != gate.ModalityAudio {
		t.Errorf("job.Modality = %q, want %q", job.Modality, gate.ModalityAudio)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer secret")
	}
	if gotBody.URI != "s3://bucket/content/video/a" {
		t.Errorf("body uri = %q", gotBody.URI)
	}
}

func TestHTTPClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"bad request", http.StatusBadRequest, false},
		{"forbidden", http.StatusForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})
			_, err := c.Submit(context.Background(), "uri", gate.FeaturesFor(gate.ModalityVideo))
			if err == nil {
				t.Fatal("Submit() expected error")
			}
			if gate.IsTransient(err) != tt.wantTransient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, gate.IsTransient(err), tt.wantTransient)
			}
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tt.status {
				t.Errorf("error = %v, want StatusError with code %d", err, tt.status)
			}
		})
	}
}

func TestHTTPClient_NetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, err := NewHTTPClient(HTTPOptions{BaseURL: base}, gate.NewNopLogger())
	if err != nil {
		t.Fatalf("NewHTTPClient() error = %v", err)
	}
	_, err = c.Submit(context.Background(), "uri", gate.FeaturesFor(gate.ModalityVideo))
	if !gate.IsTransient(err) {
		t.Errorf("Submit() error = %v, want transient", err)
	}
}

func TestHTTPClient_Await(t *testing.T) {
	t.Run("polls until done", func(t *testing.T) {
		var polls atomic.Int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/v1/jobs/job-1" {
				t.Errorf("path = %q, want /v1/jobs/job-1", r.URL.Path)
			}
			if polls.Add(1) < 3 {
				w.Write([]byte(`{"id":"job-1","state":"running"}`))
				return
			}
			w.Write([]byte(`{"id":"job-1","state":"done","annotations":{"speech_transcribed":true,"transcript":"hello there","safe_search":{"adult":"VERY_UNLIKELY"}}}`))
		})

		a, err := c.Await(context.Background(), gate.JobHandle{ID: "job-1"}, time.Second)
		if err != nil {
			t.Fatalf("Await() error = %v", err)
		}
		if !a.SpeechTranscribed || a.Transcript != "hello there" {
			t.Errorf("annotations = %+v", a)
		}
		if a.SafeSearch["adult"] != gate.LikelihoodVeryUnlikely {
			t.Errorf("SafeSearch[adult] = %v, want VERY_UNLIKELY", a.SafeSearch["adult"])
		}
		if polls.Load() != 3 {
			t.Errorf("polls = %d, want 3", polls.Load())
		}
	})

	t.Run("times out", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"job-1","state":"running"}`))
		})
		_, err := c.Await(context.Background(), gate.JobHandle{ID: "job-1"}, 20*time.Millisecond)
		if !errors.Is(err, gate.ErrAwaitTimeout) {
			t.Fatalf("Await() error = %v, want ErrAwaitTimeout", err)
		}
		if !gate.IsTransient(err) {
			t.Error("await timeout should be transient")
		}
	})

	t.Run("failed job is transient", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"job-1","state":"failed","error":"worker crashed"}`))
		})
		_, err := c.Await(context.Background(), gate.JobHandle{ID: "job-1"}, time.Second)
		if !gate.IsTransient(err) {
			t.Errorf("Await() error = %v, want transient", err)
		}
	})

	t.Run("unknown state is permanent", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"job-1","state":"exploded"}`))
		})
		_, err := c.Await(context.Background(), gate.JobHandle{ID: "job-1"}, time.Second)
		if err == nil || gate.IsTransient(err) {
			t.Errorf("Await() error = %v, want permanent error", err)
		}
	})
}

func TestNewAnalysisServiceFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AnalysisConfig
		wantErr bool
	}{
		{"http", config.AnalysisConfig{Type: "http", BaseURL: "http://localhost:9000"}, false},
		{"http without base url", config.AnalysisConfig{Type: "http"}, true},
		{"unknown", config.AnalysisConfig{Type: "grpc"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewAnalysisServiceFromConfig(tt.cfg, gate.NewNopLogger())
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewAnalysisServiceFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr {
				if _, ok := svc.(*BreakerService); !ok {
					t.Errorf("service type = %T, want *BreakerService", svc)
				}
			}
		})
	}
}
