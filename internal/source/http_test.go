package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPFetch(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		maxRetries   int
		wantError    bool
		wantStatus   int
		wantAttempts int32
	}{
		{
			name:         "successful fetch",
			statuses:     []int{http.StatusOK},
			maxRetries:   2,
			wantAttempts: 1,
		},
		{
			name:         "retries transient failure",
			statuses:     []int{http.StatusServiceUnavailable, http.StatusOK},
			maxRetries:   2,
			wantAttempts: 2,
		},
		{
			name:         "not found is permanent",
			statuses:     []int{http.StatusNotFound},
			maxRetries:   3,
			wantError:    true,
			wantStatus:   http.StatusNotFound,
			wantAttempts: 1,
		},
		{
			name:         "gives up after max retries",
			statuses:     []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway},
			maxRetries:   1,
			wantError:    true,
			wantStatus:   http.StatusBadGateway,
			wantAttempts: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&attempts, 1)
				if r.Header.Get("User-Agent") != UserAgent {
					t.Errorf("expected User-Agent %q, got %q", UserAgent, r.Header.Get("User-Agent"))
				}
				status := tt.statuses[len(tt.statuses)-1]
				if int(n) <= len(tt.statuses) {
					status = tt.statuses[n-1]
				}
				w.WriteHeader(status)
				w.Write([]byte("<html><body>ok</body></html>"))
			}))
			defer server.Close()

			h := NewHTTP("", time.Second, tt.maxRetries)
			h.retryInterval = time.Millisecond

			doc, err := h.Fetch(context.Background(), server.URL)
			if (err != nil) != tt.wantError {
				t.Fatalf("Fetch() error = %v, wantError %v", err, tt.wantError)
			}
			if got := atomic.LoadInt32(&attempts); got != tt.wantAttempts {
				t.Errorf("attempts = %d, want %d", got, tt.wantAttempts)
			}

			if tt.wantError {
				var ue *UnavailableError
				if !errors.As(err, &ue) {
					t.Fatalf("expected *UnavailableError, got %T", err)
				}
				if ue.StatusCode != tt.wantStatus {
					t.Errorf("status = %d, want %d", ue.StatusCode, tt.wantStatus)
				}
				return
			}
			if string(doc.Body) != "<html><body>ok</body></html>" {
				t.Errorf("unexpected body %q", doc.Body)
			}
			if doc.FetchedAt.IsZero() {
				t.Error("FetchedAt should be set")
			}
		})
	}
}

func TestHTTPFetchCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewHTTP("", time.Second, 5).Fetch(ctx, server.URL)
	if !IsUnavailable(err) {
		t.Errorf("expected unavailable error, got %v", err)
	}
}
