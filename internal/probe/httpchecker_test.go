package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPChecker_StatusOK(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(200)
		w.Write([]byte("ok"))
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if !out.Success {
		t.Fatalf("want success, got %+v", out)
	}
	if out.StatusCode != 200 {
		t.Fatalf("want status 200, got %d", out.StatusCode)
	}
	if out.ResponseTime < 0 {
		t.Fatalf("response time should be >= 0, got %f", out.ResponseTime)
	}
}

func TestHTTPChecker_Status503(t *testing.T) {
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", 503)
	}))
	defer s.Close()

	chk := NewHTTPChecker(2 * time.Second)
	out := chk.Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure, got %+v", out)
	}
	if out.StatusCode != 503 {
		t.Fatalf("want status 503, got %d", out.StatusCode)
	}
	if out.Error != "" {
		t.Fatalf("a status failure is not a transport error: %q", out.Error)
	}
}

func TestHTTPChecker_TimeoutSetsStatusZero(t *testing.T) {
	// Server sleeps longer than client timeout
	s := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(200)
	}))
	defer s.Close()

	chk := NewHTTPChecker(50 * time.Millisecond)
	out := chk.Check(context.Background(), s.URL)
	if out.Success {
		t.Fatalf("want failure due to timeout, got %+v", out)
	}
	if out.StatusCode != 0 {
		t.Fatalf("want status 0 on transport error, got %d", out.StatusCode)
	}
	if out.Error == "" {
		t.Fatalf("want non-empty error message")
	}
}

func TestCheckEndpoints_IsolatesFailures(t *testing.T) {
	live := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.WriteHeader(200)
	}))
	defer live.Close()

	dead := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	deadURL := dead.URL
	dead.Close()

	chk := NewHTTPChecker(2 * time.Second)
	ok, results := chk.CheckEndpoints(context.Background(), live.URL, []string{
		"/health",
		"/missing",
		deadURL + "/health",
	})

	assert.Equal(t, 1, ok)
	require.Len(t, results, 3)
	assert.Equal(t, 404, results["/missing"].(map[string]any)["status_code"])
	dr := results[deadURL+"/health"].(map[string]any)
	assert.Equal(t, 0, dr["status_code"])
	assert.NotEmpty(t, dr["error"])
}

func TestCheckEndpoints_RepeatedPathCountedOnce(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	chk := NewHTTPChecker(2 * time.Second)
	ok, results := chk.CheckEndpoints(context.Background(), srv.URL, []string{"/health", "/", "/health"})

	assert.Equal(t, 2, ok)
	assert.Len(t, results, 2)
	assert.Equal(t, int32(2), hits.Load())
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://h/a", joinURL("http://h/", "/a"))
	assert.Equal(t, "http://h/a", joinURL("http://h", "a"))
	assert.Equal(t, "https://x/y", joinURL("http://h", "https://x/y"))
}
