package probe

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultHTTPTimeout bounds every endpoint request. Requests are never
// retried.
const DefaultHTTPTimeout = 10 * time.Second

type HTTPChecker struct {
	Client *http.Client
}

func NewHTTPChecker(timeout time.Duration) *HTTPChecker {
	return &HTTPChecker{
		Client: &http.Client{Timeout: timeout},
	}
}

// EndpointResult is the outcome of one GET.
type EndpointResult struct {
	StatusCode   int     // 0 on transport error
	ResponseTime float64 // seconds
	Success      bool
	Error        string
}

func (r EndpointResult) asMap() map[string]any {
	m := map[string]any{
		"status_code":   r.StatusCode,
		"response_time": r.ResponseTime,
		"success":       r.Success,
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

func (h *HTTPChecker) Check(ctx context.Context, target string) EndpointResult {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return EndpointResult{Error: err.Error()}
	}

	resp, err := h.Client.Do(req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		return EndpointResult{ResponseTime: elapsed, Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	return EndpointResult{
		StatusCode:   resp.StatusCode,
		ResponseTime: elapsed,
		Success:      resp.StatusCode >= 200 && resp.StatusCode < 300,
	}
}

// CheckEndpoints GETs every path against base, in order. A failing endpoint
// does not stop the remaining ones. Paths that are already absolute URLs are
// used as-is. A repeated path is checked and counted once.
func (h *HTTPChecker) CheckEndpoints(ctx context.Context, base string, paths []string) (int, map[string]any) {
	ok := 0
	results := make(map[string]any, len(paths))
	for _, p := range paths {
		if _, seen := results[p]; seen {
			continue
		}
		r := h.Check(ctx, joinURL(base, p))
		if r.Success {
			ok++
		}
		results[p] = r.asMap()
	}
	return ok, results
}

func joinURL(base, path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
