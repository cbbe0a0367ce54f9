package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/domain"
	"github.com/hamed0406/infraprobe/internal/genai"
	apimw "github.com/hamed0406/infraprobe/internal/httpapi/middleware"
	"github.com/hamed0406/infraprobe/internal/repo/memory"
)

// ---- test helpers ----

type fakeAssistant struct {
	asked []string
}

func (f *fakeAssistant) Answer(_ context.Context, q string) genai.Answer {
	f.asked = append(f.asked, q)
	return genai.Answer{
		Question:     q,
		Answer:       "George Franklin owns Leo.",
		DataSource:   genai.SourceDatabase,
		QuestionType: string(genai.QuestionDatabase),
	}
}

func setupServer(t *testing.T) (*Server, *fakeAssistant, *memory.Store) {
	t.Helper()
	fa := &fakeAssistant{}
	store := memory.New()
	return NewServer(zap.NewNop(), fa, store), fa, store
}

func setupRouter(t *testing.T) (http.Handler, *fakeAssistant, *memory.Store) {
	t.Helper()
	srv, fa, store := setupServer(t)
	keys := apimw.Keys{
		Public: []string{"pub_test"},
		Admin:  []string{"adm_test"},
	}
	// very high rate limits to avoid flakiness in tests
	return srv.Router(keys, nil, 10_000, 10_000), fa, store
}

func do(t *testing.T, h http.Handler, method, path, key, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// ---- tests ----

func TestHealth_NoKeyNeeded(t *testing.T) {
	h, _, _ := setupRouter(t)
	rec := do(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy","service":"genai-api","data_api_enabled":false}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(apimw.RequestIDHeader))
}

func TestAsk_OK(t *testing.T) {
	h, fa, _ := setupRouter(t)
	rec := do(t, h, http.MethodPost, "/genai", "pub_test", `{"question":"  who owns Leo? "}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var ans genai.Answer
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&ans))
	assert.Equal(t, "who owns Leo?", ans.Question)
	assert.Equal(t, "aurora_rds_data_api", ans.DataSource)
	assert.Equal(t, rec.Header().Get(apimw.RequestIDHeader), ans.RequestID)
	assert.Equal(t, []string{"who owns Leo?"}, fa.asked)
}

func TestAsk_AcceptsMessageField(t *testing.T) {
	h, fa, _ := setupRouter(t)
	rec := do(t, h, http.MethodPost, "/genai", "pub_test", `{"message":"hello"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"hello"}, fa.asked)
}

func TestAsk_BadRequests(t *testing.T) {
	h, fa, _ := setupRouter(t)

	rec := do(t, h, http.MethodPost, "/genai", "pub_test", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"question is required"}`, rec.Body.String())

	rec = do(t, h, http.MethodPost, "/genai", "pub_test", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/genai", "", `{"question":"x"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, fa.asked)
}

func TestAsk_BodyTooLarge(t *testing.T) {
	h, fa, _ := setupRouter(t)

	big := `{"question":"` + strings.Repeat("a", maxAskBody) + `"}`
	rec := do(t, h, http.MethodPost, "/genai", "pub_test", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.JSONEq(t, `{"error":"request body too large"}`, rec.Body.String())
	assert.Empty(t, fa.asked)

	// just under the cap is still answered
	fits := `{"question":"` + strings.Repeat("a", maxAskBody-32) + `"}`
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/genai", "pub_test", fits).Code)
	assert.Len(t, fa.asked, 1)
}

func TestAsk_RateLimited(t *testing.T) {
	srv, _, _ := setupServer(t)
	h := srv.Router(apimw.Keys{}, nil, 60, 1)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/genai", "", `{"question":"a"}`).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodPost, "/genai", "", `{"question":"b"}`).Code)
	// health is outside the limited group
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "", "").Code)
}

func TestResults_AdminOnly(t *testing.T) {
	h, _, store := setupRouter(t)
	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, store.Append(ctx, "dev", domain.TestResult{Name: "Aurora Cluster", Status: domain.StatusFail, Timestamp: now}))
	require.NoError(t, store.Append(ctx, "dev", domain.TestResult{Name: "Aurora Cluster", Status: domain.StatusPass, Timestamp: now.Add(time.Second)}))

	assert.Equal(t, http.StatusForbidden, do(t, h, http.MethodGet, "/api/results", "pub_test", "").Code)

	rec := do(t, h, http.MethodGet, "/api/results?environment=dev", "adm_test", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Environment string              `json:"environment"`
		Results     []domain.TestResult `json:"results"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "dev", body.Environment)
	require.Len(t, body.Results, 1)
	assert.Equal(t, domain.StatusPass, body.Results[0].Status)
}

func TestResults_NoHistory(t *testing.T) {
	srv := NewServer(zap.NewNop(), &fakeAssistant{}, nil)
	h := srv.Router(apimw.Keys{}, nil, 0, 0)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, http.MethodGet, "/api/results", "", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h, _, _ := setupRouter(t)
	rec := do(t, h, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
