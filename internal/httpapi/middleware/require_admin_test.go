package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequireAdmin_AllowsAdminKey_BlocksPublicKey(t *testing.T) {
	keys := Keys{
		Public: []string{"pub_key"},
		Admin:  []string{"adm_key"},
	}

	// Admin key -> 200
	reqAdm := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	reqAdm.Header.Set("X-API-Key", "adm_key")
	recAdm := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler()).ServeHTTP(recAdm, reqAdm)
	assert.Equal(t, http.StatusOK, recAdm.Code)

	// Public key -> 403
	reqPub := httptest.NewRequest(http.MethodGet, "/api/results", nil)
	reqPub.Header.Set("Authorization", "Bearer pub_key")
	recPub := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler()).ServeHTTP(recPub, reqPub)
	assert.Equal(t, http.StatusForbidden, recPub.Code)

	// Missing key -> 401
	recNone := httptest.NewRecorder()
	RequireAdmin(keys)(okHandler()).ServeHTTP(recNone, httptest.NewRequest(http.MethodGet, "/api/results", nil))
	assert.Equal(t, http.StatusUnauthorized, recNone.Code)
}

func TestRequireAny(t *testing.T) {
	keys := Keys{Public: []string{"pub_key"}, Admin: []string{"adm_key"}}

	for key, want := range map[string]int{
		"pub_key": http.StatusOK,
		"adm_key": http.StatusOK,
		"nope":    http.StatusUnauthorized,
		"":        http.StatusUnauthorized,
	} {
		req := httptest.NewRequest(http.MethodPost, "/genai", nil)
		if key != "" {
			req.Header.Set("X-API-Key", key)
		}
		rec := httptest.NewRecorder()
		RequireAny(keys)(okHandler()).ServeHTTP(rec, req)
		assert.Equal(t, want, rec.Code, "key %q", key)
	}

	// no keys configured -> open
	rec := httptest.NewRecorder()
	RequireAny(Keys{})(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/genai", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
