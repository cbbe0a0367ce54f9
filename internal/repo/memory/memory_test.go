package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/infraprobe/internal/domain"
)

func TestMemoryStore_LatestPerTest(t *testing.T) {
	ctx := context.Background()
	s := New()
	t0 := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.Append(ctx, "dev", domain.TestResult{Name: "net.a", Status: domain.StatusFail, Timestamp: t0}))
	require.NoError(t, s.Append(ctx, "dev", domain.TestResult{Name: "net.b", Status: domain.StatusPass, Timestamp: t0}))
	require.NoError(t, s.Append(ctx, "dev", domain.TestResult{Name: "net.a", Status: domain.StatusPass, Timestamp: t0.Add(time.Minute)}))
	require.NoError(t, s.Append(ctx, "prod", domain.TestResult{Name: "net.a", Status: domain.StatusError, Timestamp: t0}))

	latest, err := s.Latest(ctx, "dev")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "net.a", latest[0].Name)
	assert.Equal(t, domain.StatusPass, latest[0].Status)
	assert.Equal(t, "net.b", latest[1].Name)

	latest, err = s.Latest(ctx, "staging")
	require.NoError(t, err)
	assert.Empty(t, latest)
}

func TestMemoryStore_Alerts(t *testing.T) {
	ctx := context.Background()
	s := New()

	rec, err := s.Get(ctx, "dev/net.a")
	require.NoError(t, err)
	assert.Nil(t, rec)

	require.NoError(t, s.Set(ctx, "dev/net.a", true, time.Time{}))
	rec, err = s.Get(ctx, "dev/net.a")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.True(t, rec.Failing)
	assert.Nil(t, rec.LastSentAt)

	now := time.Now()
	require.NoError(t, s.Set(ctx, "dev/net.a", false, now))
	rec, _ = s.Get(ctx, "dev/net.a")
	require.NotNil(t, rec.LastSentAt)
	assert.False(t, rec.Failing)
	assert.True(t, now.Equal(*rec.LastSentAt))
}
