package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*SummaryCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewSummaryCache(client, time.Minute), mr
}

func TestNilSummaryCacheIsInert(t *testing.T) {
	var cache *SummaryCache
	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, 0, &AppointmentList{TotalCount: 1}))
	_, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(ctx))
	assert.Nil(t, NewSummaryCache(nil, time.Minute))
}

func TestSummaryCacheRoundTripAndExpiry(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	_, generation, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, cache.Set(ctx, generation, &AppointmentList{TotalCount: 3, PendingCount: 3}))
	got, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, got.PendingCount)

	mr.FastForward(2 * time.Minute)
	_, _, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListRecentAppointmentsUsesCacheUntilWrite(t *testing.T) {
	cache, _ := newTestCache(t)
	f := newFixture(t, testPlatform(), cache)
	ctx := context.Background()

	_, err := f.svc.CreateAppointment(ctx, newAppointment(StatusPending))
	require.NoError(t, err)

	first, err := f.svc.ListRecentAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalCount)
	_, _, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	// a write behind the service's back is not seen while the summary is cached
	_, err = f.docs.CreateDocument(ctx, "db", "appointments", "direct", map[string]any{"status": "pending"})
	require.NoError(t, err)
	cached, err := f.svc.ListRecentAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.TotalCount)

	_, err = f.svc.CreateAppointment(ctx, newAppointment(StatusScheduled))
	require.NoError(t, err)
	_, _, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	fresh, err := f.svc.ListRecentAppointments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, fresh.TotalCount)
	assert.Equal(t, 1, fresh.ScheduledCount)
	assert.Equal(t, 2, fresh.PendingCount)
}

func TestUpdateAppointmentInvalidatesCache(t *testing.T) {
	cache, mr := newTestCache(t)
	f := newFixture(t, testPlatform(), cache)
	ctx := context.Background()

	created, err := f.svc.CreateAppointment(ctx, newAppointment(StatusPending))
	require.NoError(t, err)
	_, err = f.svc.ListRecentAppointments(ctx)
	require.NoError(t, err)
	_, before, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	status := StatusScheduled
	_, err = f.svc.UpdateAppointment(ctx, UpdateAppointmentParams{
		AppointmentID: created.ID,
		UserID:        "u1",
		TimeZone:      "UTC",
		Type:          UpdateTypeSchedule,
		Appointment:   Patch{Status: &status},
	})
	require.NoError(t, err)
	_, after, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, after, before)
	assert.False(t, mr.Exists(summaryCacheKey(after)))
}

func TestSummaryCacheDropsSummaryComputedBeforeWrite(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	// a list starts, misses and computes its summary
	_, generation, ok, err := cache.Get(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	// a create lands while the list is still running
	require.NoError(t, cache.Invalidate(ctx))

	// the list finishes and writes what it computed
	require.NoError(t, cache.Set(ctx, generation, &AppointmentList{TotalCount: 1}))

	_, _, ok, err = cache.Get(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "summary computed before the write must not be served")
}
