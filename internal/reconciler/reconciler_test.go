package reconciler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/trafikkvarsel/internal/metrics"
	"github.com/xaenox/trafikkvarsel/internal/models"
	"github.com/xaenox/trafikkvarsel/internal/storage"
	"go.uber.org/zap"
)

type stubSource struct {
	situations []models.Situation
	err        error
}

func (s *stubSource) Situations(ctx context.Context) ([]models.Situation, error) {
	return s.situations, s.err
}

func newTestReconciler(store storage.Storage, source SituationSource) *Reconciler {
	return New(store, source, 7*24*time.Hour, metrics.New(prometheus.NewRegistry()), zap.NewNop())
}

func situationFixture(id string, versionTime time.Time, records ...models.Record) models.Situation {
	return models.Situation{
		ID:          id,
		VersionTime: versionTime,
		IsActive:    true,
		Records:     records,
	}
}

func recordFixture(id string, version int, versionTime time.Time) models.Record {
	return models.Record{
		ID:          id,
		Version:     version,
		Type:        "VehicleObstruction",
		VersionTime: versionTime,
		ValidFrom:   versionTime,
		ValidTo:     versionTime.Add(24 * time.Hour),
		Area:        "Oslo",
		Location:    "E6",
		Comment:     "Kø",
	}
}

func storedSituation(t *testing.T, store storage.Storage, id string) *models.Situation {
	t.Helper()
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	situation, err := tx.FindSituation(context.Background(), id)
	require.NoError(t, err)
	return situation
}

func storedRecordCount(t *testing.T, store storage.Storage, id string) int {
	t.Helper()
	tx, err := store.Begin(context.Background())
	require.NoError(t, err)
	defer tx.Rollback()
	keys, err := tx.RecordKeys(context.Background(), id)
	require.NoError(t, err)
	return len(keys)
}

func TestSyncInsertsNewSituations(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC().Truncate(time.Second)

	incoming := []models.Situation{
		situationFixture("s1", now, recordFixture("r1", 1, now)),
	}

	result, err := rec.Sync(context.Background(), incoming)
	require.NoError(t, err)
	assert.Equal(t, 1, result.AddedSituations)
	assert.Equal(t, 1, result.AddedRecords)
	assert.Contains(t, result.CurrentIDs, "s1")

	stored := storedSituation(t, store, "s1")
	require.NotNil(t, stored)
	assert.True(t, stored.IsActive)
}

func TestSyncIsIdempotent(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC().Truncate(time.Second)

	incoming := []models.Situation{
		situationFixture("s1", now, recordFixture("r1", 1, now), recordFixture("r1", 2, now)),
	}

	_, err := rec.Sync(context.Background(), incoming)
	require.NoError(t, err)

	result, err := rec.Sync(context.Background(), incoming)
	require.NoError(t, err)
	assert.Zero(t, result.AddedSituations)
	assert.Zero(t, result.AddedRecords)
	assert.Zero(t, result.UpdatedTimestamps)
	assert.Equal(t, 2, storedRecordCount(t, store, "s1"))
}

func TestSyncAccumulatesRecordVersions(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := rec.Sync(context.Background(), []models.Situation{
		situationFixture("s1", now, recordFixture("r1", 1, now)),
	})
	require.NoError(t, err)

	// Next snapshot carries a new version of the same record; the old
	// version must survive as history.
	result, err := rec.Sync(context.Background(), []models.Situation{
		situationFixture("s1", now.Add(time.Minute), recordFixture("r1", 2, now.Add(time.Minute))),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AddedRecords)
	assert.Equal(t, 2, storedRecordCount(t, store, "s1"))
}

func TestSyncDoesNotRegressVersionTime(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := rec.Sync(context.Background(), []models.Situation{situationFixture("s1", now)})
	require.NoError(t, err)

	result, err := rec.Sync(context.Background(), []models.Situation{
		situationFixture("s1", now.Add(-time.Hour)),
	})
	require.NoError(t, err)
	assert.Zero(t, result.UpdatedTimestamps)

	stored := storedSituation(t, store, "s1")
	assert.Equal(t, now, stored.VersionTime)
}

func TestSyncAdvancesVersionTime(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := rec.Sync(context.Background(), []models.Situation{situationFixture("s1", now)})
	require.NoError(t, err)

	result, err := rec.Sync(context.Background(), []models.Situation{
		situationFixture("s1", now.Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.UpdatedTimestamps)

	stored := storedSituation(t, store, "s1")
	assert.Equal(t, now.Add(time.Hour), stored.VersionTime)
}

func TestMarkInactiveFlipsVanishedSituations(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC().Truncate(time.Second)

	_, err := rec.Sync(context.Background(), []models.Situation{
		situationFixture("s1", now),
		situationFixture("s2", now),
	})
	require.NoError(t, err)

	// Next cycle only observes s2.
	result, err := rec.Sync(context.Background(), []models.Situation{situationFixture("s2", now)})
	require.NoError(t, err)

	count, err := rec.MarkInactive(context.Background(), result.CurrentIDs)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.False(t, storedSituation(t, store, "s1").IsActive)
	assert.True(t, storedSituation(t, store, "s2").IsActive)
}

func TestExpireDeletesOldInactiveSituations(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	old := time.Now().UTC().Add(-8 * 24 * time.Hour)

	_, err := rec.Sync(context.Background(), []models.Situation{
		situationFixture("s1", old, recordFixture("r1", 1, old)),
	})
	require.NoError(t, err)

	_, err = rec.MarkInactive(context.Background(), map[string]struct{}{})
	require.NoError(t, err)

	count, err := rec.Expire(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Nil(t, storedSituation(t, store, "s1"))
	assert.Zero(t, storedRecordCount(t, store, "s1"))
}

func TestExpireKeepsRecentInactiveSituations(t *testing.T) {
	store := storage.NewMemoryStorage()
	rec := newTestReconciler(store, nil)
	now := time.Now().UTC()

	_, err := rec.Sync(context.Background(), []models.Situation{situationFixture("s1", now)})
	require.NoError(t, err)
	_, err = rec.MarkInactive(context.Background(), map[string]struct{}{})
	require.NoError(t, err)

	count, err := rec.Expire(context.Background(), 7*24*time.Hour)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NotNil(t, storedSituation(t, store, "s1"))
}

func TestRunCycleSkipsDeactivationOnFetchError(t *testing.T) {
	store := storage.NewMemoryStorage()
	now := time.Now().UTC().Truncate(time.Second)

	seed := newTestReconciler(store, nil)
	_, err := seed.Sync(context.Background(), []models.Situation{situationFixture("s1", now)})
	require.NoError(t, err)

	// A failed fetch yields an empty snapshot; deactivating everything on
	// that evidence would be wrong, so the cycle must stop early.
	rec := newTestReconciler(store, &stubSource{err: fmt.Errorf("connection refused")})
	rec.RunCycle(context.Background())

	assert.True(t, storedSituation(t, store, "s1").IsActive)
}

func TestRunCycleDeactivatesOnLegitimatelyEmptyFeed(t *testing.T) {
	store := storage.NewMemoryStorage()
	now := time.Now().UTC().Truncate(time.Second)

	seed := newTestReconciler(store, nil)
	_, err := seed.Sync(context.Background(), []models.Situation{situationFixture("s1", now)})
	require.NoError(t, err)

	rec := newTestReconciler(store, &stubSource{situations: nil})
	rec.RunCycle(context.Background())

	assert.False(t, storedSituation(t, store, "s1").IsActive)
}

func TestRunCycleFullPass(t *testing.T) {
	store := storage.NewMemoryStorage()
	now := time.Now().UTC().Truncate(time.Second)

	source := &stubSource{situations: []models.Situation{
		situationFixture("s1", now, recordFixture("r1", 1, now)),
	}}
	rec := newTestReconciler(store, source)

	rec.RunCycle(context.Background())

	stored := storedSituation(t, store, "s1")
	require.NotNil(t, stored)
	assert.True(t, stored.IsActive)
	assert.Equal(t, 1, storedRecordCount(t, store, "s1"))
}
