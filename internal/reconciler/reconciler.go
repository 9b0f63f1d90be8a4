package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/trafikkvarsel/internal/metrics"
	"github.com/xaenox/trafikkvarsel/internal/models"
	"github.com/xaenox/trafikkvarsel/internal/storage"
	"go.uber.org/zap"
)

// SituationSource yields the current feed snapshot. An error means the
// snapshot could not be fetched or parsed, as opposed to a feed that is
// genuinely empty.
type SituationSource interface {
	Situations(ctx context.Context) ([]models.Situation, error)
}

// SyncResult reports what one sync pass did.
type SyncResult struct {
	CurrentIDs        map[string]struct{}
	AddedSituations   int
	UpdatedTimestamps int
	AddedRecords      int
}

// Reconciler merges feed snapshots into the situation store and manages
// the inactivate/expire lifecycle.
type Reconciler struct {
	store     storage.Storage
	source    SituationSource
	retention time.Duration
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(store storage.Storage, source SituationSource, retention time.Duration, m *metrics.Metrics, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		source:    source,
		retention: retention,
		metrics:   m,
		logger:    logger,
	}
}

// Sync merges the incoming snapshot into the store in one transaction and
// returns the set of situation ids observed.
func (r *Reconciler) Sync(ctx context.Context, incoming []models.Situation) (SyncResult, error) {
	result := SyncResult{CurrentIDs: make(map[string]struct{})}

	tx, err := r.store.Begin(ctx)
	if err != nil {
		return result, err
	}
	defer tx.Rollback()

	for i := range incoming {
		situation := &incoming[i]
		result.CurrentIDs[situation.ID] = struct{}{}

		existing, err := tx.FindSituation(ctx, situation.ID)
		if err != nil {
			return result, err
		}

		if existing == nil {
			// Situation does not exist in database
			if err := tx.InsertSituation(ctx, situation); err != nil {
				return result, err
			}
			result.AddedSituations++
			result.AddedRecords += len(situation.Records)
			continue
		}

		// Move the version time forward, never back.
		if existing.VersionTime.Before(situation.VersionTime) {
			if err := tx.UpdateVersionTime(ctx, situation.ID, situation.VersionTime); err != nil {
				return result, err
			}
			result.UpdatedTimestamps++
		}

		keys, err := tx.RecordKeys(ctx, situation.ID)
		if err != nil {
			return result, err
		}

		for _, record := range situation.Records {
			if _, exists := keys[record.Key()]; exists {
				continue
			}
			// Build a fresh record value instead of reusing the incoming
			// one: the incoming record belongs to a throwaway parent and
			// must not be attached to the persisted aggregate as-is.
			persisted := record
			persisted.SituationID = situation.ID
			if err := tx.AppendRecord(ctx, persisted); err != nil {
				return result, err
			}
			result.AddedRecords++
		}
	}

	if err := tx.Commit(); err != nil {
		return result, fmt.Errorf("error committing sync: %v", err)
	}

	r.logger.Debug("Sync complete",
		zap.Int("added_situations", result.AddedSituations),
		zap.Int("updated_timestamps", result.UpdatedTimestamps),
		zap.Int("added_records", result.AddedRecords))
	return result, nil
}

// MarkInactive flips is_active off for every active situation whose id was
// not observed in the current cycle and returns how many were flipped.
// It must only run after a Sync whose fetch actually succeeded.
func (r *Reconciler) MarkInactive(ctx context.Context, currentIDs map[string]struct{}) (int, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	active, err := tx.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, situation := range active {
		if _, current := currentIDs[situation.ID]; current {
			continue
		}
		if err := tx.MarkInactive(ctx, situation.ID); err != nil {
			return 0, err
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing deactivation: %v", err)
	}

	r.logger.Debug("Marked situations inactive", zap.Int("count", count))
	return count, nil
}

// Expire deletes inactive situations whose version time is older than the
// retention window, cascading to their records, and returns the count.
func (r *Reconciler) Expire(ctx context.Context, retention time.Duration) (int, error) {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ids, err := tx.ListExpiredInactive(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := tx.DeleteSituation(ctx, id); err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("error committing expiry: %v", err)
	}

	r.logger.Debug("Deleted expired situations", zap.Int("count", len(ids)))
	return len(ids), nil
}

// RunCycle runs one full reconciliation pass: fetch, sync, deactivate,
// expire. When the fetch or parse fails the cycle stops after logging: an
// empty snapshot caused by an error must not deactivate everything that is
// still on the road.
func (r *Reconciler) RunCycle(ctx context.Context) {
	cycleID := uuid.New().String()
	logger := r.logger.With(zap.String("cycle_id", cycleID))

	if stats, err := r.store.Stats(ctx); err == nil {
		logger.Info("Updating database",
			zap.Int("active_situations", stats.ActiveSituations),
			zap.Int("inactive_situations", stats.InactiveSituations),
			zap.Int("records", stats.Records))
		r.metrics.ActiveSituations.Set(float64(stats.ActiveSituations))
		r.metrics.InactiveSituations.Set(float64(stats.InactiveSituations))
		r.metrics.StoredRecords.Set(float64(stats.Records))
	}

	incoming, err := r.source.Situations(ctx)
	if err != nil {
		logger.Warn("Could not fetch or parse the situation feed", zap.Error(err))
		r.metrics.CycleErrors.Inc()
		return
	}

	result, err := r.Sync(ctx, incoming)
	if err != nil {
		logger.Warn("Sync failed, keeping previous state", zap.Error(err))
		r.metrics.CycleErrors.Inc()
		return
	}
	r.metrics.SituationsAdded.Add(float64(result.AddedSituations))
	r.metrics.TimestampsUpdated.Add(float64(result.UpdatedTimestamps))
	r.metrics.RecordsAdded.Add(float64(result.AddedRecords))

	marked, err := r.MarkInactive(ctx, result.CurrentIDs)
	if err != nil {
		logger.Warn("Deactivation failed", zap.Error(err))
		r.metrics.CycleErrors.Inc()
		return
	}
	r.metrics.MarkedInactive.Add(float64(marked))

	expired, err := r.Expire(ctx, r.retention)
	if err != nil {
		logger.Warn("Expiry failed", zap.Error(err))
		r.metrics.CycleErrors.Inc()
		return
	}
	r.metrics.Expired.Add(float64(expired))

	logger.Info("Done updating",
		zap.Int("marked_inactive", marked),
		zap.Int("expired", expired))
}

// RunEvery runs cycles at the given interval until the context is
// cancelled. Cycles never overlap: the next tick waits for the previous
// pass to finish.
func (r *Reconciler) RunEvery(ctx context.Context, interval time.Duration) {
	r.RunCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunCycle(ctx)
		}
	}
}
