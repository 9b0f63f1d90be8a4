package storage

import (
	"context"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

// Storage provides access to the persisted situation store. All mutations
// go through a Tx so one reconciliation cycle commits atomically.
type Storage interface {
	Begin(ctx context.Context) (Tx, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}

// Tx is a single commit boundary over the situation store. Rollback after
// Commit is a no-op, so callers can defer it unconditionally.
type Tx interface {
	// FindSituation returns the situation without its records, or nil when
	// no situation with that id exists.
	FindSituation(ctx context.Context, id string) (*models.Situation, error)
	// RecordKeys returns the (id, version) pairs already stored for a situation.
	RecordKeys(ctx context.Context, situationID string) (map[models.RecordKey]struct{}, error)
	InsertSituation(ctx context.Context, situation *models.Situation) error
	UpdateVersionTime(ctx context.Context, id string, versionTime time.Time) error
	AppendRecord(ctx context.Context, record models.Record) error
	// ListActive returns all situations with is_active=true, without records.
	ListActive(ctx context.Context) ([]models.Situation, error)
	MarkInactive(ctx context.Context, id string) error
	// ListExpiredInactive returns ids of inactive situations whose version
	// time is older than the given cutoff.
	ListExpiredInactive(ctx context.Context, before time.Time) ([]string, error)
	// DeleteSituation removes a situation and cascades to its records.
	DeleteSituation(ctx context.Context, id string) error
	Commit() error
	Rollback() error
}

// Stats summarizes the store for the cycle log line.
type Stats struct {
	ActiveSituations   int
	InactiveSituations int
	Records            int
}
