package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/trafikkvarsel/internal/models"
)

// MemoryStorage keeps situations in process memory. It backs tests and the
// use_in_memory configuration; a Tx stages its changes on a copy of the map
// and swaps it in on Commit, so a failed cycle leaves nothing behind.
type MemoryStorage struct {
	mu         sync.Mutex
	situations map[string]*models.Situation
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		situations: make(map[string]*models.Situation),
	}
}

func (s *MemoryStorage) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Copy-on-write snapshot for the transaction to mutate.
	staged := make(map[string]*models.Situation, len(s.situations))
	for id, situation := range s.situations {
		clone := *situation
		clone.Records = append([]models.Record(nil), situation.Records...)
		staged[id] = &clone
	}
	return &memoryTx{storage: s, staged: staged}, nil
}

func (s *MemoryStorage) Stats(ctx context.Context) (Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats Stats
	for _, situation := range s.situations {
		if situation.IsActive {
			stats.ActiveSituations++
		} else {
			stats.InactiveSituations++
		}
		stats.Records += len(situation.Records)
	}
	return stats, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

type memoryTx struct {
	storage *MemoryStorage
	staged  map[string]*models.Situation
	done    bool
}

func (t *memoryTx) FindSituation(ctx context.Context, id string) (*models.Situation, error) {
	situation, exists := t.staged[id]
	if !exists {
		return nil, nil
	}
	found := *situation
	found.Records = nil
	return &found, nil
}

func (t *memoryTx) RecordKeys(ctx context.Context, situationID string) (map[models.RecordKey]struct{}, error) {
	keys := make(map[models.RecordKey]struct{})
	if situation, exists := t.staged[situationID]; exists {
		for _, record := range situation.Records {
			keys[record.Key()] = struct{}{}
		}
	}
	return keys, nil
}

func (t *memoryTx) InsertSituation(ctx context.Context, situation *models.Situation) error {
	if _, exists := t.staged[situation.ID]; exists {
		return fmt.Errorf("situation %s already exists", situation.ID)
	}
	clone := *situation
	clone.Records = make([]models.Record, len(situation.Records))
	for i, record := range situation.Records {
		record.SituationID = situation.ID
		clone.Records[i] = record
	}
	t.staged[situation.ID] = &clone
	return nil
}

func (t *memoryTx) UpdateVersionTime(ctx context.Context, id string, versionTime time.Time) error {
	situation, exists := t.staged[id]
	if !exists {
		return fmt.Errorf("situation %s not found", id)
	}
	situation.VersionTime = versionTime
	return nil
}

func (t *memoryTx) AppendRecord(ctx context.Context, record models.Record) error {
	situation, exists := t.staged[record.SituationID]
	if !exists {
		return fmt.Errorf("situation %s not found", record.SituationID)
	}
	situation.Records = append(situation.Records, record)
	return nil
}

func (t *memoryTx) ListActive(ctx context.Context) ([]models.Situation, error) {
	var situations []models.Situation
	for _, situation := range t.staged {
		if situation.IsActive {
			active := *situation
			active.Records = nil
			situations = append(situations, active)
		}
	}
	return situations, nil
}

func (t *memoryTx) MarkInactive(ctx context.Context, id string) error {
	situation, exists := t.staged[id]
	if !exists {
		return fmt.Errorf("situation %s not found", id)
	}
	situation.IsActive = false
	return nil
}

func (t *memoryTx) ListExpiredInactive(ctx context.Context, before time.Time) ([]string, error) {
	var ids []string
	for id, situation := range t.staged {
		if !situation.IsActive && situation.VersionTime.Before(before) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *memoryTx) DeleteSituation(ctx context.Context, id string) error {
	delete(t.staged, id)
	return nil
}

func (t *memoryTx) Commit() error {
	t.storage.mu.Lock()
	defer t.storage.mu.Unlock()

	t.storage.situations = t.staged
	t.done = true
	return nil
}

func (t *memoryTx) Rollback() error {
	// Discard the staged copy; committed transactions keep their swap.
	return nil
}
