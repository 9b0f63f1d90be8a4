package models

import "time"

// Situation is a persisted incident from the Datex feed, identified by the
// stable id assigned by the source. It accumulates Records over its lifetime.
type Situation struct {
	ID          string    `json:"id"`
	VersionTime time.Time `json:"version_time"`
	IsActive    bool      `json:"is_active"`
	Records     []Record  `json:"records"`
}

// Record is one versioned report attached to a Situation. A (ID, Version)
// pair is immutable once stored; new versions are appended, never replaced.
type Record struct {
	SituationID string    `json:"situation_id"`
	ID          string    `json:"id"`
	Version     int       `json:"version"`
	Type        string    `json:"type"`
	VersionTime time.Time `json:"version_time"`
	ValidFrom   time.Time `json:"valid_from"`
	ValidTo     time.Time `json:"valid_to"`
	Area        string    `json:"area"`
	Location    string    `json:"location"`
	Comment     string    `json:"comment"`
}

// RecordKey identifies a record version within a situation.
type RecordKey struct {
	ID      string
	Version int
}

// Key returns the record's identity pair.
func (r Record) Key() RecordKey {
	return RecordKey{ID: r.ID, Version: r.Version}
}
