package models

import "time"

// Status is the coarse lifecycle of a thread. The values are ordered so
// threads can be compared by how far along they are.
type Status int

const (
	StatusNew Status = iota + 1
	StatusFixing
	StatusDone
)

func (s Status) String() string {
	switch s {
	case StatusNew:
		return "new"
	case StatusFixing:
		return "fixing"
	case StatusDone:
		return "done"
	}
	return "unknown"
}

// Message is a single timestamped text in a thread. Text holds the display
// form: location prefix stripped, leading punctuation trimmed, first
// character capitalized.
type Message struct {
	CreatedAt time.Time `json:"created_at"`
	Text      string    `json:"text"`
}
