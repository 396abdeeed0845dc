package journal

import (
	"strings"
	"time"
)

// Package journal keeps a local record of the access keys this client has
// observed, so operators can review what they manage without hitting the API.

// Entry is one observed access key.
type Entry struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Operation string    `json:"operation"`
	SeenAt    time.Time `json:"seen_at"`
}

// Journal stores observed access keys.
type Journal interface {
	Close() error
	RecordKey(entry Entry) error
	DeleteKey(id string) error
	Keys() ([]Entry, error)
}

// New creates the configured journal backend. An empty path disables the
// journal entirely.
func New(path string) (Journal, error) {
	if strings.TrimSpace(path) == "" {
		return noopJournal{}, nil
	}
	return openBolt(path)
}

type noopJournal struct{}

func (noopJournal) Close() error           { return nil }
func (noopJournal) RecordKey(Entry) error  { return nil }
func (noopJournal) DeleteKey(string) error { return nil }
func (noopJournal) Keys() ([]Entry, error) { return nil, nil }
