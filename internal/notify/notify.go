package notify

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Package notify pushes key-lifecycle events to operator-configured sinks
// (webhooks) after successful mutations.

// Event is the payload sent to every notifier.
type Event struct {
	Operation  string    `json:"operation"`
	KeyID      string    `json:"key_id,omitempty"`
	KeyName    string    `json:"key_name,omitempty"`
	Server     string    `json:"server"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent constructs an Event for the given operation against server.
func NewEvent(operation, server, keyID, keyName string) Event {
	return Event{
		Operation:  operation,
		KeyID:      keyID,
		KeyName:    keyName,
		Server:     server,
		OccurredAt: time.Now().UTC(),
	}
}

// Notifier sends events to a downstream sink.
type Notifier interface {
	ID() string
	Type() string
	Notify(ctx context.Context, evt Event) error
}

// Fanout dispatches events to all configured notifiers.
type Fanout struct {
	notifiers []Notifier
}

// NewFanout builds a dispatcher that fans out events across notifiers.
func NewFanout(notifiers []Notifier) *Fanout {
	cp := make([]Notifier, 0, len(notifiers))
	for _, n := range notifiers {
		if n == nil {
			continue
		}
		cp = append(cp, n)
	}
	return &Fanout{notifiers: cp}
}

// Notify forwards the event to every registered notifier. It returns the
// number of notifiers that handled the event successfully.
func (f *Fanout) Notify(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.notifiers) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, n := range f.notifiers {
		if err := n.Notify(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s notifier[%s]: %w", n.Type(), n.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Size returns the number of active notifiers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.notifiers)
}
