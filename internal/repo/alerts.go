package repo

import (
	"context"
	"time"
)

// AlertRecord holds last-known state and the last time we sent a notification
// for a probe. LastState is the last healthy/unhealthy state we saw,
// LastSentAt is the last time we sent a notification (used for cooldown).
type AlertRecord struct {
	Probe      string
	LastState  bool
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, probe string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() we store NULL for last_sent_at.
	Set(ctx context.Context, probe string, lastState bool, sentAt time.Time) error
}
