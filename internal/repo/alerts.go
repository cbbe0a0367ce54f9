package repo

import (
	"context"
	"time"
)

// AlertRecord holds the last-known state of a test and the last time a
// notification was sent for it. Key is "<environment>/<suite.test>".
type AlertRecord struct {
	Key        string
	Failing    bool
	LastSentAt *time.Time
}

// AlertStore is implemented by a persistence layer to store alert state.
type AlertStore interface {
	// Get returns nil, nil if there's no record yet.
	Get(ctx context.Context, key string) (*AlertRecord, error)
	// Set upserts the record. If sentAt.IsZero() we store NULL for last_sent_at.
	Set(ctx context.Context, key string, failing bool, sentAt time.Time) error
}
