// Package database provides shared timeout conventions for store access.
// Repositories bound their own statements with these so a stalled database
// never holds a request or a retry sweep open indefinitely.
package database

import (
	"context"
	"time"
)

const (
	// DefaultQueryTimeout bounds single-row and list reads.
	DefaultQueryTimeout = 5 * time.Second

	// DefaultWriteTimeout bounds inserts and upserts.
	DefaultWriteTimeout = 10 * time.Second

	// DefaultBulkTimeout bounds batch operations such as archive indexing.
	DefaultBulkTimeout = 30 * time.Second
)

// QueryContext derives a context bounded by DefaultQueryTimeout.
func QueryContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultQueryTimeout)
}

// WriteContext derives a context bounded by DefaultWriteTimeout.
func WriteContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultWriteTimeout)
}

// BulkContext derives a context bounded by DefaultBulkTimeout.
func BulkContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, DefaultBulkTimeout)
}
