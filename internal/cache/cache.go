// Package cache holds short lived session snapshots so answer submissions skip a
// MongoDB round trip.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON values. A miss is (false, nil); corrupt entries count as misses.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SessionKey is the snapshot key of one interview session.
func SessionKey(sessionID string) string {
	return "interview:" + sessionID + ":snapshot"
}
