// Package selection remembers the site an employee picked after the geofence
// engine asked them to choose between co-located sites. A choice is consumed
// by the next check-in and expires on its own.
package selection

import (
	"context"
	"time"

	id "anima/pkg/domain"
)

// DefaultTTL bounds how long a pending choice survives.
const DefaultTTL = 2 * time.Minute

// Store holds at most one pending choice per user.
type Store interface {
	Put(ctx context.Context, userID id.UserID, siteID id.SiteID, ttl time.Duration) error
	// Take returns and removes the pending choice, or sentinel.ErrNotFound.
	Take(ctx context.Context, userID id.UserID) (id.SiteID, error)
}
