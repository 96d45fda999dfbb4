package ports

// Package ports defines interfaces (hexagonal ports) for session-related behavior.
// Implementations live in internal/adapters and internal/data; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/akmalstorm/stdcalumni/internal/domain/auth"
)

// RecordStore is durable string key/value storage partitioned by visitor scope.
// Store and Remove must apply all given keys atomically.
type RecordStore interface {
	// Load returns every field stored under scope. A missing scope yields an empty map.
	Load(ctx context.Context, scope string) (map[string]string, error)
	// Store writes fields under scope, leaving other keys untouched.
	Store(ctx context.Context, scope string, fields map[string]string) error
	// Remove deletes keys under scope. Missing keys are ignored.
	Remove(ctx context.Context, scope string, keys ...string) error
}

// ProfileSource fetches the authoritative profile record for a user.
type ProfileSource interface {
	FetchProfile(ctx context.Context, id domainauth.UserID) (domainauth.UserInfo, error)
}

// RecordPurger deletes persisted records whose expiry has passed.
type RecordPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}
