// Package storage defines the persistence gateway contracts for the Folio
// server. Handlers depend on these interfaces only; the SQLite implementation
// lives in storage/sqlite and an in-memory one for tests in storage/memory.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/folio-dev/folio/pkg/schema"
)

// ErrNotFound is returned when a record or user does not exist.
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a unique-constraint violation on the named field.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate value for field %s", e.Field)
}

// ValidationError reports a field that failed a persistence-level check.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ListOptions controls ordering and windowing of a collection listing.
// A zero Limit means no limit.
type ListOptions struct {
	// SortKey is a field name, optionally prefixed with "-" for descending
	// order. "createdAt" and "updatedAt" address the record timestamps; any
	// other name addresses an entity field.
	SortKey string
	Offset  int
	Limit   int
}

// DocumentStore is the generic persistence gateway. Every entity family maps
// to one collection; records are identified by store-generated opaque IDs.
type DocumentStore interface {
	// Insert persists a new record and returns it with its assigned ID and
	// timestamps. It never partially persists.
	Insert(ctx context.Context, collection string, fields map[string]any) (schema.Record, error)

	// Get fetches one record by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string) (schema.Record, error)

	// List returns records ordered and windowed per opts. The result is never
	// nil.
	List(ctx context.Context, collection string, opts ListOptions) ([]schema.Record, error)

	// Count returns the number of records in the collection.
	Count(ctx context.Context, collection string) (int, error)

	// Update merges the given fields into an existing record and bumps its
	// updatedAt timestamp. The caller decides which fields are meaningful;
	// every field passed here is written. Returns the updated record.
	Update(ctx context.Context, collection, id string, fields map[string]any) (schema.Record, error)

	// Delete removes one record and returns its pre-deletion snapshot.
	Delete(ctx context.Context, collection, id string) (schema.Record, error)

	// DeleteAll removes every record in the collection and reports how many
	// were deleted.
	DeleteAll(ctx context.Context, collection string) (int, error)
}

// User is the persisted account record. PasswordHash never leaves the server.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         schema.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Public strips the credential for wire transport.
func (u User) Public() schema.User {
	return schema.User{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// UserStore manages accounts. Username and email are unique; violations are
// reported as *DuplicateError.
type UserStore interface {
	CreateUser(ctx context.Context, username, email, passwordHash string, role schema.Role) (User, error)
	UserByID(ctx context.Context, id string) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	SetRole(ctx context.Context, id string, role schema.Role) (User, error)
}

// Store is the full gateway a running server needs.
type Store interface {
	DocumentStore
	UserStore
	Close() error
}
