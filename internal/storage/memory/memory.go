// Package memory implements the persistence gateway on plain maps. It backs
// unit tests and carries no durability; the SQLite implementation is the one
// a running server uses.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/folio-dev/folio/internal/storage"
	"github.com/folio-dev/folio/pkg/schema"
)

// Store is a thread-safe in-memory implementation of storage.Store.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]schema.Record
	users       map[string]storage.User
}

func New() *Store {
	return &Store{
		collections: make(map[string]map[string]schema.Record),
		users:       make(map[string]storage.User),
	}
}

func (s *Store) Close() error { return nil }

// --- DocumentStore ---

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	rec := schema.Record{
		ID:        uuid.NewString(),
		Fields:    copyFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]schema.Record)
	}
	s.collections[collection][rec.ID] = rec
	return copyRecord(rec), nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (schema.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return schema.Record{}, storage.ErrNotFound
	}
	return copyRecord(rec), nil
}

func (s *Store) List(ctx context.Context, collection string, opts storage.ListOptions) ([]schema.Record, error) {
	s.mu.RLock()
	records := []schema.Record{}
	for _, rec := range s.collections[collection] {
		records = append(records, copyRecord(rec))
	}
	s.mu.RUnlock()

	sortRecords(records, opts.SortKey)

	if opts.Offset > 0 {
		if opts.Offset >= len(records) {
			return []schema.Record{}, nil
		}
		records = records[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(records) {
		records = records[:opts.Limit]
	}
	return records, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection]), nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) (schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return schema.Record{}, storage.ErrNotFound
	}

	merged := copyRecord(rec)
	for k, v := range fields {
		merged.Fields[k] = v
	}

	now := time.Now().UTC()
	if !now.After(merged.UpdatedAt) {
		now = merged.UpdatedAt.Add(time.Microsecond)
	}
	merged.UpdatedAt = now

	s.collections[collection][id] = merged
	return copyRecord(merged), nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) (schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.collections[collection][id]
	if !ok {
		return schema.Record{}, storage.ErrNotFound
	}
	delete(s.collections[collection], id)
	return copyRecord(rec), nil
}

func (s *Store) DeleteAll(ctx context.Context, collection string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.collections[collection])
	delete(s.collections, collection)
	return n, nil
}

// --- UserStore ---

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string, role schema.Role) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return storage.User{}, &storage.DuplicateError{Field: "Username"}
		}
		if email != "" && strings.EqualFold(u.Email, email) {
			return storage.User{}, &storage.DuplicateError{Field: "Email"}
		}
	}

	now := time.Now().UTC()
	user := storage.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	return user, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return storage.User{}, storage.ErrNotFound
}

func (s *Store) SetRole(ctx context.Context, id string, role schema.Role) (storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[id]
	if !ok {
		return storage.User{}, storage.ErrNotFound
	}
	user.Role = role
	user.UpdatedAt = time.Now().UTC()
	s.users[id] = user
	return user, nil
}

// --- helpers ---

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		if arr, ok := v.([]string); ok {
			v = append([]string(nil), arr...)
		}
		out[k] = v
	}
	return out
}

func copyRecord(rec schema.Record) schema.Record {
	rec.Fields = copyFields(rec.Fields)
	return rec
}

func sortRecords(records []schema.Record, sortKey string) {
	if sortKey == "" {
		sortKey = "-createdAt"
	}
	desc := strings.HasPrefix(sortKey, "-")
	key := strings.TrimPrefix(sortKey, "-")

	sort.SliceStable(records, func(i, j int) bool {
		less := recordLess(records[i], records[j], key)
		if desc {
			return recordLess(records[j], records[i], key)
		}
		return less
	})
}

func recordLess(a, b schema.Record, key string) bool {
	switch key {
	case "createdAt":
		return a.CreatedAt.Before(b.CreatedAt)
	case "updatedAt":
		return a.UpdatedAt.Before(b.UpdatedAt)
	}

	av, bv := a.Field(key), b.Field(key)
	if af, ok := av.(float64); ok {
		if bf, ok := bv.(float64); ok {
			return af < bf
		}
	}
	return fmt.Sprint(av) < fmt.Sprint(bv)
}
