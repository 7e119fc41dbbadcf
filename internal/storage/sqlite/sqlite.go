// Package sqlite implements the persistence gateway on SQLite. Entity records
// live in a single documents table as JSON field maps keyed by (collection,
// id); accounts have their own users table with unique constraints.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/folio-dev/folio/internal/storage"
	"github.com/folio-dev/folio/internal/storage/sqlite/migrations"
	"github.com/folio-dev/folio/pkg/schema"
)

// Store implements storage.Store on a single SQLite database.
type Store struct {
	db *sql.DB
}

// New opens (or creates) the database at path, applies PRAGMAs, and migrates
// the schema. path may be ":memory:" for tests.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// --- DocumentStore ---

func (s *Store) Insert(ctx context.Context, collection string, fields map[string]any) (schema.Record, error) {
	if fields == nil {
		fields = map[string]any{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return schema.Record{}, fmt.Errorf("encoding fields: %w", err)
	}

	rec := schema.Record{
		ID:        uuid.NewString(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
	rec.UpdatedAt = rec.CreatedAt

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (id, collection, fields, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, collection, string(encoded), rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return schema.Record{}, fmt.Errorf("inserting into %s: %w", collection, err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (schema.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	return scanRecord(row)
}

func (s *Store) List(ctx context.Context, collection string, opts storage.ListOptions) ([]schema.Record, error) {
	query := `SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ?` +
		orderClause(opts.SortKey)

	args := []any{collection}
	if opts.Limit > 0 || opts.Offset > 0 {
		limit := opts.Limit
		if limit == 0 {
			limit = -1 // SQLite: no limit, offset still applies
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", collection, err)
	}
	defer rows.Close()

	records := []schema.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *Store) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = ?`, collection).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", collection, err)
	}
	return n, nil
}

func (s *Store) Update(ctx context.Context, collection, id string, fields map[string]any) (schema.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.Record{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	rec, err := scanRecord(row)
	if err != nil {
		return schema.Record{}, err
	}

	for k, v := range fields {
		rec.Fields[k] = v
	}
	encoded, err := json.Marshal(rec.Fields)
	if err != nil {
		return schema.Record{}, fmt.Errorf("encoding fields: %w", err)
	}

	now := time.Now().UTC()
	if !now.After(rec.UpdatedAt) {
		now = rec.UpdatedAt.Add(time.Microsecond)
	}
	rec.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = ? WHERE collection = ? AND id = ?`,
		string(encoded), now, collection, id)
	if err != nil {
		return schema.Record{}, fmt.Errorf("updating %s/%s: %w", collection, id, err)
	}
	return rec, tx.Commit()
}

func (s *Store) Delete(ctx context.Context, collection, id string) (schema.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return schema.Record{}, err
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT id, fields, created_at, updated_at FROM documents WHERE collection = ? AND id = ?`,
		collection, id)
	rec, err := scanRecord(row)
	if err != nil {
		return schema.Record{}, err
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id); err != nil {
		return schema.Record{}, fmt.Errorf("deleting %s/%s: %w", collection, id, err)
	}
	return rec, tx.Commit()
}

func (s *Store) DeleteAll(ctx context.Context, collection string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ?`, collection)
	if err != nil {
		return 0, fmt.Errorf("purging %s: %w", collection, err)
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// --- UserStore ---

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string, role schema.Role) (storage.User, error) {
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

	// Accounts without an email store NULL so the unique index does not
	// collide on the empty string.
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, role, created_at, updated_at)
		 VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?)`,
		user.ID, user.Username, user.Email, user.PasswordHash, string(user.Role),
		user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return storage.User{}, translateUserError(err)
	}
	return user, nil
}

func (s *Store) UserByID(ctx context.Context, id string) (storage.User, error) {
	return s.userBy(ctx, `id = ?`, id)
}

func (s *Store) UserByUsername(ctx context.Context, username string) (storage.User, error) {
	return s.userBy(ctx, `username = ?`, username)
}

func (s *Store) SetRole(ctx context.Context, id string, role schema.Role) (storage.User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`, string(role), now, id)
	if err != nil {
		return storage.User{}, fmt.Errorf("updating role: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.User{}, storage.ErrNotFound
	}
	return s.UserByID(ctx, id)
}

func (s *Store) userBy(ctx context.Context, where string, arg any) (storage.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, username, COALESCE(email, ''), password_hash, role, created_at, updated_at FROM users WHERE `+where,
		arg)

	var u storage.User
	var role string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return storage.User{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.User{}, fmt.Errorf("scanning user: %w", err)
	}
	u.Role = schema.Role(role)
	return u, nil
}

// --- helpers ---

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (schema.Record, error) {
	var rec schema.Record
	var encoded string
	err := row.Scan(&rec.ID, &encoded, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return schema.Record{}, storage.ErrNotFound
	}
	if err != nil {
		return schema.Record{}, fmt.Errorf("scanning record: %w", err)
	}
	if err := json.Unmarshal([]byte(encoded), &rec.Fields); err != nil {
		return schema.Record{}, fmt.Errorf("decoding fields: %w", err)
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	return rec, nil
}

// orderClause maps a sort key ("-createdAt", "order", ...) to SQL. Sort keys
// come from server-side entity configuration, never from request input, but
// unknown characters are stripped all the same.
func orderClause(sortKey string) string {
	if sortKey == "" {
		sortKey = "-createdAt"
	}
	dir := " ASC"
	if strings.HasPrefix(sortKey, "-") {
		sortKey = sortKey[1:]
		dir = " DESC"
	}

	switch sortKey {
	case "createdAt":
		return ` ORDER BY created_at` + dir
	case "updatedAt":
		return ` ORDER BY updated_at` + dir
	}

	var clean strings.Builder
	for _, r := range sortKey {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			clean.WriteRune(r)
		}
	}
	return fmt.Sprintf(` ORDER BY json_extract(fields, '$.%s')%s`, clean.String(), dir)
}

// translateUserError converts SQLite unique-constraint failures into the
// gateway's DuplicateError so the HTTP layer can name the offending field.
func translateUserError(err error) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) && sqErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		msg := sqErr.Error()
		switch {
		case strings.Contains(msg, "users.username"):
			return &storage.DuplicateError{Field: "Username"}
		case strings.Contains(msg, "users.email"):
			return &storage.DuplicateError{Field: "Email"}
		}
		return &storage.DuplicateError{Field: "Value"}
	}
	return err
}
