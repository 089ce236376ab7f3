// Package sqlite provides a SQLite-backed store driver using plain SQL.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store"
)

// Driver implements store.Driver using SQLite as the storage backend.
type Driver struct {
	db *sql.DB
}

// NewDriver creates a new SQLite-backed store.
// The dbPath can be a file path or ":memory:" for an in-memory database.
func NewDriver(dbPath string) (*Driver, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps ":memory:" databases alive across calls
	// and sidesteps writer contention in WAL-less in-memory mode.
	db.SetMaxOpenConns(1)

	d := &Driver{db: db}

	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return d, nil
}

// migrate creates the necessary tables if they don't exist.
func (d *Driver) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		approved INTEGER NOT NULL DEFAULT 1,
		deleted_at DATETIME
	);

	CREATE INDEX IF NOT EXISTS idx_messages_visible ON messages(approved, deleted_at);
	`

	_, err := d.db.Exec(schema)
	return err
}

const visibleWhere = `approved = 1 AND deleted_at IS NULL`

// FetchBatch returns up to limit visible messages starting at cursor.
func (d *Driver) FetchBatch(ctx context.Context, cursor int64, limit int, dir store.Direction, maxID int64) ([]*message.Message, error) {
	if limit <= 0 {
		return nil, nil
	}

	var query string
	args := []any{cursor}

	if dir == store.Descending {
		query = `SELECT id, content, created_at, approved, deleted_at FROM messages
			WHERE id <= ? AND ` + visibleWhere + ` ORDER BY id DESC LIMIT ?`
	} else {
		query = `SELECT id, content, created_at, approved, deleted_at FROM messages
			WHERE id >= ? AND ` + visibleWhere
		if maxID > 0 {
			query += ` AND id <= ?`
			args = append(args, maxID)
		}
		query += ` ORDER BY id ASC LIMIT ?`
	}
	args = append(args, limit)

	return d.queryMessages(ctx, query, args...)
}

// FetchNewAbove returns all visible messages with id > watermark, ascending.
func (d *Driver) FetchNewAbove(ctx context.Context, watermark int64) ([]*message.Message, error) {
	query := `SELECT id, content, created_at, approved, deleted_at FROM messages
		WHERE id > ? AND ` + visibleWhere + ` ORDER BY id ASC`
	return d.queryMessages(ctx, query, watermark)
}

// MaxID returns the highest assigned id, 0 if the store is empty.
func (d *Driver) MaxID(ctx context.Context) (int64, error) {
	var max sql.NullInt64
	err := d.db.QueryRowContext(ctx, `SELECT MAX(id) FROM messages`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max id: %w", err)
	}
	return max.Int64, nil
}

// Insert stores a message, assigning its id and creation time.
func (d *Driver) Insert(ctx context.Context, m *message.Message) (*message.Message, error) {
	if m == nil {
		return nil, fmt.Errorf("cannot insert nil message")
	}

	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := d.db.ExecContext(ctx,
		`INSERT INTO messages (content, created_at, approved) VALUES (?, ?, ?)`,
		m.Content, createdAt, m.Approved,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read inserted id: %w", err)
	}

	stored := *m
	stored.ID = id
	stored.CreatedAt = createdAt
	return &stored, nil
}

// SoftDelete hides a message from all fetch paths.
func (d *Driver) SoftDelete(ctx context.Context, id int64) error {
	res, err := d.db.ExecContext(ctx,
		`UPDATE messages SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to soft delete message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return store.NotFoundError{ID: id}
	}
	return nil
}

// Count returns the number of visible messages.
func (d *Driver) Count(ctx context.Context) (int, error) {
	var n int
	err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE `+visibleWhere).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// Ping verifies connectivity to the database.
func (d *Driver) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the underlying database.
func (d *Driver) Close() error {
	return d.db.Close()
}

func (d *Driver) queryMessages(ctx context.Context, query string, args ...any) ([]*message.Message, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var result []*message.Message
	for rows.Next() {
		var m message.Message
		var deletedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.Content, &m.CreatedAt, &m.Approved, &deletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if deletedAt.Valid {
			t := deletedAt.Time
			m.DeletedAt = &t
		}
		result = append(result, &m)
	}

	return result, rows.Err()
}
