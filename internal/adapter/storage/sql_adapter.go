package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLAdapter implements the product, order and user repositories on top of
// database/sql. The same queries run on MySQL and SQLite.
type SQLAdapter struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
}

func NewSQLAdapter(db *sql.DB, dialect Dialect) *SQLAdapter {
	return &SQLAdapter{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Migrate applies the dialect schema. Every statement is idempotent.
func (m *SQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range m.dialect.Schema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply %s schema: %w", m.dialect.Name, err)
		}
	}
	return nil
}

func (m *SQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// withTx runs fn in a transaction, committing only when fn returns nil.
func (m *SQLAdapter) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const likeEscape = '!'

// containsPattern builds a lower-cased LIKE pattern matching s anywhere,
// with LIKE metacharacters escaped by likeEscape.
func containsPattern(s string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
