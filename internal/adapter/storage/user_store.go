package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

func (m *SQLAdapter) CreateUser(ctx context.Context, username string, isStaff bool, tokenHash string) (domain.User, error) {
	now := m.now()
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO users (username, is_staff, token_hash, created_at)
		VALUES (?, ?, ?, ?)`,
		username, isStaff, tokenHash, formatTime(now),
	)
	if err != nil {
		return domain.User{}, fmt.Errorf("insert user %q: %w", username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.User{}, fmt.Errorf("user id: %w", err)
	}
	return domain.User{ID: id, Username: username, IsStaff: isStaff, CreatedAt: now}, nil
}

// DeleteUser removes the user's order items, orders and the user itself in
// one transaction.
func (m *SQLAdapter) DeleteUser(ctx context.Context, id int64) error {
	return m.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			DELETE FROM order_items
			WHERE order_id IN (SELECT order_id FROM orders WHERE user_id = ?)`, id)
		if err != nil {
			return fmt.Errorf("delete order items of user %d: %w", id, err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE user_id = ?`, id); err != nil {
			return fmt.Errorf("delete orders of user %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete user %d: %w", id, err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (m *SQLAdapter) UserByTokenHash(ctx context.Context, tokenHash string) (domain.User, error) {
	var u domain.User
	err := m.db.QueryRowContext(ctx, `
		SELECT id, username, is_staff, created_at
		FROM users WHERE token_hash = ?`, tokenHash,
	).Scan(&u.ID, &u.Username, &u.IsStaff, scanTime(&u.CreatedAt))

	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}
