package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

// itemBatchSize bounds the IN list when loading items for many orders.
const itemBatchSize = 500

func (m *SQLAdapter) CreateOrder(ctx context.Context, order domain.NewOrder) (domain.Order, error) {
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO orders (order_id, user_id, status, created_at)
			VALUES (?, ?, ?, ?)`,
			order.ID.String(), order.UserID, string(order.Status), formatTime(order.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return insertItems(ctx, tx, order.ID, order.Lines)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return m.GetOrder(ctx, order.ID)
}

func (m *SQLAdapter) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT order_id, user_id, status, created_at
		FROM orders WHERE order_id = ?`, id.String())

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	orders := []domain.Order{o}
	if err := m.loadItems(ctx, orders); err != nil {
		return domain.Order{}, err
	}
	return orders[0], nil
}

func (m *SQLAdapter) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	where, args := compileOrderFilter(filter)

	rows, err := m.db.QueryContext(ctx, `
		SELECT order_id, user_id, status, created_at
		FROM orders`+where+`
		ORDER BY created_at ASC, order_id ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		orders = append(orders, o)
	}
	// Close before loading items: SQLite runs on a single connection.
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if err := m.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (m *SQLAdapter) UpdateOrder(ctx context.Context, id uuid.UUID, update domain.OrderUpdate) (domain.Order, error) {
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM orders WHERE order_id = ?`, id.String()).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lookup order %s: %w", id, err)
		}

		if update.Status != nil {
			if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = ? WHERE order_id = ?`,
				string(*update.Status), id.String()); err != nil {
				return fmt.Errorf("update order status %s: %w", id, err)
			}
		}

		if update.Lines != nil {
			if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id.String()); err != nil {
				return fmt.Errorf("clear order items %s: %w", id, err)
			}
			return insertItems(ctx, tx, id, update.Lines)
		}
		return nil
	})
	if err != nil {
		return domain.Order{}, err
	}
	return m.GetOrder(ctx, id)
}

func (m *SQLAdapter) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id.String()); err != nil {
			return fmt.Errorf("delete order items %s: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE order_id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete order %s: %w", id, err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

// insertItems verifies every referenced product exists, then inserts the lines.
func insertItems(ctx context.Context, tx *sql.Tx, orderID uuid.UUID, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	ids := make([]any, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM products WHERE id IN (`+placeholders(len(ids))+`)`, ids...)
	if err != nil {
		return fmt.Errorf("lookup products: %w", err)
	}
	found := make(map[int64]struct{}, len(ids))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scan product id: %w", err)
		}
		found[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate product ids: %w", err)
	}

	missing := &domain.ValidationError{}
	for _, l := range lines {
		if _, ok := found[l.ProductID]; !ok {
			missing.Add("items", fmt.Sprintf("Invalid pk %q - object does not exist.", fmt.Sprint(l.ProductID)))
		}
	}
	if err := missing.OrNil(); err != nil {
		return err
	}

	values := make([]string, len(lines))
	args := make([]any, 0, len(lines)*3)
	for i, l := range lines {
		values[i] = "(?, ?, ?)"
		args = append(args, orderID.String(), l.ProductID, l.Quantity)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_items (order_id, product_id, quantity) VALUES `+strings.Join(values, ", "),
		args...); err != nil {
		return fmt.Errorf("insert order items: %w", err)
	}
	return nil
}

// loadItems fills Items for all orders with one joined query per batch of
// itemBatchSize orders.
func (m *SQLAdapter) loadItems(ctx context.Context, orders []domain.Order) error {
	index := make(map[uuid.UUID]int, len(orders))
	for i := range orders {
		orders[i].Items = []domain.OrderItem{}
		index[orders[i].ID] = i
	}

	for start := 0; start < len(orders); start += itemBatchSize {
		end := min(start+itemBatchSize, len(orders))

		args := make([]any, 0, end-start)
		for _, o := range orders[start:end] {
			args = append(args, o.ID.String())
		}

		if err := m.loadItemBatch(ctx, orders, index, args); err != nil {
			return err
		}
	}
	return nil
}

func (m *SQLAdapter) loadItemBatch(ctx context.Context, orders []domain.Order, index map[uuid.UUID]int, ids []any) error {
	rows, err := m.db.QueryContext(ctx, `
		SELECT oi.order_id, oi.quantity,
		       p.id, p.name, p.description, p.price, p.stock, p.image, p.created_at, p.updated_at
		FROM order_items oi
		JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (`+placeholders(len(ids))+`)
		ORDER BY oi.id ASC`, ids...)
	if err != nil {
		return fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID uuid.UUID
			item    domain.OrderItem
			image   sql.NullString
		)
		err := rows.Scan(&orderID, &item.Quantity,
			&item.Product.ID, &item.Product.Name, &item.Product.Description, &item.Product.Price,
			&item.Product.Stock, &image, scanTime(&item.Product.CreatedAt), scanTime(&item.Product.UpdatedAt))
		if err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.Product.Image = image.String
		item.ProductID = item.Product.ID

		i, ok := index[orderID]
		if !ok {
			continue
		}
		orders[i].Items = append(orders[i].Items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}
	return nil
}

func compileOrderFilter(f domain.OrderFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.OwnerID != nil {
		conds = append(conds, `user_id = ?`)
		args = append(args, *f.OwnerID)
	}
	if f.Status != nil {
		conds = append(conds, `status = ?`)
		args = append(args, string(*f.Status))
	}
	if start, end, ok := f.CreatedOnRange(); ok {
		conds = append(conds, `created_at >= ? AND created_at < ?`)
		args = append(args, formatTime(start), formatTime(end))
	}
	if f.CreatedBefore != nil {
		conds = append(conds, `created_at < ?`)
		args = append(args, formatTime(*f.CreatedBefore))
	}
	if f.CreatedAfter != nil {
		conds = append(conds, `created_at > ?`)
		args = append(args, formatTime(*f.CreatedAfter))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var (
		o      domain.Order
		status string
	)
	err := row.Scan(&o.ID, &o.UserID, &status, scanTime(&o.CreatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, err
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	o.Status = domain.OrderStatus(status)
	return o, nil
}
