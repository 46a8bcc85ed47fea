package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/rl1809/shop-inventory/internal/core/domain"
)

const productColumns = `id, name, description, price, stock, image, created_at, updated_at`

func (m *SQLAdapter) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	now := m.now()
	result, err := m.db.ExecContext(ctx, `
		INSERT INTO products (name, description, price, stock, image, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.Name, in.Description, in.Price, in.Stock, nullString(in.Image),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Product{}, fmt.Errorf("product id: %w", err)
	}

	return domain.Product{
		ID:          id,
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Image:       in.Image,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (m *SQLAdapter) UpdateProduct(ctx context.Context, id int64, patch domain.ProductPatch) (domain.Product, error) {
	var updated domain.Product
	err := m.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getProduct(ctx, tx, id)
		if err != nil {
			return err
		}

		updated = patch.Apply(current)
		updated.UpdatedAt = m.now()

		_, err = tx.ExecContext(ctx, `
			UPDATE products
			SET name = ?, description = ?, price = ?, stock = ?, image = ?, updated_at = ?
			WHERE id = ?`,
			updated.Name, updated.Description, updated.Price, updated.Stock,
			nullString(updated.Image), formatTime(updated.UpdatedAt), id,
		)
		if err != nil {
			return fmt.Errorf("update product %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return domain.Product{}, err
	}
	return updated, nil
}

func (m *SQLAdapter) DeleteProduct(ctx context.Context, id int64) error {
	return m.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE product_id = ?`, id); err != nil {
			return fmt.Errorf("delete order items of product %d: %w", id, err)
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}

		rows, _ := result.RowsAffected()
		if rows == 0 {
			return domain.ErrNotFound
		}
		return nil
	})
}

func (m *SQLAdapter) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return getProduct(ctx, m.db, id)
}

func (m *SQLAdapter) ListProducts(ctx context.Context, filter domain.ProductFilter, page domain.PageRequest) ([]domain.Product, int, error) {
	where, args := compileProductFilter(filter, m.dialect.Lower)

	var total int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}
	if total == 0 {
		return []domain.Product{}, 0, nil
	}

	query := `SELECT ` + productColumns + ` FROM products` + where +
		productOrderBy(filter.Sort) + ` LIMIT ? OFFSET ?`
	rows, err := m.db.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, page.Size)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate products: %w", err)
	}

	return products, total, nil
}

func (m *SQLAdapter) ProductInfo(ctx context.Context) (domain.ProductInfo, error) {
	var info domain.ProductInfo
	err := m.db.QueryRowContext(ctx, `SELECT COUNT(*), MAX(price) FROM products`).
		Scan(&info.Count, &info.MaxPrice)
	if err != nil {
		return domain.ProductInfo{}, fmt.Errorf("aggregate products: %w", err)
	}
	return info, nil
}

// compileProductFilter turns the filter into a WHERE clause (with leading
// space, or empty) and its arguments. lower names the SQL case-folding
// function for text columns.
func compileProductFilter(f domain.ProductFilter, lower string) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, a ...any) {
		conds = append(conds, cond)
		args = append(args, a...)
	}

	if f.NameExact != nil {
		add(lower+`(name) = ?`, strings.ToLower(*f.NameExact))
	}
	if f.NameContains != nil {
		add(lower+`(name) LIKE ? ESCAPE '!'`, containsPattern(*f.NameContains))
	}
	if f.Price != nil {
		add(`price = ?`, *f.Price)
	}
	if f.PriceLT != nil {
		add(`price < ?`, *f.PriceLT)
	}
	if f.PriceGT != nil {
		add(`price > ?`, *f.PriceGT)
	}
	if f.PriceMin != nil {
		add(`price >= ?`, *f.PriceMin)
	}
	if f.PriceMax != nil {
		add(`price <= ?`, *f.PriceMax)
	}
	// Each whitespace-separated search term must appear in name or description.
	for _, term := range strings.Fields(f.Search) {
		pattern := containsPattern(term)
		add(`(`+lower+`(name) LIKE ? ESCAPE '!' OR `+lower+`(description) LIKE ? ESCAPE '!')`, pattern, pattern)
	}
	if f.InStockOnly {
		add(`stock > 0`)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func productOrderBy(s domain.ProductSort) string {
	dir := "ASC"
	if s.Desc {
		dir = "DESC"
	}
	switch s.Field {
	case domain.SortName:
		return ` ORDER BY name ` + dir + `, id ASC`
	case domain.SortPrice:
		return ` ORDER BY price ` + dir + `, id ASC`
	}
	return ` ORDER BY id ASC`
}

func getProduct(ctx context.Context, q queryer, id int64) (domain.Product, error) {
	row := q.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrNotFound
	}
	return p, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var (
		p     domain.Product
		image sql.NullString
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &image,
		scanTime(&p.CreatedAt), scanTime(&p.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, err
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("scan product: %w", err)
	}
	p.Image = image.String
	return p, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

