package storage

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
)

// Dialect holds the per-engine DDL. Queries themselves are shared: both
// engines accept "?" placeholders, LIMIT/OFFSET and LIKE ... ESCAPE.
type Dialect struct {
	Name   string
	Driver string
	// Lower is the SQL function that case-folds a column the same way
	// strings.ToLower folds query text.
	Lower  string
	Schema []string
}

// SQLite's built-in LOWER only folds ASCII.
const sqliteLowerFunc = "unicode_lower"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(sqliteLowerFunc, 1, unicodeLower); err != nil {
		panic(fmt.Sprintf("register %s: %v", sqliteLowerFunc, err))
	}
}

func unicodeLower(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

var MySQL = Dialect{
	Name:   "mysql",
	Driver: "mysql",
	Lower:  "LOWER",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
			username   VARCHAR(150) NOT NULL UNIQUE,
			is_staff   BOOLEAN      NOT NULL DEFAULT FALSE,
			token_hash CHAR(64)     NOT NULL UNIQUE,
			created_at DATETIME(6)  NOT NULL
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS products (
			id          BIGINT        NOT NULL AUTO_INCREMENT PRIMARY KEY,
			name        VARCHAR(255)  NOT NULL,
			description TEXT          NOT NULL,
			price       DECIMAL(10,2) NOT NULL,
			stock       INT UNSIGNED  NOT NULL,
			image       VARCHAR(255)  NULL,
			created_at  DATETIME(6)   NOT NULL,
			updated_at  DATETIME(6)   NOT NULL,
			INDEX idx_products_stock (stock)
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id   CHAR(36)    NOT NULL PRIMARY KEY,
			user_id    BIGINT      NOT NULL,
			status     VARCHAR(10) NOT NULL DEFAULT 'Pending',
			created_at DATETIME(6) NOT NULL,
			INDEX idx_orders_user (user_id, created_at),
			CONSTRAINT fk_orders_user FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
		) ENGINE=InnoDB`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id         BIGINT       NOT NULL AUTO_INCREMENT PRIMARY KEY,
			order_id   CHAR(36)     NOT NULL,
			product_id BIGINT       NOT NULL,
			quantity   INT UNSIGNED NOT NULL,
			UNIQUE KEY uq_order_items_order_product (order_id, product_id),
			INDEX idx_order_items_product (product_id),
			CONSTRAINT fk_order_items_order FOREIGN KEY (order_id) REFERENCES orders (order_id) ON DELETE CASCADE,
			CONSTRAINT fk_order_items_product FOREIGN KEY (product_id) REFERENCES products (id) ON DELETE CASCADE
		) ENGINE=InnoDB`,
	},
}

var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	Lower:  sqliteLowerFunc,
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			username   TEXT    NOT NULL UNIQUE,
			is_staff   INTEGER NOT NULL DEFAULT 0,
			token_hash TEXT    NOT NULL UNIQUE,
			created_at TEXT    NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS products (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT    NOT NULL,
			description TEXT    NOT NULL DEFAULT '',
			price       NUMERIC NOT NULL CHECK (price >= 0),
			stock       INTEGER NOT NULL CHECK (stock >= 0),
			image       TEXT,
			created_at  TEXT    NOT NULL,
			updated_at  TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_products_stock ON products (stock)`,
		`CREATE TABLE IF NOT EXISTS orders (
			order_id   TEXT    NOT NULL PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users (id) ON DELETE CASCADE,
			status     TEXT    NOT NULL DEFAULT 'Pending',
			created_at TEXT    NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders (user_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS order_items (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			order_id   TEXT    NOT NULL REFERENCES orders (order_id) ON DELETE CASCADE,
			product_id INTEGER NOT NULL REFERENCES products (id) ON DELETE CASCADE,
			quantity   INTEGER NOT NULL CHECK (quantity >= 1),
			UNIQUE (order_id, product_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_order_items_product ON order_items (product_id)`,
	},
}

func DialectFor(driver string) (Dialect, error) {
	switch driver {
	case MySQL.Driver:
		return MySQL, nil
	case SQLite.Driver, "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", driver)
}

type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenMySQL opens and pings a MySQL pool. The DSN must carry parseTime=true.
func OpenMySQL(ctx context.Context, dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open(MySQL.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(pool.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database file in WAL mode with
// foreign keys enforced. SQLite gets a single connection, so callers must
// not hold a *sql.Rows open while issuing another query.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open(SQLite.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %q: %w", path, err)
	}
	return db, nil
}
