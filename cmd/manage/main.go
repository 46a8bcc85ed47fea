// Command manage runs administrative tasks against the shop database:
//
//	manage createuser [-staff] <username>
//	manage deleteuser <id>
//	manage seed
//
// It reads the same environment as the server.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/rl1809/shop-inventory/internal/adapter/storage"
	"github.com/rl1809/shop-inventory/internal/config"
	"github.com/rl1809/shop-inventory/internal/core/domain"
	"github.com/rl1809/shop-inventory/internal/core/service"
	"github.com/rl1809/shop-inventory/internal/logging"
	"github.com/rl1809/shop-inventory/internal/port"
)

var errUsage = errors.New("usage: manage createuser [-staff] <username> | deleteuser <id> | seed")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel)

	if err := run(cfg, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		slog.Error("manage failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	dialect, err := storage.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}
	var db *sql.DB
	if dialect.Name == storage.SQLite.Name {
		db, err = storage.OpenSQLite(ctx, cfg.SQLitePath)
	} else {
		db, err = storage.OpenMySQL(ctx, cfg.MySQLDSN, storage.PoolConfig{
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLife,
		})
	}
	if err != nil {
		return err
	}
	defer db.Close()

	store := storage.NewSQLAdapter(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	switch args[0] {
	case "createuser":
		return createUser(ctx, service.NewUserService(store), args[1:])
	case "deleteuser":
		return deleteUser(ctx, service.NewUserService(store), args[1:])
	case "seed":
		var cache port.CacheRepository
		if cfg.CacheEnabled() {
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
			defer rdb.Close()
			cache = storage.NewRedisAdapter(rdb, cfg.CacheNS)
		}
		return seed(ctx, service.NewProductService(store, cache, cfg.CacheTTL), service.NewUserService(store))
	}
	return errUsage
}

func createUser(ctx context.Context, users *service.UserService, args []string) error {
	fs := flag.NewFlagSet("createuser", flag.ContinueOnError)
	staff := fs.Bool("staff", false, "grant admin rights")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	u, token, err := users.Register(ctx, fs.Arg(0), *staff)
	if err != nil {
		return err
	}
	fmt.Printf("id=%d username=%s staff=%t token=%s\n", u.ID, u.Username, u.IsStaff, token)
	return nil
}

func deleteUser(ctx context.Context, users *service.UserService, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return errUsage
	}
	return users.Delete(ctx, id)
}

var seedProducts = []domain.ProductInput{
	{Name: "Coffee Mug", Description: "Ceramic mug, 350 ml", Price: decimal.RequireFromString("9.50"), Stock: 40},
	{Name: "Notebook", Description: "A5 dotted notebook", Price: decimal.RequireFromString("4.99"), Stock: 120},
	{Name: "Desk Lamp", Description: "LED lamp with dimmer", Price: decimal.RequireFromString("34.00"), Stock: 12},
	{Name: "Mechanical Keyboard", Description: "Tenkeyless, brown switches", Price: decimal.RequireFromString("89.90"), Stock: 7},
	{Name: "USB-C Cable", Description: "Braided, 2 m", Price: decimal.RequireFromString("7.25"), Stock: 0},
	{Name: "Monitor Stand", Description: "Bamboo riser", Price: decimal.RequireFromString("24.00"), Stock: 15},
	{Name: "Noise Cancelling Headphones", Description: "Over-ear, wireless", Price: decimal.RequireFromString("199.00"), Stock: 3},
}

// seed loads a small catalog plus one admin and one regular user, printing
// their tokens.
func seed(ctx context.Context, products *service.ProductService, users *service.UserService) error {
	for _, in := range seedProducts {
		p, err := products.Create(ctx, in)
		if err != nil {
			return fmt.Errorf("seed product %q: %w", in.Name, err)
		}
		fmt.Printf("product id=%d name=%q stock=%d\n", p.ID, p.Name, p.Stock)
	}

	for _, u := range []struct {
		name  string
		staff bool
	}{{"admin", true}, {"alice", false}} {
		created, token, err := users.Register(ctx, u.name, u.staff)
		if err != nil {
			return fmt.Errorf("seed user %q: %w", u.name, err)
		}
		fmt.Printf("user id=%d username=%s staff=%t token=%s\n", created.ID, created.Username, created.IsStaff, token)
	}
	return nil
}
