package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"strings"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-config/cfgx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	cloudmigrations "github.com/goliatone/go-cloudlib/migrations"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

// Config describes the activity database. It satisfies the go-persistence-bun
// configuration contract.
type Config struct {
	Driver             string `koanf:"driver" mapstructure:"driver"`
	DSN                string `koanf:"dsn" mapstructure:"dsn"`
	Debug              bool   `koanf:"debug" mapstructure:"debug"`
	PingTimeoutSeconds int    `koanf:"ping_timeout_seconds" mapstructure:"ping_timeout_seconds"`
	MaxOpenConns       int    `koanf:"max_open_conns" mapstructure:"max_open_conns"`
}

func DefaultConfig() Config {
	return Config{
		Driver:             DriverSQLite,
		DSN:                "file:cloudlib-activity?mode=memory&cache=shared&_foreign_keys=on",
		PingTimeoutSeconds: 5,
	}
}

func (c Config) Validate() error {
	switch c.dialect() {
	case cloudmigrations.DialectSQLite, cloudmigrations.DialectPostgres:
	default:
		return fmt.Errorf("sqlstore: unsupported driver %q", c.Driver)
	}
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("sqlstore: dsn is required")
	}
	if c.PingTimeoutSeconds < 0 || c.MaxOpenConns < 0 {
		return fmt.Errorf("sqlstore: timeouts and pool sizes must be >= 0")
	}
	return nil
}

func (c Config) GetDebug() bool { return c.Debug }

func (c Config) GetDriver() string { return strings.TrimSpace(c.Driver) }

func (c Config) GetServer() string { return strings.TrimSpace(c.DSN) }

func (c Config) GetPingTimeout() time.Duration {
	if c.PingTimeoutSeconds <= 0 {
		return time.Second
	}
	return time.Duration(c.PingTimeoutSeconds) * time.Second
}

func (c Config) GetOtelIdentifier() string { return "go-cloudlib" }

func (c Config) dialect() string {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case DriverSQLite, "sqlite":
		return cloudmigrations.DialectSQLite
	case DriverPostgres, "pgx", "pq":
		return cloudmigrations.DialectPostgres
	default:
		return ""
	}
}

func (c Config) bunDialect() schema.Dialect {
	if c.dialect() == cloudmigrations.DialectPostgres {
		return pgdialect.New()
	}
	return sqlitedialect.New()
}

// LoadConfig builds a Config from raw key/value input over DefaultConfig.
func LoadConfig(raw map[string]any) (Config, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	return cfgx.Build[Config](raw,
		cfgx.WithDefaults(DefaultConfig()),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
}

// Open connects, registers the embedded migrations for the configured
// dialect and applies them.
func Open(ctx context.Context, cfg Config) (*persistence.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	driver := cfg.GetDriver()
	if cfg.dialect() == cloudmigrations.DialectPostgres {
		driver = DriverPostgres
	}
	sqlDB, err := sql.Open(driver, cfg.GetServer())
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open %s: %w", driver, err)
	}
	switch {
	case cfg.MaxOpenConns > 0:
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	case cfg.dialect() == cloudmigrations.DialectSQLite:
		sqlDB.SetMaxOpenConns(1)
	}

	client, err := persistence.New(cfg, sqlDB, cfg.bunDialect())
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("sqlstore: new persistence client: %w", err)
	}
	dialect := cfg.dialect()
	_, err = cloudmigrations.Register(ctx, func(_ context.Context, target string, _ string, fsys fs.FS) error {
		if target != dialect {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, cloudmigrations.WithValidationTargets(dialect))
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("sqlstore: migrate: %w", err)
	}
	return client, nil
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
