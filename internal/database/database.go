package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/eleven-am/dishdb/internal/logger"
)

func init() {
	sqlx.BindDriver("sqlite", sqlx.QUESTION)
}

// Supported driver names
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config describes the connection pool
type Config struct {
	Driver          string        `yaml:"driver"`
	URL             string        `yaml:"url"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DefaultConfig returns a MySQL pool of ten connections
func DefaultConfig() Config {
	return Config{
		Driver:          DriverMySQL,
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
	}
}

// WithDefaults fills zero fields from DefaultConfig
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Driver == "" {
		c.Driver = def.Driver
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = def.MaxOpenConns
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = def.MaxIdleConns
	}
	if c.ConnMaxLifetime == 0 {
		c.ConnMaxLifetime = def.ConnMaxLifetime
	}
	return c
}

// NormalizeDriver maps driver aliases to a supported driver name
func NormalizeDriver(driver string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "mysql", "mariadb":
		return DriverMySQL, nil
	case "postgres", "postgresql", "pq":
		return DriverPostgres, nil
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// DSN converts the configured URL into the form the driver expects
func (c Config) DSN() (string, error) {
	driver, err := NormalizeDriver(c.Driver)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(c.URL) == "" {
		return "", fmt.Errorf("database url is required")
	}

	switch driver {
	case DriverMySQL:
		return mysqlDSN(c.URL)
	case DriverSQLite:
		return sqliteDSN(c.URL), nil
	default:
		return c.URL, nil
	}
}

// mysqlDSN accepts either a driver DSN or a mysql:// URL and forces
// parseTime so DATETIME columns scan as time.Time.
func mysqlDSN(raw string) (string, error) {
	dsn := strings.TrimPrefix(raw, "mysql://")

	if !strings.Contains(dsn, "@tcp(") && !strings.Contains(dsn, "@unix(") && strings.Contains(dsn, "@") {
		at := strings.LastIndex(dsn, "@")
		rest := dsn[at+1:]
		host, path, _ := strings.Cut(rest, "/")
		dsn = dsn[:at+1] + "tcp(" + host + ")/" + path
	}

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return cfg.FormatDSN(), nil
}

// sqliteDSN enables foreign key enforcement, which SQLite leaves off
func sqliteDSN(raw string) string {
	dsn := strings.TrimPrefix(raw, "sqlite://")
	if strings.Contains(dsn, "foreign_keys") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=foreign_keys(1)"
}

func isMemorySQLite(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// Connect opens the pool and verifies it with a ping
func (c Config) Connect(ctx context.Context) (*sqlx.DB, error) {
	c = c.WithDefaults()

	driver, err := NormalizeDriver(c.Driver)
	if err != nil {
		return nil, err
	}
	dsn, err := c.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	maxOpen := c.MaxOpenConns
	if driver == DriverSQLite && isMemorySQLite(dsn) {
		// every connection to :memory: is a separate database
		maxOpen = 1
	}
	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	logger.DB().Debug("database connected",
		"driver", driver,
		"max_open_conns", maxOpen,
		"max_idle_conns", c.MaxIdleConns,
	)
	return db, nil
}
