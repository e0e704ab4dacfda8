package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/eleven-am/dishdb/internal/config"
	"github.com/eleven-am/dishdb/internal/logger"
	"github.com/eleven-am/dishdb/internal/metrics"
	"github.com/eleven-am/dishdb/internal/models"
	"github.com/eleven-am/dishdb/pkg/orm"
)

// app carries state shared by the subcommands of one root command
type app struct {
	v        *viper.Viper
	cfg      *config.Config
	registry *prometheus.Registry
}

func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:   "dishdb",
		Short: "dishdb - food delivery query engine",
		Long: `dishdb compiles declarative queries over the food delivery schema
(users, restaurants, menus, orders, reviews) into parameter-bound SQL.

Use "sql" to inspect the statement a query compiles to without a database,
and "find" to run it against MySQL, PostgreSQL or SQLite.`,
		Version:       orm.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: dishdb.yaml)")
	flags.String("url", "", "database connection URL")
	flags.String("driver", "", "database driver: mysql, postgres or sqlite")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.Bool("debug", false, "enable debug output")

	_ = a.v.BindPFlag("config", flags.Lookup("config"))
	_ = a.v.BindPFlag("database.url", flags.Lookup("url"))
	_ = a.v.BindPFlag("database.driver", flags.Lookup("driver"))
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("debug", flags.Lookup("debug"))

	a.v.SetEnvPrefix("DISHDB")
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	rootCmd.AddCommand(a.sqlCommand())
	rootCmd.AddCommand(a.findCommand())
	rootCmd.AddCommand(a.pingCommand())
	rootCmd.AddCommand(schemaCommand())
	rootCmd.AddCommand(initCommand())
	rootCmd.AddCommand(versionCommand())

	return rootCmd
}

// loadConfig reads the config file and lays flag and environment values
// over it. Flags win over the environment, which wins over the file.
func (a *app) loadConfig() error {
	cfg, err := config.Load(a.v.GetString("config"))
	if err != nil {
		return err
	}

	if url := a.v.GetString("database.url"); url != "" {
		cfg.Database.URL = url
	}
	if driver := a.v.GetString("database.driver"); driver != "" {
		cfg.Database.Driver = driver
	}
	if level := a.v.GetString("log.level"); level != "" {
		cfg.Log.Level = level
	}
	if a.v.GetBool("debug") {
		cfg.Log.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		return err
	}

	a.cfg = cfg
	return nil
}

// connect opens the pool and wraps it in a registry with logging and,
// when enabled, metrics middleware.
func (a *app) connect(ctx context.Context) (*sqlx.DB, *models.Registry, error) {
	db, err := a.cfg.Database.Connect(ctx)
	if err != nil {
		return nil, nil, err
	}

	ex := orm.NewExecutor(db, logger.SQL())
	ex.Use(orm.LoggingMiddleware(logger.SQL()))

	if a.cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		ex.Use(orm.MetricsMiddleware(metrics.NewCollector(a.registry, a.cfg.Metrics.Namespace)))
		if err := metrics.RegisterPool(a.registry, db.DB, a.cfg.Metrics.Namespace); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to register pool metrics: %w", err)
		}
	}

	registry, err := models.NewRegistry(ex)
	if err != nil {
		db.Close()
		return nil, nil, err
	}

	logger.CLI().Debug("connected", "driver", a.cfg.Database.Driver)
	return db, registry, nil
}
