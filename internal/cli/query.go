package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/eleven-am/dishdb/internal/models"
	"github.com/eleven-am/dishdb/pkg/orm"
)

// queryFlags are the flags shared by sql and find
type queryFlags struct {
	where   []string
	order   string
	limit   string
	offset  string
	include []string
	columns []string
	count   bool
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, "condition, repeatable: field=value, field=null, field:in=a,b, field:gte=4")
	cmd.Flags().StringVar(&f.order, "order", "", `ordering, e.g. "createdAt DESC, name"`)
	cmd.Flags().StringVar(&f.limit, "limit", "", "maximum number of rows")
	cmd.Flags().StringVar(&f.offset, "offset", "", "number of rows to skip")
	cmd.Flags().StringSliceVar(&f.include, "include", nil, "optional joins to apply")
	cmd.Flags().StringSliceVar(&f.columns, "columns", nil, "base columns to select")
	cmd.Flags().BoolVar(&f.count, "count", false, "count matching rows instead of listing them")
}

func (f *queryFlags) spec() (orm.QuerySpec, error) {
	where, err := ParseWhereFlags(f.where)
	if err != nil {
		return orm.QuerySpec{}, err
	}
	limit, offset, err := orm.ParsePagination(f.limit, f.offset)
	if err != nil {
		return orm.QuerySpec{}, err
	}
	return orm.QuerySpec{
		Where:    where,
		RawOrder: f.order,
		Limit:    limit,
		Offset:   offset,
		Include:  f.include,
		Columns:  f.columns,
	}, nil
}

func lookupSchema(entity string) (*orm.Schema, error) {
	schema, ok := models.Schemas()[entity]
	if !ok {
		return nil, fmt.Errorf("unknown entity %q (known: %s)", entity, strings.Join(models.SchemaNames(), ", "))
	}
	return schema, nil
}

func (a *app) sqlCommand() *cobra.Command {
	var flags queryFlags
	var dialect string

	cmd := &cobra.Command{
		Use:   "sql <entity>",
		Short: "Print the SQL a query compiles to",
		Long: `Compile a query for an entity and print the statement and its parameters.
No database connection is made.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: models.SchemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := lookupSchema(args[0])
			if err != nil {
				return err
			}
			if err := schema.Validate(); err != nil {
				return err
			}

			spec, err := flags.spec()
			if err != nil {
				return err
			}

			if dialect == "" {
				dialect = a.cfg.Database.Driver
			}
			d := orm.DialectFor(dialect)
			builder := orm.NewStatementBuilder(schema, d)

			var stmt orm.Statement
			if flags.count {
				stmt, err = builder.BuildCount(spec)
			} else {
				stmt, err = builder.BuildSelect(spec)
			}
			if err != nil {
				return err
			}

			// show the statement as the executor sends it
			query, params, err := sqlx.In(stmt.SQL, stmt.Args...)
			if err != nil {
				return fmt.Errorf("expand list parameters: %w", err)
			}
			query = sqlx.Rebind(sqlx.BindType(string(d)), query)

			return writeJSON(cmd, map[string]interface{}{
				"sql":    query,
				"params": params,
			})
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&dialect, "dialect", "", "dialect to compile for (default: configured driver)")
	return cmd
}

func (a *app) findCommand() *cobra.Command {
	var flags queryFlags
	var showMetrics bool

	cmd := &cobra.Command{
		Use:       "find <entity>",
		Short:     "Run a query and print the records as JSON",
		Args:      cobra.ExactArgs(1),
		ValidArgs: models.SchemaNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := lookupSchema(args[0]); err != nil {
				return err
			}
			spec, err := flags.spec()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, registry, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer db.Close()

			model, _ := registry.Model(args[0])

			if flags.count {
				n, err := model.CountSpec(ctx, spec)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd, map[string]int64{"count": n}); err != nil {
					return err
				}
			} else {
				records, err := model.FindAll(ctx, spec)
				if err != nil {
					return err
				}
				if err := writeJSON(cmd, records); err != nil {
					return err
				}
			}

			if showMetrics && a.registry != nil {
				return a.dumpMetrics()
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print collected metrics to stderr (requires metrics.enabled)")
	return cmd
}

func (a *app) dumpMetrics() error {
	families, err := a.registry.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(os.Stderr, mf); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	return encodeJSON(cmd.OutOrStdout(), v)
}

func encodeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
