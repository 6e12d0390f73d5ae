package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/syssam/recordstore/dialect"
	"github.com/syssam/recordstore/dialect/sql"
	"github.com/syssam/recordstore/dialect/sql/sqlgraph"
	"github.com/syssam/recordstore/schema"
)

func newDSNCommand() *cobra.Command {
	var showPassword bool
	cmd := &cobra.Command{
		Use:   "dsn [role...]",
		Short: "Print the connection string of each role",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			if !showPassword {
				cfg = cfg.Redacted()
			}
			p := cfg.Provider(loggerFrom(cmd.Context()))
			roles := args
			if len(roles) == 0 {
				roles = p.Roles()
			}
			for _, role := range roles {
				cs, err := p.ConnectionString(role)
				if err != nil {
					return err
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", role, cs)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showPassword, "show-password", false, "print passwords in clear text")
	return cmd
}

type pingResult struct {
	role string
	took time.Duration
	err  error
}

func newPingCommand() *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "ping [role...]",
		Short: "Open each role and verify connectivity",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd.Context())
			p := cfg.Provider(loggerFrom(cmd.Context()))
			roles := args
			if len(roles) == 0 {
				roles = p.Roles()
			}
			if len(roles) == 0 {
				return errors.New("no connections configured")
			}
			results := ping(cmd, p, roles, timeout)
			var errs []error
			for _, r := range results {
				if r.err != nil {
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tFAIL\t%v\n", r.role, r.err)
					errs = append(errs, fmt.Errorf("%s: %w", r.role, r.err))
					continue
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tOK\t%s\n", r.role, r.took.Round(time.Millisecond))
			}
			return errors.Join(errs...)
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "timeout per role")
	return cmd
}

// ping checks every role concurrently. Results keep the order of roles.
func ping(cmd *cobra.Command, p *sql.Provider, roles []string, timeout time.Duration) []pingResult {
	results := make([]pingResult, len(roles))
	var g errgroup.Group
	g.SetLimit(4)
	for i, role := range roles {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			took, err := p.Ping(ctx, role)
			results[i] = pingResult{role: role, took: took, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with passwords masked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(configFrom(cmd.Context()).Redacted()); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

type sqlOptions struct {
	dialect  string
	role     string
	schema   string
	table    string
	key      string
	columns  []string
	where    []string
	order    []string
	pageSize int
	pageNo   int
	deleted  bool
}

func newSQLCommand() *cobra.Command {
	var opts sqlOptions
	cmd := &cobra.Command{
		Use:   "sql",
		Short: "Print the statements of a paged search",
		Example: `  recordctl sql --dialect sqlserver --schema fin --table Bank \
    --where Code=BCA --order -Name --page-size 20 --page-no 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if opts.role != "" {
				c, err := configFrom(cmd.Context()).Provider(nil).Config(opts.role)
				if err != nil {
					return err
				}
				opts.dialect = c.Dialect
			}
			plan, err := explain(opts)
			if err != nil {
				return err
			}
			return printPlan(cmd, plan)
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.dialect, "dialect", dialect.SQLServer, "target dialect")
	f.StringVar(&opts.role, "role", "", "take the dialect from a configured role")
	f.StringVar(&opts.schema, "schema", "", "table schema")
	f.StringVar(&opts.table, "table", "", "table name")
	f.StringVar(&opts.key, "key", schema.DefaultKey, "key column")
	f.StringSliceVar(&opts.columns, "columns", nil, "select list")
	f.StringArrayVar(&opts.where, "where", nil, "equality filter as Field=value, repeatable")
	f.StringArrayVar(&opts.order, "order", nil, "sort field, prefix with - for descending, repeatable")
	f.IntVar(&opts.pageSize, "page-size", 20, "rows per page, 0 disables paging")
	f.IntVar(&opts.pageNo, "page-no", 1, "page number starting at 1")
	f.BoolVar(&opts.deleted, "include-deleted", false, "do not filter soft deleted rows")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func explain(opts sqlOptions) (*sqlgraph.Plan, error) {
	table, err := schema.NewTable(opts.schema, opts.table, schema.WithKey(opts.key))
	if err != nil {
		return nil, err
	}
	spec := &sqlgraph.SearchSpec[any]{
		Table:          table,
		IncludeDeleted: opts.deleted,
	}
	for _, c := range opts.columns {
		spec.Columns = append(spec.Columns, sqlgraph.DefaultAlias+"."+strings.TrimSpace(c))
	}
	for _, w := range opts.where {
		field, value, ok := strings.Cut(w, "=")
		if !ok {
			return nil, fmt.Errorf("invalid filter %q, expected Field=value", w)
		}
		spec.Filters = append(spec.Filters, sql.FieldEQ(strings.TrimSpace(field), value))
	}
	for _, o := range opts.order {
		if field, ok := strings.CutPrefix(o, "-"); ok {
			spec.Sorts = append(spec.Sorts, sql.Desc(field))
		} else {
			spec.Sorts = append(spec.Sorts, sql.Asc(o))
		}
	}
	return sqlgraph.Explain(opts.dialect, spec, opts.pageSize, opts.pageNo)
}

func printPlan(cmd *cobra.Command, plan *sqlgraph.Plan) error {
	w := cmd.OutOrStdout()
	if plan.Count != nil {
		if _, err := fmt.Fprintf(w, "-- count\n%s\n-- args: %v\n\n", plan.Count.Query, plan.Count.Args); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "-- data\n%s\n-- args: %v\n", plan.Data.Query, plan.Data.Args)
	return err
}

type checkOptions struct {
	role     string
	schema   string
	tables   []string
	key      string
	workflow bool
	expect   []string
}

func newCheckCommand() *cobra.Command {
	var opts checkOptions
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify that tables carry the key and audit columns",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			drv, err := configFrom(ctx).Provider(loggerFrom(ctx)).Open(ctx, opts.role)
			if err != nil {
				return err
			}
			defer drv.Close()

			var vopts []schema.ValidateOption
			if opts.workflow {
				vopts = append(vopts, schema.RequireWorkflow())
			}
			if len(opts.expect) > 0 {
				vopts = append(vopts, schema.ExpectColumns(opts.expect...))
			}
			failed := 0
			for _, name := range opts.tables {
				table, err := schema.NewTable(opts.schema, name, schema.WithKey(opts.key))
				if err != nil {
					return err
				}
				cols, err := sqlgraph.Columns(ctx, drv, table)
				if err != nil {
					return err
				}
				result := schema.ValidateColumns(table, cols, vopts...)
				if result.HasErrors() {
					failed++
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s\n", table.Label(), strings.TrimSuffix(result.String(), "\n"))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d tables failed the check", failed, len(opts.tables))
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.role, "role", "", "configured connection role")
	f.StringVar(&opts.schema, "schema", "", "table schema")
	f.StringSliceVar(&opts.tables, "table", nil, "table names, repeatable")
	f.StringVar(&opts.key, "key", schema.DefaultKey, "key column")
	f.BoolVar(&opts.workflow, "workflow", false, "require the approval columns")
	f.StringSliceVar(&opts.expect, "expect", nil, "business columns that must exist")
	_ = cmd.MarkFlagRequired("role")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}
