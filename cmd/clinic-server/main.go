package main

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/Hatice4217/lum-nex-next-sub000/internal/config"
	"github.com/Hatice4217/lum-nex-next-sub000/internal/platform/db"
	"github.com/Hatice4217/lum-nex-next-sub000/migrations"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "clinic-server",
		Short: "Clinic appointment API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(workerCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func workerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the scheduled jobs for every configured tenant",
		RunE: func(cmd *cobra.Command, args []string) error {
			once, _ := cmd.Flags().GetBool("once")
			return runWorker(once)
		},
	}
	cmd.Flags().Bool("once", false, "Run every job once and exit")
	return cmd
}

// poolOptions names the connection after the process role so api, worker
// and cli sessions can be told apart in pg_stat_activity.
func poolOptions(cfg *config.Config, role string) db.PoolOptions {
	return db.PoolOptions{
		URL:         cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConns,
		MinConns:    cfg.DBMinConns,
		AppName:     cfg.ServiceName + "/" + role,
		PingTimeout: 10 * time.Second,
	}
}

// withPool loads the config and opens a pool for a one-shot command.
func withPool(fn func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, poolOptions(cfg, "cli"))
	if err != nil {
		return err
	}
	defer pool.Close()
	return fn(ctx, cfg, pool)
}

// migrationFiles is MIGRATIONS_DIR when set, otherwise the embedded files.
func migrationFiles(cfg *config.Config) fs.FS {
	if cfg.MigrationsDir != "" {
		return os.DirFS(cfg.MigrationsDir)
	}
	return migrations.FS
}

// targetSchemas is the --tenant flag when given, otherwise every tenant
// schema in the database.
func targetSchemas(ctx context.Context, pool *pgxpool.Pool, tenant string) ([]string, error) {
	if tenant != "" {
		if !db.ValidTenantID(tenant) {
			return nil, fmt.Errorf("invalid tenant identifier: %s", tenant)
		}
		return []string{db.SchemaName(tenant)}, nil
	}
	tenants, err := db.ListTenants(ctx, pool)
	if err != nil {
		return nil, err
	}
	schemas := make([]string, 0, len(tenants))
	for _, t := range tenants {
		schemas = append(schemas, db.SchemaName(t))
	}
	return schemas, nil
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations to tenant schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				schemas, err := targetSchemas(ctx, pool, tenant)
				if err != nil {
					return err
				}
				if len(schemas) == 0 {
					fmt.Println("No tenant schemas found. Create one with: clinic-server tenant create <id>")
					return nil
				}
				migrator := db.NewMigrator(pool, migrationFiles(cfg))
				for _, schema := range schemas {
					count, err := migrator.Up(ctx, schema)
					if err != nil {
						return fmt.Errorf("migration of %s failed: %w", schema, err)
					}
					fmt.Printf("%s: applied %d migration(s)\n", schema, count)
				}
				return nil
			})
		},
	}
	upCmd.Flags().String("tenant", "", "Migrate only this tenant")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status per tenant schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				schemas, err := targetSchemas(ctx, pool, tenant)
				if err != nil {
					return err
				}
				migrator := db.NewMigrator(pool, migrationFiles(cfg))
				for _, schema := range schemas {
					statuses, err := migrator.Status(ctx, schema)
					if err != nil {
						return fmt.Errorf("failed to get migration status: %w", err)
					}
					printStatus(os.Stdout, schema, statuses)
				}
				return nil
			})
		},
	}
	statusCmd.Flags().String("tenant", "", "Show only this tenant")
	cmd.AddCommand(statusCmd)

	return cmd
}

func printStatus(w io.Writer, schema string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for schema: %s\n", schema)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.Modified {
				status = "modified"
			}
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <id>",
		Short: "Create a tenant schema and apply every migration to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !db.ValidTenantID(id) {
				return fmt.Errorf("invalid tenant identifier: %s", id)
			}
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				fmt.Printf("Creating tenant schema: %s\n", db.SchemaName(id))
				if err := db.CreateTenantSchema(ctx, pool, id, migrationFiles(cfg)); err != nil {
					return err
				}
				fmt.Println("Tenant created.")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tenant schemas",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(func(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool) error {
				tenants, err := db.ListTenants(ctx, pool)
				if err != nil {
					return err
				}
				for _, t := range tenants {
					fmt.Println(t)
				}
				return nil
			})
		},
	})

	return cmd
}
