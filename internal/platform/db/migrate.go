package db

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Migration is one numbered SQL file. "003_billing.sql" has Version 3 and
// Name "billing".
type Migration struct {
	Version  int
	Name     string
	File     string
	SQL      string
	Checksum string
}

// MigrationStatus reports one migration against a schema. Modified is set
// when the file changed after it was applied.
type MigrationStatus struct {
	Version   int
	Name      string
	Applied   bool
	AppliedAt *time.Time
	Modified  bool
}

// Migrator applies numbered SQL files to one tenant schema at a time.
type Migrator struct {
	pool  *pgxpool.Pool
	files fs.FS
}

// NewMigrator reads migrations from files, normally the embedded
// migrations.FS or os.DirFS for an override directory.
func NewMigrator(pool *pgxpool.Pool, files fs.FS) *Migrator {
	return &Migrator{pool: pool, files: files}
}

// LoadMigrations returns the .sql files ordered by version. Files without a
// numeric prefix are ignored; two files sharing a version are an error.
func (m *Migrator) LoadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	seen := make(map[int]string)
	var out []Migration
	for _, entry := range entries {
		file := entry.Name()
		if entry.IsDir() || path.Ext(file) != ".sql" {
			continue
		}
		prefix, rest, ok := strings.Cut(strings.TrimSuffix(file, ".sql"), "_")
		if !ok {
			continue
		}
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= 0 {
			continue
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("migrations %s and %s share version %d", other, file, version)
		}
		seen[version] = file

		body, err := fs.ReadFile(m.files, file)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", file, err)
		}
		sum := sha256.Sum256(body)
		out = append(out, Migration{
			Version:  version,
			Name:     rest,
			File:     file,
			SQL:      string(body),
			Checksum: hex.EncodeToString(sum[:]),
		})
	}

	slices.SortFunc(out, func(a, b Migration) int { return a.Version - b.Version })
	return out, nil
}

// Up applies every pending migration to schema and returns how many ran.
// A session advisory lock keyed on the schema keeps two processes, say a
// rolling deploy, from migrating the same tenant at once.
func (m *Migrator) Up(ctx context.Context, schema string) (int, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return 0, err
	}

	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	lockKey := "migrate:" + schema
	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock(hashtext($1))", lockKey); err != nil {
		return 0, fmt.Errorf("lock %s: %w", schema, err)
	}
	defer conn.Exec(context.WithoutCancel(ctx), "SELECT pg_advisory_unlock(hashtext($1))", lockKey)

	if err := ensureLedger(ctx, conn, schema); err != nil {
		return 0, err
	}
	applied, err := readLedger(ctx, conn, schema)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range migrations {
		if _, done := applied[mig.Version]; done {
			continue
		}
		if err := apply(ctx, conn, schema, mig); err != nil {
			return count, fmt.Errorf("migration %s: %w", mig.File, err)
		}
		count++
	}
	return count, nil
}

// Status lists every known migration with its state in schema.
func (m *Migrator) Status(ctx context.Context, schema string) ([]MigrationStatus, error) {
	migrations, err := m.LoadMigrations()
	if err != nil {
		return nil, err
	}
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	defer conn.Release()

	if err := ensureLedger(ctx, conn, schema); err != nil {
		return nil, err
	}
	applied, err := readLedger(ctx, conn, schema)
	if err != nil {
		return nil, err
	}
	return statusOf(migrations, applied), nil
}

type ledgerRow struct {
	appliedAt time.Time
	checksum  string
}

func statusOf(migrations []Migration, applied map[int]ledgerRow) []MigrationStatus {
	out := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		st := MigrationStatus{Version: mig.Version, Name: mig.Name}
		if row, ok := applied[mig.Version]; ok {
			at := row.appliedAt
			st.Applied = true
			st.AppliedAt = &at
			st.Modified = row.checksum != "" && row.checksum != mig.Checksum
		}
		out = append(out, st)
	}
	return out
}

func ensureLedger(ctx context.Context, conn *pgxpool.Conn, schema string) error {
	ddl := fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %[1]s;
CREATE TABLE IF NOT EXISTS %[1]s._migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    checksum   TEXT NOT NULL DEFAULT '',
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`, schema)
	if _, err := conn.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("prepare migration ledger in %s: %w", schema, err)
	}
	return nil
}

func readLedger(ctx context.Context, conn *pgxpool.Conn, schema string) (map[int]ledgerRow, error) {
	rows, err := conn.Query(ctx, fmt.Sprintf(`SELECT version, applied_at, checksum FROM %s._migrations`, schema))
	if err != nil {
		return nil, fmt.Errorf("read migration ledger in %s: %w", schema, err)
	}
	applied := make(map[int]ledgerRow)
	var (
		version int
		row     ledgerRow
	)
	_, err = pgx.ForEachRow(rows, []any{&version, &row.appliedAt, &row.checksum}, func() error {
		applied[version] = row
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read migration ledger in %s: %w", schema, err)
	}
	return applied, nil
}

// apply runs one migration and its ledger row in a single transaction with
// search_path pinned to the tenant schema.
func apply(ctx context.Context, conn *pgxpool.Conn, schema string, mig Migration) error {
	return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL search_path TO %s, public", schema)); err != nil {
			return fmt.Errorf("set search_path: %w", err)
		}
		if _, err := tx.Exec(ctx, mig.SQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO _migrations (version, name, checksum) VALUES ($1, $2, $3)`,
			mig.Version, mig.Name, mig.Checksum)
		return err
	})
}
