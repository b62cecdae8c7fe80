package implementations

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/api-sage/account-ledger/src/internal/logger"
)

// migrationLockKey serializes migrators across processes sharing a database.
const migrationLockKey int64 = 0x6c6564676572

var ErrMigrationChanged = errors.New("applied migration file was modified")

type Migration struct {
	Version  string
	Checksum string
	SQL      string
}

type migrationConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// RunMigrations applies pending *.sql files from migrationsDir in version
// order, one transaction each, while holding a session advisory lock.
func RunMigrations(ctx context.Context, db *sql.DB, migrationsDir string) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, migrationLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, migrationLockKey); err != nil {
			logger.Error("release migration lock failed", err, nil)
		}
	}()

	plan, err := planMigrations(ctx, conn, migrationsDir)
	if err != nil {
		return err
	}
	if err := backfillChecksums(ctx, conn, plan.unverified); err != nil {
		return err
	}

	for _, m := range plan.pending {
		if err := applyMigration(ctx, conn, m); err != nil {
			return err
		}
		logger.Info("migration applied", logger.Fields{
			"version":  m.Version,
			"checksum": m.Checksum[:12],
		})
	}

	logger.Info("migrations up to date", logger.Fields{
		"applied": len(plan.pending),
		"total":   plan.total,
	})
	return nil
}

// PendingMigrations lists what RunMigrations would apply, without applying it.
func PendingMigrations(ctx context.Context, db *sql.DB, migrationsDir string) ([]Migration, error) {
	plan, err := planMigrations(ctx, db, migrationsDir)
	if err != nil {
		return nil, err
	}
	return plan.pending, nil
}

// LoadMigrations reads every *.sql file in dir ordered by file name.
func LoadMigrations(dir string) ([]Migration, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations directory %q: %w", dir, err)
	}

	migrations := make([]Migration, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".sql") {
			continue
		}
		body, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read migration %q: %w", entry.Name(), err)
		}
		sum := sha256.Sum256(body)
		migrations = append(migrations, Migration{
			Version:  entry.Name(),
			Checksum: hex.EncodeToString(sum[:]),
			SQL:      string(body),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

type migrationPlan struct {
	pending []Migration
	// unverified were applied before checksums were recorded.
	unverified []Migration
	total      int
}

func planMigrations(ctx context.Context, conn migrationConn, migrationsDir string) (migrationPlan, error) {
	migrations, err := LoadMigrations(migrationsDir)
	if err != nil {
		return migrationPlan{}, err
	}
	if err := ensureSchemaMigrationsTable(ctx, conn); err != nil {
		return migrationPlan{}, err
	}
	applied, err := appliedChecksums(ctx, conn)
	if err != nil {
		return migrationPlan{}, err
	}

	plan, err := selectPending(migrations, applied)
	if err != nil {
		return migrationPlan{}, err
	}
	plan.total = len(migrations)
	return plan, nil
}

// selectPending drops applied versions. A recorded checksum that no longer
// matches the file is an error; rows recorded before checksums existed are
// trusted and reported as unverified.
func selectPending(migrations []Migration, applied map[string]string) (migrationPlan, error) {
	var plan migrationPlan
	for _, m := range migrations {
		recorded, ok := applied[m.Version]
		switch {
		case !ok:
			plan.pending = append(plan.pending, m)
		case recorded == "":
			plan.unverified = append(plan.unverified, m)
		case recorded != m.Checksum:
			return migrationPlan{}, fmt.Errorf("%w: %s", ErrMigrationChanged, m.Version)
		}
	}
	return plan, nil
}

func backfillChecksums(ctx context.Context, conn migrationConn, migrations []Migration) error {
	const update = `UPDATE schema_migrations SET checksum = $2 WHERE version = $1 AND checksum = ''`
	for _, m := range migrations {
		if _, err := conn.ExecContext(ctx, update, m.Version, m.Checksum); err != nil {
			return fmt.Errorf("record checksum for %q: %w", m.Version, err)
		}
	}
	if len(migrations) > 0 {
		logger.Warn("recorded checksums for migrations applied without one", logger.Fields{
			"count": len(migrations),
		})
	}
	return nil
}

func applyMigration(ctx context.Context, conn migrationConn, m Migration) (err error) {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx for migration %q: %w", m.Version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, m.SQL); err != nil {
		return fmt.Errorf("execute migration %q: %w", m.Version, err)
	}

	const record = `INSERT INTO schema_migrations(version, checksum) VALUES ($1, $2)`
	if _, err = tx.ExecContext(ctx, record, m.Version, m.Checksum); err != nil {
		return fmt.Errorf("record migration %q: %w", m.Version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %q: %w", m.Version, err)
	}
	return nil
}

func ensureSchemaMigrationsTable(ctx context.Context, conn migrationConn) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	checksum TEXT NOT NULL DEFAULT '',
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum TEXT NOT NULL DEFAULT ''`

	if _, err := conn.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure schema_migrations table: %w", err)
	}
	return nil
}

func appliedChecksums(ctx context.Context, conn migrationConn) (map[string]string, error) {
	rows, err := conn.QueryContext(ctx, `SELECT version, checksum FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]string)
	for rows.Next() {
		var version, checksum string
		if err := rows.Scan(&version, &checksum); err != nil {
			return nil, fmt.Errorf("scan applied migration: %w", err)
		}
		applied[version] = checksum
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applied migrations: %w", err)
	}
	return applied, nil
}
