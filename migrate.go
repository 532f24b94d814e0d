package hirewire

import (
	"context"
	"io/fs"
	"sort"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type migrationRecord struct {
	bun.BaseModel `bun:"table:schema_migrations,alias:mig"`
	Name          string    `bun:"name,pk"`
	AppliedAt     time.Time `bun:"applied_at,notnull"`
}

// RunMigrations applies the embedded SQL migrations in lexical order,
// tracking applied files in schema_migrations. Re-running is a no-op for
// files already recorded.
func RunMigrations(ctx context.Context, db *bun.DB, logger Logger) error {
	if logger == nil {
		logger = defLogger{}
	}

	if _, err := db.NewCreateTable().
		Model((*migrationRecord)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not create migrations table")
	}

	sub, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not open migrations")
	}

	names, err := listMigrationFiles(sub)
	if err != nil {
		return err
	}

	for _, name := range names {
		applied, err := db.NewSelect().
			Model((*migrationRecord)(nil)).
			Where("name = ?", name).
			Exists(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not check migration state")
		}

		if applied {
			continue
		}

		payload, err := fs.ReadFile(sub, name)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "could not read migration").
				WithMetadata(map[string]any{"migration": name})
		}

		logger.Info("applying migration", "name", name)

		err = db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			for _, stmt := range splitStatements(string(payload)) {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}

			_, err := tx.NewInsert().
				Model(&migrationRecord{Name: name, AppliedAt: time.Now()}).
				Exec(ctx)
			return err
		})
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "migration failed").
				WithMetadata(map[string]any{"migration": name})
		}
	}

	return nil
}

func listMigrationFiles(dir fs.FS) ([]string, error) {
	entries, err := fs.ReadDir(dir, ".")
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not list migrations")
	}

	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		names = append(names, entry.Name())
	}

	sort.Strings(names)
	return names, nil
}

// splitStatements breaks a migration file into executable statements.
// Good enough for DDL files, not a general SQL parser.
func splitStatements(payload string) []string {
	parts := strings.Split(payload, ";")
	stmts := []string{}

	for _, part := range parts {
		lines := []string{}
		for _, line := range strings.Split(part, "\n") {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, "--") {
				continue
			}
			lines = append(lines, line)
		}

		stmt := strings.TrimSpace(strings.Join(lines, "\n"))
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}

	return stmts
}
