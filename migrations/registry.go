// Package migrations registers the embedded SQL schema of the ephemeral
// store with a migration runner, one filesystem per dialect.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strings"

	integrations "github.com/goliatone/go-integrations"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const (
	sourceLabel = "go-integrations"
	rootDir     = "data/sql/migrations"
)

// FilesystemSpec is the migration tree for one dialect. Postgres files sit
// at the root of data/sql/migrations, sqlite files in its sqlite directory.
type FilesystemSpec struct {
	Dialect string
	Path    string
	FS      fs.FS
}

type Registration struct {
	SourceLabel       string
	ValidationTargets []string
	Filesystems       []FilesystemSpec
}

type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

// WithValidationTargets limits registration to the named dialects.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		var next []string
		for _, target := range targets {
			target = normalizeDialect(target)
			if target != "" && !slices.Contains(next, target) {
				next = append(next, target)
			}
		}
		if len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// Filesystems resolves the per-dialect trees from the embedded migrations,
// or from source when given. Each tree must hold at least one up migration.
func Filesystems(source ...fs.FS) ([]FilesystemSpec, error) {
	root := integrations.GetMigrationsFS()
	if len(source) > 0 && source[0] != nil {
		root = source[0]
	}

	var out []FilesystemSpec
	for _, entry := range []struct{ dialect, dir string }{
		{DialectPostgres, rootDir},
		{DialectSQLite, path.Join(rootDir, "sqlite")},
	} {
		sub, err := fs.Sub(root, entry.dir)
		if err != nil {
			return nil, fmt.Errorf("migrations: resolve %s filesystem: %w", entry.dialect, err)
		}
		matches, err := fs.Glob(sub, "*.up.sql")
		if err != nil {
			return nil, fmt.Errorf("migrations: glob %s: %w", entry.dir, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("migrations: %s has no *.up.sql files", entry.dir)
		}
		out = append(out, FilesystemSpec{Dialect: entry.dialect, Path: entry.dir, FS: sub})
	}
	return out, nil
}

// Register hands each targeted dialect filesystem to registerFn. Every
// dialect is targeted unless WithValidationTargets narrows it.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       sourceLabel,
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if registerFn == nil {
		return reg, fmt.Errorf("migrations: register function is required")
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, target := range reg.ValidationTargets {
		idx := slices.IndexFunc(filesystems, func(spec FilesystemSpec) bool {
			return spec.Dialect == target
		})
		if idx < 0 {
			return reg, fmt.Errorf("migrations: unknown dialect %q", target)
		}
		spec := filesystems[idx]
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

// RegisterDialect registers only the filesystem for dialect.
func RegisterDialect(ctx context.Context, dialect string, register func(fs.FS)) error {
	if register == nil {
		return fmt.Errorf("migrations: register function is required")
	}
	_, err := Register(ctx, func(_ context.Context, _ string, _ string, fsys fs.FS) error {
		register(fsys)
		return nil
	}, WithValidationTargets(dialect))
	return err
}

func normalizeDialect(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "sqlite3" {
		return DialectSQLite
	}
	return value
}
