package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	cloudlib "github.com/goliatone/go-cloudlib"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

const embeddedRoot = "data/sql/migrations"

// FilesystemSpec is one dialect's migration directory.
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

// RegisterFunc receives one dialect filesystem. Callers usually hand fsys to
// a go-persistence-bun client and skip dialects they do not run.
type RegisterFunc func(ctx context.Context, dialect string, sourceLabel string, fsys fs.FS) error

type Option func(*Registration)

func WithDialectSourceLabel(label string) Option {
	return func(r *Registration) {
		if trimmed := strings.TrimSpace(label); trimmed != "" {
			r.SourceLabel = trimmed
		}
	}
}

// WithValidationTargets limits registration to the named dialects. Blank
// names are ignored; an all-blank list keeps the defaults.
func WithValidationTargets(targets ...string) Option {
	return func(r *Registration) {
		if next := dedupe(targets); len(next) > 0 {
			r.ValidationTargets = next
		}
	}
}

// WithFilesystems replaces the embedded tree. Entries without a dialect or
// filesystem are dropped.
func WithFilesystems(filesystems ...FilesystemSpec) Option {
	return func(r *Registration) {
		kept := make([]FilesystemSpec, 0, len(filesystems))
		for _, spec := range filesystems {
			dialect := normalizeDialect(spec.Dialect)
			if dialect == "" || spec.FS == nil {
				continue
			}
			kept = append(kept, FilesystemSpec{Dialect: dialect, Path: spec.Path, FS: spec.FS})
		}
		if len(kept) > 0 {
			r.Filesystems = kept
		}
	}
}

// Filesystems splits a migration tree into its postgres and sqlite halves.
// The embedded tree is used unless a source is given.
func Filesystems(sources ...fs.FS) ([]FilesystemSpec, error) {
	root := cloudlib.GetMigrationsFS()
	if len(sources) > 0 && sources[0] != nil {
		root = sources[0]
	}

	postgresFS, postgresPath, err := migrationsRoot(root)
	if err != nil {
		return nil, err
	}
	sqliteFS, err := fs.Sub(postgresFS, DialectSQLite)
	if err != nil {
		return nil, fmt.Errorf("migrations: resolve sqlite filesystem: %w", err)
	}

	specs := []FilesystemSpec{
		{Dialect: DialectPostgres, Path: postgresPath, FS: postgresFS},
		{Dialect: DialectSQLite, Path: pathJoin(postgresPath, DialectSQLite), FS: sqliteFS},
	}
	for _, spec := range specs {
		if err := requireUpMigrations(spec); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

func requireUpMigrations(spec FilesystemSpec) error {
	matches, err := fs.Glob(spec.FS, "*.up.sql")
	if err != nil {
		return fmt.Errorf("migrations: glob %s %s: %w", spec.Dialect, spec.Path, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("migrations: %s filesystem %q has no *.up.sql files", spec.Dialect, spec.Path)
	}
	return nil
}

// Register hands every targeted dialect filesystem to registerFn, stopping at
// the first error.
func Register(ctx context.Context, registerFn RegisterFunc, opts ...Option) (Registration, error) {
	reg := Registration{
		SourceLabel:       "go-cloudlib",
		ValidationTargets: []string{DialectPostgres, DialectSQLite},
	}

	filesystems, err := Filesystems()
	if err != nil {
		return reg, err
	}
	reg.Filesystems = filesystems

	for _, opt := range opts {
		if opt != nil {
			opt(&reg)
		}
	}
	if err := reg.validate(registerFn); err != nil {
		return reg, err
	}

	for _, spec := range reg.Filesystems {
		if !slices.Contains(reg.ValidationTargets, spec.Dialect) {
			continue
		}
		if err := registerFn(ctx, spec.Dialect, reg.SourceLabel, spec.FS); err != nil {
			return reg, fmt.Errorf("migrations: register %s (%s): %w", spec.Dialect, spec.Path, err)
		}
	}
	return reg, nil
}

func (r *Registration) validate(registerFn RegisterFunc) error {
	r.ValidationTargets = dedupe(r.ValidationTargets)
	switch {
	case len(r.ValidationTargets) == 0:
		return fmt.Errorf("migrations: validation targets are required")
	case strings.TrimSpace(r.SourceLabel) == "":
		return fmt.Errorf("migrations: source label is required")
	case len(r.Filesystems) == 0:
		return fmt.Errorf("migrations: filesystems are required")
	case registerFn == nil:
		return fmt.Errorf("migrations: register function is required")
	}
	for _, spec := range r.Filesystems {
		if spec.FS == nil {
			return fmt.Errorf("migrations: filesystem for %s is nil", spec.Dialect)
		}
	}
	return nil
}

// migrationsRoot accepts either the module tree (data/sql/migrations inside)
// or a directory that holds the postgres .sql files directly.
func migrationsRoot(root fs.FS) (fs.FS, string, error) {
	if info, err := fs.Stat(root, embeddedRoot); err == nil && info.IsDir() {
		sub, err := fs.Sub(root, embeddedRoot)
		if err != nil {
			return nil, "", fmt.Errorf("migrations: resolve %s: %w", embeddedRoot, err)
		}
		return sub, embeddedRoot, nil
	}

	if entries, err := fs.ReadDir(root, "."); err == nil {
		for _, entry := range entries {
			if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
				return root, ".", nil
			}
		}
	}
	return nil, "", fmt.Errorf("migrations: %s not found: %w", embeddedRoot, fs.ErrNotExist)
}

func normalizeDialect(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		dialect := normalizeDialect(value)
		if dialect == "" || slices.Contains(out, dialect) {
			continue
		}
		out = append(out, dialect)
	}
	return out
}

func pathJoin(base string, suffix string) string {
	if base == "." {
		return suffix
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(suffix, "/")
}
