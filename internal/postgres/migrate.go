package postgres

import (
	"embed"
	"fmt"
	"net/url"
	"regexp"

	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrations embed.FS

const migrationsDir = "migrations"

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Migrator applies the embedded schema migrations to one PostgreSQL schema.
type Migrator struct {
	postgresURL string
	schemaName  string
}

func NewMigrator(postgresURL, schemaName string) (*Migrator, error) {
	if err := validateSchema(schemaName); err != nil {
		return nil, err
	}
	return &Migrator{
		postgresURL: postgresURL,
		schemaName:  schemaName,
	}, nil
}

func (m *Migrator) Up() error {
	zap.L().Info("Applying migrations", zap.String("schema", m.schemaName))

	goose.SetBaseFS(migrations)
	goose.SetTableName(m.schemaName + ".migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	dsn, err := withSearchPath(m.postgresURL, m.schemaName)
	if err != nil {
		return err
	}
	db, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			zap.L().Warn("Failed to close migration connection", zap.Error(err))
		}
	}()

	if _, err := db.Exec("CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{m.schemaName}.Sanitize()); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to up migrations: %w", err)
	}

	return nil
}

// Down rolls back every migration and drops the schema.
func (m *Migrator) Down() error {
	zap.L().Warn("Rolling back migrations", zap.String("schema", m.schemaName))

	goose.SetBaseFS(migrations)
	goose.SetTableName(m.schemaName + ".migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	dsn, err := withSearchPath(m.postgresURL, m.schemaName)
	if err != nil {
		return err
	}
	db, err := goose.OpenDBWithDriver("postgres", dsn)
	if err != nil {
		return fmt.Errorf("failed to open DB for migration: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			zap.L().Warn("Failed to close migration connection", zap.Error(err))
		}
	}()

	if err := goose.Reset(db, migrationsDir); err != nil {
		return fmt.Errorf("failed to down migrations: %w", err)
	}
	if _, err := db.Exec("DROP SCHEMA IF EXISTS " + pgx.Identifier{m.schemaName}.Sanitize() + " CASCADE"); err != nil {
		return fmt.Errorf("failed to delete schema: %w", err)
	}

	return nil
}

func validateSchema(schema string) error {
	if !schemaPattern.MatchString(schema) {
		return fmt.Errorf("invalid schema name %q", schema)
	}
	return nil
}

// withSearchPath pins the session search_path so unqualified table names
// resolve inside schema.
func withSearchPath(postgresURL, schema string) (string, error) {
	u, err := url.Parse(postgresURL)
	if err != nil {
		return "", fmt.Errorf("invalid postgres url: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return "", fmt.Errorf("invalid postgres url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
