package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/migrations"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager backs the raw-SQL strategy: database/sql over
// the pgx driver with goose-managed schema.
type PostgresRepositoryManager struct {
	db     *sql.DB
	users  users.Repository
	dbName string
}

func (m *PostgresRepositoryManager) Users() users.Repository { return m.users }

func (m *PostgresRepositoryManager) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

func (m *PostgresRepositoryManager) DatabaseName() string { return m.dbName }

func (m *PostgresRepositoryManager) Close() error { return m.db.Close() }

func (m *PostgresRepositoryManager) runMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, m.db, ".")
}

// NewPostgresRepositoryManager opens the pool, applies the pool bounds from
// config, runs migrations, and wires the repositories. Failing fast here is
// deliberate: the process must not serve requests against an unready store.
func NewPostgresRepositoryManager(cfg *config.Config) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	// Bound concurrent sessions; excess acquisitions wait but every store
	// operation runs under the service-level QueryTimeout, so waiting is
	// bounded too.
	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxOpenConns)
	db.SetConnMaxIdleTime(5 * time.Minute)

	userRepo, err := users.NewPostgresRepository(db)
	if err != nil {
		return nil, fmt.Errorf("user repo creation error: %w", err)
	}

	m := &PostgresRepositoryManager{
		db:     db,
		users:  userRepo,
		dbName: databaseNameFromDSN(cfg.DSN()),
	}

	if err := m.runMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}

func databaseNameFromDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(u.Path, "/")
}
