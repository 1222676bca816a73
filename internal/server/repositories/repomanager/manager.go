// Package repomanager selects and owns the active persistence strategy.
// Connection handling, pool bounds, and schema migration all happen here,
// explicitly at startup — never as an import side effect.
package repomanager

import (
	"context"
	"fmt"

	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
)

// RepositoryManager hands out repositories backed by the strategy chosen at
// startup and owns the underlying connections.
type RepositoryManager interface {
	Users() users.Repository

	// Ping checks store reachability; used by the health endpoint.
	Ping(ctx context.Context) error

	// DatabaseName reports the connected database, for health output.
	DatabaseName() string

	Close() error
}

// New builds the manager for the strategy named by cfg.DBType.
func New(cfg *config.Config) (RepositoryManager, error) {
	switch cfg.DBType {
	case config.DBTypeSQL:
		return NewPostgresRepositoryManager(cfg)
	case config.DBTypeORM:
		return NewGormRepositoryManager(cfg)
	default:
		return nil, fmt.Errorf("unknown db type %q", cfg.DBType)
	}
}
