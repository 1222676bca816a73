// Package users defines the persistence contract for accounts and their
// profiles, with two interchangeable implementations: raw parameterized SQL
// (PostgresRepository) and an ORM (GormRepository). The active one is chosen
// once at startup by the repomanager; never both for the same call.
package users

import (
	"context"

	"github.com/kairosweb/kairos/internal/server/models"
)

// ProfileUpdate carries the updatable profile fields. Nil means "leave
// unchanged"; the caller must supply at least one non-nil field.
type ProfileUpdate struct {
	Education    *string
	Skills       *string
	Goals        *string
	Experience   *string
	Interests    *string
	AvatarURL    *string
	LinkedInURL  *string
	GitHubURL    *string
	PortfolioURL *string
}

// Empty reports whether the update carries no fields at all.
func (p ProfileUpdate) Empty() bool {
	return p.Education == nil && p.Skills == nil && p.Goals == nil &&
		p.Experience == nil && p.Interests == nil &&
		p.AvatarURL == nil && p.LinkedInURL == nil && p.GitHubURL == nil &&
		p.PortfolioURL == nil
}

// Repository is the capability set both strategies implement.
//
// Error contract: lookups return common.ErrorNotFound when nothing matches;
// Register returns common.ErrorEmailExists when the store's unique
// constraint rejects the email. The email pre-check in the API layer is
// advisory only — the constraint is the real uniqueness guard, because the
// check-then-insert sequence has a race window.
type Repository interface {
	// EmailExists reports whether a user with the exact (lower-cased) email
	// exists. No side effects.
	EmailExists(ctx context.Context, email string) (bool, error)

	// Register inserts the user and its dependent profile in one
	// transaction and returns the new user id. On any failure the whole
	// transaction rolls back; no partial state is observable.
	Register(ctx context.Context, user *models.User, profile *models.UserProfile) (int64, error)

	// GetByEmail fetches the user joined with its profile (left join — the
	// profile may be absent).
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// GetProfile fetches the user joined with its profile by id.
	GetProfile(ctx context.Context, userID int64) (*models.User, error)

	// UpdateProfile transactionally updates the profile belonging to
	// userID. Returns common.ErrorNotFound when no profile row matched.
	UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) error

	// TouchLastLogin stamps users.last_login with the current time.
	TouchLastLogin(ctx context.Context, userID int64) error
}
