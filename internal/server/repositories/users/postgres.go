package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kairosweb/kairos/internal/common"
	"github.com/kairosweb/kairos/internal/dbx"
	"github.com/kairosweb/kairos/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// PostgresRepository is the raw-SQL strategy: parameterized queries over
// database/sql with the pgx driver.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) (*PostgresRepository, error) {
	return &PostgresRepository{db: db}, nil
}

func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("error performing sql request: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Register(ctx context.Context, user *models.User, profile *models.UserProfile) (int64, error) {
	var userID int64

	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query :=
			`INSERT INTO users (name, email, password_hash, role, is_active)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id
			 `
		if err := tx.QueryRowContext(ctx, query,
			user.Name, user.Email, user.PasswordHash, user.Role, user.IsActive).Scan(&userID); err != nil {
			return err
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO user_profiles
			     (user_id, education, skills, goals, experience, interests,
			      avatar_url, linkedin_url, github_url, portfolio_url)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			userID, profile.Education, profile.Skills, profile.Goals,
			profile.Experience, profile.Interests,
			profile.AvatarURL, profile.LinkedInURL, profile.GitHubURL, profile.PortfolioURL)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return 0, common.ErrorEmailExists
		}
		return 0, fmt.Errorf("error registering user: %w", err)
	}

	return userID, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getJoined(ctx, `WHERE u.email = $1`, email)
}

func (r *PostgresRepository) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	return r.getJoined(ctx, `WHERE u.id = $1`, userID)
}

// getJoined selects a user left-joined with its profile. The profile columns
// scan through nullable types because the profile row may be absent.
func (r *PostgresRepository) getJoined(ctx context.Context, where string, arg any) (*models.User, error) {
	query :=
		`SELECT u.id, u.name, u.email, u.password_hash, u.role, u.is_active,
		        u.last_login, u.created_at, u.updated_at,
		        p.id, p.education, p.skills, p.goals, p.experience, p.interests,
		        p.avatar_url, p.linkedin_url, p.github_url, p.portfolio_url
		 FROM users u
		 LEFT JOIN user_profiles p ON u.id = p.user_id
		 ` + where

	user := &models.User{}
	var lastLogin sql.NullTime
	var profileID sql.NullInt64
	var education, skills, goals, experience, interests sql.NullString
	var avatarURL, linkedinURL, githubURL, portfolioURL sql.NullString

	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role,
		&user.IsActive, &lastLogin, &user.CreatedAt, &user.UpdatedAt,
		&profileID, &education, &skills, &goals, &experience, &interests,
		&avatarURL, &linkedinURL, &githubURL, &portfolioURL)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing sql request: %w", err)
	}

	if lastLogin.Valid {
		user.LastLogin = &lastLogin.Time
	}

	if profileID.Valid {
		user.Profile = &models.UserProfile{
			ID:           profileID.Int64,
			UserID:       user.ID,
			Education:    education.String,
			Skills:       skills.String,
			Goals:        goals.String,
			Experience:   experience.String,
			Interests:    interests.String,
			AvatarURL:    avatarURL.String,
			LinkedInURL:  linkedinURL.String,
			GitHubURL:    githubURL.String,
			PortfolioURL: portfolioURL.String,
		}
	}

	return user, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE user_profiles SET
			     education     = COALESCE($1, education),
			     skills        = COALESCE($2, skills),
			     goals         = COALESCE($3, goals),
			     experience    = COALESCE($4, experience),
			     interests     = COALESCE($5, interests),
			     avatar_url    = COALESCE($6, avatar_url),
			     linkedin_url  = COALESCE($7, linkedin_url),
			     github_url    = COALESCE($8, github_url),
			     portfolio_url = COALESCE($9, portfolio_url),
			     updated_at    = now()
			 WHERE user_id = $10`,
			upd.Education, upd.Skills, upd.Goals, upd.Experience, upd.Interests,
			upd.AvatarURL, upd.LinkedInURL, upd.GitHubURL, upd.PortfolioURL,
			userID)
		if err != nil {
			return fmt.Errorf("error performing sql request: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return common.ErrorNotFound
		}
		return nil
	})
}

func (r *PostgresRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET last_login = now(), updated_at = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}
