// Package services contains server-side business logic. This file implements
// UserService: email availability checks, registration, and credential
// verification with JWT issuance.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/kairosweb/kairos/internal/common"
	"github.com/kairosweb/kairos/internal/logging"
	"github.com/kairosweb/kairos/internal/server/auth"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/models"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
)

const (
	maxNameLen        = 255
	maxEmailLen       = 255
	maxProfileTextLen = 2000
	maxURLLen         = 500
)

// SignupInput carries the registration payload. All fields are required.
type SignupInput struct {
	Name      string
	Email     string
	Password  string
	Education string
	Skills    string
	Goals     string
}

// AuthResult is returned by both Signup and Signin: the created/loaded
// identity plus a freshly minted bearer token.
type AuthResult struct {
	ID        int64
	Name      string
	Email     string
	Education string
	Skills    string
	Goals     string
	Token     string
}

// UserService provides authentication-related operations over the active
// persistence strategy. Every repository call runs under the configured
// per-operation timeout so a saturated pool surfaces as an error instead of
// an unbounded wait.
type UserService struct {
	repo          users.Repository
	logger        logging.Logger
	jwtSecret     []byte
	tokenValidity time.Duration
	bcryptCost    int
	queryTimeout  time.Duration
}

// NewUserService constructs a UserService using the repository and server config.
func NewUserService(repo users.Repository, logger logging.Logger, cfg *config.Config) *UserService {
	return &UserService{
		repo:          repo,
		logger:        logger,
		jwtSecret:     []byte(cfg.SecretKey),
		tokenValidity: cfg.TokenValidityDuration,
		bcryptCost:    cfg.BcryptCost,
		queryTimeout:  cfg.QueryTimeout,
	}
}

// normalizeEmail lower-cases and trims the address, and validates its syntax.
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || len(email) > maxEmailLen {
		return "", fmt.Errorf("%w: valid email is required", common.ErrorValidation)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: valid email is required", common.ErrorValidation)
	}
	return email, nil
}

func (s *UserService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// CheckEmail reports whether the (normalized) email is still available.
func (s *UserService) CheckEmail(ctx context.Context, email string) (bool, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return false, err
	}
	return !exists, nil
}

// Signup validates the payload, hashes the password (exactly once), and
// registers user plus profile in a single transaction. The availability
// pre-check is advisory; the store's unique constraint decides races.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Education = strings.TrimSpace(in.Education)
	in.Skills = strings.TrimSpace(in.Skills)
	in.Goals = strings.TrimSpace(in.Goals)

	if in.Name == "" || in.Email == "" || in.Password == "" ||
		in.Education == "" || in.Skills == "" || in.Goals == "" {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrorValidation)
	}
	if len(in.Name) > maxNameLen {
		return nil, fmt.Errorf("%w: name too long", common.ErrorValidation)
	}
	for _, v := range []string{in.Education, in.Skills, in.Goals} {
		if len(v) > maxProfileTextLen {
			return nil, fmt.Errorf("%w: profile field too long", common.ErrorValidation)
		}
	}

	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	exists, err := s.repo.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, common.ErrorEmailExists
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
		IsActive:     true,
	}
	profile := &models.UserProfile{
		Education: in.Education,
		Skills:    in.Skills,
		Goals:     in.Goals,
	}

	id, err := s.repo.Register(ctx, user, profile)
	if err != nil {
		return nil, err
	}

	token, err := auth.GenerateToken(id, email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &AuthResult{
		ID:        id,
		Name:      in.Name,
		Email:     email,
		Education: in.Education,
		Skills:    in.Skills,
		Goals:     in.Goals,
		Token:     token,
	}, nil
}

// Signin verifies credentials and mints a token. Unknown email and wrong
// password collapse into the same ErrorUnauthorized so responses cannot be
// used as an account oracle.
func (s *UserService) Signin(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", common.ErrorValidation)
	}
	email = strings.ToLower(strings.TrimSpace(email))

	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, common.ErrorUnauthorized
	}

	// Best-effort; a failed stamp must not block the login.
	if err := s.repo.TouchLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn(ctx, "failed to stamp last login", "user_id", user.ID, "error", err.Error())
	}

	token, err := auth.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenValidity)
	if err != nil {
		return nil, common.ErrorInternal
	}

	res := &AuthResult{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Token: token,
	}
	if user.Profile != nil {
		res.Education = user.Profile.Education
		res.Skills = user.Profile.Skills
		res.Goals = user.Profile.Goals
	}
	return res, nil
}
