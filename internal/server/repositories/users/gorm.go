package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kairosweb/kairos/internal/common"
	"github.com/kairosweb/kairos/internal/server/models"
	"gorm.io/gorm"
)

// GormRepository is the ORM strategy. It requires a gorm.DB opened with
// TranslateError so duplicate-key violations surface as
// gorm.ErrDuplicatedKey.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) (*GormRepository, error) {
	return &GormRepository{db: db}, nil
}

func (r *GormRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("error performing orm request: %w", err)
	}
	return count > 0, nil
}

func (r *GormRepository) Register(ctx context.Context, user *models.User, profile *models.UserProfile) (int64, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}
		profile.UserID = user.ID
		return tx.Create(profile).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, common.ErrorEmailExists
		}
		return 0, fmt.Errorf("error registering user: %w", err)
	}
	return user.ID, nil
}

func (r *GormRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := r.db.WithContext(ctx).
		Preload("Profile").
		Where("email = ?", email).
		First(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing orm request: %w", err)
	}
	return user, nil
}

func (r *GormRepository) GetProfile(ctx context.Context, userID int64) (*models.User, error) {
	user := &models.User{}
	err := r.db.WithContext(ctx).
		Preload("Profile").
		First(user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error performing orm request: %w", err)
	}
	return user, nil
}

func (r *GormRepository) UpdateProfile(ctx context.Context, userID int64, upd ProfileUpdate) error {
	values := map[string]any{}
	set := func(column string, v *string) {
		if v != nil {
			values[column] = *v
		}
	}
	set("education", upd.Education)
	set("skills", upd.Skills)
	set("goals", upd.Goals)
	set("experience", upd.Experience)
	set("interests", upd.Interests)
	set("avatar_url", upd.AvatarURL)
	set("linkedin_url", upd.LinkedInURL)
	set("github_url", upd.GitHubURL)
	set("portfolio_url", upd.PortfolioURL)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.UserProfile{}).
			Where("user_id = ?", userID).
			Updates(values)
		if res.Error != nil {
			return fmt.Errorf("error performing orm request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return common.ErrorNotFound
		}
		return nil
	})
}

func (r *GormRepository) TouchLastLogin(ctx context.Context, userID int64) error {
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login", time.Now()).Error
	if err != nil {
		return fmt.Errorf("error performing orm request: %w", err)
	}
	return nil
}
