// Package models holds the persistent data model shared by both persistence
// strategies. The gorm tags drive schema creation for the ORM strategy; the
// raw-SQL strategy uses the goose migrations, which describe the same shape.
package models

import "time"

// Roles a user account can hold.
const (
	RoleUser   = "user"
	RoleAdmin  = "admin"
	RoleMentor = "mentor"
)

// User is an account holder. Email is stored lower-cased and is unique at
// the store level; the password is stored only as a bcrypt hash.
type User struct {
	ID           int64      `gorm:"primaryKey"`
	Name         string     `gorm:"size:255;not null"`
	Email        string     `gorm:"size:255;not null;uniqueIndex"`
	PasswordHash string     `gorm:"size:255;not null;column:password_hash"`
	Role         string     `gorm:"size:32;not null;default:user"`
	IsActive     bool       `gorm:"not null;default:true"`
	LastLogin    *time.Time `gorm:""`
	CreatedAt    time.Time
	UpdatedAt    time.Time

	Profile *UserProfile `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// UserProfile belongs to exactly one User and is created atomically with it
// during registration. URL fields are optional and validated in the service
// layer when present.
type UserProfile struct {
	ID           int64  `gorm:"primaryKey"`
	UserID       int64  `gorm:"not null;uniqueIndex"`
	Education    string `gorm:"size:2000"`
	Skills       string `gorm:"size:2000"`
	Goals        string `gorm:"size:2000"`
	Experience   string `gorm:"size:2000"`
	Interests    string `gorm:"size:2000"`
	AvatarURL    string `gorm:"size:500;column:avatar_url"`
	LinkedInURL  string `gorm:"size:500;column:linkedin_url"`
	GitHubURL    string `gorm:"size:500;column:github_url"`
	PortfolioURL string `gorm:"size:500;column:portfolio_url"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName keeps the ORM strategy on the same table as the SQL migrations.
func (UserProfile) TableName() string { return "user_profiles" }
