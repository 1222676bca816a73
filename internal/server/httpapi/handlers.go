package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kairosweb/kairos/internal/common"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
	"github.com/kairosweb/kairos/internal/server/services"
)

type checkEmailRequest struct {
	Email string `json:"email"`
}

type signupRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Education string `json:"education"`
	Skills    string `json:"skills"`
	Goals     string `json:"goals"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Education string `json:"education"`
	Skills    string `json:"skills"`
	Goals     string `json:"goals"`
	Token     string `json:"token"`
}

type profileResponse struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	Role         string     `json:"role"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	Education    string     `json:"education"`
	Skills       string     `json:"skills"`
	Goals        string     `json:"goals"`
	Experience   string     `json:"experience"`
	Interests    string     `json:"interests"`
	AvatarURL    string     `json:"avatar_url,omitempty"`
	LinkedInURL  string     `json:"linkedin_url,omitempty"`
	GitHubURL    string     `json:"github_url,omitempty"`
	PortfolioURL string     `json:"portfolio_url,omitempty"`
}

type updateProfileRequest struct {
	Education    *string `json:"education"`
	Skills       *string `json:"skills"`
	Goals        *string `json:"goals"`
	Experience   *string `json:"experience"`
	Interests    *string `json:"interests"`
	AvatarURL    *string `json:"avatar_url"`
	LinkedInURL  *string `json:"linkedin_url"`
	GitHubURL    *string `json:"github_url"`
	PortfolioURL *string `json:"portfolio_url"`
}

// httpError translates service/repository sentinels into client responses.
// Unknown errors pass through and become a logged 500.
func httpError(err error) error {
	switch {
	case errors.Is(err, common.ErrorEmailExists):
		return fiber.NewError(fiber.StatusBadRequest, "Email already exists")
	case errors.Is(err, common.ErrorValidation):
		return fiber.NewError(fiber.StatusBadRequest, validationMessage(err))
	case errors.Is(err, common.ErrorUnauthorized):
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, common.ErrorNotFound):
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	default:
		return err
	}
}

// validationMessage turns "validation error: all fields are required" into
// "All fields are required".
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), common.ErrorValidation.Error()+": ")
	if msg == "" || msg == common.ErrorValidation.Error() {
		return "Invalid request"
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}

func (s *Server) health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unavailable",
			"error":  "database unreachable",
		})
	}

	return c.JSON(fiber.Map{
		"status":      "OK",
		"database":    s.store.DatabaseName(),
		"environment": s.config.Env,
	})
}

func (s *Server) checkEmail(c *fiber.Ctx) error {
	var body checkEmailRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Valid email is required")
	}

	available, err := s.users.CheckEmail(c.UserContext(), body.Email)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"available": available})
}

func (s *Server) signup(c *fiber.Ctx) error {
	var body signupRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "All fields are required")
	}

	res, err := s.users.Signup(c.UserContext(), services.SignupInput{
		Name:      body.Name,
		Email:     body.Email,
		Password:  body.Password,
		Education: body.Education,
		Skills:    body.Skills,
		Goals:     body.Goals,
	})
	if err != nil {
		return httpError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(authResponse{
		ID:        res.ID,
		Name:      res.Name,
		Email:     res.Email,
		Education: res.Education,
		Skills:    res.Skills,
		Goals:     res.Goals,
		Token:     res.Token,
	})
}

func (s *Server) signin(c *fiber.Ctx) error {
	var body signinRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Email and password are required")
	}

	res, err := s.users.Signin(c.UserContext(), body.Email, body.Password)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(authResponse{
		ID:        res.ID,
		Name:      res.Name,
		Email:     res.Email,
		Education: res.Education,
		Skills:    res.Skills,
		Goals:     res.Goals,
		Token:     res.Token,
	})
}

func userIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "Invalid user id")
	}
	return int64(id), nil
}

// requireOwner rejects writes against another user's profile. Reads stay
// open to any authenticated user.
func requireOwner(c *fiber.Ctx, userID int64) error {
	claims := claimsFromCtx(c)
	if claims == nil || claims.UserID != userID {
		return fiber.NewError(fiber.StatusForbidden, "Forbidden")
	}
	return nil
}

func (s *Server) getProfile(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}

	user, err := s.profiles.Get(c.UserContext(), userID)
	if err != nil {
		return httpError(err)
	}

	resp := profileResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Role:      user.Role,
		IsActive:  user.IsActive,
		LastLogin: user.LastLogin,
	}
	if user.Profile != nil {
		resp.Education = user.Profile.Education
		resp.Skills = user.Profile.Skills
		resp.Goals = user.Profile.Goals
		resp.Experience = user.Profile.Experience
		resp.Interests = user.Profile.Interests
		resp.AvatarURL = user.Profile.AvatarURL
		resp.LinkedInURL = user.Profile.LinkedInURL
		resp.GitHubURL = user.Profile.GitHubURL
		resp.PortfolioURL = user.Profile.PortfolioURL
	}

	return c.JSON(resp)
}

func (s *Server) updateProfile(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := requireOwner(c, userID); err != nil {
		return err
	}

	var body updateProfileRequest
	if err := c.BodyParser(&body); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "No fields to update")
	}

	err = s.profiles.Update(c.UserContext(), userID, users.ProfileUpdate{
		Education:    body.Education,
		Skills:       body.Skills,
		Goals:        body.Goals,
		Experience:   body.Experience,
		Interests:    body.Interests,
		AvatarURL:    body.AvatarURL,
		LinkedInURL:  body.LinkedInURL,
		GitHubURL:    body.GitHubURL,
		PortfolioURL: body.PortfolioURL,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": "Profile updated successfully"})
}

func (s *Server) avatarUploadURL(c *fiber.Ctx) error {
	if !s.profiles.AvatarStorageEnabled() {
		return fiber.NewError(fiber.StatusServiceUnavailable, "Avatar storage not configured")
	}

	userID, err := userIDParam(c)
	if err != nil {
		return err
	}
	if err := requireOwner(c, userID); err != nil {
		return err
	}

	uploadURL, key, err := s.profiles.AvatarUploadURL(c.UserContext(), userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"upload_url": uploadURL, "key": key})
}

func (s *Server) avatarGetURL(c *fiber.Ctx) error {
	userID, err := userIDParam(c)
	if err != nil {
		return err
	}

	user, err := s.profiles.Get(c.UserContext(), userID)
	if err != nil {
		return httpError(err)
	}
	if user.Profile == nil || user.Profile.AvatarURL == "" {
		return fiber.NewError(fiber.StatusNotFound, "No avatar uploaded")
	}

	url, err := s.profiles.AvatarURL(c.UserContext(), user.Profile.AvatarURL)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"url": url})
}
