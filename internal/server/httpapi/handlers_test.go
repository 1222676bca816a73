package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kairosweb/kairos/internal/common"
	"github.com/kairosweb/kairos/internal/logging"
	"github.com/kairosweb/kairos/internal/server/auth"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/models"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
	"github.com/kairosweb/kairos/internal/server/services"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeAuthenticator struct {
	available bool
	checkErr  error

	signupOut *services.AuthResult
	signupErr error

	signinOut *services.AuthResult
	signinErr error

	lastCheckedEmail string
}

func (f *fakeAuthenticator) CheckEmail(ctx context.Context, email string) (bool, error) {
	f.lastCheckedEmail = email
	return f.available, f.checkErr
}

func (f *fakeAuthenticator) Signup(ctx context.Context, in services.SignupInput) (*services.AuthResult, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return f.signupOut, nil
}

func (f *fakeAuthenticator) Signin(ctx context.Context, email, password string) (*services.AuthResult, error) {
	if f.signinErr != nil {
		return nil, f.signinErr
	}
	return f.signinOut, nil
}

type fakeProfiles struct {
	getOut *models.User
	getErr error

	updateErr   error
	updatedWith users.ProfileUpdate

	storageEnabled bool
	uploadURL      string
	uploadKey      string
	getURL         string
	presignErr     error
}

func (f *fakeProfiles) Get(ctx context.Context, userID int64) (*models.User, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.getOut, nil
}

func (f *fakeProfiles) Update(ctx context.Context, userID int64, upd users.ProfileUpdate) error {
	f.updatedWith = upd
	return f.updateErr
}

func (f *fakeProfiles) AvatarStorageEnabled() bool { return f.storageEnabled }

func (f *fakeProfiles) AvatarUploadURL(ctx context.Context, userID int64) (string, string, error) {
	return f.uploadURL, f.uploadKey, f.presignErr
}

func (f *fakeProfiles) AvatarURL(ctx context.Context, key string) (string, error) {
	return f.getURL, f.presignErr
}

type fakeHealth struct {
	pingErr error
}

func (f *fakeHealth) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeHealth) DatabaseName() string           { return "kairos_db" }

// --- helpers ---

func newTestServer(t *testing.T, auth *fakeAuthenticator, profiles *fakeProfiles, health *fakeHealth) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.LoadDefaults()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewServer(cfg, logger, auth, profiles, health)
}

func doJSON(t *testing.T, s *Server, method, path string, body any, header map[string]string) (*http.Response, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	decoded := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded), "body: %s", raw)
	}
	return resp, decoded
}

func bearer(t *testing.T, userID int64) map[string]string {
	t.Helper()
	tok, err := auth.GenerateToken(userID, "jo@x.com", []byte("secretKey"), time.Hour)
	require.NoError(t, err)
	return map[string]string{"Authorization": "Bearer " + tok}
}

// --- health ---

func TestHealth_OK(t *testing.T) {
	s := newTestServer(t, &fakeAuthenticator{}, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", body["status"])
	require.Equal(t, "kairos_db", body["database"])
}

func TestHealth_DBDown(t *testing.T) {
	s := newTestServer(t, &fakeAuthenticator{}, &fakeProfiles{}, &fakeHealth{pingErr: errors.New("down")})

	resp, body := doJSON(t, s, http.MethodGet, "/api/health", nil, nil)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	require.Equal(t, "unavailable", body["status"])
}

// --- check-email ---

func TestCheckEmail_ReturnsAvailability(t *testing.T) {
	fa := &fakeAuthenticator{available: false}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/check-email",
		map[string]string{"email": "jo@x.com"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, false, body["available"])
	require.Equal(t, "jo@x.com", fa.lastCheckedEmail)
}

func TestCheckEmail_InvalidEmail(t *testing.T) {
	fa := &fakeAuthenticator{checkErr: common.ErrorValidation}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, _ := doJSON(t, s, http.MethodPost, "/api/auth/check-email",
		map[string]string{"email": "nope"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// --- signup ---

func TestSignup_Created(t *testing.T) {
	fa := &fakeAuthenticator{signupOut: &services.AuthResult{
		ID: 7, Name: "Jo", Email: "jo@x.com",
		Education: "X", Skills: "Y", Goals: "Z", Token: "tok",
	}}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Jo", "email": "Jo@X.com", "password": "longenough",
		"education": "X", "skills": "Y", "goals": "Z",
	}, nil)

	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, float64(7), body["id"])
	require.Equal(t, "jo@x.com", body["email"])
	require.Equal(t, "tok", body["token"])
}

func TestSignup_MissingFields(t *testing.T) {
	fa := &fakeAuthenticator{signupErr: fmt.Errorf("%w: all fields are required", common.ErrorValidation)}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/signup",
		map[string]string{"name": "Jo"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "All fields are required", body["error"])
}

func TestSignup_EmailTaken(t *testing.T) {
	fa := &fakeAuthenticator{signupErr: common.ErrorEmailExists}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Jo", "email": "jo@x.com", "password": "longenough",
		"education": "X", "skills": "Y", "goals": "Z",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Email already exists", body["error"])
}

func TestSignup_StoreFailureIs500WithGenericBody(t *testing.T) {
	fa := &fakeAuthenticator{signupErr: errors.New("pq: connection reset")}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/signup", map[string]string{
		"name": "Jo", "email": "jo@x.com", "password": "longenough",
		"education": "X", "skills": "Y", "goals": "Z",
	}, nil)
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "Internal server error", body["error"], "internal detail must not leak")
}

// --- signin ---

func TestSignin_UniformUnauthorizedBody(t *testing.T) {
	fa := &fakeAuthenticator{signinErr: common.ErrorUnauthorized}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp1, body1 := doJSON(t, s, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": "unknown@x.com", "password": "whatever"}, nil)
	resp2, body2 := doJSON(t, s, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": "jo@x.com", "password": "wrongpassword"}, nil)

	require.Equal(t, http.StatusUnauthorized, resp1.StatusCode)
	require.Equal(t, http.StatusUnauthorized, resp2.StatusCode)
	require.Equal(t, body1, body2, "unknown email and wrong password must be indistinguishable")
	require.Equal(t, "Invalid credentials", body1["error"])
}

func TestSignin_OK(t *testing.T) {
	fa := &fakeAuthenticator{signinOut: &services.AuthResult{
		ID: 7, Name: "Jo", Email: "jo@x.com", Education: "A", Skills: "B", Goals: "C", Token: "tok",
	}}
	s := newTestServer(t, fa, &fakeProfiles{}, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/auth/signin",
		map[string]string{"email": "jo@x.com", "password": "longenough"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "A", body["education"])
	require.Equal(t, "tok", body["token"])
}

// --- profile routes (auth) ---

func TestProfile_RequiresToken(t *testing.T) {
	s := newTestServer(t, &fakeAuthenticator{}, &fakeProfiles{}, &fakeHealth{})

	resp, _ := doJSON(t, s, http.MethodGet, "/api/user/profile/7", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = doJSON(t, s, http.MethodGet, "/api/user/profile/7", nil,
		map[string]string{"Authorization": "Bearer garbage"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetProfile_OK(t *testing.T) {
	fp := &fakeProfiles{getOut: &models.User{
		ID: 7, Name: "Jo", Email: "jo@x.com", Role: models.RoleUser, IsActive: true,
		Profile: &models.UserProfile{Education: "A", Skills: "B", Goals: "C", GitHubURL: "https://github.com/jo"},
	}}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/user/profile/7", nil, bearer(t, 7))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Jo", body["name"])
	require.Equal(t, "A", body["education"])
	require.Equal(t, "https://github.com/jo", body["github_url"])
}

func TestGetProfile_NotFound(t *testing.T) {
	fp := &fakeProfiles{getErr: common.ErrorNotFound}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/user/profile/99", nil, bearer(t, 7))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "User not found", body["error"])
}

func TestUpdateProfile_OK(t *testing.T) {
	fp := &fakeProfiles{}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPut, "/api/user/profile/7",
		map[string]string{"education": "A", "skills": "B", "goals": "C"}, bearer(t, 7))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Profile updated successfully", body["message"])
	require.Equal(t, "A", *fp.updatedWith.Education)
	require.Nil(t, fp.updatedWith.Experience, "absent fields must stay nil")
}

func TestUpdateProfile_NoFields(t *testing.T) {
	fp := &fakeProfiles{updateErr: fmt.Errorf("%w: no fields to update", common.ErrorValidation)}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, _ := doJSON(t, s, http.MethodPut, "/api/user/profile/7",
		map[string]string{}, bearer(t, 7))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateProfile_OtherUserForbidden(t *testing.T) {
	fp := &fakeProfiles{}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPut, "/api/user/profile/8",
		map[string]string{"education": "A"}, bearer(t, 7))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "Forbidden", body["error"])
	require.Nil(t, fp.updatedWith.Education)
}

func TestUpdateProfile_BadID(t *testing.T) {
	s := newTestServer(t, &fakeAuthenticator{}, &fakeProfiles{}, &fakeHealth{})

	resp, _ := doJSON(t, s, http.MethodPut, "/api/user/profile/abc",
		map[string]string{"education": "A"}, bearer(t, 7))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// --- avatar routes ---

func TestAvatarUploadURL_OK(t *testing.T) {
	fp := &fakeProfiles{storageEnabled: true, uploadURL: "https://signed", uploadKey: "avatars/7/k"}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodPost, "/api/user/profile/7/avatar-url", nil, bearer(t, 7))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://signed", body["upload_url"])
	require.Equal(t, "avatars/7/k", body["key"])
}

func TestAvatarUploadURL_Unconfigured(t *testing.T) {
	s := newTestServer(t, &fakeAuthenticator{}, &fakeProfiles{storageEnabled: false}, &fakeHealth{})

	resp, _ := doJSON(t, s, http.MethodPost, "/api/user/profile/7/avatar-url", nil, bearer(t, 7))
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestAvatarGet_ExternalURLWithoutStorage(t *testing.T) {
	fp := &fakeProfiles{
		storageEnabled: false,
		getOut:         &models.User{ID: 7, Profile: &models.UserProfile{AvatarURL: "https://cdn.example.com/me.png"}},
		getURL:         "https://cdn.example.com/me.png",
	}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, body := doJSON(t, s, http.MethodGet, "/api/user/profile/7/avatar", nil, bearer(t, 7))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "https://cdn.example.com/me.png", body["url"])
}

func TestAvatarGet_NoneUploaded(t *testing.T) {
	fp := &fakeProfiles{storageEnabled: true, getOut: &models.User{ID: 7, Profile: &models.UserProfile{}}}
	s := newTestServer(t, &fakeAuthenticator{}, fp, &fakeHealth{})

	resp, _ := doJSON(t, s, http.MethodGet, "/api/user/profile/7/avatar", nil, bearer(t, 7))
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}
