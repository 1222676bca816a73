package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/kairosweb/kairos/internal/common"
	"github.com/kairosweb/kairos/internal/logging"
	"github.com/kairosweb/kairos/internal/server/config"
	"github.com/kairosweb/kairos/internal/server/models"
	"github.com/kairosweb/kairos/internal/server/repositories/users"
)

// Test seams for the S3 presigning path.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// ProfileService reads and updates user profiles and hands out presigned
// URLs for avatar storage when an S3-compatible backend is configured.
type ProfileService struct {
	repo         users.Repository
	logger       logging.Logger
	config       *config.Config
	queryTimeout time.Duration
}

func NewProfileService(repo users.Repository, logger logging.Logger, cfg *config.Config) *ProfileService {
	return &ProfileService{
		repo:         repo,
		logger:       logger,
		config:       cfg,
		queryTimeout: cfg.QueryTimeout,
	}
}

// AvatarStorageEnabled reports whether the presign endpoints can be served.
func (s *ProfileService) AvatarStorageEnabled() bool {
	return s.config.S3Bucket != ""
}

// Get fetches a user with its (possibly absent) profile.
func (s *ProfileService) Get(ctx context.Context, userID int64) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.repo.GetProfile(ctx, userID)
}

func validOptionalURL(v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if len(*v) > maxURLLen {
		return fmt.Errorf("%w: url too long", common.ErrorValidation)
	}
	u, err := url.Parse(*v)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: malformed url", common.ErrorValidation)
	}
	return nil
}

// validAvatarRef additionally accepts the bare storage keys handed out by
// AvatarUploadURL, so clients can persist the key they were given.
func validAvatarRef(v *string) error {
	if v != nil && strings.HasPrefix(*v, avatarKeyPrefix) {
		if len(*v) > maxURLLen {
			return fmt.Errorf("%w: url too long", common.ErrorValidation)
		}
		return nil
	}
	return validOptionalURL(v)
}

// Update applies a partial profile update. At least one field must be
// present; URL fields must be well-formed absolute http(s) URLs.
func (s *ProfileService) Update(ctx context.Context, userID int64, upd users.ProfileUpdate) error {
	if upd.Empty() {
		return fmt.Errorf("%w: no fields to update", common.ErrorValidation)
	}

	for _, v := range []*string{upd.Education, upd.Skills, upd.Goals, upd.Experience, upd.Interests} {
		if v != nil && len(*v) > maxProfileTextLen {
			return fmt.Errorf("%w: profile field too long", common.ErrorValidation)
		}
	}
	for _, v := range []*string{upd.LinkedInURL, upd.GitHubURL, upd.PortfolioURL} {
		if err := validOptionalURL(v); err != nil {
			return err
		}
	}
	if err := validAvatarRef(upd.AvatarURL); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return s.repo.UpdateProfile(ctx, userID, upd)
}

// avatarKeyPrefix marks stored avatar references as object-storage keys
// rather than external URLs.
const avatarKeyPrefix = "avatars/"

func avatarStorageKey(userID int64) string {
	return fmt.Sprintf("%s%d/%v", avatarKeyPrefix, userID, uuid.New())
}

func (s *ProfileService) getPresignClient() (*s3.PresignClient, error) {
	cfg, err := loadDefaultAWSConfig(context.Background(),
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		}
	})

	return newS3PresignClient(client), nil
}

// AvatarUploadURL returns a presigned PUT URL and the object key the client
// should reference (via AvatarURL) once the upload finishes.
func (s *ProfileService) AvatarUploadURL(ctx context.Context, userID int64) (string, string, error) {
	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", "", err
	}

	key := avatarStorageKey(userID)

	req, err := presignPutObject(presignClient, ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", "", err
	}

	return req.URL, key, nil
}

// AvatarURL resolves a stored avatar reference into something a browser can
// fetch: storage keys get a presigned GET URL, absolute URLs (externally
// hosted avatars) pass through unchanged.
func (s *ProfileService) AvatarURL(ctx context.Context, ref string) (string, error) {
	if !strings.HasPrefix(ref, avatarKeyPrefix) {
		return ref, nil
	}
	if !s.AvatarStorageEnabled() {
		return "", fmt.Errorf("avatar storage not configured, cannot resolve key %q", ref)
	}

	presignClient, err := s.getPresignClient()
	if err != nil {
		return "", err
	}

	req, err := presignGetObject(presignClient, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(ref),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", err
	}

	return req.URL, nil
}
