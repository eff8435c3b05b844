package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	"github.com/funnelhq/funnel-api/pkg/auth"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/security"
)

// SignupResponse returns the new identity together with its tokens so
// the client can land directly in the dashboard.
type SignupResponse struct {
	User         *model.User         `json:"user"`
	Organization *model.Organization `json:"organization"`
	Tokens       model.TokenResponse `json:"tokens"`
}

type Servicer interface {
	Signup(ctx context.Context, req *model.SignupRequest) (*SignupResponse, error)
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error)
	Me(ctx context.Context, userID uuid.UUID) (*model.User, error)
}

type Service struct {
	userRepo       repository.UserRepository
	orgRepo        repository.OrganizationRepository
	membershipRepo repository.MembershipRepository
	jwt            auth.JWTService
	hasher         security.PasswordHasher
	accessTTL      time.Duration
	logger         zerolog.Logger
}

func NewService(
	userRepo repository.UserRepository,
	orgRepo repository.OrganizationRepository,
	membershipRepo repository.MembershipRepository,
	jwt auth.JWTService,
	hasher security.PasswordHasher,
	accessTTL time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		userRepo:       userRepo,
		orgRepo:        orgRepo,
		membershipRepo: membershipRepo,
		jwt:            jwt,
		hasher:         hasher,
		accessTTL:      accessTTL,
		logger:         logger,
	}
}

// Signup creates the user, their organization and the owner
// membership in one flow. Every new account starts as the owner of a
// fresh org; joining an existing org goes through member invitations.
func (s *Service) Signup(ctx context.Context, req *model.SignupRequest) (*SignupResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	if existing, _ := s.userRepo.GetByEmail(ctx, email); existing != nil {
		return nil, apperrors.BadRequest("email is already registered", nil)
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &model.User{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		Status:       model.UserStatusActive,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.Internal(err)
	}

	org := &model.Organization{
		Name: req.OrganizationName,
		Slug: model.Slugify(req.OrganizationName),
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, apperrors.Internal(err)
	}

	membership := &model.Membership{
		OrganizationID: org.ID,
		UserID:         user.ID,
		Role:           model.RoleOwner,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, apperrors.Internal(err)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("organization_id", org.ID.String()).
		Msg("user signed up")

	return &SignupResponse{User: user, Organization: org, Tokens: *tokens}, nil
}

func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}
	if user.Status != model.UserStatusActive {
		return nil, apperrors.Unauthorized("account is not active")
	}
	if err := s.hasher.Compare(user.PasswordHash, req.Password); err != nil {
		return nil, apperrors.Unauthorized("invalid credentials")
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		s.logger.Warn().Err(err).Str("user_id", user.ID.String()).Msg("failed to record login time")
	}

	return s.issueTokens(user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.userRepo.Get(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid refresh token")
	}
	if user.Status != model.UserStatusActive {
		return nil, apperrors.Unauthorized("account is not active")
	}

	return s.issueTokens(user)
}

func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	user, err := s.userRepo.Get(ctx, userID)
	if err != nil {
		return nil, apperrors.NotFound("user", err)
	}
	return user, nil
}

func (s *Service) issueTokens(user *model.User) (*model.TokenResponse, error) {
	access, err := s.jwt.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	refresh, err := s.jwt.GenerateRefreshToken(user.ID, user.Email)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &model.TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
	}, nil
}
