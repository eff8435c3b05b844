package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/pkg/auth"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
	"github.com/funnelhq/funnel-api/pkg/security"
)

type memUserRepo struct {
	byEmail map[string]*model.User
}

func (r *memUserRepo) Create(ctx context.Context, u *model.User) error {
	u.ID = uuid.New()
	r.byEmail[u.Email] = u
	return nil
}

func (r *memUserRepo) Get(ctx context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	if u, ok := r.byEmail[email]; ok {
		return u, nil
	}
	return nil, fmt.Errorf("user not found")
}

func (r *memUserRepo) Update(ctx context.Context, u *model.User) error { return nil }

type memOrgRepo struct {
	created []*model.Organization
}

func (r *memOrgRepo) Create(ctx context.Context, org *model.Organization) error {
	org.ID = uuid.New()
	r.created = append(r.created, org)
	return nil
}

func (r *memOrgRepo) Get(ctx context.Context, id uuid.UUID) (*model.Organization, error) {
	return nil, fmt.Errorf("organization not found")
}

func (r *memOrgRepo) Update(ctx context.Context, org *model.Organization) error { return nil }

func (r *memOrgRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Organization, error) {
	return r.created, nil
}

type memMembershipRepo struct {
	created []*model.Membership
}

func (r *memMembershipRepo) Create(ctx context.Context, m *model.Membership) error {
	r.created = append(r.created, m)
	return nil
}

func (r *memMembershipRepo) GetRole(ctx context.Context, orgID, userID uuid.UUID) (string, error) {
	for _, m := range r.created {
		if m.OrganizationID == orgID && m.UserID == userID {
			return m.Role, nil
		}
	}
	return "", fmt.Errorf("membership not found")
}

func (r *memMembershipRepo) List(ctx context.Context, orgID uuid.UUID) ([]*model.Member, error) {
	return nil, nil
}

func (r *memMembershipRepo) UpdateRole(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	return nil
}

func (r *memMembershipRepo) Delete(ctx context.Context, orgID, userID uuid.UUID) error { return nil }

func (r *memMembershipRepo) CountByRole(ctx context.Context, orgID uuid.UUID, role string) (int, error) {
	return 1, nil
}

type authFixture struct {
	svc     *Service
	users   *memUserRepo
	orgs    *memOrgRepo
	members *memMembershipRepo
	jwt     auth.JWTService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := &memUserRepo{byEmail: make(map[string]*model.User)}
	orgs := &memOrgRepo{}
	members := &memMembershipRepo{}
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        "test-secret",
		RefreshSecret: "test-refresh-secret",
		Expiry:        time.Hour,
		RefreshExpiry: 24 * time.Hour,
	})
	hasher := security.NewBcryptHasher(bcrypt.MinCost)
	svc := NewService(users, orgs, members, jwtSvc, hasher, time.Hour, zerolog.Nop())

	return &authFixture{svc: svc, users: users, orgs: orgs, members: members, jwt: jwtSvc}
}

func signupRequest() *model.SignupRequest {
	return &model.SignupRequest{
		Email:            "Maria@Example.com",
		Name:             "Maria",
		Password:         "super-secret",
		OrganizationName: "Acme Marketing",
	}
}

func TestSignupCreatesOwnerAndOrg(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	// Email is normalized and the password never stored in clear.
	assert.Equal(t, "maria@example.com", resp.User.Email)
	assert.NotEmpty(t, resp.User.PasswordHash)
	assert.NotEqual(t, "super-secret", resp.User.PasswordHash)
	assert.Equal(t, model.UserStatusActive, resp.User.Status)

	assert.Equal(t, "Acme Marketing", resp.Organization.Name)
	assert.Equal(t, "acme-marketing", resp.Organization.Slug)

	role, err := f.members.GetRole(context.Background(), resp.Organization.ID, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOwner, role)

	require.NotEmpty(t, resp.Tokens.AccessToken)
	claims, err := f.jwt.ValidateToken(resp.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Equal(t, int64(3600), resp.Tokens.ExpiresIn)
}

func TestSignupRejectsDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, err = f.svc.Signup(context.Background(), signupRequest())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	tokens, err := f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "maria@example.com",
		Password: "super-secret",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	user, _ := f.users.GetByEmail(context.Background(), "maria@example.com")
	assert.NotNil(t, user.LastLoginAt)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	_, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "maria@example.com",
		Password: "wrong",
	})
	require.Error(t, err)
	appErr, ok := err.(*apperrors.AppError)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrUnauthorized, appErr.Code)
	// Same message for unknown email and wrong password.
	assert.Equal(t, "invalid credentials", appErr.Message)
}

func TestLoginUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "ghost@example.com",
		Password: "whatever",
	})
	require.Error(t, err)
	assert.Equal(t, "invalid credentials", err.(*apperrors.AppError).Message)
}

func TestLoginInactiveAccount(t *testing.T) {
	f := newAuthFixture(t)
	_, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)
	f.users.byEmail["maria@example.com"].Status = model.UserStatusInactive

	_, err = f.svc.Login(context.Background(), &model.LoginRequest{
		Email:    "maria@example.com",
		Password: "super-secret",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not active")
}

func TestRefresh(t *testing.T) {
	f := newAuthFixture(t)
	resp, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	tokens, err := f.svc.Refresh(context.Background(), resp.Tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)

	claims, err := f.jwt.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	resp, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	// An access token is signed with a different secret and must not
	// pass as a refresh token.
	_, err = f.svc.Refresh(context.Background(), resp.Tokens.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, err.(*apperrors.AppError).Code)
}

func TestMe(t *testing.T) {
	f := newAuthFixture(t)
	resp, err := f.svc.Signup(context.Background(), signupRequest())
	require.NoError(t, err)

	user, err := f.svc.Me(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", user.Email)

	_, err = f.svc.Me(context.Background(), uuid.New())
	require.Error(t, err)
}
