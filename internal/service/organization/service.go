package organization

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/funnelhq/funnel-api/internal/email"
	"github.com/funnelhq/funnel-api/internal/model"
	"github.com/funnelhq/funnel-api/internal/repository"
	apperrors "github.com/funnelhq/funnel-api/pkg/errors"
)

type Servicer interface {
	Get(ctx context.Context, orgID uuid.UUID) (*model.Organization, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Organization, error)
	Update(ctx context.Context, orgID uuid.UUID, name string) (*model.Organization, error)
	ListMembers(ctx context.Context, orgID uuid.UUID) ([]*model.Member, error)
	AddMember(ctx context.Context, orgID uuid.UUID, inviterName string, req *model.AddMemberRequest) (*model.Member, error)
	UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role string) error
	RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error
}

type Service struct {
	orgRepo        repository.OrganizationRepository
	membershipRepo repository.MembershipRepository
	userRepo       repository.UserRepository
	mailer         email.Sender
	logger         zerolog.Logger
}

func NewService(
	orgRepo repository.OrganizationRepository,
	membershipRepo repository.MembershipRepository,
	userRepo repository.UserRepository,
	mailer email.Sender,
	logger zerolog.Logger,
) *Service {
	return &Service{
		orgRepo:        orgRepo,
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		mailer:         mailer,
		logger:         logger,
	}
}

func (s *Service) Get(ctx context.Context, orgID uuid.UUID) (*model.Organization, error) {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, apperrors.NotFound("organization", err)
	}
	return org, nil
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Organization, error) {
	orgs, err := s.orgRepo.ListForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return orgs, nil
}

func (s *Service) Update(ctx context.Context, orgID uuid.UUID, name string) (*model.Organization, error) {
	org, err := s.orgRepo.Get(ctx, orgID)
	if err != nil {
		return nil, apperrors.NotFound("organization", err)
	}
	org.Name = name
	org.Slug = model.Slugify(name)
	if err := s.orgRepo.Update(ctx, org); err != nil {
		return nil, apperrors.Internal(err)
	}
	return org, nil
}

func (s *Service) ListMembers(ctx context.Context, orgID uuid.UUID) ([]*model.Member, error) {
	members, err := s.membershipRepo.List(ctx, orgID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return members, nil
}

// AddMember attaches an existing user to the org by email. There is no
// pending-invite flow; the user must already have an account, and the
// invitation email just tells them they were added.
func (s *Service) AddMember(ctx context.Context, orgID uuid.UUID, inviterName string, req *model.AddMemberRequest) (*model.Member, error) {
	if !model.ValidRole(req.Role) {
		return nil, apperrors.BadRequest("invalid role", nil)
	}

	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		return nil, apperrors.NotFound("user with that email", err)
	}

	if existing, _ := s.membershipRepo.GetRole(ctx, orgID, user.ID); existing != "" {
		return nil, apperrors.BadRequest("user is already a member", nil)
	}

	membership := &model.Membership{
		OrganizationID: orgID,
		UserID:         user.ID,
		Role:           req.Role,
	}
	if err := s.membershipRepo.Create(ctx, membership); err != nil {
		return nil, apperrors.Internal(err)
	}

	org, err := s.orgRepo.Get(ctx, orgID)
	if err == nil {
		if err := s.mailer.SendInvitation(user.Email, org.Name, inviterName, req.Role); err != nil {
			s.logger.Warn().Err(err).Str("to", user.Email).Msg("invitation email failed")
		}
	}

	return &model.Member{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   req.Role,
	}, nil
}

// UpdateMemberRole changes a member's role. Demoting the last owner is
// rejected so the org always has at least one.
func (s *Service) UpdateMemberRole(ctx context.Context, orgID, userID uuid.UUID, role string) error {
	if !model.ValidRole(role) {
		return apperrors.BadRequest("invalid role", nil)
	}

	current, err := s.membershipRepo.GetRole(ctx, orgID, userID)
	if err != nil {
		return apperrors.NotFound("membership", err)
	}

	if current == model.RoleOwner && role != model.RoleOwner {
		if err := s.requireAnotherOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.membershipRepo.UpdateRole(ctx, orgID, userID, role); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// RemoveMember deletes a membership, refusing to remove the last
// owner.
func (s *Service) RemoveMember(ctx context.Context, orgID, userID uuid.UUID) error {
	current, err := s.membershipRepo.GetRole(ctx, orgID, userID)
	if err != nil {
		return apperrors.NotFound("membership", err)
	}

	if current == model.RoleOwner {
		if err := s.requireAnotherOwner(ctx, orgID); err != nil {
			return err
		}
	}

	if err := s.membershipRepo.Delete(ctx, orgID, userID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *Service) requireAnotherOwner(ctx context.Context, orgID uuid.UUID) error {
	owners, err := s.membershipRepo.CountByRole(ctx, orgID, model.RoleOwner)
	if err != nil {
		return apperrors.Internal(err)
	}
	if owners <= 1 {
		return apperrors.BadRequest("organization must keep at least one owner", nil)
	}
	return nil
}
