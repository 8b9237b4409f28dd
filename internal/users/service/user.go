package service

import (
	"context"
	"errors"

	usererrors "tripdesk/internal/users/errors"
	"tripdesk/internal/users/repository"
	"tripdesk/internal/users/validator"
	"tripdesk/pkg/auth"
	"tripdesk/pkg/config"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/mail"
	"tripdesk/pkg/model"
	"tripdesk/pkg/password"
	"tripdesk/pkg/sanitizer"
)

// CreateAgentInput is the admin-facing shape for onboarding an agent.
type CreateAgentInput struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// CreateAgentResult reports an onboarding outcome. TempPassword is only
// populated when the welcome email could not be delivered, so the admin
// can hand the credential over out of band.
type CreateAgentResult struct {
	Agent        *model.User `json:"agent"`
	TempPassword string      `json:"temp_password,omitempty"`
	Warning      string      `json:"warning,omitempty"`
}

type UserService interface {
	CreateAgent(ctx context.Context, actor auth.Session, input CreateAgentInput) (*CreateAgentResult, error)
	ListAgents(ctx context.Context, actor auth.Session, assignableOnly bool) ([]*model.User, error)
	Get(ctx context.Context, actor auth.Session, id string) (*model.User, error)
	SetAgentStatus(ctx context.Context, actor auth.Session, id, status string) error
	DeleteAgent(ctx context.Context, actor auth.Session, id string) error

	AddMember(ctx context.Context, actor auth.Session, member model.Member) (*model.Member, error)
	RemoveMember(ctx context.Context, actor auth.Session, memberID string) error
}

type userService struct {
	repo      repository.UserRepository
	validator *validator.UserValidator
	mailer    mail.Sender
	cfg       *config.Config
}

func NewUserService(
	repo repository.UserRepository,
	validator *validator.UserValidator,
	mailer mail.Sender,
	cfg *config.Config,
) UserService {
	return &userService{
		repo:      repo,
		validator: validator,
		mailer:    mailer,
		cfg:       cfg,
	}
}

// CreateAgent onboards a new agent with a generated temporary password.
// The account is created even when the welcome email fails; the caller
// gets the credential back with a warning instead.
func (s *userService) CreateAgent(ctx context.Context, actor auth.Session, input CreateAgentInput) (*CreateAgentResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can create agents")
	}

	agent := &model.User{
		Name:               sanitizer.SanitizeName(input.Name),
		Email:              sanitizer.SanitizeEmail(input.Email),
		Phone:              sanitizer.SanitizePhone(input.Phone),
		Role:               model.RoleAgent,
		Status:             model.StatusActive,
		IsVerified:         true,
		MustChangePassword: true,
	}

	if err := s.validator.Validate(agent); err != nil {
		s.cfg.Log.Warn("Agent validation failed", "email", agent.Email, "error", err)
		return nil, validationError("Agent validation failed", err)
	}

	if _, err := s.repo.FindByEmail(ctx, agent.Email); err == nil {
		return nil, apperrors.Conflict("A user with this email already exists")
	} else if !errors.Is(err, usererrors.ErrNotFound) {
		s.cfg.Log.Error("Failed to check for existing user", "email", agent.Email, "error", err)
		return nil, apperrors.Internal("Failed to create agent", err)
	}

	tempPassword, err := password.GenerateTemp()
	if err != nil {
		s.cfg.Log.Error("Failed to generate temporary password", "error", err)
		return nil, apperrors.Internal("Failed to create agent", err)
	}
	hashed, err := password.Hash(tempPassword)
	if err != nil {
		s.cfg.Log.Error("Failed to hash temporary password", "error", err)
		return nil, apperrors.Internal("Failed to create agent", err)
	}
	agent.Password = hashed

	if err := s.repo.Create(ctx, agent); err != nil {
		if errors.Is(err, usererrors.ErrDuplicateEmail) {
			return nil, apperrors.Conflict("A user with this email already exists")
		}
		s.cfg.Log.Error("Failed to create agent", "email", agent.Email, "error", err)
		return nil, apperrors.Internal("Failed to create agent", err)
	}

	result := &CreateAgentResult{Agent: agent}
	if err := s.sendWelcome(agent, tempPassword); err != nil {
		s.cfg.Log.Warn("Failed to send agent welcome email",
			"agent_id", agent.ID,
			"email", agent.Email,
			"error", err,
		)
		result.TempPassword = tempPassword
		result.Warning = "Agent created, but the welcome email could not be sent. Share the temporary password manually."
	}

	s.cfg.Log.Info("Agent created",
		"id", agent.ID,
		"email", agent.Email,
		"created_by", actor.UserID,
	)

	return result, nil
}

func (s *userService) sendWelcome(agent *model.User, tempPassword string) error {
	if s.mailer == nil {
		return errors.New("email delivery is not configured")
	}
	return s.mailer.SendAgentWelcome(agent.Email, agent.Name, tempPassword)
}

func (s *userService) ListAgents(ctx context.Context, actor auth.Session, assignableOnly bool) ([]*model.User, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Only administrators can list agents")
	}

	agents, err := s.repo.FindAgents(ctx, assignableOnly)
	if err != nil {
		s.cfg.Log.Error("Failed to list agents", "error", err)
		return nil, apperrors.Internal("Failed to retrieve agents", err)
	}
	if agents == nil {
		agents = []*model.User{}
	}

	return agents, nil
}

func (s *userService) Get(ctx context.Context, actor auth.Session, id string) (*model.User, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if !actor.IsAdmin() && actor.UserID != id {
		return nil, apperrors.Forbidden("You can only view your own profile")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, usererrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("User", id)
		}
		if errors.Is(err, usererrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid user ID format")
		}
		s.cfg.Log.Error("Failed to get user", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve user", err)
	}

	return user, nil
}

// SetAgentStatus activates or deactivates an agent. Administrator
// accounts are never touched through this path.
func (s *userService) SetAgentStatus(ctx context.Context, actor auth.Session, id, status string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can change agent status")
	}
	if status != model.StatusActive && status != model.StatusInactive {
		return apperrors.InvalidInput("Status must be active or inactive")
	}

	target, err := s.loadAgent(ctx, id)
	if err != nil {
		return err
	}
	if target.Status == status {
		return nil
	}

	if err := s.repo.SetStatus(ctx, id, status); err != nil {
		s.cfg.Log.Error("Failed to set agent status", "id", id, "status", status, "error", err)
		return apperrors.Internal("Failed to update agent status", err)
	}

	s.cfg.Log.Info("Agent status changed",
		"id", id,
		"status", status,
		"changed_by", actor.UserID,
	)

	return nil
}

func (s *userService) DeleteAgent(ctx context.Context, actor auth.Session, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can delete agents")
	}

	if _, err := s.loadAgent(ctx, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		s.cfg.Log.Error("Failed to delete agent", "id", id, "error", err)
		return apperrors.Internal("Failed to delete agent", err)
	}

	s.cfg.Log.Info("Agent deleted", "id", id, "deleted_by", actor.UserID)

	return nil
}

// loadAgent fetches a user and refuses to return administrators, so
// admin accounts cannot be deactivated or deleted via agent management.
func (s *userService) loadAgent(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, usererrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Agent", id)
		}
		if errors.Is(err, usererrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid agent ID format")
		}
		s.cfg.Log.Error("Failed to load agent", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve agent", err)
	}

	if user.Role == model.RoleAdmin {
		return nil, apperrors.Forbidden("Administrator accounts cannot be managed here")
	}
	if user.Role != model.RoleAgent {
		return nil, apperrors.NotFoundWithID("Agent", id)
	}

	return user, nil
}

func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Fields())
	}
	return apperrors.Validation(message, map[string]string{"error": err.Error()})
}
