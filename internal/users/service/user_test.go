package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	usererrors "tripdesk/internal/users/errors"
	"tripdesk/internal/users/validator"
	"tripdesk/pkg/auth"
	"tripdesk/pkg/config"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/logger"
	"tripdesk/pkg/model"
)

const (
	adminID    = "64c0000000000000000000c1"
	agentID    = "64b0000000000000000000b1"
	customerID = "64d0000000000000000000d1"
)

type mockUserRepository struct {
	createFunc      func(ctx context.Context, user *model.User) error
	findByIDFunc    func(ctx context.Context, id string) (*model.User, error)
	findByEmailFunc func(ctx context.Context, email string) (*model.User, error)
	findAgentsFunc  func(ctx context.Context, assignableOnly bool) ([]*model.User, error)
	setStatusFunc   func(ctx context.Context, id, status string) error
	deleteFunc      func(ctx context.Context, id string) error
	pushMemberFunc  func(ctx context.Context, userID string, member model.Member) error
	pullMemberFunc  func(ctx context.Context, userID, memberID string) error
}

func (m *mockUserRepository) Create(ctx context.Context, user *model.User) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, user)
	}
	user.ID = agentID
	return nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", usererrors.ErrNotFound, id)
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	if m.findByEmailFunc != nil {
		return m.findByEmailFunc(ctx, email)
	}
	return nil, fmt.Errorf("%w: %s", usererrors.ErrNotFound, email)
}

func (m *mockUserRepository) FindAgents(ctx context.Context, assignableOnly bool) ([]*model.User, error) {
	if m.findAgentsFunc != nil {
		return m.findAgentsFunc(ctx, assignableOnly)
	}
	return []*model.User{}, nil
}

func (m *mockUserRepository) SetStatus(ctx context.Context, id, status string) error {
	if m.setStatusFunc != nil {
		return m.setStatusFunc(ctx, id, status)
	}
	return nil
}

func (m *mockUserRepository) SetPassword(ctx context.Context, id, hashed string, mustChange bool) error {
	return nil
}

func (m *mockUserRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockUserRepository) PushMember(ctx context.Context, userID string, member model.Member) error {
	if m.pushMemberFunc != nil {
		return m.pushMemberFunc(ctx, userID, member)
	}
	return nil
}

func (m *mockUserRepository) PullMember(ctx context.Context, userID, memberID string) error {
	if m.pullMemberFunc != nil {
		return m.pullMemberFunc(ctx, userID, memberID)
	}
	return nil
}

type mockMailer struct {
	welcomeErr error
	welcomes   int
	lastTemp   string
}

func (m *mockMailer) SendAgentWelcome(to, name, tempPassword string) error {
	m.welcomes++
	m.lastTemp = tempPassword
	return m.welcomeErr
}

func (m *mockMailer) SendLeadAssigned(to, agentName, destination, leadID string) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

func newTestService(repo *mockUserRepository, mailer *mockMailer) UserService {
	if repo == nil {
		repo = &mockUserRepository{}
	}
	if mailer == nil {
		return NewUserService(repo, validator.NewUserValidator(), nil, testConfig())
	}
	return NewUserService(repo, validator.NewUserValidator(), mailer, testConfig())
}

func adminSession() auth.Session {
	return auth.Session{UserID: adminID, Role: model.RoleAdmin, Name: "Admin"}
}

func customerSession() auth.Session {
	return auth.Session{UserID: customerID, Role: model.RoleCustomer, Name: "Customer"}
}

func assertAppErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	appErr := apperrors.AsAppError(err)
	if appErr.Code != code {
		t.Fatalf("expected error code %s, got %s (%v)", code, appErr.Code, err)
	}
}

func validInput() CreateAgentInput {
	return CreateAgentInput{
		Name:  "Priya Sharma",
		Email: "Priya.Sharma@Example.com",
		Phone: "+919812345678",
	}
}

func TestCreateAgent_RequiresAdmin(t *testing.T) {
	svc := newTestService(nil, nil)

	_, err := svc.CreateAgent(context.Background(), customerSession(), validInput())
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestCreateAgent_HappyPath(t *testing.T) {
	var created *model.User
	repo := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			user.ID = agentID
			created = user
			return nil
		},
	}
	mailer := &mockMailer{}
	svc := newTestService(repo, mailer)

	result, err := svc.CreateAgent(context.Background(), adminSession(), validInput())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.Email != "priya.sharma@example.com" {
		t.Errorf("expected lowercased email, got %q", created.Email)
	}
	if created.Role != model.RoleAgent || created.Status != model.StatusActive {
		t.Errorf("expected active agent, got role=%s status=%s", created.Role, created.Status)
	}
	if !created.MustChangePassword {
		t.Error("expected must_change_password on a fresh agent")
	}
	if created.Password == "" || created.Password == mailer.lastTemp {
		t.Error("expected the stored password to be a hash, not the plaintext")
	}
	if mailer.welcomes != 1 {
		t.Errorf("expected one welcome email, got %d", mailer.welcomes)
	}
	if result.TempPassword != "" || result.Warning != "" {
		t.Errorf("expected clean success, got temp=%q warning=%q", result.TempPassword, result.Warning)
	}
}

func TestCreateAgent_EmailFailureReturnsTempPassword(t *testing.T) {
	repo := &mockUserRepository{
		createFunc: func(ctx context.Context, user *model.User) error {
			user.ID = agentID
			return nil
		},
	}
	mailer := &mockMailer{welcomeErr: errors.New("smtp unreachable")}
	svc := newTestService(repo, mailer)

	result, err := svc.CreateAgent(context.Background(), adminSession(), validInput())
	if err != nil {
		t.Fatalf("expected qualified success, got error: %v", err)
	}

	if result.Warning == "" {
		t.Error("expected a warning about the failed welcome email")
	}
	if result.TempPassword == "" {
		t.Error("expected the temporary password to be returned for manual delivery")
	}
	if result.TempPassword == result.Agent.Password {
		t.Error("temporary password must not equal the stored hash")
	}
}

func TestCreateAgent_DuplicateEmail(t *testing.T) {
	repo := &mockUserRepository{
		findByEmailFunc: func(ctx context.Context, email string) (*model.User, error) {
			return &model.User{ID: agentID, Email: email}, nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.CreateAgent(context.Background(), adminSession(), validInput())
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestCreateAgent_InvalidInput(t *testing.T) {
	svc := newTestService(nil, nil)

	input := validInput()
	input.Email = "not-an-email"

	_, err := svc.CreateAgent(context.Background(), adminSession(), input)
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestSetAgentStatus_ProtectsAdmins(t *testing.T) {
	repo := &mockUserRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleAdmin, Status: model.StatusActive}, nil
		},
	}
	svc := newTestService(repo, nil)

	err := svc.SetAgentStatus(context.Background(), adminSession(), adminID, model.StatusInactive)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestSetAgentStatus_RejectsUnknownStatus(t *testing.T) {
	svc := newTestService(nil, nil)

	err := svc.SetAgentStatus(context.Background(), adminSession(), agentID, "suspended")
	assertAppErrorCode(t, err, apperrors.CodeInvalidInput)
}

func TestDeleteAgent_ProtectsAdmins(t *testing.T) {
	repo := &mockUserRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Role: model.RoleAdmin}, nil
		},
		deleteFunc: func(ctx context.Context, id string) error {
			t.Error("admin accounts must never be deleted here")
			return nil
		},
	}
	svc := newTestService(repo, nil)

	err := svc.DeleteAgent(context.Background(), adminSession(), adminID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestAddMember_CapacityLimit(t *testing.T) {
	members := make([]model.Member, model.MaxMembers)
	for i := range members {
		members[i] = model.Member{ID: fmt.Sprintf("m%d", i), Name: fmt.Sprintf("Member %d", i), Age: 30, Gender: "other"}
	}
	repo := &mockUserRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: customerID, Role: model.RoleCustomer, Members: members}, nil
		},
	}
	svc := newTestService(repo, nil)

	_, err := svc.AddMember(context.Background(), customerSession(), model.Member{
		Name: "One Too Many", Age: 25, Gender: "female",
	})
	assertAppErrorCode(t, err, apperrors.CodeConflict)
}

func TestRemoveMember_UnknownMember(t *testing.T) {
	repo := &mockUserRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: customerID, Role: model.RoleCustomer}, nil
		},
	}
	svc := newTestService(repo, nil)

	err := svc.RemoveMember(context.Background(), customerSession(), "missing")
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}
