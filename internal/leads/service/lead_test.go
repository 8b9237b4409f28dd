package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	leaderrors "tripdesk/internal/leads/errors"
	"tripdesk/internal/leads/repository"
	"tripdesk/internal/leads/validator"
	usererrors "tripdesk/internal/users/errors"
	"tripdesk/pkg/auth"
	"tripdesk/pkg/config"
	mongotx "tripdesk/pkg/db/mongo"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/events"
	"tripdesk/pkg/logger"
	"tripdesk/pkg/mail"
	"tripdesk/pkg/model"
)

const (
	leadID     = "64a0000000000000000000a1"
	otherLead  = "64a0000000000000000000a2"
	agentID    = "64b0000000000000000000b1"
	otherAgent = "64b0000000000000000000b2"
	adminID    = "64c0000000000000000000c1"
	customerID = "64d0000000000000000000d1"
	memberID   = "64e0000000000000000000e1"
)

type mockLeadRepository struct {
	createFunc       func(ctx context.Context, lead *model.Lead) error
	findByIDFunc     func(ctx context.Context, id string) (*model.Lead, error)
	findFunc         func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error)
	countFunc        func(ctx context.Context, q repository.LeadQuery) (int64, error)
	updateFunc       func(ctx context.Context, id string, lead *model.Lead) error
	setStageFunc     func(ctx context.Context, id string, stage, previous model.Stage, at time.Time) error
	setAgentFunc     func(ctx context.Context, ids []string, agentID string, at time.Time) (int64, error)
	setTravelersFunc func(ctx context.Context, id string, travelers []model.Traveler, at time.Time) error
	pushCommentFunc  func(ctx context.Context, id string, comment model.LeadComment) error
	touchFunc        func(ctx context.Context, id string, at time.Time) error
	deleteFunc       func(ctx context.Context, id string) error
	findStaleFunc    func(ctx context.Context, cutoff time.Time) ([]*model.Lead, error)
	markStaleFunc    func(ctx context.Context, ids []string, at time.Time) (int64, error)
}

func (m *mockLeadRepository) Create(ctx context.Context, lead *model.Lead) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, lead)
	}
	lead.ID = leadID
	return nil
}

func (m *mockLeadRepository) FindByID(ctx context.Context, id string) (*model.Lead, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
}

func (m *mockLeadRepository) Find(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
	if m.findFunc != nil {
		return m.findFunc(ctx, q, page, pageSize, paginate)
	}
	return []*model.Lead{}, nil
}

func (m *mockLeadRepository) Count(ctx context.Context, q repository.LeadQuery) (int64, error) {
	if m.countFunc != nil {
		return m.countFunc(ctx, q)
	}
	return 0, nil
}

func (m *mockLeadRepository) Update(ctx context.Context, id string, lead *model.Lead) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, id, lead)
	}
	return nil
}

func (m *mockLeadRepository) SetStage(ctx context.Context, id string, stage, previous model.Stage, at time.Time) error {
	if m.setStageFunc != nil {
		return m.setStageFunc(ctx, id, stage, previous, at)
	}
	return nil
}

func (m *mockLeadRepository) SetAgent(ctx context.Context, ids []string, agentID string, at time.Time) (int64, error) {
	if m.setAgentFunc != nil {
		return m.setAgentFunc(ctx, ids, agentID, at)
	}
	return int64(len(ids)), nil
}

func (m *mockLeadRepository) SetTravelers(ctx context.Context, id string, travelers []model.Traveler, at time.Time) error {
	if m.setTravelersFunc != nil {
		return m.setTravelersFunc(ctx, id, travelers, at)
	}
	return nil
}

func (m *mockLeadRepository) PushComment(ctx context.Context, id string, comment model.LeadComment) error {
	if m.pushCommentFunc != nil {
		return m.pushCommentFunc(ctx, id, comment)
	}
	return nil
}

func (m *mockLeadRepository) TouchActivity(ctx context.Context, id string, at time.Time) error {
	if m.touchFunc != nil {
		return m.touchFunc(ctx, id, at)
	}
	return nil
}

func (m *mockLeadRepository) Delete(ctx context.Context, id string) error {
	if m.deleteFunc != nil {
		return m.deleteFunc(ctx, id)
	}
	return nil
}

func (m *mockLeadRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*model.Lead, error) {
	if m.findStaleFunc != nil {
		return m.findStaleFunc(ctx, cutoff)
	}
	return nil, nil
}

func (m *mockLeadRepository) MarkStale(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if m.markStaleFunc != nil {
		return m.markStaleFunc(ctx, ids, at)
	}
	return int64(len(ids)), nil
}

func (m *mockLeadRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	var sessCtx mongo.SessionContext
	return fn(sessCtx)
}

type mockActivityRepository struct {
	recorded []*model.LeadActivity
}

func (m *mockActivityRepository) Create(ctx context.Context, activity *model.LeadActivity) error {
	m.recorded = append(m.recorded, activity)
	return nil
}

func (m *mockActivityRepository) CreateMany(ctx context.Context, activities []*model.LeadActivity) error {
	m.recorded = append(m.recorded, activities...)
	return nil
}

func (m *mockActivityRepository) FindByLead(ctx context.Context, leadID string) ([]*model.LeadActivity, error) {
	return m.recorded, nil
}

type mockUserDirectory struct {
	findByIDFunc func(ctx context.Context, id string) (*model.User, error)
}

func (m *mockUserDirectory) FindByID(ctx context.Context, id string) (*model.User, error) {
	if m.findByIDFunc != nil {
		return m.findByIDFunc(ctx, id)
	}
	return nil, fmt.Errorf("%w: %s", usererrors.ErrNotFound, id)
}

type mockMailer struct {
	welcomeErr  error
	assignedErr error
	assigned    int
}

func (m *mockMailer) SendAgentWelcome(to, name, tempPassword string) error {
	return m.welcomeErr
}

func (m *mockMailer) SendLeadAssigned(to, agentName, destination, leadID string) error {
	m.assigned++
	return m.assignedErr
}

type mockPublisher struct {
	events []events.LeadEvent
}

func (m *mockPublisher) Publish(ctx context.Context, event events.LeadEvent) {
	m.events = append(m.events, event)
}

func (m *mockPublisher) Close() error { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Service: "test",
		}),
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		LeadsPageSize:  20,
		StaleThreshold: 7 * 24 * time.Hour,
	}
}

type testDeps struct {
	repo      *mockLeadRepository
	activity  *mockActivityRepository
	users     *mockUserDirectory
	mailer    *mockMailer
	publisher *mockPublisher
}

func newTestService(deps testDeps) LeadService {
	if deps.repo == nil {
		deps.repo = &mockLeadRepository{}
	}
	if deps.activity == nil {
		deps.activity = &mockActivityRepository{}
	}
	if deps.users == nil {
		deps.users = &mockUserDirectory{}
	}
	// An absent mock must become an untyped nil interface, not a
	// typed-nil pointer, or the service's nil guards cannot see it.
	var mailer mail.Sender
	if deps.mailer != nil {
		mailer = deps.mailer
	}
	var publisher events.Publisher
	if deps.publisher != nil {
		publisher = deps.publisher
	}
	return NewLeadService(
		deps.repo,
		deps.activity,
		deps.users,
		validator.NewLeadValidator(),
		mailer,
		publisher,
		testConfig(),
	)
}

func errNotFoundFor(id string) error {
	return fmt.Errorf("%w: %s", leaderrors.ErrNotFound, id)
}

func adminSession() auth.Session {
	return auth.Session{UserID: adminID, Role: model.RoleAdmin, Name: "Admin"}
}

func agentSession() auth.Session {
	return auth.Session{UserID: agentID, Role: model.RoleAgent, Name: "Agent"}
}

func customerSession() auth.Session {
	return auth.Session{UserID: customerID, Role: model.RoleCustomer, Name: "Customer"}
}

func sampleLead() *model.Lead {
	return &model.Lead{
		ID:            leadID,
		TripType:      model.TripTypeDomestic,
		DepartureCity: "Mumbai",
		Destination:   "Goa",
		TravelDate:    "2026-10-12",
		Duration:      "5 days",
		Guests:        2,
		Budget:        80000,
		Travelers: []model.Traveler{
			{Name: "Asha Rao", Age: 34, Gender: "female", Phone: "+919876543210"},
		},
		Stage:      model.StageContacted,
		Source:     model.SourceWebsite,
		AgentID:    agentID,
		CustomerID: customerID,
	}
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

func TestCreate_PublicInquiryDefaults(t *testing.T) {
	activity := &mockActivityRepository{}
	publisher := &mockPublisher{}
	svc := newTestService(testDeps{activity: activity, publisher: publisher})

	lead := sampleLead()
	lead.ID = ""
	lead.Stage = ""
	lead.Source = ""
	lead.AgentID = agentID // must be stripped for anonymous callers

	if err := svc.Create(context.Background(), auth.Session{}, lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if lead.Stage != model.StageNew {
		t.Errorf("expected stage %q, got %q", model.StageNew, lead.Stage)
	}
	if lead.Source != model.SourceWebsite {
		t.Errorf("expected source %q, got %q", model.SourceWebsite, lead.Source)
	}
	if lead.AgentID != "" {
		t.Errorf("expected agent to be cleared, got %q", lead.AgentID)
	}
	if len(activity.recorded) != 1 || activity.recorded[0].Action != model.ActionCreated {
		t.Errorf("expected one created activity, got %+v", activity.recorded)
	}
	if len(publisher.events) != 1 || publisher.events[0].Type != events.TypeLeadCreated {
		t.Errorf("expected one lead.created event, got %+v", publisher.events)
	}
}

func TestCreate_NoSideChannelsConfigured(t *testing.T) {
	// Publisher and mailer are optional; leaving both unset must take
	// the degraded path, not panic on a nil interface.
	svc := newTestService(testDeps{})

	lead := sampleLead()
	lead.ID = ""

	if err := svc.Create(context.Background(), auth.Session{}, lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreate_StripsForgedOwnership(t *testing.T) {
	var created *model.Lead
	var idAtInsert string
	repo := &mockLeadRepository{
		createFunc: func(ctx context.Context, lead *model.Lead) error {
			created = lead
			idAtInsert = lead.ID
			lead.ID = leadID
			return nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	lead := sampleLead() // carries a client-chosen id and customer_id

	if err := svc.Create(context.Background(), auth.Session{}, lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if created.CustomerID != "" {
		t.Errorf("anonymous create must not keep a client-supplied customer_id, got %q", created.CustomerID)
	}
	if idAtInsert != "" {
		t.Errorf("expected the id to be store-assigned, got client value %q", idAtInsert)
	}
}

func TestCreate_AgentCannotClaimCustomer(t *testing.T) {
	var created *model.Lead
	repo := &mockLeadRepository{
		createFunc: func(ctx context.Context, lead *model.Lead) error {
			created = lead
			lead.ID = leadID
			return nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	lead := sampleLead()
	lead.ID = ""

	if err := svc.Create(context.Background(), agentSession(), lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.CustomerID != "" {
		t.Errorf("agent create must not keep a body-supplied customer_id, got %q", created.CustomerID)
	}
}

func TestCreate_AdminMayFileForCustomer(t *testing.T) {
	var created *model.Lead
	repo := &mockLeadRepository{
		createFunc: func(ctx context.Context, lead *model.Lead) error {
			created = lead
			lead.ID = leadID
			return nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	lead := sampleLead()
	lead.ID = ""

	if err := svc.Create(context.Background(), adminSession(), lead); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created.CustomerID != customerID {
		t.Errorf("admin create should keep the supplied customer_id, got %q", created.CustomerID)
	}
}

func TestCreate_ValidationFailure(t *testing.T) {
	svc := newTestService(testDeps{})

	lead := sampleLead()
	lead.Travelers = nil

	err := svc.Create(context.Background(), auth.Session{}, lead)
	assertAppErrorCode(t, err, apperrors.CodeValidation)
}

func TestList_AgentScopedToOwnQueue(t *testing.T) {
	var captured repository.LeadQuery
	repo := &mockLeadRepository{
		findFunc: func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
			captured = q
			return []*model.Lead{sampleLead()}, nil
		},
		countFunc: func(ctx context.Context, q repository.LeadQuery) (int64, error) {
			return 1, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	leads, total, err := svc.List(context.Background(), agentSession(), ListOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.AgentID != agentID {
		t.Errorf("expected query scoped to agent %s, got %q", agentID, captured.AgentID)
	}
	if !captured.ExcludeWon {
		t.Error("expected won leads excluded from agent queue")
	}
	if total != 1 || len(leads) != 1 {
		t.Errorf("expected 1 lead, got %d (total %d)", len(leads), total)
	}
}

func TestList_AgentWonFilterIsEmpty(t *testing.T) {
	repo := &mockLeadRepository{
		findFunc: func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
			t.Error("repository should not be queried for an agent's won filter")
			return nil, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	leads, total, err := svc.List(context.Background(), agentSession(), ListOptions{Stage: model.StageWon})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 || len(leads) != 0 {
		t.Errorf("expected empty result, got %d leads (total %d)", len(leads), total)
	}
}

func TestList_PaginationWindow(t *testing.T) {
	var gotPage, gotSize int
	var gotPaginate bool
	repo := &mockLeadRepository{
		findFunc: func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
			gotPage, gotSize, gotPaginate = page, pageSize, paginate
			out := make([]*model.Lead, 5)
			for i := range out {
				out[i] = sampleLead()
			}
			return out, nil
		},
		countFunc: func(ctx context.Context, q repository.LeadQuery) (int64, error) {
			return 25, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	leads, total, err := svc.List(context.Background(), adminSession(), ListOptions{Page: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPage != 2 || gotSize != 20 || !gotPaginate {
		t.Errorf("expected page=2 size=20 paginated, got page=%d size=%d paginate=%v", gotPage, gotSize, gotPaginate)
	}
	if total != 25 || len(leads) != 5 {
		t.Errorf("expected 5 of 25 leads, got %d of %d", len(leads), total)
	}
}

func TestList_PageClampsToOne(t *testing.T) {
	var gotPage int
	repo := &mockLeadRepository{
		findFunc: func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
			gotPage = page
			return nil, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	if _, _, err := svc.List(context.Background(), adminSession(), ListOptions{Page: -3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPage != 1 {
		t.Errorf("expected page clamped to 1, got %d", gotPage)
	}
}

func TestList_BoardViewUnpaginated(t *testing.T) {
	var gotPaginate bool
	repo := &mockLeadRepository{
		findFunc: func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
			gotPaginate = paginate
			return nil, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	if _, _, err := svc.List(context.Background(), adminSession(), ListOptions{Board: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPaginate {
		t.Error("expected board view to skip pagination")
	}
}

func TestList_RequiresAuthentication(t *testing.T) {
	svc := newTestService(testDeps{})

	_, _, err := svc.List(context.Background(), auth.Session{}, ListOptions{})
	assertAppErrorCode(t, err, apperrors.CodeUnauthorized)
}

func TestList_UnknownRoleDenied(t *testing.T) {
	repo := &mockLeadRepository{
		findFunc: func(ctx context.Context, q repository.LeadQuery, page, pageSize int, paginate bool) ([]*model.Lead, error) {
			t.Error("unknown roles must be denied before querying")
			return nil, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	_, _, err := svc.List(context.Background(), auth.Session{UserID: customerID, Role: "support"}, ListOptions{})
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestGet_UnknownRoleDenied(t *testing.T) {
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return sampleLead(), nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	_, err := svc.Get(context.Background(), auth.Session{UserID: customerID, Role: "support"}, leadID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestGet_AgentForeignLeadForbidden(t *testing.T) {
	lead := sampleLead()
	lead.AgentID = otherAgent
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return lead, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	_, err := svc.Get(context.Background(), agentSession(), leadID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestGet_CustomerForeignLeadHidden(t *testing.T) {
	lead := sampleLead()
	lead.CustomerID = "64d0000000000000000000d2"
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return lead, nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	_, err := svc.Get(context.Background(), customerSession(), leadID)
	assertAppErrorCode(t, err, apperrors.CodeNotFound)
}

func TestGet_CustomerSeesOwnLead(t *testing.T) {
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return sampleLead(), nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	lead, err := svc.Get(context.Background(), customerSession(), leadID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lead.ID != leadID {
		t.Errorf("expected lead %s, got %s", leadID, lead.ID)
	}
}

func TestDelete_RequiresAdmin(t *testing.T) {
	svc := newTestService(testDeps{})

	err := svc.Delete(context.Background(), agentSession(), leadID)
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestAddComment_CustomerForbidden(t *testing.T) {
	svc := newTestService(testDeps{})

	err := svc.AddComment(context.Background(), customerSession(), leadID, "hello")
	assertAppErrorCode(t, err, apperrors.CodeForbidden)
}

func TestAddComment_RecordsActivity(t *testing.T) {
	activity := &mockActivityRepository{}
	var pushed model.LeadComment
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return sampleLead(), nil
		},
		pushCommentFunc: func(ctx context.Context, id string, comment model.LeadComment) error {
			pushed = comment
			return nil
		},
	}
	svc := newTestService(testDeps{repo: repo, activity: activity})

	if err := svc.AddComment(context.Background(), agentSession(), leadID, "  called customer  "); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if pushed.Text != "called customer" {
		t.Errorf("expected trimmed comment text, got %q", pushed.Text)
	}
	if pushed.AgentID != agentID {
		t.Errorf("expected comment attributed to %s, got %s", agentID, pushed.AgentID)
	}
	if len(activity.recorded) != 1 || activity.recorded[0].Action != model.ActionNoteAdded {
		t.Errorf("expected one note_added activity, got %+v", activity.recorded)
	}
}

func TestRefreshTimer_TouchesLead(t *testing.T) {
	touched := false
	repo := &mockLeadRepository{
		findByIDFunc: func(ctx context.Context, id string) (*model.Lead, error) {
			return sampleLead(), nil
		},
		touchFunc: func(ctx context.Context, id string, at time.Time) error {
			touched = true
			return nil
		},
	}
	svc := newTestService(testDeps{repo: repo})

	if err := svc.RefreshTimer(context.Background(), agentSession(), leadID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !touched {
		t.Error("expected lead activity timestamp to be touched")
	}
}
