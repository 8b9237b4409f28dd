package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	leaderrors "tripdesk/internal/leads/errors"
	"tripdesk/internal/leads/repository"
	"tripdesk/internal/leads/validator"
	"tripdesk/pkg/auth"
	"tripdesk/pkg/config"
	apperrors "tripdesk/pkg/errors"
	"tripdesk/pkg/events"
	"tripdesk/pkg/mail"
	"tripdesk/pkg/model"
	"tripdesk/pkg/sanitizer"
)

// UserDirectory is the slice of the users domain the lead pipeline
// needs: resolving agents for assignment and customers for document
// fallback.
type UserDirectory interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// ListOptions are the caller-supplied listing filters. Role scoping is
// applied on top of them and always wins.
type ListOptions struct {
	Stage    model.Stage
	TripType string
	Search   string
	Page     int

	// Board requests the unpaginated pipeline-board view.
	Board bool
}

// AssignResult reports an assignment outcome. Warning is set when the
// leads were assigned but the agent notification could not be sent.
type AssignResult struct {
	Assigned int64  `json:"assigned"`
	Warning  string `json:"warning,omitempty"`
}

type StaleSweepResult struct {
	Marked int64 `json:"marked"`
}

type LeadService interface {
	Create(ctx context.Context, actor auth.Session, lead *model.Lead) error
	Get(ctx context.Context, actor auth.Session, id string) (*model.Lead, error)
	List(ctx context.Context, actor auth.Session, opts ListOptions) ([]*model.Lead, int64, error)
	UpdateDetails(ctx context.Context, actor auth.Session, id string, updates *model.LeadUpdate) error
	Delete(ctx context.Context, actor auth.Session, id string) error

	ChangeStage(ctx context.Context, actor auth.Session, id string, stage model.Stage) (*model.Lead, error)
	Assign(ctx context.Context, actor auth.Session, leadID, agentID string) (*AssignResult, error)
	BulkAssign(ctx context.Context, actor auth.Session, leadIDs []string, agentID string) (*AssignResult, error)
	Unassign(ctx context.Context, actor auth.Session, leadID string) error

	AddComment(ctx context.Context, actor auth.Session, leadID, text string) error
	RefreshTimer(ctx context.Context, actor auth.Session, leadID string) error
	Activities(ctx context.Context, actor auth.Session, leadID string) ([]*model.LeadActivity, error)

	AddTraveler(ctx context.Context, actor auth.Session, leadID string, traveler model.Traveler) (*model.Lead, error)
	RemoveTraveler(ctx context.Context, actor auth.Session, leadID, ref string) (*model.Lead, error)
	DocumentStatus(ctx context.Context, actor auth.Session, leadID string) (*DocumentReport, error)

	SweepStale(ctx context.Context) (*StaleSweepResult, error)
}

type leadService struct {
	repo       repository.LeadRepository
	activities repository.ActivityRepository
	users      UserDirectory
	validator  *validator.LeadValidator
	mailer     mail.Sender
	publisher  events.Publisher
	cfg        *config.Config
}

// NewLeadService wires the lead pipeline. mailer and publisher may be
// nil; both are best-effort side channels.
func NewLeadService(
	repo repository.LeadRepository,
	activities repository.ActivityRepository,
	users UserDirectory,
	validator *validator.LeadValidator,
	mailer mail.Sender,
	publisher events.Publisher,
	cfg *config.Config,
) LeadService {
	return &leadService{
		repo:       repo,
		activities: activities,
		users:      users,
		validator:  validator,
		mailer:     mailer,
		publisher:  publisher,
		cfg:        cfg,
	}
}

func (s *leadService) Create(ctx context.Context, actor auth.Session, lead *model.Lead) error {
	s.sanitize(lead)

	// The store assigns the identity; a client-chosen one is discarded.
	lead.ID = ""
	lead.Stage = model.StageNew
	lead.PreviousStage = ""
	lead.Comments = nil
	if lead.Source == "" {
		if actor.IsStaff() {
			lead.Source = model.SourceManual
		} else {
			lead.Source = model.SourceWebsite
		}
	}
	// Ownership cannot be claimed from the request body: customers own
	// what they file, only admins may file on another customer's behalf.
	switch {
	case actor.IsCustomer():
		lead.CustomerID = actor.UserID
	case actor.IsAdmin():
		// Kept as supplied.
	default:
		lead.CustomerID = ""
	}
	if !actor.IsAdmin() {
		lead.AgentID = ""
	}

	if err := s.validator.Validate(lead); err != nil {
		s.cfg.Log.Warn("Lead validation failed",
			"destination", lead.Destination,
			"source", lead.Source,
			"error", err,
		)
		return validationError("Lead validation failed", err)
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		s.cfg.Log.Error("Failed to create lead",
			"destination", lead.Destination,
			"source", lead.Source,
			"error", err,
		)
		return apperrors.Internal("Failed to create lead", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID:  lead.ID,
		UserID:  actor.UserID,
		Action:  model.ActionCreated,
		Details: fmt.Sprintf("inquiry received via %s", lead.Source),
	})
	s.publish(ctx, events.LeadEvent{
		Type:    events.TypeLeadCreated,
		LeadID:  lead.ID,
		ActorID: actor.UserID,
		ToStage: string(lead.Stage),
	})

	s.cfg.Log.Info("Lead created",
		"id", lead.ID,
		"destination", lead.Destination,
		"trip_type", lead.TripType,
		"source", lead.Source,
	)

	return nil
}

func (s *leadService) Get(ctx context.Context, actor auth.Session, id string) (*model.Lead, error) {
	return s.loadForActor(ctx, actor, id, false)
}

func (s *leadService) List(ctx context.Context, actor auth.Session, opts ListOptions) ([]*model.Lead, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, apperrors.Unauthorized("Authentication required")
	}

	q := repository.LeadQuery{
		Stage:    opts.Stage,
		TripType: opts.TripType,
		Search:   strings.TrimSpace(opts.Search),
	}
	if opts.Stage != "" && !opts.Stage.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown stage %q", opts.Stage))
	}

	switch {
	case actor.IsAdmin():
		// Unrestricted.
	case actor.IsAgent():
		// Agents work their own queue; won leads leave it. A won
		// filter therefore yields an empty result, not an error.
		if opts.Stage == model.StageWon {
			return []*model.Lead{}, 0, nil
		}
		q.AgentID = actor.UserID
		q.ExcludeWon = true
	case actor.IsCustomer():
		q.CustomerID = actor.UserID
	default:
		return nil, 0, apperrors.Forbidden("Your role cannot list leads")
	}

	page := config.NormalizePage(opts.Page)
	pageSize := s.cfg.LeadsPageSize
	paginate := !opts.Board

	var count int64
	var leads []*model.Lead
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		var err error
		count, err = s.repo.Count(ctx, q)
		if err != nil {
			s.cfg.Log.Error("Failed to count leads", "error", err)
			errCount = apperrors.Internal("Failed to count leads", err)
		}
	}()
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ReadTimeout)
		defer cancel()
		var err error
		leads, err = s.repo.Find(ctx, q, page, pageSize, paginate)
		if err != nil {
			s.cfg.Log.Error("Failed to list leads",
				"page", page,
				"page_size", pageSize,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve leads", err)
		}
	}()
	wg.Wait()

	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if leads == nil {
		leads = []*model.Lead{}
	}

	return leads, count, nil
}

func (s *leadService) UpdateDetails(ctx context.Context, actor auth.Session, id string, updates *model.LeadUpdate) error {
	existing, err := s.loadForActor(ctx, actor, id, true)
	if err != nil {
		return err
	}

	merged := s.mergeLeadUpdates(existing, updates)
	s.sanitize(merged)

	if err := s.validator.Validate(merged); err != nil {
		s.cfg.Log.Warn("Lead validation failed",
			"id", id,
			"error", err,
		)
		return validationError("Lead validation failed", err)
	}

	if err := s.repo.Update(ctx, id, merged); err != nil {
		s.cfg.Log.Error("Failed to update lead", "id", id, "error", err)
		return apperrors.Internal("Failed to update lead", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID: id,
		UserID: actor.UserID,
		Action: model.ActionDetailsUpdated,
	})

	s.cfg.Log.Info("Lead updated", "id", id)

	return nil
}

func (s *leadService) Delete(ctx context.Context, actor auth.Session, id string) error {
	if !actor.IsAdmin() {
		return apperrors.Forbidden("Only administrators can delete leads")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, leaderrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Lead", id)
		}
		if errors.Is(err, leaderrors.ErrInvalidID) {
			return apperrors.InvalidInput("Invalid lead ID format")
		}
		s.cfg.Log.Error("Failed to delete lead", "id", id, "error", err)
		return apperrors.Internal("Failed to delete lead", err)
	}

	s.publish(ctx, events.LeadEvent{
		Type:    events.TypeLeadDeleted,
		LeadID:  id,
		ActorID: actor.UserID,
	})

	s.cfg.Log.Info("Lead deleted", "id", id, "deleted_by", actor.UserID)

	return nil
}

func (s *leadService) AddComment(ctx context.Context, actor auth.Session, leadID, text string) error {
	if !actor.IsStaff() {
		return apperrors.Forbidden("Only staff can comment on leads")
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return apperrors.InvalidInput("Comment text cannot be empty")
	}

	if _, err := s.loadForActor(ctx, actor, leadID, true); err != nil {
		return err
	}

	comment := model.LeadComment{
		Text:      text,
		AgentID:   actor.UserID,
		AgentName: actor.Name,
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if err := s.repo.PushComment(ctx, leadID, comment); err != nil {
		s.cfg.Log.Error("Failed to add comment", "lead_id", leadID, "error", err)
		return apperrors.Internal("Failed to add comment", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID: leadID,
		UserID: actor.UserID,
		Action: model.ActionNoteAdded,
	})

	return nil
}

// RefreshTimer resets the inactivity clock without any other change, so
// an actively-worked lead is not swept stale.
func (s *leadService) RefreshTimer(ctx context.Context, actor auth.Session, leadID string) error {
	if !actor.IsStaff() {
		return apperrors.Forbidden("Only staff can refresh lead activity")
	}

	if _, err := s.loadForActor(ctx, actor, leadID, true); err != nil {
		return err
	}

	if err := s.repo.TouchActivity(ctx, leadID, time.Now().UTC().Truncate(time.Millisecond)); err != nil {
		s.cfg.Log.Error("Failed to refresh lead activity", "lead_id", leadID, "error", err)
		return apperrors.Internal("Failed to refresh lead activity", err)
	}

	s.recordActivity(ctx, &model.LeadActivity{
		LeadID:  leadID,
		UserID:  actor.UserID,
		Action:  model.ActionDetailsUpdated,
		Details: "activity timer refreshed",
	})

	return nil
}

func (s *leadService) Activities(ctx context.Context, actor auth.Session, leadID string) ([]*model.LeadActivity, error) {
	if _, err := s.loadForActor(ctx, actor, leadID, false); err != nil {
		return nil, err
	}

	activities, err := s.activities.FindByLead(ctx, leadID)
	if err != nil {
		s.cfg.Log.Error("Failed to load lead activities", "lead_id", leadID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve lead activities", err)
	}
	if activities == nil {
		activities = []*model.LeadActivity{}
	}

	return activities, nil
}

// loadForActor fetches a lead and enforces the role access rules.
// Agents may only touch leads assigned to them; a foreign lead is an
// explicit Forbidden so the mistake is visible. Customers only ever see
// their own leads, and a foreign lead reads as NotFound to avoid
// leaking its existence. Customers never get write access.
func (s *leadService) loadForActor(ctx context.Context, actor auth.Session, id string, forWrite bool) (*model.Lead, error) {
	if !actor.Authenticated() {
		return nil, apperrors.Unauthorized("Authentication required")
	}
	if id == "" {
		return nil, apperrors.InvalidInput("Lead ID cannot be empty")
	}

	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, leaderrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Lead", id)
		}
		if errors.Is(err, leaderrors.ErrInvalidID) {
			return nil, apperrors.InvalidInput("Invalid lead ID format")
		}
		s.cfg.Log.Error("Failed to get lead", "id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve lead", err)
	}

	switch {
	case actor.IsAdmin():
		return lead, nil
	case actor.IsAgent():
		if lead.AgentID != actor.UserID {
			return nil, apperrors.Forbidden("You do not have access to this lead")
		}
		return lead, nil
	case actor.IsCustomer():
		if lead.CustomerID != actor.UserID {
			return nil, apperrors.NotFoundWithID("Lead", id)
		}
		if forWrite {
			return nil, apperrors.Forbidden("Customers cannot modify leads")
		}
		return lead, nil
	default:
		return nil, apperrors.Forbidden("You do not have access to this lead")
	}
}

func (s *leadService) sanitize(lead *model.Lead) {
	lead.DepartureCity = sanitizer.SanitizeCity(lead.DepartureCity)
	lead.Destination = sanitizer.SanitizeCity(lead.Destination)
	lead.SpecialRequests = strings.TrimSpace(lead.SpecialRequests)
	lead.Notes = strings.TrimSpace(lead.Notes)
	lead.Inclusions = sanitizer.SanitizeStringSlice(lead.Inclusions, sanitizer.SanitizeName)
	lead.Exclusions = sanitizer.SanitizeStringSlice(lead.Exclusions, sanitizer.SanitizeName)

	for i := range lead.Travelers {
		sanitizeTraveler(&lead.Travelers[i])
	}
}

func sanitizeTraveler(t *model.Traveler) {
	t.Name = sanitizer.SanitizeName(t.Name)
	t.Email = sanitizer.SanitizeEmail(t.Email)
	t.Phone = sanitizer.SanitizePhone(t.Phone)
}

func (s *leadService) mergeLeadUpdates(existing *model.Lead, updates *model.LeadUpdate) *model.Lead {
	merged := *existing

	if updates.TripType != "" {
		merged.TripType = updates.TripType
	}
	if updates.DepartureCity != "" {
		merged.DepartureCity = updates.DepartureCity
	}
	if updates.Destination != "" {
		merged.Destination = updates.Destination
	}
	if updates.TravelDate != "" {
		merged.TravelDate = updates.TravelDate
	}
	if updates.Duration != "" {
		merged.Duration = updates.Duration
	}
	if updates.Guests != 0 {
		merged.Guests = updates.Guests
	}
	if updates.Budget != 0 {
		merged.Budget = updates.Budget
	}
	if updates.SpecialRequests != nil {
		merged.SpecialRequests = *updates.SpecialRequests
	}
	if updates.Notes != nil {
		merged.Notes = *updates.Notes
	}
	if updates.Source != "" {
		merged.Source = updates.Source
	}

	if updates.Itinerary != nil {
		merged.Itinerary = *updates.Itinerary
	}
	if updates.ItineraryPDFURL != nil {
		merged.ItineraryPDFURL = *updates.ItineraryPDFURL
	}
	if updates.Documents != nil {
		merged.Documents = *updates.Documents
	}
	if updates.TravelDocumentsPDFURL != nil {
		merged.TravelDocumentsPDFURL = *updates.TravelDocumentsPDFURL
	}
	if updates.Inclusions != nil {
		merged.Inclusions = *updates.Inclusions
	}
	if updates.Exclusions != nil {
		merged.Exclusions = *updates.Exclusions
	}

	if updates.PaymentStatus != "" {
		merged.PaymentStatus = updates.PaymentStatus
	}
	if updates.PaymentAmount != nil {
		merged.PaymentAmount = *updates.PaymentAmount
	}
	if updates.TripCost != nil {
		merged.TripCost = *updates.TripCost
	}

	merged.ID = existing.ID
	merged.Stage = existing.Stage
	merged.PreviousStage = existing.PreviousStage
	merged.AgentID = existing.AgentID
	merged.CustomerID = existing.CustomerID
	merged.CreatedAt = existing.CreatedAt

	return &merged
}

// recordActivity appends an audit entry best-effort. A failed audit
// write is logged and never fails the operation it describes.
func (s *leadService) recordActivity(ctx context.Context, activity *model.LeadActivity) {
	if err := s.activities.Create(context.WithoutCancel(ctx), activity); err != nil {
		s.cfg.Log.Warn("Failed to record lead activity",
			"lead_id", activity.LeadID,
			"action", activity.Action,
			"error", err,
		)
	}
}

func (s *leadService) publish(ctx context.Context, event events.LeadEvent) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(context.WithoutCancel(ctx), event)
}

// validationError converts validator output into the structured
// validation error shape.
func validationError(message string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(message, verrs.Fields())
	}
	var verr validator.ValidationError
	if errors.As(err, &verr) {
		return apperrors.Validation(message, map[string]string{verr.Field: verr.Message})
	}
	return apperrors.Validation(message, map[string]string{"error": err.Error()})
}
