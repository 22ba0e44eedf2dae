package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

// Workflow actions, used for notifications and metrics.
const (
	ActionSubmit  = "submit"
	ActionAccept  = "accept"
	ActionDecline = "decline"
	ActionCancel  = "cancel"
)

type substitutionStore interface {
	LoadAll(ctx context.Context) ([]models.SubstitutionRequest, error)
	SaveAll(ctx context.Context, requests []models.SubstitutionRequest) error
	FindByID(ctx context.Context, id string) (*models.SubstitutionRequest, error)
}

type profileReader interface {
	FindByID(ctx context.Context, userID string) (*models.Profile, error)
}

type transitionRecorder interface {
	RecordTransition(action, outcome string)
}

// SubstitutionService runs the substitution request lifecycle.
type SubstitutionService struct {
	repo      substitutionStore
	notifier  NotificationSink
	profiles  profileReader
	metrics   transitionRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	newID     func() string

	mu sync.Mutex
}

// SubstitutionServiceOption configures the service.
type SubstitutionServiceOption func(*SubstitutionService)

// WithSubstitutionProfiles enables the subject match hint of the detail view and
// lets a saved profile name override the token name in new snapshots.
func WithSubstitutionProfiles(profiles profileReader) SubstitutionServiceOption {
	return func(s *SubstitutionService) {
		s.profiles = profiles
	}
}

// WithSubstitutionMetrics counts workflow outcomes.
func WithSubstitutionMetrics(metrics transitionRecorder) SubstitutionServiceOption {
	return func(s *SubstitutionService) {
		s.metrics = metrics
	}
}

// WithSubstitutionClock overrides the clock used for timestamps.
func WithSubstitutionClock(now func() time.Time) SubstitutionServiceOption {
	return func(s *SubstitutionService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSubstitutionIDGenerator overrides id generation.
func WithSubstitutionIDGenerator(gen func() string) SubstitutionServiceOption {
	return func(s *SubstitutionService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewSubstitutionService constructs the service with defaults.
func NewSubstitutionService(repo substitutionStore, notifier NotificationSink, validate *validator.Validate, logger *zap.Logger, opts ...SubstitutionServiceOption) *SubstitutionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	svc := &SubstitutionService{
		repo:      repo,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		now:       time.Now,
		newID:     func() string { return "sub-" + uuid.NewString() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Submit records a new Pending request on behalf of a teacher.
func (s *SubstitutionService) Submit(ctx context.Context, session *models.Session, req dto.CreateSubstitutionRequest) (*models.SubstitutionRequest, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !session.IsTeacher() {
		return nil, s.reject(ctx, session, ActionSubmit, appErrors.Clone(appErrors.ErrForbidden, "only teachers can request a substitute"))
	}

	req.Notes = strings.TrimSpace(req.Notes)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Class = strings.TrimSpace(req.Class)
	req.Time = strings.TrimSpace(req.Time)
	req.Date = strings.TrimSpace(req.Date)
	if req.Notes == "" {
		return nil, s.reject(ctx, session, ActionSubmit, appErrors.Clone(appErrors.ErrValidation, "notes are required"))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, s.reject(ctx, session, ActionSubmit, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid substitution request"))
	}
	requesterName, nameErr := s.snapshotName(ctx, session)
	if nameErr != nil {
		return nil, s.reject(ctx, session, ActionSubmit, nameErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, s.reject(ctx, session, ActionSubmit, storeError(err, "failed to load substitution requests"))
	}

	created := models.SubstitutionRequest{
		ID:            s.uniqueID(requests),
		Timestamp:     s.now().UnixMilli(),
		Notes:         req.Notes,
		Status:        models.SubstitutionStatusPending,
		RequesterID:   session.ID,
		RequesterName: requesterName,
		Version:       1,
		Subject:       req.Subject,
		Class:         req.Class,
		Time:          req.Time,
		Date:          req.Date,
	}
	updated := make([]models.SubstitutionRequest, 0, len(requests)+1)
	updated = append(updated, created)
	updated = append(updated, requests...)

	if err := s.repo.SaveAll(ctx, updated); err != nil {
		return nil, s.reject(ctx, session, ActionSubmit, storeError(err, "failed to save substitution request"))
	}

	s.logger.Info("substitution requested", zap.String("id", created.ID), zap.String("requester_id", session.ID))
	s.succeed(ctx, session.ID, ActionSubmit, models.Notification{
		Title:       "Request Sent",
		Description: "Your substitution request has been posted to other teachers.",
	})
	return &created, nil
}

// List returns requests newest first, ties broken by ascending id.
func (s *SubstitutionService) List(ctx context.Context, session *models.Session, filter dto.SubstitutionQuery) ([]models.SubstitutionRequest, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	requests, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, storeError(err, "failed to load substitution requests")
	}

	match := models.SubstitutionFilter{Status: filter.Status, RequesterID: filter.RequesterID}
	result := make([]models.SubstitutionRequest, 0, len(requests))
	for _, r := range requests {
		if match.Matches(r) {
			result = append(result, r)
		}
	}
	SortSubstitutions(result)
	return result, nil
}

// Get returns one request together with the actions available to the viewer.
func (s *SubstitutionService) Get(ctx context.Context, id string, session *models.Session) (*dto.SubstitutionDetail, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitution request not found")
		}
		return nil, storeError(err, "failed to load substitution request")
	}

	detail := &dto.SubstitutionDetail{
		Request:       *request,
		IsActionable:  request.IsPending() && session.IsTeacher() && session.ID != request.RequesterID,
		IsCancellable: request.IsPending() && session.ID == request.RequesterID,
	}
	detail.IsSubjectMatch = s.subjectMatch(ctx, request, session)
	return detail, nil
}

// Accept moves a Pending request to Accepted on behalf of another teacher.
// A positive expectedVersion must match the stored version.
func (s *SubstitutionService) Accept(ctx context.Context, id string, session *models.Session, expectedVersion int) (*models.SubstitutionRequest, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !session.IsTeacher() {
		return nil, s.reject(ctx, session, ActionAccept, appErrors.Clone(appErrors.ErrForbidden, "only teachers can accept substitution requests"))
	}
	acceptorName, nameErr := s.snapshotName(ctx, session)
	if nameErr != nil {
		return nil, s.reject(ctx, session, ActionAccept, nameErr)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.LoadAll(ctx)
	if err != nil {
		return nil, s.reject(ctx, session, ActionAccept, storeError(err, "failed to load substitution requests"))
	}
	idx := indexOfSubstitution(requests, id)
	if idx < 0 {
		return nil, s.reject(ctx, session, ActionAccept, appErrors.Clone(appErrors.ErrNotFound, "substitution request not found"))
	}
	target := requests[idx]
	if target.RequesterID == session.ID {
		return nil, s.reject(ctx, session, ActionAccept, appErrors.Clone(appErrors.ErrForbidden, "you cannot accept your own request"))
	}
	if !target.IsPending() {
		return nil, s.reject(ctx, session, ActionAccept, appErrors.Clone(appErrors.ErrInvalidTransition, "substitution request is no longer pending"))
	}
	if err := checkVersion(target, expectedVersion); err != nil {
		return nil, s.reject(ctx, session, ActionAccept, err)
	}

	target.Status = models.SubstitutionStatusAccepted
	target.AcceptedBy = acceptorName
	target.Version++
	requests[idx] = target

	if err := s.repo.SaveAll(ctx, requests); err != nil {
		return nil, s.reject(ctx, session, ActionAccept, storeError(err, "failed to save substitution request"))
	}

	s.logger.Info("substitution accepted", zap.String("id", target.ID), zap.String("acceptor_id", session.ID))
	s.succeed(ctx, session.ID, ActionAccept, models.Notification{
		Title:       "Substitution Accepted",
		Description: fmt.Sprintf("You are covering for %s.", displayName(target.RequesterName)),
	})
	return &target, nil
}

// Decline acknowledges a teacher's choice not to cover. Stored state never changes.
func (s *SubstitutionService) Decline(ctx context.Context, id string, session *models.Session) (*models.SubstitutionRequest, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if !session.IsTeacher() {
		return nil, s.reject(ctx, session, ActionDecline, appErrors.Clone(appErrors.ErrForbidden, "only teachers can decline substitution requests"))
	}

	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, s.reject(ctx, session, ActionDecline, appErrors.Clone(appErrors.ErrNotFound, "substitution request not found"))
		}
		return nil, s.reject(ctx, session, ActionDecline, storeError(err, "failed to load substitution request"))
	}

	s.logger.Debug("substitution declined", zap.String("id", request.ID), zap.String("teacher_id", session.ID))
	s.succeed(ctx, session.ID, ActionDecline, models.Notification{
		Title:       "Request Declined",
		Description: "The request stays open for other teachers.",
	})
	return request, nil
}

// Cancel deletes a Pending request. Only its requester may cancel it.
func (s *SubstitutionService) Cancel(ctx context.Context, id string, session *models.Session, expectedVersion int) error {
	if session == nil {
		return appErrors.ErrUnauthorized
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests, err := s.repo.LoadAll(ctx)
	if err != nil {
		return s.reject(ctx, session, ActionCancel, storeError(err, "failed to load substitution requests"))
	}
	idx := indexOfSubstitution(requests, id)
	if idx < 0 {
		return s.reject(ctx, session, ActionCancel, appErrors.Clone(appErrors.ErrNotFound, "substitution request not found"))
	}
	target := requests[idx]
	if target.RequesterID != session.ID {
		return s.reject(ctx, session, ActionCancel, appErrors.Clone(appErrors.ErrForbidden, "only the requester can cancel a request"))
	}
	if !target.IsPending() {
		return s.reject(ctx, session, ActionCancel, appErrors.Clone(appErrors.ErrInvalidTransition, "accepted requests cannot be cancelled"))
	}
	if err := checkVersion(target, expectedVersion); err != nil {
		return s.reject(ctx, session, ActionCancel, err)
	}

	remaining := make([]models.SubstitutionRequest, 0, len(requests)-1)
	remaining = append(remaining, requests[:idx]...)
	remaining = append(remaining, requests[idx+1:]...)
	if err := s.repo.SaveAll(ctx, remaining); err != nil {
		return s.reject(ctx, session, ActionCancel, storeError(err, "failed to save substitution requests"))
	}

	s.logger.Info("substitution cancelled", zap.String("id", target.ID), zap.String("requester_id", session.ID))
	s.succeed(ctx, session.ID, ActionCancel, models.Notification{
		Title:       "Request Cancelled",
		Description: "Your substitution request has been withdrawn.",
	})
	return nil
}

// SortSubstitutions orders requests newest first with ascending id as tie-break.
func SortSubstitutions(requests []models.SubstitutionRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		if requests[i].Timestamp != requests[j].Timestamp {
			return requests[i].Timestamp > requests[j].Timestamp
		}
		return requests[i].ID < requests[j].ID
	})
}

func (s *SubstitutionService) subjectMatch(ctx context.Context, request *models.SubstitutionRequest, session *models.Session) *bool {
	if s.profiles == nil || request.Subject == "" {
		return nil
	}
	profile, err := s.profiles.FindByID(ctx, session.ID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to load profile for subject match", zap.String("user_id", session.ID), zap.Error(err))
		}
		return nil
	}
	if len(profile.Subjects) == 0 {
		return nil
	}
	match := profile.Teaches(request.Subject)
	return &match
}

// snapshotName resolves the display name frozen onto a record. The saved profile
// name wins over the token name; blank names are rejected.
func (s *SubstitutionService) snapshotName(ctx context.Context, session *models.Session) (string, *appErrors.Error) {
	if s.profiles != nil {
		profile, err := s.profiles.FindByID(ctx, session.ID)
		switch {
		case err == nil:
			if name := strings.TrimSpace(profile.Name); name != "" {
				return name, nil
			}
		case !errors.Is(err, repository.ErrNotFound):
			s.logger.Warn("failed to load profile for name snapshot", zap.String("user_id", session.ID), zap.Error(err))
		}
	}
	if name := strings.TrimSpace(session.FullName); name != "" {
		return name, nil
	}
	return "", appErrors.Clone(appErrors.ErrValidation, "a display name is required, set one on your profile")
}

func (s *SubstitutionService) uniqueID(existing []models.SubstitutionRequest) string {
	for {
		id := s.newID()
		if indexOfSubstitution(existing, id) < 0 {
			return id
		}
	}
}

func (s *SubstitutionService) reject(ctx context.Context, session *models.Session, action string, err *appErrors.Error) error {
	if s.metrics != nil {
		s.metrics.RecordTransition(action, err.Code)
	}
	if err.Status >= 500 {
		s.logger.Error("substitution action failed", zap.String("action", action), zap.Error(err))
	}
	if s.notifier != nil && session != nil {
		s.notifier.Notify(ctx, session.ID, models.Notification{
			Title:       failureTitle(action),
			Description: err.Message,
			Variant:     models.NotificationVariantDestructive,
		})
	}
	return err
}

func (s *SubstitutionService) succeed(ctx context.Context, recipientID, action string, n models.Notification) {
	if s.metrics != nil {
		s.metrics.RecordTransition(action, "ok")
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, recipientID, n)
	}
}

func failureTitle(action string) string {
	switch action {
	case ActionSubmit:
		return "Request Not Sent"
	case ActionAccept:
		return "Could Not Accept"
	case ActionDecline:
		return "Could Not Decline"
	case ActionCancel:
		return "Could Not Cancel"
	}
	return "Something Went Wrong"
}

func checkVersion(r models.SubstitutionRequest, expected int) *appErrors.Error {
	if expected > 0 && expected != r.Version {
		return appErrors.Clone(appErrors.ErrConflict, "substitution request was modified by someone else, reload and try again")
	}
	return nil
}

func indexOfSubstitution(requests []models.SubstitutionRequest, id string) int {
	for i := range requests {
		if requests[i].ID == id {
			return i
		}
	}
	return -1
}

func storeError(err error, message string) *appErrors.Error {
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, message)
}

func displayName(name string) string {
	if strings.TrimSpace(name) == "" {
		return "a colleague"
	}
	return name
}
