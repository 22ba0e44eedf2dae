package service

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/dto"
	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/internal/repository"
	appErrors "github.com/noah-isme/sma-substitution-api/pkg/errors"
)

type profileStore interface {
	FindByID(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, profile models.Profile) error
}

// ProfileService manages the editable profile of the signed-in user.
type ProfileService struct {
	repo      profileStore
	notifier  NotificationSink
	validator *validator.Validate
	logger    *zap.Logger

	mu sync.Mutex
}

// NewProfileService constructs the profile service.
func NewProfileService(repo profileStore, notifier NotificationSink, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, notifier: notifier, validator: validate, logger: logger}
}

// Get returns the stored profile or one derived from the session.
func (s *ProfileService) Get(ctx context.Context, session *models.Session) (*models.Profile, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	return s.load(ctx, session)
}

// Update applies the non-nil fields of req. Existing substitution requests keep the
// requester name they were created with.
func (s *ProfileService) Update(ctx context.Context, session *models.Session, req dto.UpdateProfileRequest) (*models.Profile, error) {
	if session == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		if trimmed == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "name cannot be empty")
		}
		req.Name = &trimmed
	}
	if req.Subjects != nil {
		req.Subjects = normaliseSubjects(req.Subjects)
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		profile.Name = *req.Name
	}
	if req.Email != nil {
		profile.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		profile.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Subjects != nil {
		profile.Subjects = req.Subjects
	}

	if err := s.repo.Upsert(ctx, *profile); err != nil {
		return nil, storeError(err, "failed to save profile")
	}
	s.logger.Info("profile updated", zap.String("user_id", session.ID))
	if s.notifier != nil {
		s.notifier.Notify(ctx, session.ID, models.Notification{Title: "Profile Updated", Description: "Your changes have been saved."})
	}
	return profile, nil
}

func (s *ProfileService) load(ctx context.Context, session *models.Session) (*models.Profile, error) {
	profile, err := s.repo.FindByID(ctx, session.ID)
	if err == nil {
		return profile, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, storeError(err, "failed to load profile")
	}
	return &models.Profile{ID: session.ID, Name: session.FullName, Role: session.Role}, nil
}

func normaliseSubjects(subjects []string) []string {
	seen := make(map[string]struct{}, len(subjects))
	result := make([]string, 0, len(subjects))
	for _, subject := range subjects {
		subject = strings.TrimSpace(subject)
		key := strings.ToLower(subject)
		if subject == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, subject)
	}
	return result
}
