package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
)

// ProfileRepository persists user profiles as one map keyed by user id.
type ProfileRepository struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewProfileRepository constructs the repository.
func NewProfileRepository(store kvstore.Store, logger *zap.Logger) *ProfileRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileRepository{store: store, logger: logger}
}

func (r *ProfileRepository) loadAll(ctx context.Context) (map[string]models.Profile, error) {
	profiles := map[string]models.Profile{}
	ok, err := loadJSON(ctx, r.store, r.logger, ProfilesKey, &profiles)
	if err != nil {
		return nil, err
	}
	if !ok || profiles == nil {
		return map[string]models.Profile{}, nil
	}
	return profiles, nil
}

// FindByID returns the profile of userID or ErrNotFound.
func (r *ProfileRepository) FindByID(ctx context.Context, userID string) (*models.Profile, error) {
	profiles, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}
	profile, ok := profiles[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &profile, nil
}

// Upsert stores profile under its id, keeping every other profile untouched.
func (r *ProfileRepository) Upsert(ctx context.Context, profile models.Profile) error {
	profiles, err := r.loadAll(ctx)
	if err != nil {
		return err
	}
	profiles[profile.ID] = profile
	return saveJSON(ctx, r.store, ProfilesKey, profiles)
}
