package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
)

// ErrNotFound is returned when a record is absent from its collection.
var ErrNotFound = errors.New("record not found")

// Storage keys owned by the repositories of this package.
const (
	SubstitutionsKey = "substitutions"
	AttendanceKey    = "teacherAttendance"
	ProfilesKey      = "profileData"
)

// loadJSON decodes the value under key into dest. It reports false when the key is
// absent or holds a value that does not decode into dest; only store failures are errors.
func loadJSON(ctx context.Context, store kvstore.Store, logger *zap.Logger, key string, dest interface{}) (bool, error) {
	raw, err := store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("discarding malformed stored value", zap.String("key", key), zap.Error(err))
		return false, nil
	}
	return true, nil
}

func saveJSON(ctx context.Context, store kvstore.Store, key string, value interface{}) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := store.Set(ctx, key, payload); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func deleteKey(ctx context.Context, store kvstore.Store, key string) error {
	if err := store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
