package repository

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
)

// AttendanceRepository persists teacher presence counts under a single key.
type AttendanceRepository struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(store kvstore.Store, logger *zap.Logger) *AttendanceRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceRepository{store: store, logger: logger}
}

// Load returns the attendance book, empty when absent or malformed.
func (r *AttendanceRepository) Load(ctx context.Context) (models.AttendanceBook, error) {
	book := models.AttendanceBook{}
	ok, err := loadJSON(ctx, r.store, r.logger, AttendanceKey, &book)
	if err != nil {
		return nil, err
	}
	if !ok || book == nil {
		return models.AttendanceBook{}, nil
	}
	return book, nil
}

// Save replaces the stored attendance book.
func (r *AttendanceRepository) Save(ctx context.Context, book models.AttendanceBook) error {
	if book == nil {
		book = models.AttendanceBook{}
	}
	return saveJSON(ctx, r.store, AttendanceKey, book)
}
