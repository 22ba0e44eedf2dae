package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-substitution-api/internal/models"
	"github.com/noah-isme/sma-substitution-api/pkg/kvstore"
)

// SubstitutionRepository persists the whole substitution board under a single key.
type SubstitutionRepository struct {
	store  kvstore.Store
	logger *zap.Logger
}

// NewSubstitutionRepository constructs the repository.
func NewSubstitutionRepository(store kvstore.Store, logger *zap.Logger) *SubstitutionRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubstitutionRepository{store: store, logger: logger}
}

// LoadAll returns every stored request. Absent or malformed values yield an empty slice.
func (r *SubstitutionRepository) LoadAll(ctx context.Context) ([]models.SubstitutionRequest, error) {
	var raw []json.RawMessage
	ok, err := loadJSON(ctx, r.store, r.logger, SubstitutionsKey, &raw)
	if err != nil {
		return nil, err
	}
	result := make([]models.SubstitutionRequest, 0, len(raw))
	if !ok {
		return result, nil
	}

	seen := make(map[string]struct{}, len(raw))
	for i, item := range raw {
		var record models.SubstitutionRequest
		if err := json.Unmarshal(item, &record); err != nil {
			r.logger.Warn("dropping undecodable substitution", zap.Int("index", i), zap.Error(err))
			continue
		}
		migrateLegacySubstitution(&record)
		if reason := invalidSubstitution(record); reason != "" {
			r.logger.Warn("dropping invalid substitution", zap.String("id", record.ID), zap.String("reason", reason))
			continue
		}
		if _, dup := seen[record.ID]; dup {
			r.logger.Warn("dropping duplicate substitution", zap.String("id", record.ID))
			continue
		}
		seen[record.ID] = struct{}{}
		result = append(result, record)
	}
	return result, nil
}

// SaveAll replaces the stored collection with requests. An empty collection
// removes the key, which LoadAll reads back as empty.
func (r *SubstitutionRepository) SaveAll(ctx context.Context, requests []models.SubstitutionRequest) error {
	if len(requests) == 0 {
		return deleteKey(ctx, r.store, SubstitutionsKey)
	}
	return saveJSON(ctx, r.store, SubstitutionsKey, requests)
}

// FindByID scans the collection for id.
func (r *SubstitutionRepository) FindByID(ctx context.Context, id string) (*models.SubstitutionRequest, error) {
	requests, err := r.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range requests {
		if requests[i].ID == id {
			found := requests[i]
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// migrateLegacySubstitution upgrades records written by the structured subject/class/date/time
// schema, which carried neither timestamp, version nor notes.
func migrateLegacySubstitution(r *models.SubstitutionRequest) {
	if r.Timestamp == 0 {
		if millis, err := strconv.ParseInt(strings.TrimPrefix(r.ID, "sub-"), 10, 64); err == nil && millis > 0 {
			r.Timestamp = millis
		}
	}
	if r.Version <= 0 {
		r.Version = 1
	}
	if strings.TrimSpace(r.Notes) == "" {
		r.Notes = legacyNotes(r)
	}
}

func legacyNotes(r *models.SubstitutionRequest) string {
	var b strings.Builder
	b.WriteString(strings.TrimSpace(r.Subject))
	if class := strings.TrimSpace(r.Class); class != "" {
		if b.Len() > 0 {
			b.WriteString(" - ")
		}
		b.WriteString(class)
	}
	if date := strings.TrimSpace(r.Date); date != "" {
		b.WriteString(" on ")
		b.WriteString(date)
	}
	if t := strings.TrimSpace(r.Time); t != "" {
		b.WriteString(" at ")
		b.WriteString(t)
	}
	return strings.TrimSpace(b.String())
}

func invalidSubstitution(r models.SubstitutionRequest) string {
	switch {
	case r.ID == "":
		return "missing id"
	case !r.Status.Valid():
		return "unknown status"
	case strings.TrimSpace(r.Notes) == "":
		return "missing notes"
	case r.Status == models.SubstitutionStatusAccepted && r.AcceptedBy == "":
		return "accepted without acceptor"
	case r.Status == models.SubstitutionStatusPending && r.AcceptedBy != "":
		return "pending with acceptor"
	}
	return ""
}
