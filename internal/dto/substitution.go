package dto

import "github.com/noah-isme/sma-substitution-api/internal/models"

// CreateSubstitutionRequest is the payload of the "send request" action.
type CreateSubstitutionRequest struct {
	Notes   string `json:"notes" validate:"required,max=2000"`
	Subject string `json:"subject" validate:"max=120"`
	Class   string `json:"class" validate:"max=60"`
	Time    string `json:"time" validate:"max=60"`
	Date    string `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

// TransitionSubstitutionRequest carries the version the caller last saw. Zero skips the check.
type TransitionSubstitutionRequest struct {
	Version int `json:"version" validate:"gte=0"`
}

// SubstitutionQuery mirrors supported listing filters.
type SubstitutionQuery struct {
	Status      models.SubstitutionStatus
	RequesterID string
}

// SubstitutionDetail is a request decorated with the actions available to the viewer.
type SubstitutionDetail struct {
	Request        models.SubstitutionRequest `json:"request"`
	IsActionable   bool                       `json:"isActionable"`
	IsCancellable  bool                       `json:"isCancellable"`
	IsSubjectMatch *bool                      `json:"isSubjectMatch,omitempty"`
}

// SubstitutionExport is a rendered export document.
type SubstitutionExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}
