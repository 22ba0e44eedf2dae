package models

import "strings"

// SubstitutionStatus captures the lifecycle state of a substitution request.
type SubstitutionStatus string

const (
	SubstitutionStatusPending  SubstitutionStatus = "Pending"
	SubstitutionStatusAccepted SubstitutionStatus = "Accepted"
)

// Valid reports whether s is a known status.
func (s SubstitutionStatus) Valid() bool {
	return s == SubstitutionStatusPending || s == SubstitutionStatusAccepted
}

// ParseSubstitutionStatus accepts any casing of a known status.
func ParseSubstitutionStatus(raw string) (SubstitutionStatus, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pending":
		return SubstitutionStatusPending, true
	case "accepted":
		return SubstitutionStatusAccepted, true
	}
	return "", false
}

// SubstitutionRequest is a teacher's posted need for classroom coverage.
// Requester and acceptor names are snapshots taken when the transition happened.
type SubstitutionRequest struct {
	ID            string             `json:"id"`
	Timestamp     int64              `json:"timestamp"`
	Notes         string             `json:"notes"`
	Status        SubstitutionStatus `json:"status"`
	RequesterID   string             `json:"requesterId"`
	RequesterName string             `json:"requesterName"`
	AcceptedBy    string             `json:"acceptedBy,omitempty"`
	Version       int                `json:"version"`

	Subject string `json:"subject,omitempty"`
	Class   string `json:"class,omitempty"`
	Time    string `json:"time,omitempty"`
	Date    string `json:"date,omitempty"`
}

// IsPending reports whether the request can still be accepted or cancelled.
func (r *SubstitutionRequest) IsPending() bool {
	return r.Status == SubstitutionStatusPending
}

// SubstitutionFilter narrows listing results.
type SubstitutionFilter struct {
	Status      SubstitutionStatus
	RequesterID string
}

// Matches reports whether r satisfies the filter.
func (f SubstitutionFilter) Matches(r SubstitutionRequest) bool {
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.RequesterID != "" && r.RequesterID != f.RequesterID {
		return false
	}
	return true
}
