package models

import "strings"

// Profile holds the editable details of a user.
type Profile struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Email    string   `json:"email,omitempty"`
	Phone    string   `json:"phone,omitempty"`
	Role     UserRole `json:"role"`
	Subjects []string `json:"subjects,omitempty"`
}

// Teaches reports whether subject is one of the declared subjects, ignoring case.
func (p *Profile) Teaches(subject string) bool {
	if p == nil {
		return false
	}
	subject = strings.TrimSpace(subject)
	for _, s := range p.Subjects {
		if strings.EqualFold(strings.TrimSpace(s), subject) {
			return true
		}
	}
	return false
}
