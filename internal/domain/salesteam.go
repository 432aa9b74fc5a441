package domain

import "time"

// SalesTeamMember is a sales-rep account managed through the dashboard.
type SalesTeamMember struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// SalesTeamMemberInput carries create/update fields for a member.
// Pointer fields distinguish "not provided" from an explicit value.
type SalesTeamMemberInput struct {
	Name   *string `json:"name,omitempty"`
	Email  *string `json:"email,omitempty"`
	Phone  *string `json:"phone,omitempty"`
	Role   *string `json:"role,omitempty"`
	Active *bool   `json:"active,omitempty"`
}
