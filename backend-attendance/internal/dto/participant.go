package dto

import (
	"strconv"
	"strings"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
)

// CreateParticipantRequest represents participant self-registration
type CreateParticipantRequest struct {
	Name   string `json:"name" binding:"required,min=1,max=255"`
	Email  string `json:"email" binding:"required,email,max=255"`
	Branch string `json:"branch" binding:"required,max=100"`
	Year   int    `json:"year" binding:"required,min=1,max=10"`
	Phone  string `json:"phone" binding:"required,min=5,max=20"`
}

// Validate validates the CreateParticipantRequest
func (r *CreateParticipantRequest) Validate() (bool, string) {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Branch = strings.TrimSpace(r.Branch)
	r.Phone = strings.TrimSpace(r.Phone)
	return validateStruct(r)
}

// Identity returns the fields used for duplicate detection
func (r *CreateParticipantRequest) Identity() domain.ParticipantIdentity {
	return domain.ParticipantIdentity{Name: r.Name, Email: r.Email, Branch: r.Branch, Year: r.Year, Phone: r.Phone}
}

// UpdateParticipantRequest represents an organizer edit of participant fields
type UpdateParticipantRequest struct {
	Name   *string `json:"name" binding:"omitempty,min=1,max=255"`
	Email  *string `json:"email" binding:"omitempty,email,max=255"`
	Branch *string `json:"branch" binding:"omitempty,min=1,max=100"`
	Year   *int    `json:"year" binding:"omitempty,min=1,max=10"`
	Phone  *string `json:"phone" binding:"omitempty,min=5,max=20"`
}

// Validate validates the UpdateParticipantRequest
func (r *UpdateParticipantRequest) Validate() (bool, string) {
	return validateStruct(r)
}

// Apply copies the set fields onto p
func (r *UpdateParticipantRequest) Apply(p *domain.Participant) {
	if r.Name != nil {
		p.Name = strings.TrimSpace(*r.Name)
	}
	if r.Email != nil {
		p.Email = strings.TrimSpace(*r.Email)
	}
	if r.Branch != nil {
		p.Branch = strings.TrimSpace(*r.Branch)
	}
	if r.Year != nil {
		p.Year = *r.Year
	}
	if r.Phone != nil {
		p.Phone = strings.TrimSpace(*r.Phone)
	}
}

// ParticipantListFilter represents query filters for participant listings.
// Year and SortBy are kept raw so a bad value drops the filter instead of failing the request.
type ParticipantListFilter struct {
	EventID string   `form:"event_id"`
	Query   string   `form:"q"`
	Branch  string   `form:"branch"`
	Year    string   `form:"year"`
	SortBy  []string `form:"sort_by"`
}

// ToDomain converts the filter, dropping values that do not parse
func (f *ParticipantListFilter) ToDomain() *domain.ParticipantFilter {
	filter := &domain.ParticipantFilter{
		EventID: strings.TrimSpace(f.EventID),
		Query:   strings.TrimSpace(f.Query),
		Branch:  strings.TrimSpace(f.Branch),
		SortBy:  domain.ParseSortKeys(f.SortBy),
	}
	if year, err := strconv.Atoi(strings.TrimSpace(f.Year)); err == nil && year > 0 {
		filter.Year = year
	}
	return filter
}

// ParticipantCreatedResponse is returned after self-registration
type ParticipantCreatedResponse struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// ParticipantListResponse represents a list of participants
type ParticipantListResponse struct {
	Participants []*domain.Participant `json:"participants"`
	Total        int                   `json:"total"`
}
