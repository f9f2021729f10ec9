package dto

import (
	"strings"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
)

// CreateEventRequest represents the request to create a new event
type CreateEventRequest struct {
	Title                  string `json:"title" binding:"required,min=1,max=255"`
	Description            string `json:"description"`
	Venue                  string `json:"venue" binding:"max=255"`
	Time                   string `json:"time" binding:"max=100"`
	StartDate              string `json:"start_date" binding:"required"`
	EndDate                string `json:"end_date" binding:"required"`
	Days                   int    `json:"days" binding:"required,min=1"`
	IsRegistrationOpen     *bool  `json:"is_registration_open"`
	IsRegistrationRequired *bool  `json:"is_registration_required"`
}

// Validate validates the CreateEventRequest
func (r *CreateEventRequest) Validate() (bool, string) {
	if strings.TrimSpace(r.Title) == "" {
		return false, "Event title is required"
	}
	return validateSchedule(r.StartDate, r.EndDate, r.Days)
}

// ToDomain builds an event from the request. The code and ids are left empty.
func (r *CreateEventRequest) ToDomain() *domain.Event {
	start, _ := ParseDate(r.StartDate)
	end, _ := ParseDate(r.EndDate)
	event := &domain.Event{
		Title:                  strings.TrimSpace(r.Title),
		Description:            r.Description,
		Venue:                  r.Venue,
		Time:                   r.Time,
		StartDate:              start,
		EndDate:                end,
		Days:                   r.Days,
		IsRegistrationOpen:     true,
		IsRegistrationRequired: true,
	}
	if r.IsRegistrationOpen != nil {
		event.IsRegistrationOpen = *r.IsRegistrationOpen
	}
	if r.IsRegistrationRequired != nil {
		event.IsRegistrationRequired = *r.IsRegistrationRequired
	}
	return event
}

// UpdateEventRequest represents the request to update an event
type UpdateEventRequest struct {
	Title                  *string `json:"title" binding:"omitempty,min=1,max=255"`
	Description            *string `json:"description"`
	Venue                  *string `json:"venue" binding:"omitempty,max=255"`
	Time                   *string `json:"time" binding:"omitempty,max=100"`
	StartDate              *string `json:"start_date"`
	EndDate                *string `json:"end_date"`
	Days                   *int    `json:"days"`
	IsRegistrationOpen     *bool   `json:"is_registration_open"`
	IsRegistrationRequired *bool   `json:"is_registration_required"`
}

// Validate validates the UpdateEventRequest on its own
func (r *UpdateEventRequest) Validate() (bool, string) {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return false, "Event title cannot be empty"
	}
	if r.Days != nil && *r.Days < 1 {
		return false, "Days must be a positive integer"
	}
	if r.StartDate != nil {
		if _, err := ParseDate(*r.StartDate); err != nil {
			return false, "Invalid start date"
		}
	}
	if r.EndDate != nil {
		if _, err := ParseDate(*r.EndDate); err != nil {
			return false, "Invalid end date"
		}
	}
	return true, ""
}

// Apply copies the set fields onto event. The code is never touched.
func (r *UpdateEventRequest) Apply(event *domain.Event) {
	if r.Title != nil {
		event.Title = strings.TrimSpace(*r.Title)
	}
	if r.Description != nil {
		event.Description = *r.Description
	}
	if r.Venue != nil {
		event.Venue = *r.Venue
	}
	if r.Time != nil {
		event.Time = *r.Time
	}
	if r.StartDate != nil {
		event.StartDate, _ = ParseDate(*r.StartDate)
	}
	if r.EndDate != nil {
		event.EndDate, _ = ParseDate(*r.EndDate)
	}
	if r.Days != nil {
		event.Days = *r.Days
	}
	if r.IsRegistrationOpen != nil {
		event.IsRegistrationOpen = *r.IsRegistrationOpen
	}
	if r.IsRegistrationRequired != nil {
		event.IsRegistrationRequired = *r.IsRegistrationRequired
	}
}

// EventListFilter represents filters for listing events
type EventListFilter struct {
	Search string `form:"search"`
	Limit  int    `form:"limit"`
	Offset int    `form:"offset"`
}

// SetDefaults sets default values for pagination
func (f *EventListFilter) SetDefaults() {
	if f.Limit <= 0 || f.Limit > 100 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
}

// EventListResponse represents a list of events
type EventListResponse struct {
	Events []*domain.Event `json:"events"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// RegenerateCodeResponse is returned after a code rotation
type RegenerateCodeResponse struct {
	EventID string `json:"event_id"`
	Code    string `json:"code"`
}

// ToggleRegistrationResponse is returned after flipping the registration flag
type ToggleRegistrationResponse struct {
	EventID            string `json:"event_id"`
	IsRegistrationOpen bool   `json:"is_registration_open"`
}

// DeleteEventResponse acknowledges a queued deletion
type DeleteEventResponse struct {
	EventID string `json:"event_id"`
	Message string `json:"message"`
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the calendar day at midnight UTC
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		t, err = time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, err
		}
	}
	return domain.Day(t), nil
}

func validateSchedule(startRaw, endRaw string, days int) (bool, string) {
	start, err := ParseDate(startRaw)
	if err != nil {
		return false, "Invalid start date"
	}
	end, err := ParseDate(endRaw)
	if err != nil {
		return false, "Invalid end date"
	}
	if end.Before(start) {
		return false, "End date must not be before start date"
	}
	if days < 1 {
		return false, "Days must be a positive integer"
	}
	return true, ""
}
