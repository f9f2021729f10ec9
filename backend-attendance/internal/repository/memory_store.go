package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
)

// MemoryStore keeps events, participants and attendance in process.
// A single lock guards all maps so multi-record writes are atomic.
type MemoryStore struct {
	mu           sync.RWMutex
	events       map[string]*domain.Event
	participants map[string]*domain.Participant
	attendances  map[string]*domain.Attendance
}

var (
	_ EventRepository        = (*MemoryEventRepository)(nil)
	_ ParticipantRepository  = (*MemoryParticipantRepository)(nil)
	_ RegistrationRepository = (*MemoryRegistrationRepository)(nil)
)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:       make(map[string]*domain.Event),
		participants: make(map[string]*domain.Participant),
		attendances:  make(map[string]*domain.Attendance),
	}
}

// Events returns an EventRepository view of the store
func (s *MemoryStore) Events() *MemoryEventRepository {
	return &MemoryEventRepository{s: s}
}

// Participants returns a ParticipantRepository view of the store
func (s *MemoryStore) Participants() *MemoryParticipantRepository {
	return &MemoryParticipantRepository{s: s}
}

// Registrations returns a RegistrationRepository view of the store
func (s *MemoryStore) Registrations() *MemoryRegistrationRepository {
	return &MemoryRegistrationRepository{s: s}
}

func copyEvent(e *domain.Event) *domain.Event {
	c := *e
	return &c
}

func copyParticipant(p *domain.Participant) *domain.Participant {
	c := *p
	c.Events = append([]domain.EventEntry{}, p.Events...)
	return &c
}

func copyAttendance(a *domain.Attendance) *domain.Attendance {
	c := *a
	c.Attend = append([]time.Time{}, a.Attend...)
	return &c
}

// MemoryEventRepository implements EventRepository on a MemoryStore
type MemoryEventRepository struct {
	s *MemoryStore
}

// Create creates a new event
func (r *MemoryEventRepository) Create(ctx context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, e := range r.s.events {
		if e.Code == event.Code {
			return domain.ErrCodeCollision
		}
	}
	r.s.events[event.ID] = copyEvent(event)
	return nil
}

// GetByID retrieves an event by ID
func (r *MemoryEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.events[id]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return copyEvent(e), nil
}

// GetByCode retrieves an event by its check-in code
func (r *MemoryEventRepository) GetByCode(ctx context.Context, code string) (*domain.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.events {
		if e.Code == code {
			return copyEvent(e), nil
		}
	}
	return nil, domain.ErrEventNotFound
}

// Update updates event fields other than the code
func (r *MemoryEventRepository) Update(ctx context.Context, event *domain.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	event.UpdatedAt = time.Now()
	updated := copyEvent(event)
	updated.Code = existing.Code
	updated.CreatedAt = existing.CreatedAt
	r.s.events[event.ID] = updated
	return nil
}

// UpdateCode replaces the event code
func (r *MemoryEventRepository) UpdateCode(ctx context.Context, id, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	for otherID, other := range r.s.events {
		if otherID != id && other.Code == code {
			return domain.ErrCodeCollision
		}
	}
	e.Code = code
	e.UpdatedAt = time.Now()
	return nil
}

// ToggleRegistrationOpen flips the registration flag
func (r *MemoryEventRepository) ToggleRegistrationOpen(ctx context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.events[id]
	if !ok {
		return false, domain.ErrEventNotFound
	}
	e.IsRegistrationOpen = !e.IsRegistrationOpen
	e.UpdatedAt = time.Now()
	return e.IsRegistrationOpen, nil
}

// Delete deletes an event
func (r *MemoryEventRepository) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.events[id]; !ok {
		return domain.ErrEventNotFound
	}
	delete(r.s.events, id)
	return nil
}

// List lists events newest first
func (r *MemoryEventRepository) List(ctx context.Context, filter *EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := ""
	if filter != nil {
		search = strings.ToLower(filter.Search)
	}

	all := make([]*domain.Event, 0, len(r.s.events))
	for _, e := range r.s.events {
		if search != "" && !strings.Contains(strings.ToLower(e.Title), search) &&
			!strings.Contains(strings.ToLower(e.Venue), search) {
			continue
		}
		all = append(all, copyEvent(e))
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	total := len(all)
	if offset >= total {
		return []*domain.Event{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	return all[offset:end], total, nil
}

// CodeExists checks if a code is already assigned
func (r *MemoryEventRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.events {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

// MemoryParticipantRepository implements ParticipantRepository on a MemoryStore
type MemoryParticipantRepository struct {
	s *MemoryStore
}

// Create creates a new participant
func (r *MemoryParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	email := domain.NormalizeEmail(p.Email)
	for _, existing := range r.s.participants {
		if domain.NormalizeEmail(existing.Email) == email {
			return domain.ErrParticipantExists
		}
	}
	c := copyParticipant(p)
	if c.Events == nil {
		c.Events = []domain.EventEntry{}
	}
	r.s.participants[p.ID] = c
	return nil
}

// GetByID retrieves a participant
func (r *MemoryParticipantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.participants[id]
	if !ok {
		return nil, domain.ErrParticipantNotFound
	}
	return copyParticipant(p), nil
}

// FindCandidates returns participants sharing the email or name, case-insensitively
func (r *MemoryParticipantRepository) FindCandidates(ctx context.Context, email, name string) ([]*domain.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	email = domain.NormalizeEmail(email)
	name = strings.ToLower(strings.TrimSpace(name))

	var out []*domain.Participant
	for _, p := range r.s.participants {
		if domain.NormalizeEmail(p.Email) == email || strings.ToLower(strings.TrimSpace(p.Name)) == name {
			out = append(out, copyParticipant(p))
		}
	}
	return out, nil
}

// Update updates participant profile fields
func (r *MemoryParticipantRepository) Update(ctx context.Context, p *domain.Participant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	existing, ok := r.s.participants[p.ID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	email := domain.NormalizeEmail(p.Email)
	for id, other := range r.s.participants {
		if id != p.ID && domain.NormalizeEmail(other.Email) == email {
			return domain.ErrParticipantExists
		}
	}

	p.UpdatedAt = time.Now()
	existing.Name = p.Name
	existing.Email = p.Email
	existing.Branch = p.Branch
	existing.Year = p.Year
	existing.Phone = p.Phone
	existing.UpdatedAt = p.UpdatedAt
	return nil
}

// List returns participants, restricted to one event when eventID is set
func (r *MemoryParticipantRepository) List(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Participant{}
	for _, p := range r.s.participants {
		if eventID != "" && !p.IsRegisteredFor(eventID) {
			continue
		}
		out = append(out, copyParticipant(p))
	}
	return out, nil
}

// MemoryRegistrationRepository implements RegistrationRepository on a MemoryStore
type MemoryRegistrationRepository struct {
	s *MemoryStore
}

// Register stores the attendance record and the ledger entry under one lock
func (r *MemoryRegistrationRepository) Register(ctx context.Context, attendance *domain.Attendance, entry domain.EventEntry) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.participants[attendance.ParticipantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if _, ok := r.s.events[entry.EventID]; !ok {
		return domain.ErrEventNotFound
	}
	if p.IsRegisteredFor(entry.EventID) {
		return domain.ErrAlreadyRegistered
	}

	a := copyAttendance(attendance)
	if a.Attend == nil {
		a.Attend = []time.Time{}
	}
	r.s.attendances[a.ID] = a
	p.Events = append(p.Events, entry)
	return nil
}

// GetAttendance returns the attendance record for a participant and event
func (r *MemoryRegistrationRepository) GetAttendance(ctx context.Context, participantID, eventID string) (*domain.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.attendances {
		if a.ParticipantID == participantID && a.EventID == eventID {
			return copyAttendance(a), nil
		}
	}
	return nil, domain.ErrAttendanceNotFound
}

// GetAttendanceByID returns an attendance record by ID
func (r *MemoryRegistrationRepository) GetAttendanceByID(ctx context.Context, id string) (*domain.Attendance, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.attendances[id]
	if !ok {
		return nil, domain.ErrAttendanceNotFound
	}
	return copyAttendance(a), nil
}

// RecordCheckIn appends day and re-derives the ledger status under one lock
func (r *MemoryRegistrationRepository) RecordCheckIn(ctx context.Context, attendanceID string, day time.Time, eventDays int) (*domain.Attendance, domain.AttendanceStatus, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	a, ok := r.s.attendances[attendanceID]
	if !ok {
		return nil, "", domain.ErrAttendanceNotFound
	}
	day = domain.Day(day)
	if a.HasDay(day) {
		return nil, "", domain.ErrAlreadyMarked
	}

	a.Attend = append(a.Attend, day)
	domain.SortDays(a.Attend)
	a.UpdatedAt = time.Now()

	status := domain.DeriveStatus(a.Count(), eventDays)
	if p, ok := r.s.participants[a.ParticipantID]; ok {
		if entry, ok := p.Entry(a.EventID); ok {
			entry.Status = status
		}
	}
	return copyAttendance(a), status, nil
}

// ListByEvent returns every registration of an event
func (r *MemoryRegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	regs := []*domain.Registration{}
	for _, p := range r.s.participants {
		entry, ok := p.Entry(eventID)
		if !ok {
			continue
		}
		reg := &domain.Registration{Participant: copyParticipant(p), Entry: *entry}
		if a, ok := r.s.attendances[entry.AttendanceID]; ok {
			reg.Attendance = copyAttendance(a)
		}
		regs = append(regs, reg)
	}
	return regs, nil
}

// DeleteEventData removes ledger entries and attendance records for an event
func (r *MemoryRegistrationRepository) DeleteEventData(ctx context.Context, eventID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.participants {
		kept := p.Events[:0]
		for _, e := range p.Events {
			if e.EventID != eventID {
				kept = append(kept, e)
			}
		}
		p.Events = kept
	}

	var deleted int64
	for id, a := range r.s.attendances {
		if a.EventID == eventID {
			delete(r.s.attendances, id)
			deleted++
		}
	}
	return deleted, nil
}
