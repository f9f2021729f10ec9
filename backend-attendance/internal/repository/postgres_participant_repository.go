package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresParticipantRepository implements ParticipantRepository using PostgreSQL
type PostgresParticipantRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresParticipantRepository creates a new PostgresParticipantRepository
func NewPostgresParticipantRepository(pool *pgxpool.Pool) *PostgresParticipantRepository {
	return &PostgresParticipantRepository{pool: pool}
}

const participantColumns = `id, name, email, branch, year, phone, password_hash, created_at, updated_at`

func scanParticipant(row pgx.Row) (*domain.Participant, error) {
	p := &domain.Participant{}
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Branch,
		&p.Year,
		&p.Phone,
		&p.PasswordHash,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Events = []domain.EventEntry{}
	return p, nil
}

// Create creates a new participant
func (r *PostgresParticipantRepository) Create(ctx context.Context, p *domain.Participant) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.participant.create")
	defer span.End()

	span.SetAttributes(attribute.String("participant_id", p.ID))

	query := `
		INSERT INTO participants (
			id, name, email, branch, year, phone, password_hash, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Email,
		p.Branch,
		p.Year,
		p.Phone,
		p.PasswordHash,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "idx_participants_email_lower") {
			span.SetStatus(codes.Error, "duplicate email")
			return domain.ErrParticipantExists
		}
		spanError(span, err)
		return fmt.Errorf("failed to create participant: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves a participant with its event entries in registration order
func (r *PostgresParticipantRepository) GetByID(ctx context.Context, id string) (*domain.Participant, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.participant.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("participant_id", id))

	query := fmt.Sprintf(`SELECT %s FROM participants WHERE id = $1`, participantColumns)
	p, err := scanParticipant(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrParticipantNotFound
		}
		spanError(span, err)
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}

	if err := r.loadEntries(ctx, []*domain.Participant{p}); err != nil {
		spanError(span, err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "")
	return p, nil
}

// FindCandidates returns participants whose email or name matches case-insensitively
func (r *PostgresParticipantRepository) FindCandidates(ctx context.Context, email, name string) ([]*domain.Participant, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.participant.find_candidates")
	defer span.End()

	query := fmt.Sprintf(`
		SELECT %s FROM participants
		WHERE lower(email) = lower($1) OR lower(name) = lower($2)
	`, participantColumns)

	ps, err := r.query(ctx, query, email, name)
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("candidates", len(ps)))
	span.SetStatus(codes.Ok, "")
	return ps, nil
}

// Update updates participant profile fields
func (r *PostgresParticipantRepository) Update(ctx context.Context, p *domain.Participant) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.participant.update")
	defer span.End()

	span.SetAttributes(attribute.String("participant_id", p.ID))

	p.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, `
		UPDATE participants SET
			name = $2, email = $3, branch = $4, year = $5, phone = $6, updated_at = $7
		WHERE id = $1
	`, p.ID, p.Name, p.Email, p.Branch, p.Year, p.Phone, p.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, "idx_participants_email_lower") {
			span.SetStatus(codes.Error, "duplicate email")
			return domain.ErrParticipantExists
		}
		spanError(span, err)
		return fmt.Errorf("failed to update participant: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrParticipantNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// List returns participants with their entries, restricted to one event when eventID is set
func (r *PostgresParticipantRepository) List(ctx context.Context, eventID string) ([]*domain.Participant, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.participant.list")
	defer span.End()

	var (
		ps  []*domain.Participant
		err error
	)
	if eventID == "" {
		ps, err = r.query(ctx, fmt.Sprintf(`SELECT %s FROM participants`, participantColumns))
	} else {
		span.SetAttributes(attribute.String("event_id", eventID))
		ps, err = r.query(ctx, fmt.Sprintf(`
			SELECT %s FROM participants
			WHERE id IN (SELECT participant_id FROM participant_events WHERE event_id = $1)
		`, participantColumns), eventID)
	}
	if err != nil {
		spanError(span, err)
		return nil, err
	}

	if err := r.loadEntries(ctx, ps); err != nil {
		spanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(ps)))
	span.SetStatus(codes.Ok, "")
	return ps, nil
}

func (r *PostgresParticipantRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Participant, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer rows.Close()

	ps := []*domain.Participant{}
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return ps, nil
}

// loadEntries fills Events for every participant in ps with one query
func (r *PostgresParticipantRepository) loadEntries(ctx context.Context, ps []*domain.Participant) error {
	if len(ps) == 0 {
		return nil
	}

	byID := make(map[string]*domain.Participant, len(ps))
	ids := make([]string, 0, len(ps))
	for _, p := range ps {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT participant_id, event_id, attendance_id, status, registered_at
		FROM participant_events
		WHERE participant_id = ANY($1::uuid[])
		ORDER BY registered_at, event_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load participant events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			participantID string
			entry         domain.EventEntry
			status        string
		)
		if err := rows.Scan(&participantID, &entry.EventID, &entry.AttendanceID, &status, &entry.RegisteredAt); err != nil {
			return fmt.Errorf("failed to scan participant event: %w", err)
		}
		entry.Status = domain.AttendanceStatus(status)
		if p, ok := byID[participantID]; ok {
			p.Events = append(p.Events, entry)
		}
	}
	return rows.Err()
}
