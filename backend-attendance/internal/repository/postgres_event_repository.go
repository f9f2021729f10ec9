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

// PostgresEventRepository implements EventRepository using PostgreSQL
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

const eventColumns = `id, title, description, venue, time, code, start_date, end_date, days,
	is_registration_open, is_registration_required, created_at, updated_at`

func scanEvent(row pgx.Row) (*domain.Event, error) {
	e := &domain.Event{}
	err := row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Venue,
		&e.Time,
		&e.Code,
		&e.StartDate,
		&e.EndDate,
		&e.Days,
		&e.IsRegistrationOpen,
		&e.IsRegistrationRequired,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.StartDate = domain.Day(e.StartDate)
	e.EndDate = domain.Day(e.EndDate)
	return e, nil
}

// Create creates a new event
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	query := `
		INSERT INTO events (
			id, title, description, venue, time, code, start_date, end_date, days,
			is_registration_open, is_registration_required, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Venue,
		event.Time,
		event.Code,
		event.StartDate,
		event.EndDate,
		event.Days,
		event.IsRegistrationOpen,
		event.IsRegistrationRequired,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, "events_code_key") {
			span.SetStatus(codes.Error, "code collision")
			return domain.ErrCodeCollision
		}
		spanError(span, err)
		return fmt.Errorf("failed to create event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetByID retrieves an event by ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := fmt.Sprintf(`SELECT %s FROM events WHERE id = $1`, eventColumns)
	event, err := scanEvent(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		spanError(span, err)
		return nil, fmt.Errorf("failed to get event: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// GetByCode retrieves an event by its check-in code
func (r *PostgresEventRepository) GetByCode(ctx context.Context, code string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_code")
	defer span.End()

	query := fmt.Sprintf(`SELECT %s FROM events WHERE code = $1`, eventColumns)
	event, err := scanEvent(r.pool.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrEventNotFound
		}
		spanError(span, err)
		return nil, fmt.Errorf("failed to get event by code: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// Update updates an event. The code is changed only through UpdateCode.
func (r *PostgresEventRepository) Update(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", event.ID))

	query := `
		UPDATE events SET
			title = $2, description = $3, venue = $4, time = $5,
			start_date = $6, end_date = $7, days = $8,
			is_registration_open = $9, is_registration_required = $10, updated_at = $11
		WHERE id = $1
	`

	event.UpdatedAt = time.Now()
	result, err := r.pool.Exec(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Venue,
		event.Time,
		event.StartDate,
		event.EndDate,
		event.Days,
		event.IsRegistrationOpen,
		event.IsRegistrationRequired,
		event.UpdatedAt,
	)
	if err != nil {
		spanError(span, err)
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// UpdateCode replaces the event code
func (r *PostgresEventRepository) UpdateCode(ctx context.Context, id, code string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.update_code")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	result, err := r.pool.Exec(ctx,
		`UPDATE events SET code = $2, updated_at = NOW() WHERE id = $1`, id, code)
	if err != nil {
		if isUniqueViolation(err, "events_code_key") {
			span.SetStatus(codes.Error, "code collision")
			return domain.ErrCodeCollision
		}
		spanError(span, err)
		return fmt.Errorf("failed to update event code: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// ToggleRegistrationOpen flips is_registration_open in a single statement
func (r *PostgresEventRepository) ToggleRegistrationOpen(ctx context.Context, id string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.toggle_registration")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	var open bool
	err := r.pool.QueryRow(ctx, `
		UPDATE events SET is_registration_open = NOT is_registration_open, updated_at = NOW()
		WHERE id = $1
		RETURNING is_registration_open
	`, id).Scan(&open)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return false, domain.ErrEventNotFound
		}
		spanError(span, err)
		return false, fmt.Errorf("failed to toggle registration: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return open, nil
}

// Delete deletes an event. Attendance rows cascade.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	result, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		spanError(span, err)
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "not found")
		return domain.ErrEventNotFound
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// List lists events newest first
func (r *PostgresEventRepository) List(ctx context.Context, filter *EventFilter, limit, offset int) ([]*domain.Event, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	where := ""
	args := []interface{}{}
	if filter != nil && filter.Search != "" {
		where = "WHERE title ILIKE $1 OR venue ILIKE $1"
		args = append(args, "%"+filter.Search+"%")
	}

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM events %s`, where)
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		spanError(span, err)
		return nil, 0, fmt.Errorf("failed to count events: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM events %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		eventColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		spanError(span, err)
		return nil, 0, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	events := []*domain.Event{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			spanError(span, err)
			return nil, 0, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		spanError(span, err)
		return nil, 0, fmt.Errorf("failed to iterate events: %w", err)
	}

	span.SetAttributes(attribute.Int("total", total))
	span.SetStatus(codes.Ok, "")
	return events, total, nil
}

// CodeExists checks if a code is already assigned
func (r *PostgresEventRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check event code: %w", err)
	}
	return exists, nil
}
