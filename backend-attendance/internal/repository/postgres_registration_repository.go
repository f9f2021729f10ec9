package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-attendance/backend-attendance/internal/domain"
	"github.com/prohmpiriya/event-attendance/pkg/database"
	"github.com/prohmpiriya/event-attendance/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// PostgresRegistrationRepository implements RegistrationRepository using PostgreSQL.
// Attendance days live in attendance_days so the primary key rejects a second check-in for the same day.
type PostgresRegistrationRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistrationRepository creates a new PostgresRegistrationRepository
func NewPostgresRegistrationRepository(pool *pgxpool.Pool) *PostgresRegistrationRepository {
	return &PostgresRegistrationRepository{pool: pool}
}

const pgForeignKeyViolation = "23503"

const attendanceSelect = `
	SELECT a.id, a.participant_id, a.event_id, a.created_at, a.updated_at,
		COALESCE(array_agg(d.day ORDER BY d.day) FILTER (WHERE d.day IS NOT NULL), '{}'::date[])
	FROM attendances a
	LEFT JOIN attendance_days d ON d.attendance_id = a.id
`

func scanAttendance(row pgx.Row) (*domain.Attendance, error) {
	a := &domain.Attendance{}
	err := row.Scan(&a.ID, &a.ParticipantID, &a.EventID, &a.CreatedAt, &a.UpdatedAt, &a.Attend)
	if err != nil {
		return nil, err
	}
	normalizeDays(a.Attend)
	if a.Attend == nil {
		a.Attend = []time.Time{}
	}
	return a, nil
}

func normalizeDays(days []time.Time) {
	for i := range days {
		days[i] = domain.Day(days[i])
	}
}

// Register inserts the attendance record and the ledger entry in one transaction
func (r *PostgresRegistrationRepository) Register(ctx context.Context, attendance *domain.Attendance, entry domain.EventEntry) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.register")
	defer span.End()

	span.SetAttributes(
		attribute.String("participant_id", attendance.ParticipantID),
		attribute.String("event_id", attendance.EventID),
		attribute.String("attendance_id", attendance.ID),
	)

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO attendances (id, participant_id, event_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5)
		`, attendance.ID, attendance.ParticipantID, attendance.EventID, attendance.CreatedAt, attendance.UpdatedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO participant_events (participant_id, event_id, attendance_id, status, registered_at)
			VALUES ($1, $2, $3, $4, $5)
		`, attendance.ParticipantID, entry.EventID, entry.AttendanceID, string(entry.Status), entry.RegisteredAt)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		switch {
		case isUniqueViolation(err, ""):
			span.SetStatus(codes.Error, "already registered")
			return domain.ErrAlreadyRegistered
		case errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation:
			span.SetStatus(codes.Error, "missing participant or event")
			return fmt.Errorf("registration target %w", domain.ErrNotFound)
		}
		spanError(span, err)
		return fmt.Errorf("failed to register: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return nil
}

// GetAttendance returns the attendance record for a participant and event
func (r *PostgresRegistrationRepository) GetAttendance(ctx context.Context, participantID, eventID string) (*domain.Attendance, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_attendance")
	defer span.End()

	span.SetAttributes(
		attribute.String("participant_id", participantID),
		attribute.String("event_id", eventID),
	)

	query := attendanceSelect + `WHERE a.participant_id = $1 AND a.event_id = $2 GROUP BY a.id`
	a, err := scanAttendance(r.pool.QueryRow(ctx, query, participantID, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrAttendanceNotFound
		}
		spanError(span, err)
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return a, nil
}

// GetAttendanceByID returns an attendance record by ID
func (r *PostgresRegistrationRepository) GetAttendanceByID(ctx context.Context, id string) (*domain.Attendance, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.get_attendance_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("attendance_id", id))

	a, err := scanAttendance(r.pool.QueryRow(ctx, attendanceSelect+`WHERE a.id = $1 GROUP BY a.id`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Error, "not found")
			return nil, domain.ErrAttendanceNotFound
		}
		spanError(span, err)
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}

	span.SetStatus(codes.Ok, "")
	return a, nil
}

// RecordCheckIn locks the attendance row, inserts the day, and re-derives the ledger status
func (r *PostgresRegistrationRepository) RecordCheckIn(ctx context.Context, attendanceID string, day time.Time, eventDays int) (*domain.Attendance, domain.AttendanceStatus, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.record_check_in")
	defer span.End()

	day = domain.Day(day)
	span.SetAttributes(
		attribute.String("attendance_id", attendanceID),
		attribute.String("day", day.Format("2006-01-02")),
	)

	var (
		attendance *domain.Attendance
		status     domain.AttendanceStatus
	)

	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var locked string
		err := tx.QueryRow(ctx, `SELECT id FROM attendances WHERE id = $1 FOR UPDATE`, attendanceID).Scan(&locked)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrAttendanceNotFound
			}
			return fmt.Errorf("failed to lock attendance: %w", err)
		}

		result, err := tx.Exec(ctx, `
			INSERT INTO attendance_days (attendance_id, day) VALUES ($1, $2)
			ON CONFLICT (attendance_id, day) DO NOTHING
		`, attendanceID, day)
		if err != nil {
			return fmt.Errorf("failed to insert attendance day: %w", err)
		}
		if result.RowsAffected() == 0 {
			return domain.ErrAlreadyMarked
		}

		if _, err := tx.Exec(ctx, `UPDATE attendances SET updated_at = NOW() WHERE id = $1`, attendanceID); err != nil {
			return fmt.Errorf("failed to touch attendance: %w", err)
		}

		attendance, err = scanAttendance(tx.QueryRow(ctx, attendanceSelect+`WHERE a.id = $1 GROUP BY a.id`, attendanceID))
		if err != nil {
			return fmt.Errorf("failed to reload attendance: %w", err)
		}

		status = domain.DeriveStatus(attendance.Count(), eventDays)
		if _, err := tx.Exec(ctx,
			`UPDATE participant_events SET status = $2 WHERE attendance_id = $1`,
			attendanceID, string(status)); err != nil {
			return fmt.Errorf("failed to update status: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyMarked) || errors.Is(err, domain.ErrNotFound) {
			span.SetStatus(codes.Error, err.Error())
			return nil, "", err
		}
		spanError(span, err)
		return nil, "", err
	}

	span.SetAttributes(attribute.String("status", string(status)))
	span.SetStatus(codes.Ok, "")
	return attendance, status, nil
}

// ListByEvent loads every registration of an event with participant and attendance in one query
func (r *PostgresRegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]*domain.Registration, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.list_by_event")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.email, p.branch, p.year, p.phone, p.created_at, p.updated_at,
			pe.event_id, pe.attendance_id, pe.status, pe.registered_at,
			a.id, a.participant_id, a.event_id, a.created_at, a.updated_at,
			COALESCE(array_agg(d.day ORDER BY d.day) FILTER (WHERE d.day IS NOT NULL), '{}'::date[])
		FROM participant_events pe
		JOIN participants p ON p.id = pe.participant_id
		JOIN attendances a ON a.id = pe.attendance_id
		LEFT JOIN attendance_days d ON d.attendance_id = a.id
		WHERE pe.event_id = $1
		GROUP BY p.id, pe.participant_id, pe.event_id, a.id
	`, eventID)
	if err != nil {
		spanError(span, err)
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		p := &domain.Participant{}
		a := &domain.Attendance{}
		var (
			entry  domain.EventEntry
			status string
		)
		err := rows.Scan(
			&p.ID, &p.Name, &p.Email, &p.Branch, &p.Year, &p.Phone, &p.CreatedAt, &p.UpdatedAt,
			&entry.EventID, &entry.AttendanceID, &status, &entry.RegisteredAt,
			&a.ID, &a.ParticipantID, &a.EventID, &a.CreatedAt, &a.UpdatedAt,
			&a.Attend,
		)
		if err != nil {
			spanError(span, err)
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		entry.Status = domain.AttendanceStatus(status)
		normalizeDays(a.Attend)
		if a.Attend == nil {
			a.Attend = []time.Time{}
		}
		p.Events = []domain.EventEntry{entry}
		regs = append(regs, &domain.Registration{Participant: p, Entry: entry, Attendance: a})
	}
	if err := rows.Err(); err != nil {
		spanError(span, err)
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}

	span.SetAttributes(attribute.Int("count", len(regs)))
	span.SetStatus(codes.Ok, "")
	return regs, nil
}

// DeleteEventData removes ledger entries and attendance records for an event
func (r *PostgresRegistrationRepository) DeleteEventData(ctx context.Context, eventID string) (int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.registration.delete_event_data")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", eventID))

	var deleted int64
	err := database.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM participant_events WHERE event_id = $1`, eventID); err != nil {
			return fmt.Errorf("failed to delete ledger entries: %w", err)
		}
		result, err := tx.Exec(ctx, `DELETE FROM attendances WHERE event_id = $1`, eventID)
		if err != nil {
			return fmt.Errorf("failed to delete attendances: %w", err)
		}
		deleted = result.RowsAffected()
		return nil
	})
	if err != nil {
		spanError(span, err)
		return 0, err
	}

	span.SetAttributes(attribute.Int64("deleted", deleted))
	span.SetStatus(codes.Ok, "")
	return deleted, nil
}
