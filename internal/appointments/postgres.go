package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE raised by idx_appointments_confirmed_slot.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

type pgQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresStore keeps appointments in the appointments table.
type PostgresStore struct {
	db pgQuerier
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresStore{db: pool}
}

func newPostgresStoreWithQuerier(db pgQuerier) *PostgresStore {
	if db == nil {
		panic("appointments: querier required")
	}
	return &PostgresStore{db: db}
}

const listAppointmentsSQL = `
	SELECT id, doctor_name, patient_name, patient_phone, appointment_date::text, appointment_time,
	       status, notes, created_at, cancellation_reason, cancelled_at, rescheduled, rescheduled_at
	FROM appointments
	ORDER BY created_at, id
`

func (s *PostgresStore) List(ctx context.Context) ([]Appointment, error) {
	rows, err := s.db.Query(ctx, listAppointmentsSQL)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	out := []Appointment{}
	for rows.Next() {
		var (
			a      Appointment
			status string
		)
		if err := rows.Scan(
			&a.ID, &a.DoctorName, &a.PatientName, &a.PatientPhone, &a.Date, &a.Time,
			&status, &a.Notes, &a.CreatedAt, &a.CancellationReason, &a.CancelledAt,
			&a.Rescheduled, &a.RescheduledAt,
		); err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		a.Status = Status(status)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Insert(ctx context.Context, a Appointment) error {
	query := `
		INSERT INTO appointments (id, doctor_name, patient_name, patient_phone, appointment_date,
			appointment_time, status, notes, created_at)
		VALUES ($1, $2, $3, $4, $5::date, $6, $7, $8, $9)
	`
	_, err := s.db.Exec(ctx, query, a.ID, a.DoctorName, a.PatientName, a.PatientPhone, a.Date,
		a.Time, string(a.Status), a.Notes, a.CreatedAt)
	if isUniqueViolation(err) {
		return errSlotTaken(a)
	}
	if err != nil {
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, a Appointment) error {
	query := `
		UPDATE appointments
		SET appointment_date = $2::date, appointment_time = $3, status = $4, notes = $5,
			cancellation_reason = $6, cancelled_at = $7, rescheduled = $8, rescheduled_at = $9,
			updated_at = $10
		WHERE id = $1
	`
	ct, err := s.db.Exec(ctx, query, a.ID, a.Date, a.Time, string(a.Status), a.Notes,
		a.CancellationReason, a.CancelledAt, a.Rescheduled, a.RescheduledAt, time.Now().UTC())
	if isUniqueViolation(err) {
		return errSlotTaken(a)
	}
	if err != nil {
		return fmt.Errorf("appointments: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errNotFound()
	}
	return nil
}
