package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"alumnihub/internal/model"
)

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrEventFull            = errors.New("event is full")
	ErrAlreadyRegistered    = errors.New("already registered")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrRegistrationCanceled = errors.New("registration was cancelled")
	ErrAlreadyConfirmed     = errors.New("registration already confirmed")
	ErrEventMismatch        = errors.New("registration belongs to another event")
	ErrNoActiveQR           = errors.New("no active qr code")
)

const uniqueViolation = "23505"

type Repository interface {
	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	GetAllEvents(ctx context.Context) ([]model.Event, error)
	UpdateEventStatus(ctx context.Context, id int64, status string) error

	RegisterTx(ctx context.Context, reg *model.Registration) (int64, error)
	ConfirmPaymentTx(ctx context.Context, registrationID, memberID, eventID int64) (*model.Registration, error)
	CancelRegistrationTx(ctx context.Context, registrationID, memberID int64) error
	CancelIfUnpaidTx(ctx context.Context, registrationID int64) (bool, error)
	GetRegistrationByID(ctx context.Context, id int64) (*model.Registration, error)
	GetActiveRegistration(ctx context.Context, eventID, memberID int64) (*model.Registration, error)
	HasActiveMembership(ctx context.Context, memberID int64, tiers []string) (bool, error)

	SetEventQR(ctx context.Context, eventID int64, token string, generatedAt, expiresAt time.Time) error
	DeactivateEventQR(ctx context.Context, eventID int64) error
	MarkAttendanceTx(ctx context.Context, registrationID int64, now time.Time) (bool, error)

	EventReport(ctx context.Context, eventID int64) (*model.EventReport, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

type repository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func (r *repository) MigrateUp(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations applied successfully from %s", migrationsDir)
	return nil
}

func (r *repository) MigrateDown(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.down.sql"))
	if err != nil {
		return fmt.Errorf("failed to read rollback files: %w", err)
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read rollback file %s: %w", file, err)
		}

		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", file, err)
		}
	}

	r.log.Info().Msgf("Migrations rolled back successfully from %s", migrationsDir)
	return nil
}

const eventColumns = `
	id, title, description, start_time, end_time, timezone,
	registration_start, registration_end, mode, meeting_link, venue_address,
	max_attendees, current_attendees, eligible_batches, eligible_departments,
	requires_membership, membership_tiers, registration_fee,
	payment_timeout_minutes, status, qr_token, qr_generated_at, qr_expires_at,
	qr_is_active, created_at, updated_at
`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var e model.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Description, &e.StartTime, &e.EndTime, &e.Timezone,
		&e.RegistrationStart, &e.RegistrationEnd, &e.Mode, &e.MeetingLink, &e.VenueAddress,
		&e.MaxAttendees, &e.CurrentAttendees, &e.EligibleBatches, &e.EligibleDepartments,
		&e.RequiresMembership, &e.MembershipTiers, &e.RegistrationFee,
		&e.PaymentTimeoutMinutes, &e.Status, &e.QRToken, &e.QRGeneratedAt, &e.QRExpiresAt,
		&e.QRIsActive, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const registrationColumns = `
	id, registration_number, event_id, member_id, member_email, status,
	payment_status, fee_amount, attended, attendance_marked_at,
	attendance_method, created_at, updated_at
`

func scanRegistration(row rowScanner) (*model.Registration, error) {
	var reg model.Registration
	err := row.Scan(
		&reg.ID, &reg.RegistrationNumber, &reg.EventID, &reg.MemberID, &reg.MemberEmail,
		&reg.Status, &reg.PaymentStatus, &reg.FeeAmount, &reg.Attended,
		&reg.AttendanceMarkedAt, &reg.AttendanceMethod, &reg.CreatedAt, &reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) (int64, error) {
	query := `
		INSERT INTO events (
			title, description, start_time, end_time, timezone,
			registration_start, registration_end, mode, meeting_link, venue_address,
			max_attendees, eligible_batches, eligible_departments,
			requires_membership, membership_tiers, registration_fee,
			payment_timeout_minutes, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id
	`

	row := r.db.QueryRowContext(ctx, query,
		e.Title, e.Description, e.StartTime, e.EndTime, e.Timezone,
		e.RegistrationStart, e.RegistrationEnd, e.Mode, e.MeetingLink, e.VenueAddress,
		e.MaxAttendees, pq.Array([]string(e.EligibleBatches)), pq.Array([]string(e.EligibleDepartments)),
		e.RequiresMembership, pq.Array([]string(e.MembershipTiers)), e.RegistrationFee,
		e.PaymentTimeoutMinutes, e.Status,
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert event: %w", err)
	}
	return id, nil
}

func (r *repository) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *repository) GetAllEvents(ctx context.Context) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY start_time DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}

	return events, rows.Err()
}

func (r *repository) UpdateEventStatus(ctx context.Context, id int64, status string) error {
	query := `
		UPDATE events
		SET status = $1, updated_at = NOW()
		WHERE id = $2
		RETURNING id
	`
	var updated int64
	if err := r.db.QueryRowContext(ctx, query, status, id).Scan(&updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to update event status: %w", err)
	}
	return nil
}

// RegisterTx takes a seat and creates the ledger row in one transaction.
// The seat is taken with a conditional increment so concurrent callers can
// never push current_attendees past max_attendees, and the partial unique
// index on live (event_id, member_id) pairs backs the duplicate check.
func (r *repository) RegisterTx(ctx context.Context, reg *model.Registration) (int64, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var taken int64
	err = tx.QueryRowContext(ctx, `
		UPDATE events
		SET current_attendees = current_attendees + 1, updated_at = NOW()
		WHERE id = $1
		  AND (max_attendees IS NULL OR current_attendees < max_attendees)
		RETURNING id
	`, reg.EventID).Scan(&taken)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrEventFull
		}
		return 0, fmt.Errorf("failed to take a seat: %w", err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO registrations (
			registration_number, event_id, member_id, member_email,
			status, payment_status, fee_amount, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
		RETURNING id
	`, reg.RegistrationNumber, reg.EventID, reg.MemberID, reg.MemberEmail,
		reg.Status, reg.PaymentStatus, reg.FeeAmount).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, ErrAlreadyRegistered
		}
		return 0, fmt.Errorf("failed to create registration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return id, nil
}

// ConfirmPaymentTx flips a payment_pending registration to confirmed. The
// event check happens inside the transaction: a confirm call arriving
// through the wrong event's path must not commit anything.
func (r *repository) ConfirmPaymentTx(ctx context.Context, registrationID, memberID, eventID int64) (*model.Registration, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var (
		regEventID int64
		status     string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT event_id, status
		FROM registrations
		WHERE id = $1 AND member_id = $2
		FOR UPDATE
	`, registrationID, memberID).Scan(&regEventID, &status)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to select registration for confirmation: %w", err)
	}

	if regEventID != eventID {
		_ = tx.Rollback()
		return nil, ErrEventMismatch
	}

	switch status {
	case model.RegStatusCancelled:
		_ = tx.Rollback()
		return nil, ErrRegistrationCanceled
	case model.RegStatusConfirmed, model.RegStatusCheckedIn:
		_ = tx.Rollback()
		return nil, ErrAlreadyConfirmed
	}

	query := `
		UPDATE registrations
		SET status = $1, payment_status = $2, updated_at = NOW()
		WHERE id = $3
		RETURNING ` + registrationColumns
	reg, err := scanRegistration(tx.QueryRowContext(ctx, query,
		model.RegStatusConfirmed, model.PaymentCompleted, registrationID))
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to confirm payment: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return reg, nil
}

// CancelRegistrationTx is idempotent: cancelling an already-cancelled row is
// a no-op. The seat is released with a floor of zero.
func (r *repository) CancelRegistrationTx(ctx context.Context, registrationID, memberID int64) error {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var (
		eventID int64
		status  string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT event_id, status
		FROM registrations
		WHERE id = $1 AND member_id = $2
		FOR UPDATE
	`, registrationID, memberID).Scan(&eventID, &status)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to select registration for cancellation: %w", err)
	}

	if status == model.RegStatusCancelled {
		_ = tx.Rollback()
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1
	`, registrationID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to cancel registration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events
		SET current_attendees = GREATEST(current_attendees - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, eventID); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to release seat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit cancellation transaction: %w", err)
	}

	return nil
}

// CancelIfUnpaidTx is the worker path: cancels a registration only if it is
// still awaiting payment, releasing its seat. Returns false when the row was
// confirmed or cancelled in the meantime.
func (r *repository) CancelIfUnpaidTx(ctx context.Context, registrationID int64) (bool, error) {
	tx, err := r.db.Master.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to start transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	var (
		eventID int64
		status  string
	)
	err = tx.QueryRowContext(ctx, `
		SELECT event_id, status
		FROM registrations
		WHERE id = $1
		FOR UPDATE
	`, registrationID).Scan(&eventID, &status)
	if err != nil {
		_ = tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrRegistrationNotFound
		}
		return false, fmt.Errorf("failed to select registration for expiry: %w", err)
	}

	if status != model.RegStatusPaymentPending {
		_ = tx.Rollback()
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE registrations
		SET status = 'cancelled', payment_status = 'failed', updated_at = NOW()
		WHERE id = $1
	`, registrationID); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to expire registration: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE events
		SET current_attendees = GREATEST(current_attendees - 1, 0), updated_at = NOW()
		WHERE id = $1
	`, eventID); err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("failed to release seat: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit expiry transaction: %w", err)
	}

	return true, nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id int64) (*model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

// GetActiveRegistration returns the member's live registration for the event,
// or (nil, nil) when there is none.
func (r *repository) GetActiveRegistration(ctx context.Context, eventID, memberID int64) (*model.Registration, error) {
	query := `
		SELECT ` + registrationColumns + `
		FROM registrations
		WHERE event_id = $1 AND member_id = $2 AND status <> 'cancelled'
	`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, eventID, memberID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active registration: %w", err)
	}
	return reg, nil
}

func (r *repository) HasActiveMembership(ctx context.Context, memberID int64, tiers []string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM memberships
			WHERE member_id = $1
			  AND status = 'active'
			  AND expires_at > NOW()
			  AND (cardinality($2::text[]) = 0 OR tier = ANY($2::text[]))
		)
	`

	var ok bool
	if err := r.db.QueryRowContext(ctx, query, memberID, pq.Array(tiers)).Scan(&ok); err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// SetEventQR overwrites the event's QR slot; a previously issued token is
// superseded with no grace period.
func (r *repository) SetEventQR(ctx context.Context, eventID int64, token string, generatedAt, expiresAt time.Time) error {
	query := `
		UPDATE events
		SET qr_token = $1, qr_generated_at = $2, qr_expires_at = $3,
		    qr_is_active = TRUE, updated_at = NOW()
		WHERE id = $4
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, token, generatedAt, expiresAt, eventID).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrEventNotFound
		}
		return fmt.Errorf("failed to set event qr: %w", err)
	}
	return nil
}

// DeactivateEventQR flips qr_is_active off but keeps the token value, so a
// deactivated token stays distinguishable from "never generated".
func (r *repository) DeactivateEventQR(ctx context.Context, eventID int64) error {
	query := `
		UPDATE events
		SET qr_is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND qr_token IS NOT NULL AND qr_is_active
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, eventID).Scan(&id); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("failed to deactivate event qr: %w", err)
	}

	if _, err := r.GetEventByID(ctx, eventID); err != nil {
		return err
	}
	return ErrNoActiveQR
}

// MarkAttendanceTx flips attended false->true at most once; the guard in the
// WHERE clause makes a concurrent double scan lose cleanly.
func (r *repository) MarkAttendanceTx(ctx context.Context, registrationID int64, now time.Time) (bool, error) {
	query := `
		UPDATE registrations
		SET attended = TRUE,
		    attendance_marked_at = $2,
		    attendance_method = 'qr_code',
		    status = CASE WHEN status = 'confirmed' THEN 'checked_in' ELSE status END,
		    updated_at = NOW()
		WHERE id = $1 AND attended = FALSE
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, registrationID, now).Scan(&id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to mark attendance: %w", err)
	}
	return true, nil
}

func (r *repository) EventReport(ctx context.Context, eventID int64) (*model.EventReport, error) {
	report := &model.EventReport{EventID: eventID}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'payment_pending'),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'checked_in'),
			COUNT(*) FILTER (WHERE status = 'cancelled'),
			COUNT(*) FILTER (WHERE attended)
		FROM registrations
		WHERE event_id = $1
	`, eventID).Scan(
		&report.PaymentPending, &report.Confirmed, &report.CheckedIn,
		&report.Cancelled, &report.Attended,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build event report: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+registrationColumns+`
		FROM registrations
		WHERE event_id = $1 AND status <> 'cancelled'
		ORDER BY created_at ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		report.Registrations = append(report.Registrations, *reg)
	}

	return report, rows.Err()
}
