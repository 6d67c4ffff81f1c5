package model

import (
	"time"

	"github.com/lib/pq"
)

const (
	EventStatusDraft     = "draft"
	EventStatusPublished = "published"
	EventStatusOngoing   = "ongoing"
	EventStatusCompleted = "completed"
	EventStatusCancelled = "cancelled"

	EventModeOnline   = "online"
	EventModePhysical = "physical"

	RegStatusPaymentPending = "payment_pending"
	RegStatusConfirmed      = "confirmed"
	RegStatusCancelled      = "cancelled"
	RegStatusWaitlisted     = "waitlisted"
	RegStatusCheckedIn      = "checked_in"

	PaymentNotRequired = "not_required"
	PaymentPending     = "pending"
	PaymentCompleted   = "completed"
	PaymentFailed      = "failed"
	PaymentRefunded    = "refunded"

	AttendanceMethodQR        = "qr_code"
	AttendanceMethodManual    = "manual"
	AttendanceMethodAutomatic = "automatic"
)

type Event struct {
	ID                    int64          `db:"id" json:"id"`
	Title                 string         `db:"title" json:"title"`
	Description           string         `db:"description,omitempty" json:"description,omitempty"`
	StartTime             time.Time      `db:"start_time" json:"start_time"`
	EndTime               time.Time      `db:"end_time" json:"end_time"`
	Timezone              string         `db:"timezone" json:"timezone"`
	RegistrationStart     *time.Time     `db:"registration_start" json:"registration_start,omitempty"`
	RegistrationEnd       *time.Time     `db:"registration_end" json:"registration_end,omitempty"`
	Mode                  string         `db:"mode" json:"mode"`
	MeetingLink           *string        `db:"meeting_link" json:"meeting_link,omitempty"`
	VenueAddress          *string        `db:"venue_address" json:"venue_address,omitempty"`
	MaxAttendees          *int           `db:"max_attendees" json:"max_attendees,omitempty"`
	CurrentAttendees      int            `db:"current_attendees" json:"current_attendees"`
	EligibleBatches       pq.StringArray `db:"eligible_batches" json:"eligible_batches,omitempty"`
	EligibleDepartments   pq.StringArray `db:"eligible_departments" json:"eligible_departments,omitempty"`
	RequiresMembership    bool           `db:"requires_membership" json:"requires_membership"`
	MembershipTiers       pq.StringArray `db:"membership_tiers" json:"membership_tiers,omitempty"`
	RegistrationFee       float64        `db:"registration_fee" json:"registration_fee"`
	PaymentTimeoutMinutes int            `db:"payment_timeout_minutes" json:"payment_timeout_minutes"`
	Status                string         `db:"status" json:"status"`
	QRToken               *string        `db:"qr_token" json:"-"`
	QRGeneratedAt         *time.Time     `db:"qr_generated_at" json:"-"`
	QRExpiresAt           *time.Time     `db:"qr_expires_at" json:"-"`
	QRIsActive            bool           `db:"qr_is_active" json:"-"`
	CreatedAt             time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at" json:"updated_at"`
}

// AcceptsRegistration reports whether the lifecycle status admits new
// registrations and check-ins at all; the date-window checks are separate.
func (e *Event) AcceptsRegistration() bool {
	return e.Status == EventStatusPublished || e.Status == EventStatusOngoing
}

func (e *Event) IsFull() bool {
	return e.MaxAttendees != nil && e.CurrentAttendees >= *e.MaxAttendees
}

type Registration struct {
	ID                 int64      `db:"id" json:"id"`
	RegistrationNumber string     `db:"registration_number" json:"registration_number"`
	EventID            int64      `db:"event_id" json:"event_id"`
	MemberID           int64      `db:"member_id" json:"member_id"`
	MemberEmail        string     `db:"member_email" json:"member_email,omitempty"`
	Status             string     `db:"status" json:"status"`
	PaymentStatus      string     `db:"payment_status" json:"payment_status"`
	FeeAmount          float64    `db:"fee_amount" json:"fee_amount"`
	Attended           bool       `db:"attended" json:"attended"`
	AttendanceMarkedAt *time.Time `db:"attendance_marked_at" json:"attendance_marked_at,omitempty"`
	AttendanceMethod   *string    `db:"attendance_method" json:"attendance_method,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// Live reports whether the row still occupies a seat.
func (r *Registration) Live() bool {
	return r.Status != RegStatusCancelled
}

type Membership struct {
	ID        int64     `db:"id" json:"id"`
	MemberID  int64     `db:"member_id" json:"member_id"`
	Tier      string    `db:"tier" json:"tier"`
	Status    string    `db:"status" json:"status"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EventReport is the admin-facing attendance summary for one event.
type EventReport struct {
	EventID        int64          `json:"event_id"`
	PaymentPending int            `json:"payment_pending"`
	Confirmed      int            `json:"confirmed"`
	CheckedIn      int            `json:"checked_in"`
	Cancelled      int            `json:"cancelled"`
	Attended       int            `json:"attended"`
	Registrations  []Registration `json:"registrations"`
}
