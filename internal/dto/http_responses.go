package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"
)

const (
	FieldBadFormat     = "FIELD_BADFORMAT"
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound        = "EVENT_NOT_FOUND"
	RegistrationNotFound = "REGISTRATION_NOT_FOUND"

	NotOpen                = "NOT_OPEN"
	RegistrationNotYetOpen = "REGISTRATION_NOT_YET_OPEN"
	RegistrationClosed     = "REGISTRATION_CLOSED"
	EventFull              = "EVENT_FULL"
	AlreadyRegistered      = "ALREADY_REGISTERED"
	MembershipRequired     = "MEMBERSHIP_REQUIRED"
	PaymentRequired        = "PAYMENT_REQUIRED"

	NoQRCode      = "NO_QR_CODE"
	NoActiveQR    = "NO_ACTIVE_QR"
	TokenMismatch = "TOKEN_MISMATCH"
	TokenInactive = "TOKEN_INACTIVE"
	TokenExpired  = "TOKEN_EXPIRED"
	NotRegistered = "NOT_REGISTERED"
	AlreadyMarked = "ALREADY_MARKED"
)

type CreateEventRequest struct {
	Title                 string     `json:"title" validate:"required,max=255"`
	Description           string     `json:"description"`
	StartTime             time.Time  `json:"start_time" validate:"required,future"`
	EndTime               time.Time  `json:"end_time" validate:"required"`
	Timezone              string     `json:"timezone"`
	RegistrationStart     *time.Time `json:"registration_start"`
	RegistrationEnd       *time.Time `json:"registration_end"`
	Mode                  string     `json:"mode" validate:"required,oneof=online physical"`
	MeetingLink           string     `json:"meeting_link"`
	VenueAddress          string     `json:"venue_address"`
	MaxAttendees          *int       `json:"max_attendees" validate:"omitempty,positive"`
	EligibleBatches       []string   `json:"eligible_batches"`
	EligibleDepartments   []string   `json:"eligible_departments"`
	RequiresMembership    bool       `json:"requires_membership"`
	MembershipTiers       []string   `json:"membership_tiers" validate:"dive,tier"`
	RegistrationFee       float64    `json:"registration_fee" validate:"gte=0"`
	PaymentTimeoutMinutes int        `json:"payment_timeout_minutes" validate:"omitempty,positive"`
}

type UpdateEventStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=draft published ongoing completed cancelled"`
}

type GenerateQRRequest struct {
	ExpiryMinutes int `json:"expiry_minutes" validate:"required,positive"`
}

type GenerateQRResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	QRData    string    `json:"qr_data"`
}

type ConfirmPaymentRequest struct {
	RegistrationID int64  `json:"registration_id" validate:"required,gt=0"`
	Reference      string `json:"reference,omitempty"`
}

type RegistrationResponse struct {
	ID                 int64      `json:"id"`
	RegistrationNumber string     `json:"registration_number"`
	EventID            int64      `json:"event_id"`
	MemberID           int64      `json:"member_id"`
	Status             string     `json:"status"`
	PaymentStatus      string     `json:"payment_status"`
	FeeAmount          float64    `json:"fee_amount"`
	Attended           bool       `json:"attended"`
	AttendanceMarkedAt *time.Time `json:"attendance_marked_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type RegisterSuccessResponse struct {
	IsRegistered bool                 `json:"is_registered"`
	Registration RegistrationResponse `json:"registration"`
}

type PaymentRequiredResponse struct {
	Fee          float64              `json:"fee"`
	Registration RegistrationResponse `json:"registration"`
}

type EventSummary struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Timezone  string    `json:"timezone"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
}

type VerifyAttendanceResponse struct {
	Valid bool         `json:"valid"`
	Event EventSummary `json:"event"`
}

type MarkAttendanceResponse struct {
	RegistrationNumber string    `json:"registration_number"`
	AttendanceMarkedAt time.Time `json:"attendance_marked_at"`
	AlreadyMarked      bool      `json:"already_marked,omitempty"`
}

type AttendanceStatusResponse struct {
	Registered         bool       `json:"registered"`
	Status             string     `json:"status,omitempty"`
	RegistrationNumber string     `json:"registration_number,omitempty"`
	Attended           bool       `json:"attended"`
	AttendanceMarkedAt *time.Time `json:"attendance_marked_at,omitempty"`
}

type EventInfoResponse struct {
	ID                    int64      `json:"id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	StartTime             time.Time  `json:"start_time"`
	EndTime               time.Time  `json:"end_time"`
	Timezone              string     `json:"timezone"`
	RegistrationStart     *time.Time `json:"registration_start,omitempty"`
	RegistrationEnd       *time.Time `json:"registration_end,omitempty"`
	Mode                  string     `json:"mode"`
	MeetingLink           *string    `json:"meeting_link,omitempty"`
	VenueAddress          *string    `json:"venue_address,omitempty"`
	MaxAttendees          *int       `json:"max_attendees,omitempty"`
	CurrentAttendees      int        `json:"current_attendees"`
	AvailableSeats        *int       `json:"available_seats,omitempty"`
	EligibleBatches       []string   `json:"eligible_batches,omitempty"`
	EligibleDepartments   []string   `json:"eligible_departments,omitempty"`
	RequiresMembership    bool       `json:"requires_membership"`
	MembershipTiers       []string   `json:"membership_tiers,omitempty"`
	RegistrationFee       float64    `json:"registration_fee"`
	PaymentTimeoutMinutes int        `json:"payment_timeout_minutes"`
	Status                string     `json:"status"`
	IsRegistrationOpen    bool       `json:"is_registration_open"`
	IsFull                bool       `json:"is_full"`
	IsRegistered          *bool      `json:"is_registered,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// PaymentExpiryMessage rides the delayed exchange: delivered once the
// payment window for a pending registration has lapsed.
type PaymentExpiryMessage struct {
	RegistrationID int64     `json:"registration_id"`
	EventID        int64     `json:"event_id"`
	ExpireAt       time.Time `json:"expire_at"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func NotFoundError(c *ginext.Context, code, desc string) {
	c.JSON(404, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error: &Error{
			Code: ServiceUnavailable,
			Desc: InternalError,
		},
	})
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundError(c, EventNotFound, "Event not found")
}

func RegistrationNotFoundError(c *ginext.Context) {
	NotFoundError(c, RegistrationNotFound, "Registration not found")
}

// PaymentRequiredResponseError answers a registration attempt on a
// fee-bearing event: not a failure, but not a confirmation either.
func PaymentRequiredResponseError(c *ginext.Context, data PaymentRequiredResponse) {
	c.JSON(402, Response{
		Status: "error",
		Error: &Error{
			Code: PaymentRequired,
			Desc: "Payment is required to confirm this registration",
		},
		Data: data,
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{
		Status: "ok",
		Data:   data,
	})
}
