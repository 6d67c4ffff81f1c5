package service

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"alumnihub/internal/dto"
	"alumnihub/internal/mailer"
	"alumnihub/internal/model"
	"alumnihub/internal/repo"
)

type Service interface {
	CreateEvent(ctx *ginext.Context)
	GetAllEvents(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	UpdateEventStatus(ctx *ginext.Context)
	EventReport(ctx *ginext.Context)

	Register(ctx *ginext.Context)
	ConfirmPayment(ctx *ginext.Context)
	CancelRegistration(ctx *ginext.Context)

	GenerateQR(ctx *ginext.Context)
	DeactivateQR(ctx *ginext.Context)
	VerifyAttendance(ctx *ginext.Context)
	MarkAttendance(ctx *ginext.Context)
	AttendanceStatus(ctx *ginext.Context)
}

// Publisher is the slice of the rabbit client the service needs.
type Publisher interface {
	Publish(message []byte, delaySeconds int) error
}

type Config struct {
	BaseURL string
	SMTP    mailer.Config
}

type service struct {
	repo repo.Repository
	log  *zerolog.Logger
	pub  Publisher
	cfg  Config
}

func NewService(repository repo.Repository, logger *zerolog.Logger, pub Publisher, cfg Config) Service {
	return &service{
		repo: repository,
		log:  logger,
		pub:  pub,
		cfg:  cfg,
	}
}

// generateRegistrationNumber builds the display number: year+month+six
// random digits. Display only, not a secret.
func generateRegistrationNumber(now time.Time) string {
	return fmt.Sprintf("%04d%02d%06d", now.Year(), int(now.Month()), rand.Intn(1000000))
}

func isRegistrationWindowOpen(e *model.Event, now time.Time) bool {
	if !e.AcceptsRegistration() {
		return false
	}
	if e.RegistrationStart != nil && now.Before(*e.RegistrationStart) {
		return false
	}
	if e.RegistrationEnd != nil && now.After(*e.RegistrationEnd) {
		return false
	}
	return true
}

func toEventInfo(e *model.Event, now time.Time, isRegistered *bool) dto.EventInfoResponse {
	resp := dto.EventInfoResponse{
		ID:                    e.ID,
		Title:                 e.Title,
		Description:           e.Description,
		StartTime:             e.StartTime,
		EndTime:               e.EndTime,
		Timezone:              e.Timezone,
		RegistrationStart:     e.RegistrationStart,
		RegistrationEnd:       e.RegistrationEnd,
		Mode:                  e.Mode,
		MeetingLink:           e.MeetingLink,
		VenueAddress:          e.VenueAddress,
		MaxAttendees:          e.MaxAttendees,
		CurrentAttendees:      e.CurrentAttendees,
		EligibleBatches:       e.EligibleBatches,
		EligibleDepartments:   e.EligibleDepartments,
		RequiresMembership:    e.RequiresMembership,
		MembershipTiers:       e.MembershipTiers,
		RegistrationFee:       e.RegistrationFee,
		PaymentTimeoutMinutes: e.PaymentTimeoutMinutes,
		Status:                e.Status,
		IsRegistrationOpen:    isRegistrationWindowOpen(e, now),
		IsFull:                e.IsFull(),
		IsRegistered:          isRegistered,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
	if e.MaxAttendees != nil {
		seats := *e.MaxAttendees - e.CurrentAttendees
		if seats < 0 {
			seats = 0
		}
		resp.AvailableSeats = &seats
	}
	return resp
}

func toRegistrationResponse(reg *model.Registration) dto.RegistrationResponse {
	return dto.RegistrationResponse{
		ID:                 reg.ID,
		RegistrationNumber: reg.RegistrationNumber,
		EventID:            reg.EventID,
		MemberID:           reg.MemberID,
		Status:             reg.Status,
		PaymentStatus:      reg.PaymentStatus,
		FeeAmount:          reg.FeeAmount,
		Attended:           reg.Attended,
		AttendanceMarkedAt: reg.AttendanceMarkedAt,
		CreatedAt:          reg.CreatedAt,
		UpdatedAt:          reg.UpdatedAt,
	}
}

func toEventSummary(e *model.Event) dto.EventSummary {
	return dto.EventSummary{
		ID:        e.ID,
		Title:     e.Title,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Timezone:  e.Timezone,
		Mode:      e.Mode,
		Status:    e.Status,
	}
}
