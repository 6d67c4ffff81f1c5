package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/wb-go/wbf/ginext"

	"alumnihub/cmd/middleware"
	"alumnihub/internal/dto"
	"alumnihub/internal/model"
	"alumnihub/internal/qr"
	"alumnihub/internal/repo"
	"alumnihub/pkg/validator"
)

func (s *service) GenerateQR(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.GenerateQRRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	token, err := qr.NewToken()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate qr token")
		dto.InternalServerError(ctx)
		return
	}

	now := time.Now()
	expiresAt := now.Add(time.Duration(req.ExpiryMinutes) * time.Minute)
	if err := s.repo.SetEventQR(ctx.Request.Context(), eventID, token, now, expiresAt); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to store qr token")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Time("expires_at", expiresAt).Msg("qr token generated")

	dto.SuccessResponse(ctx, dto.GenerateQRResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		QRData:    qr.ScanURL(s.cfg.BaseURL, eventID, token),
	})
}

func (s *service) DeactivateQR(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	if err := s.repo.DeactivateEventQR(ctx.Request.Context(), eventID); err != nil {
		switch {
		case errors.Is(err, repo.ErrEventNotFound):
			dto.EventNotFoundError(ctx)
		case errors.Is(err, repo.ErrNoActiveQR):
			dto.BadResponseError(ctx, dto.NoActiveQR, "No active QR code for this event")
		default:
			s.log.Error().Err(err).Msg("failed to deactivate qr token")
			dto.InternalServerError(ctx)
		}
		return
	}

	s.log.Info().Int64("event_id", eventID).Msg("qr token deactivated")
	dto.SuccessResponse(ctx, map[string]any{"id": eventID, "qr_active": false})
}

// verifyEventToken resolves the event and checks the presented token,
// writing the rejection response itself. Shared by the public probe and the
// mark operation so both report identical reasons.
func (s *service) verifyEventToken(ctx *ginext.Context, now time.Time) (*model.Event, bool) {
	eventID, ok := eventIDParam(ctx, "eventID")
	if !ok {
		return nil, false
	}
	token := ctx.Param("token")

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return nil, false
		}
		s.log.Error().Err(err).Msg("failed to get event for verification")
		dto.InternalServerError(ctx)
		return nil, false
	}

	if outcome := qr.Verify(event, token, now); outcome != qr.OutcomeValid {
		dto.BadResponseError(ctx, string(outcome), outcome.Message())
		return nil, false
	}
	return event, true
}

// VerifyAttendance is the public probe behind the scanned QR landing page.
func (s *service) VerifyAttendance(ctx *ginext.Context) {
	event, ok := s.verifyEventToken(ctx, time.Now())
	if !ok {
		return
	}

	dto.SuccessResponse(ctx, dto.VerifyAttendanceResponse{
		Valid: true,
		Event: toEventSummary(event),
	})
}

func (s *service) MarkAttendance(ctx *ginext.Context) {
	now := time.Now()
	event, ok := s.verifyEventToken(ctx, now)
	if !ok {
		return
	}

	memberID, authed := middleware.MemberID(ctx)
	if !authed {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Missing member identity")
		return
	}

	reg, err := s.repo.GetActiveRegistration(ctx.Request.Context(), event.ID, memberID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to resolve registration for check-in")
		dto.InternalServerError(ctx)
		return
	}
	if reg == nil {
		dto.BadResponseError(ctx, dto.NotRegistered, "You are not registered for this event")
		return
	}

	if reg.Attended {
		s.alreadyMarked(ctx, reg)
		return
	}

	marked, err := s.repo.MarkAttendanceTx(ctx.Request.Context(), reg.ID, now)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to mark attendance")
		dto.InternalServerError(ctx)
		return
	}
	if !marked {
		// lost a double-scan race; report the original timestamp
		reg, err = s.repo.GetRegistrationByID(ctx.Request.Context(), reg.ID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to reload registration after check-in race")
			dto.InternalServerError(ctx)
			return
		}
		s.alreadyMarked(ctx, reg)
		return
	}

	s.log.Info().
		Int64("registration_id", reg.ID).
		Int64("event_id", event.ID).
		Int64("member_id", memberID).
		Msg("attendance marked")

	dto.SuccessResponse(ctx, dto.MarkAttendanceResponse{
		RegistrationNumber: reg.RegistrationNumber,
		AttendanceMarkedAt: now,
	})
}

// alreadyMarked answers a repeat check-in: soft success carrying the
// original timestamp, so double scans are harmless.
func (s *service) alreadyMarked(ctx *ginext.Context, reg *model.Registration) {
	resp := dto.MarkAttendanceResponse{
		RegistrationNumber: reg.RegistrationNumber,
		AlreadyMarked:      true,
	}
	if reg.AttendanceMarkedAt != nil {
		resp.AttendanceMarkedAt = *reg.AttendanceMarkedAt
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) AttendanceStatus(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "eventID")
	if !ok {
		return
	}

	memberID, authed := middleware.MemberID(ctx)
	if !authed {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Missing member identity")
		return
	}

	if _, err := s.repo.GetEventByID(ctx.Request.Context(), eventID); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event for attendance status")
		dto.InternalServerError(ctx)
		return
	}

	reg, err := s.repo.GetActiveRegistration(ctx.Request.Context(), eventID, memberID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get registration for attendance status")
		dto.InternalServerError(ctx)
		return
	}
	if reg == nil {
		dto.SuccessResponse(ctx, dto.AttendanceStatusResponse{Registered: false})
		return
	}

	dto.SuccessResponse(ctx, dto.AttendanceStatusResponse{
		Registered:         true,
		Status:             reg.Status,
		RegistrationNumber: reg.RegistrationNumber,
		Attended:           reg.Attended,
		AttendanceMarkedAt: reg.AttendanceMarkedAt,
	})
}
