package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"

	"alumnihub/cmd/middleware"
	"alumnihub/internal/dto"
	"alumnihub/internal/eligibility"
	"alumnihub/internal/mailer"
	"alumnihub/internal/model"
	"alumnihub/internal/repo"
	"alumnihub/pkg/validator"
)

func (s *service) Register(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	memberID, authed := middleware.MemberID(ctx)
	if !authed {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Missing member identity")
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event for registration")
		dto.InternalServerError(ctx)
		return
	}

	existing, err := s.repo.GetActiveRegistration(ctx.Request.Context(), eventID, memberID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to check existing registration")
		dto.InternalServerError(ctx)
		return
	}

	hasMembership := false
	if event.RequiresMembership {
		hasMembership, err = s.repo.HasActiveMembership(ctx.Request.Context(), memberID, event.MembershipTiers)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to check membership")
			dto.InternalServerError(ctx)
			return
		}
	}

	now := time.Now()
	decision := eligibility.CanRegister(eligibility.Input{
		Event:               event,
		AlreadyRegistered:   existing != nil,
		HasActiveMembership: hasMembership,
		Now:                 now,
	})
	if !decision.Allowed {
		dto.BadResponseError(ctx, decision.Code, decision.Message)
		return
	}

	reg := &model.Registration{
		RegistrationNumber: generateRegistrationNumber(now),
		EventID:            eventID,
		MemberID:           memberID,
		MemberEmail:        middleware.MemberEmail(ctx),
		Status:             model.RegStatusConfirmed,
		PaymentStatus:      model.PaymentNotRequired,
	}

	feeGated := event.RegistrationFee > 0
	if feeGated {
		reg.Status = model.RegStatusPaymentPending
		reg.PaymentStatus = model.PaymentPending
		reg.FeeAmount = event.RegistrationFee
	}

	id, err := s.repo.RegisterTx(ctx.Request.Context(), reg)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrEventFull):
			dto.BadResponseError(ctx, dto.EventFull, "Event is full")
		case errors.Is(err, repo.ErrAlreadyRegistered):
			dto.BadResponseError(ctx, dto.AlreadyRegistered, "You are already registered for this event")
		default:
			s.log.Error().Err(err).Msg("failed to create registration")
			dto.InternalServerError(ctx)
		}
		return
	}

	reg.ID = id
	reg.CreatedAt = now
	reg.UpdatedAt = now
	s.log.Info().
		Int64("registration_id", id).
		Int64("event_id", eventID).
		Int64("member_id", memberID).
		Msg("registration created")

	if !feeGated {
		if err := mailer.SendRegistrationEmail(s.log, s.cfg.SMTP, event.Title, "confirmed", reg.MemberEmail, 0); err != nil {
			s.log.Warn().Err(err).Msg("failed to send confirmation email")
		}
		dto.SuccessCreatedResponse(ctx, dto.RegisterSuccessResponse{
			IsRegistered: true,
			Registration: toRegistrationResponse(reg),
		})
		return
	}

	// seat is held; a delayed message releases it if payment never arrives
	timeout := event.PaymentTimeoutMinutes
	msg := dto.PaymentExpiryMessage{
		RegistrationID: id,
		EventID:        eventID,
		ExpireAt:       now.Add(time.Duration(timeout) * time.Minute),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal expiry message")
		dto.InternalServerError(ctx)
		return
	}
	if err := s.pub.Publish(payload, timeout*60); err != nil {
		s.log.Error().Err(err).Msg("failed to publish expiry message")
	}

	if err := mailer.SendRegistrationEmail(s.log, s.cfg.SMTP, event.Title, "payment_pending", reg.MemberEmail, timeout); err != nil {
		s.log.Warn().Err(err).Msg("failed to send payment pending email")
	}

	dto.PaymentRequiredResponseError(ctx, dto.PaymentRequiredResponse{
		Fee:          event.RegistrationFee,
		Registration: toRegistrationResponse(reg),
	})
}

// ConfirmPayment is the payment-success callback: flips a payment_pending
// registration to confirmed.
func (s *service) ConfirmPayment(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	memberID, authed := middleware.MemberID(ctx)
	if !authed {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Missing member identity")
		return
	}

	var req dto.ConfirmPaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	reg, err := s.repo.ConfirmPaymentTx(ctx.Request.Context(), req.RegistrationID, memberID, eventID)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrRegistrationNotFound):
			dto.RegistrationNotFoundError(ctx)
		case errors.Is(err, repo.ErrEventMismatch):
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Registration does not belong to this event")
		case errors.Is(err, repo.ErrRegistrationCanceled):
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Registration was cancelled")
		case errors.Is(err, repo.ErrAlreadyConfirmed):
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Already confirmed")
		default:
			s.log.Error().Err(err).Msg("failed to confirm payment")
			dto.InternalServerError(ctx)
		}
		return
	}

	s.log.Info().
		Int64("registration_id", reg.ID).
		Int64("member_id", memberID).
		Msg("payment confirmed")

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err == nil {
		if err := mailer.SendRegistrationEmail(s.log, s.cfg.SMTP, event.Title, "confirmed", reg.MemberEmail, 0); err != nil {
			s.log.Warn().Err(err).Msg("failed to send confirmation email")
		}
	}

	dto.SuccessResponse(ctx, toRegistrationResponse(reg))
}

func (s *service) CancelRegistration(ctx *ginext.Context) {
	registrationID, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil || registrationID <= 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid registration ID")
		return
	}

	memberID, authed := middleware.MemberID(ctx)
	if !authed {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Missing member identity")
		return
	}

	if err := s.repo.CancelRegistrationTx(ctx.Request.Context(), registrationID, memberID); err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			dto.RegistrationNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to cancel registration")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().
		Int64("registration_id", registrationID).
		Int64("member_id", memberID).
		Msg("registration cancelled")

	dto.SuccessResponse(ctx, map[string]any{"id": registrationID, "status": model.RegStatusCancelled})
}
