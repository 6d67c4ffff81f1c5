package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wb-go/wbf/ginext"

	"alumnihub/cmd/middleware"
	"alumnihub/internal/dto"
	"alumnihub/internal/model"
	"alumnihub/internal/repo"
	"alumnihub/pkg/validator"
)

const defaultPaymentTimeoutMinutes = 30

func eventIDParam(ctx *ginext.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(ctx.Param(name), 10, 64)
	if err != nil || id <= 0 {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return 0, false
	}
	return id, true
}

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		s.log.Error().Err(err).Msg("failed to parse create event request")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Error().Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event := &model.Event{
		Title:                 req.Title,
		Description:           req.Description,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		Timezone:              req.Timezone,
		RegistrationStart:     req.RegistrationStart,
		RegistrationEnd:       req.RegistrationEnd,
		Mode:                  req.Mode,
		EligibleBatches:       req.EligibleBatches,
		EligibleDepartments:   req.EligibleDepartments,
		RequiresMembership:    req.RequiresMembership,
		MembershipTiers:       req.MembershipTiers,
		RegistrationFee:       req.RegistrationFee,
		PaymentTimeoutMinutes: req.PaymentTimeoutMinutes,
		Status:                model.EventStatusDraft,
	}
	if event.Timezone == "" {
		event.Timezone = "UTC"
	}
	if event.PaymentTimeoutMinutes == 0 {
		event.PaymentTimeoutMinutes = defaultPaymentTimeoutMinutes
	}

	// exactly one of meeting link / venue address per mode; the irrelevant
	// field is stripped here, at the boundary
	switch req.Mode {
	case model.EventModeOnline:
		if req.MeetingLink == "" {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Online events require a meeting link")
			return
		}
		event.MeetingLink = &req.MeetingLink
	case model.EventModePhysical:
		if req.VenueAddress == "" {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Physical events require a venue address")
			return
		}
		event.VenueAddress = &req.VenueAddress
	}
	event.MaxAttendees = req.MaxAttendees

	id, err := s.repo.CreateEvent(ctx.Request.Context(), event)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	event.ID = id
	event.CreatedAt = time.Now()
	event.UpdatedAt = event.CreatedAt
	s.log.Info().Int64("event_id", id).Msg("event created successfully")

	dto.SuccessCreatedResponse(ctx, toEventInfo(event, time.Now(), nil))
}

func (s *service) GetAllEvents(ctx *ginext.Context) {
	events, err := s.repo.GetAllEvents(ctx.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	now := time.Now()
	resp := make([]dto.EventInfoResponse, 0, len(events))
	for i := range events {
		resp = append(resp, toEventInfo(&events[i], now, nil))
	}

	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetEvent(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}

	var isRegistered *bool
	if memberID, authed := middleware.MemberID(ctx); authed {
		reg, err := s.repo.GetActiveRegistration(ctx.Request.Context(), eventID, memberID)
		if err != nil {
			s.log.Error().Err(err).Msg("failed to check registration")
			dto.InternalServerError(ctx)
			return
		}
		registered := reg != nil
		isRegistered = &registered
	}

	dto.SuccessResponse(ctx, toEventInfo(event, time.Now(), isRegistered))
}

func (s *service) UpdateEventStatus(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	var req dto.UpdateEventStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	if err := s.repo.UpdateEventStatus(ctx.Request.Context(), eventID, req.Status); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to update event status")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Int64("event_id", eventID).Str("status", req.Status).Msg("event status updated")
	dto.SuccessResponse(ctx, map[string]any{"id": eventID, "status": req.Status})
}

func (s *service) EventReport(ctx *ginext.Context) {
	eventID, ok := eventIDParam(ctx, "id")
	if !ok {
		return
	}

	if _, err := s.repo.GetEventByID(ctx.Request.Context(), eventID); err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.EventNotFoundError(ctx)
			return
		}
		s.log.Error().Err(err).Msg("failed to get event for report")
		dto.InternalServerError(ctx)
		return
	}

	report, err := s.repo.EventReport(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build event report")
		dto.InternalServerError(ctx)
		return
	}

	dto.SuccessResponse(ctx, report)
}
