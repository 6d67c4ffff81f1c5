// Package eligibility decides whether a member may register for an event
// right now. It is deliberately free of I/O: the repo layer computes the
// already-registered and membership facts and passes them in, so the fixed
// check order stays unit-testable.
package eligibility

import (
	"time"

	"alumnihub/internal/dto"
	"alumnihub/internal/model"
)

type Input struct {
	Event               *model.Event
	AlreadyRegistered   bool
	HasActiveMembership bool
	Now                 time.Time
}

type Decision struct {
	Allowed bool
	Code    string
	Message string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func reject(code, message string) Decision {
	return Decision{Code: code, Message: message}
}

// CanRegister runs the precondition checks in a fixed order so that the
// rejection a caller sees is deterministic: lifecycle status, registration
// window, capacity, duplicate, membership. Batch/department eligibility is
// advisory metadata and is not gated here.
func CanRegister(in Input) Decision {
	e := in.Event

	if !e.AcceptsRegistration() {
		switch e.Status {
		case model.EventStatusCancelled:
			return reject(dto.NotOpen, "Event has been cancelled")
		case model.EventStatusDraft:
			return reject(dto.NotOpen, "Event is not published yet")
		default:
			return reject(dto.NotOpen, "Event is not open for registration")
		}
	}
	if e.RegistrationStart != nil && in.Now.Before(*e.RegistrationStart) {
		return reject(dto.RegistrationNotYetOpen, "Registration has not opened yet")
	}
	if e.RegistrationEnd != nil && in.Now.After(*e.RegistrationEnd) {
		return reject(dto.RegistrationClosed, "Registration has closed")
	}
	if e.IsFull() {
		return reject(dto.EventFull, "Event is full")
	}
	if in.AlreadyRegistered {
		return reject(dto.AlreadyRegistered, "You are already registered for this event")
	}
	if e.RequiresMembership && !in.HasActiveMembership {
		return reject(dto.MembershipRequired, "An active membership is required for this event")
	}
	return allow()
}
