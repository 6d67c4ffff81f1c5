package eligibility_test

import (
	"testing"
	"time"

	"alumnihub/internal/dto"
	"alumnihub/internal/eligibility"
	"alumnihub/internal/model"
)

func intPtr(v int) *int { return &v }

func timePtr(t time.Time) *time.Time { return &t }

func baseEvent() *model.Event {
	return &model.Event{
		ID:     1,
		Title:  "Annual Alumni Meet",
		Status: model.EventStatusPublished,
	}
}

func TestCanRegister(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		input    eligibility.Input
		wantCode string
	}{
		{
			name:  "open event allows registration",
			input: eligibility.Input{Event: baseEvent(), Now: now},
		},
		{
			name: "ongoing event allows registration",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.Status = model.EventStatusOngoing
					return e
				}(),
				Now: now,
			},
		},
		{
			name: "draft event rejected",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.Status = model.EventStatusDraft
					return e
				}(),
				Now: now,
			},
			wantCode: dto.NotOpen,
		},
		{
			name: "cancelled event rejected",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.Status = model.EventStatusCancelled
					return e
				}(),
				Now: now,
			},
			wantCode: dto.NotOpen,
		},
		{
			name: "completed event rejected",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.Status = model.EventStatusCompleted
					return e
				}(),
				Now: now,
			},
			wantCode: dto.NotOpen,
		},
		{
			name: "registration not yet open",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.RegistrationStart = timePtr(now.Add(time.Hour))
					return e
				}(),
				Now: now,
			},
			wantCode: dto.RegistrationNotYetOpen,
		},
		{
			name: "registration closed",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.RegistrationEnd = timePtr(now.Add(-time.Hour))
					return e
				}(),
				Now: now,
			},
			wantCode: dto.RegistrationClosed,
		},
		{
			name: "unset window means unbounded",
			input: eligibility.Input{
				Event: baseEvent(),
				Now:   now.Add(100 * 24 * time.Hour),
			},
		},
		{
			name: "event full",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.MaxAttendees = intPtr(2)
					e.CurrentAttendees = 2
					return e
				}(),
				Now: now,
			},
			wantCode: dto.EventFull,
		},
		{
			name: "nil capacity means unlimited",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.CurrentAttendees = 100000
					return e
				}(),
				Now: now,
			},
		},
		{
			name: "already registered",
			input: eligibility.Input{
				Event:             baseEvent(),
				AlreadyRegistered: true,
				Now:               now,
			},
			wantCode: dto.AlreadyRegistered,
		},
		{
			name: "membership required and missing",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.RequiresMembership = true
					return e
				}(),
				Now: now,
			},
			wantCode: dto.MembershipRequired,
		},
		{
			name: "membership required and present",
			input: eligibility.Input{
				Event: func() *model.Event {
					e := baseEvent()
					e.RequiresMembership = true
					return e
				}(),
				HasActiveMembership: true,
				Now:                 now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := eligibility.CanRegister(tt.input)
			if tt.wantCode == "" {
				if !got.Allowed {
					t.Fatalf("CanRegister() = rejected with %s, want allowed", got.Code)
				}
				return
			}
			if got.Allowed {
				t.Fatalf("CanRegister() = allowed, want rejection %s", tt.wantCode)
			}
			if got.Code != tt.wantCode {
				t.Errorf("CanRegister() code = %s, want %s", got.Code, tt.wantCode)
			}
			if got.Message == "" {
				t.Error("rejection carries no message")
			}
		})
	}
}

// The check order is part of the contract: a closed, full event with a
// duplicate registration must always report the status problem first.
func TestCanRegisterCheckOrder(t *testing.T) {
	now := time.Now()

	e := baseEvent()
	e.Status = model.EventStatusDraft
	e.RegistrationEnd = timePtr(now.Add(-time.Hour))
	e.MaxAttendees = intPtr(1)
	e.CurrentAttendees = 1
	e.RequiresMembership = true

	got := eligibility.CanRegister(eligibility.Input{Event: e, AlreadyRegistered: true, Now: now})
	if got.Code != dto.NotOpen {
		t.Fatalf("code = %s, want %s (status checked first)", got.Code, dto.NotOpen)
	}

	e.Status = model.EventStatusPublished
	got = eligibility.CanRegister(eligibility.Input{Event: e, AlreadyRegistered: true, Now: now})
	if got.Code != dto.RegistrationClosed {
		t.Fatalf("code = %s, want %s (window before capacity)", got.Code, dto.RegistrationClosed)
	}

	e.RegistrationEnd = nil
	got = eligibility.CanRegister(eligibility.Input{Event: e, AlreadyRegistered: true, Now: now})
	if got.Code != dto.EventFull {
		t.Fatalf("code = %s, want %s (capacity before duplicate)", got.Code, dto.EventFull)
	}

	e.MaxAttendees = nil
	got = eligibility.CanRegister(eligibility.Input{Event: e, AlreadyRegistered: true, Now: now})
	if got.Code != dto.AlreadyRegistered {
		t.Fatalf("code = %s, want %s (duplicate before membership)", got.Code, dto.AlreadyRegistered)
	}
}
