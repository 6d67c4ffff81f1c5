package qr_test

import (
	"encoding/hex"
	"testing"
	"time"

	"alumnihub/internal/model"
	"alumnihub/internal/qr"
)

func strPtr(s string) *string { return &s }

func timePtr(t time.Time) *time.Time { return &t }

func eventWithToken(token string, active bool, expiresAt time.Time) *model.Event {
	generated := expiresAt.Add(-time.Hour)
	return &model.Event{
		ID:            42,
		Status:        model.EventStatusPublished,
		QRToken:       strPtr(token),
		QRGeneratedAt: timePtr(generated),
		QRExpiresAt:   timePtr(expiresAt),
		QRIsActive:    active,
	}
}

func TestNewToken(t *testing.T) {
	token, err := qr.NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if len(token) != 64 {
		t.Fatalf("token length = %d, want 64 hex chars", len(token))
	}
	if _, err := hex.DecodeString(token); err != nil {
		t.Fatalf("token is not valid hex: %v", err)
	}

	other, err := qr.NewToken()
	if err != nil {
		t.Fatalf("NewToken() error = %v", err)
	}
	if token == other {
		t.Fatal("two generated tokens are identical")
	}
}

func TestScanURL(t *testing.T) {
	got := qr.ScanURL("https://alumni.example.org", 7, "abc123")
	want := "https://alumni.example.org/v1/attendance/7/abc123"
	if got != want {
		t.Fatalf("ScanURL() = %s, want %s", got, want)
	}
}

func TestVerify(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		event     *model.Event
		presented string
		want      qr.Outcome
	}{
		{
			name:      "valid token",
			event:     eventWithToken("tok", true, now.Add(time.Minute)),
			presented: "tok",
			want:      qr.OutcomeValid,
		},
		{
			name:      "no token tuple",
			event:     &model.Event{ID: 42},
			presented: "tok",
			want:      qr.OutcomeNoQRCode,
		},
		{
			name:      "mismatched token",
			event:     eventWithToken("tok", true, now.Add(time.Minute)),
			presented: "other",
			want:      qr.OutcomeTokenMismatch,
		},
		{
			name:      "no partial matching",
			event:     eventWithToken("tok", true, now.Add(time.Minute)),
			presented: "to",
			want:      qr.OutcomeTokenMismatch,
		},
		{
			name:      "deactivated token",
			event:     eventWithToken("tok", false, now.Add(time.Minute)),
			presented: "tok",
			want:      qr.OutcomeTokenInactive,
		},
		{
			name:      "expired token",
			event:     eventWithToken("tok", true, now.Add(-time.Second)),
			presented: "tok",
			want:      qr.OutcomeTokenExpired,
		},
		{
			name:      "expiry is inclusive",
			event:     eventWithToken("tok", true, now),
			presented: "tok",
			want:      qr.OutcomeValid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := qr.Verify(tt.event, tt.presented, now); got != tt.want {
				t.Errorf("Verify() = %s, want %s", got, tt.want)
			}
		})
	}
}

// A one-minute token must verify before its deadline and fail 61 simulated
// seconds after generation.
func TestVerifyExpiryWindow(t *testing.T) {
	issued := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	event := eventWithToken("tok", true, issued.Add(time.Minute))

	if got := qr.Verify(event, "tok", issued.Add(30*time.Second)); got != qr.OutcomeValid {
		t.Fatalf("Verify() at +30s = %s, want VALID", got)
	}
	if got := qr.Verify(event, "tok", issued.Add(61*time.Second)); got != qr.OutcomeTokenExpired {
		t.Fatalf("Verify() at +61s = %s, want TOKEN_EXPIRED", got)
	}
}

// Regenerating overwrites the slot: the first token reads as a mismatch, the
// second verifies.
func TestVerifySupersededToken(t *testing.T) {
	now := time.Date(2026, 8, 30, 18, 0, 0, 0, time.UTC)
	event := eventWithToken("first", true, now.Add(time.Minute))

	event.QRToken = strPtr("second")
	if got := qr.Verify(event, "first", now); got != qr.OutcomeTokenMismatch {
		t.Fatalf("Verify(first) = %s, want TOKEN_MISMATCH", got)
	}
	if got := qr.Verify(event, "second", now); got != qr.OutcomeValid {
		t.Fatalf("Verify(second) = %s, want VALID", got)
	}
}
