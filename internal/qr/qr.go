// Package qr implements the attendance check-in token protocol: a random
// expiring token bound to one event, presented back as a scannable URL.
package qr

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"alumnihub/internal/dto"
	"alumnihub/internal/model"
)

// tokenBytes gives 256 bits of entropy, hex-encoded to 64 characters.
const tokenBytes = 32

func NewToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate qr token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ScanURL is what gets rendered into the QR image on the front end.
func ScanURL(baseURL string, eventID int64, token string) string {
	return fmt.Sprintf("%s/v1/attendance/%d/%s", baseURL, eventID, token)
}

type Outcome string

const (
	OutcomeValid         Outcome = "VALID"
	OutcomeNoQRCode      Outcome = dto.NoQRCode
	OutcomeTokenMismatch Outcome = dto.TokenMismatch
	OutcomeTokenInactive Outcome = dto.TokenInactive
	OutcomeTokenExpired  Outcome = dto.TokenExpired
)

// Verify checks a presented token against the event's stored QR slot.
// The order matters: mismatch is reported before inactive/expired so a
// superseded token always reads as TOKEN_MISMATCH, and a deactivated slot
// stays distinguishable from one that was never generated.
func Verify(e *model.Event, token string, now time.Time) Outcome {
	switch {
	case e.QRToken == nil:
		return OutcomeNoQRCode
	case *e.QRToken != token:
		return OutcomeTokenMismatch
	case !e.QRIsActive:
		return OutcomeTokenInactive
	case e.QRExpiresAt != nil && now.After(*e.QRExpiresAt):
		return OutcomeTokenExpired
	default:
		return OutcomeValid
	}
}

func (o Outcome) Message() string {
	switch o {
	case OutcomeValid:
		return "Token is valid"
	case OutcomeNoQRCode:
		return "No QR code has been generated for this event"
	case OutcomeTokenMismatch:
		return "QR code is not valid for this event"
	case OutcomeTokenInactive:
		return "QR code has been deactivated"
	case OutcomeTokenExpired:
		return "QR code has expired"
	default:
		return "Unknown outcome"
	}
}
