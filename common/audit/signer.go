// Package audit signs published events so consumers can verify their origin.
package audit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

type EventSigner struct {
	secretKey []byte
}

func NewEventSigner(secretKey string) *EventSigner {
	return &EventSigner{
		secretKey: []byte(secretKey),
	}
}

// Sign returns the hex HMAC-SHA256 over the event ID, timestamp, subject and payload.
func (s *EventSigner) Sign(eventID string, timestamp time.Time, subject string, data []byte) string {
	h := hmac.New(sha256.New, s.secretKey)
	h.Write([]byte(eventID))
	h.Write([]byte(timestamp.UTC().Format(time.RFC3339Nano)))
	h.Write([]byte(subject))
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *EventSigner) Verify(eventID string, timestamp time.Time, subject string, data []byte, signature string) bool {
	expected := s.Sign(eventID, timestamp, subject, data)
	return hmac.Equal([]byte(expected), []byte(signature))
}
