// Package stt transcribes recorded answers so the feedback worker has text to grade.
package stt

import (
	"context"
	"errors"
	"strings"
)

// MaxInlineBytes is the largest recording sent inline to synchronous recognition.
const MaxInlineBytes = 10 << 20

var ErrTooLarge = errors.New("recording too large for inline transcription")

type Provider interface {
	// Transcribe returns the joined transcript and its mean confidence. Silence is
	// ("", 0, nil).
	Transcribe(ctx context.Context, audio []byte, language string) (text string, confidence float64, err error)
	Close() error
}

// NormalizeLanguage maps the interview language ("en", "id") to a BCP-47 tag.
func NormalizeLanguage(v string) string {
	v = strings.TrimSpace(v)
	switch strings.ToLower(v) {
	case "id", "id-id":
		return "id-ID"
	case "en", "en-us", "":
		return "en-US"
	default:
		return v
	}
}
