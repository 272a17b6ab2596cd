package tts

import "context"

// Provider turns question text into a spoken clip (WAV).
type Provider interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
	Close() error
}
