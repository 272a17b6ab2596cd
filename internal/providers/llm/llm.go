package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

type Provider interface {
	// StreamAnswer returns a stream of text chunks (incremental).
	StreamAnswer(ctx context.Context, prompt string) (chunks <-chan string, errs <-chan error)
	Close() error
}

var ErrEmptyAnswer = errors.New("llm returned an empty answer")

// Collect drains a stream into one string.
func Collect(ctx context.Context, p Provider, prompt string) (string, error) {
	chunks, errs := p.StreamAnswer(ctx, prompt)

	var sb strings.Builder
	for c := range chunks {
		sb.WriteString(c)
	}
	if err := <-errs; err != nil {
		return "", err
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrEmptyAnswer
	}
	return out, nil
}

// GenerateJSON asks for a JSON answer and decodes it into dst. Markdown fences around
// the object are tolerated.
func GenerateJSON(ctx context.Context, p Provider, prompt string, dst any) error {
	text, err := Collect(ctx, p, prompt)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(stripFence(text)), dst)
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if i, j := strings.Index(s, "{"), strings.LastIndex(s, "}"); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return strings.TrimSpace(s)
}
