package llm

import (
	"context"
	"errors"
	"testing"

	vertexgenai "cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStream struct {
	chunks []string
	err    error
}

func (f fixedStream) StreamAnswer(ctx context.Context, prompt string) (<-chan string, <-chan error) {
	out := make(chan string, len(f.chunks))
	errs := make(chan error, 1)
	for _, c := range f.chunks {
		out <- c
	}
	close(out)
	if f.err != nil {
		errs <- f.err
	}
	close(errs)
	return out, errs
}

func (fixedStream) Close() error { return nil }

func TestCollect(t *testing.T) {
	got, err := Collect(context.Background(), fixedStream{chunks: []string{"  Hello", ", ", "world \n"}}, "p")
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", got)

	_, err = Collect(context.Background(), fixedStream{chunks: []string{" ", "\n"}}, "p")
	assert.ErrorIs(t, err, ErrEmptyAnswer)

	boom := errors.New("quota")
	_, err = Collect(context.Background(), fixedStream{chunks: []string{"partial"}, err: boom}, "p")
	assert.ErrorIs(t, err, boom)
}

func TestGenerateJSON(t *testing.T) {
	var out struct {
		Question string `json:"question"`
		Done     bool   `json:"done"`
	}
	p := fixedStream{chunks: []string{"```json\n{\"question\":", "\"Why Go?\",\"done\":false}\n```"}}
	require.NoError(t, GenerateJSON(context.Background(), p, "p", &out))
	assert.Equal(t, "Why Go?", out.Question)

	err := GenerateJSON(context.Background(), fixedStream{chunks: []string{"no json here"}}, "p", &out)
	assert.Error(t, err)
}

func TestStripFence(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                        `{"a":1}`,
		"```\n{\"a\":1}\n```":            `{"a":1}`,
		"Sure! Here it is: {\"a\":1} ok": `{"a":1}`,
		"plain":                          "plain",
	}
	for in, want := range cases {
		assert.Equal(t, want, stripFence(in), in)
	}
}

func TestTextParts(t *testing.T) {
	resp := &vertexgenai.GenerateContentResponse{
		Candidates: []*vertexgenai.Candidate{
			{Content: &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(`{"score":`), vertexgenai.Text("")}}},
			{},
			{Content: &vertexgenai.Content{Parts: []vertexgenai.Part{vertexgenai.Text(`7}`)}}},
		},
	}
	assert.Equal(t, []string{`{"score":`, `7}`}, textParts(resp))
}
