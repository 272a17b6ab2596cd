// Package sessionclient is the network side of an interview: start a session and
// submit recorded answers, receiving either the next question or completion.
package sessionclient

import (
	"context"

	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/media"
)

type Question struct {
	SessionID      string
	QuestionID     string
	Text           string
	IsFollowUp     bool
	AudioCue       string // base64; empty means text only
	RemainingSlots *int
	IsFinal        bool
}

// Outcome is either Continue or Completed.
type Outcome interface {
	outcome()
}

type Continue struct {
	Question Question
}

type Completed struct{}

func (Continue) outcome()  {}
func (Completed) outcome() {}

type Client interface {
	StartSession(ctx context.Context, sessionRef string) (Question, error)
	SubmitAnswer(ctx context.Context, sessionID, questionID string, answer media.Blob) (Outcome, error)
}

func fromStart(r contract.QuestionResponse) Question {
	return Question{
		SessionID:      r.SessionID,
		QuestionID:     r.QuestionID,
		Text:           r.Text,
		IsFollowUp:     r.IsFollowUp,
		AudioCue:       r.AudioBase64,
		RemainingSlots: r.RemainingSlots,
		IsFinal:        r.IsFinal,
	}
}

func fromSubmit(sessionID string, r contract.SubmitResponse) Outcome {
	if r.Status == contract.StatusCompleted {
		return Completed{}
	}
	return Continue{Question: Question{
		SessionID:      sessionID,
		QuestionID:     r.QuestionID,
		Text:           r.Text,
		IsFollowUp:     r.IsFollowUp,
		AudioCue:       r.AudioBase64,
		RemainingSlots: r.RemainingSlots,
		IsFinal:        r.IsFinal,
	}}
}
