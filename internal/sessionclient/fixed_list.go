package sessionclient

import (
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/utils"
)

type Answer struct {
	QuestionID string
	Text       string
	Blob       media.Blob
}

// FixedList drives a FIXED_LIST interview locally: positional question ids, no
// follow-ups, no network. Submitted blobs are kept for the caller.
type FixedList struct {
	questions []string

	mu        sync.Mutex
	sessionID string
	current   int // index of the question waiting for an answer
	completed bool
	answers   []Answer
}

func NewFixedList(questions []string) *FixedList {
	qs := make([]string, 0, len(questions))
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			qs = append(qs, q)
		}
	}
	return &FixedList{questions: qs}
}

func (f *FixedList) StartSession(ctx context.Context, sessionRef string) (Question, error) {
	const op = "FixedList.StartSession"

	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.questions) == 0 {
		return Question{}, utils.E(utils.CodeInvalidArgument, op, "question list is empty", nil)
	}
	if f.sessionID != "" {
		return Question{}, utils.E(utils.CodeConflict, op, "session already started", nil)
	}

	f.sessionID = "local-" + uuid.NewString()
	f.current = 0
	return f.question(0), nil
}

func (f *FixedList) SubmitAnswer(ctx context.Context, sessionID, questionID string, answer media.Blob) (Outcome, error) {
	const op = "FixedList.SubmitAnswer"

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sessionID == "" || sessionID != f.sessionID {
		return nil, utils.E(utils.CodeNotFound, op, "unknown session", nil)
	}
	if f.completed {
		return nil, utils.E(utils.CodeConflict, op, "session already completed", nil)
	}
	if questionID != positionalID(f.current) {
		return nil, utils.E(utils.CodeConflict, op, "answer does not match the current question", nil)
	}

	f.answers = append(f.answers, Answer{QuestionID: questionID, Text: f.questions[f.current], Blob: answer})

	f.current++
	if f.current >= len(f.questions) {
		f.completed = true
		return Completed{}, nil
	}
	return Continue{Question: f.question(f.current)}, nil
}

// Answers returns the recorded answers in ask order.
func (f *FixedList) Answers() []Answer {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Answer, len(f.answers))
	copy(out, f.answers)
	return out
}

func (f *FixedList) question(i int) Question {
	remaining := len(f.questions) - i - 1
	return Question{
		SessionID:      f.sessionID,
		QuestionID:     positionalID(i),
		Text:           f.questions[i],
		RemainingSlots: &remaining,
		IsFinal:        i == len(f.questions)-1,
	}
}

func positionalID(i int) string {
	return strconv.Itoa(i + 1)
}
