// Package contract holds the JSON shapes exchanged between the interview client and
// the interview service. Both sides validate with the same struct tags.
package contract

import (
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

const (
	StatusContinue  = "continue"
	StatusCompleted = "completed"
)

type StartRequest struct {
	SessionRef    string `json:"session_ref" binding:"required"`
	Language      string `json:"language,omitempty"`
	InterviewType string `json:"interview_type,omitempty"`
	CompanyName   string `json:"company_name,omitempty"`
	Position      string `json:"position,omitempty"`
}

// QuestionResponse answers POST /interview/start.
type QuestionResponse struct {
	SessionID      string `json:"session_id" validate:"required"`
	QuestionID     string `json:"question_id" validate:"required"`
	Text           string `json:"text" validate:"required"`
	IsFollowUp     bool   `json:"is_follow_up"`
	AudioBase64    string `json:"audio_base64,omitempty" validate:"omitempty,base64"`
	RemainingSlots *int   `json:"remaining_slots,omitempty" validate:"omitempty,min=0"`
	IsFinal        bool   `json:"is_final"`
}

// SubmitResponse answers POST /interview/:session_id/answer. It is a tagged union on Status.
type SubmitResponse struct {
	Status         string `json:"status" validate:"required,oneof=continue completed"`
	QuestionID     string `json:"question_id,omitempty" validate:"required_if=Status continue"`
	Text           string `json:"text,omitempty" validate:"required_if=Status continue"`
	IsFollowUp     bool   `json:"is_follow_up,omitempty"`
	AudioBase64    string `json:"audio_base64,omitempty" validate:"omitempty,base64"`
	RemainingSlots *int   `json:"remaining_slots,omitempty" validate:"omitempty,min=0"`
	IsFinal        bool   `json:"is_final,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AnswerView struct {
	QuestionID     string    `json:"question_id"`
	Question       string    `json:"question"`
	IsFollowUp     bool      `json:"is_follow_up"`
	Transcript     string    `json:"transcript"`
	FeedbackStatus string    `json:"feedback_status"`
	Feedback       string    `json:"feedback"`
	Score          int       `json:"score"`
	Strengths      []string  `json:"strengths"`
	Improvements   []string  `json:"improvements"`
	CreatedAt      time.Time `json:"created_at"`
}

type AnswerListResponse struct {
	SessionID string       `json:"session_id"`
	Answers   []AnswerView `json:"answers"`
}

// Event types pushed on the feedback websocket.
const (
	EventFeedback         = "feedback"
	EventFeedbackFailed   = "feedback_failed"
	EventFeedbackComplete = "feedback_complete"
	EventStatus           = "status"
)

type FeedbackEvent struct {
	Type         string   `json:"type"`
	SessionID    string   `json:"session_id"`
	QuestionID   string   `json:"question_id,omitempty"`
	Score        int      `json:"score,omitempty"`
	Feedback     string   `json:"feedback,omitempty"`
	Strengths    []string `json:"strengths,omitempty"`
	Improvements []string `json:"improvements,omitempty"`
	Message      string   `json:"message,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validate checks a decoded payload against its validate tags.
func Validate(v any) error {
	validateOnce.Do(func() { validate = validator.New() })
	return validate.Struct(v)
}

// ExtensionFor picks the file extension used when storing a recording of mimeType.
func ExtensionFor(mimeType string) string {
	mt := strings.ToLower(mimeType)
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = mt[:i]
	}
	switch strings.TrimSpace(mt) {
	case "video/webm", "audio/webm":
		return ".webm"
	case "video/mp4", "audio/mp4":
		return ".mp4"
	case "audio/ogg", "video/ogg":
		return ".ogg"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	default:
		return ".bin"
	}
}
