package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Mode string

const (
	ModeAIResumeDriven Mode = "AI_RESUME_DRIVEN"
	ModeFixedList      Mode = "FIXED_LIST"
)

func (m Mode) Valid() bool {
	return m == ModeAIResumeDriven || m == ModeFixedList
}

type SessionStatus string

const (
	StatusInProgress SessionStatus = "IN_PROGRESS"
	StatusCompleted  SessionStatus = "COMPLETED"
	StatusAbandoned  SessionStatus = "ABANDONED" // server side only: user left early
)

// AskedQuestion is one entry of the question log. Entries are never edited once appended.
type AskedQuestion struct {
	QuestionID string `bson:"question_id" json:"question_id"`
	Text       string `bson:"text" json:"text"`
	IsFollowUp bool   `bson:"is_follow_up" json:"is_follow_up"`
	IsFinal    bool   `bson:"is_final" json:"is_final"`

	// base64 encoded speech clip; empty means text only
	AudioCue string `bson:"-" json:"audio_cue,omitempty"`

	AskedAt time.Time `bson:"asked_at" json:"asked_at"`
}

type InterviewSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"session_id"` // uuid v4
	UserID    string             `bson:"user_id" json:"user_id"`
	Ref       string             `bson:"ref" json:"ref"`

	Mode     Mode            `bson:"mode" json:"mode"`
	Language string          `bson:"language" json:"language"` // id|en
	Status   SessionStatus   `bson:"status" json:"status"`
	Metadata SessionMetadata `bson:"metadata,omitempty" json:"metadata,omitempty"`

	QuestionLog    []AskedQuestion `bson:"question_log" json:"question_log"`
	MaxQuestions   int             `bson:"max_questions" json:"max_questions"`
	RemainingSlots *int            `bson:"-" json:"remaining_slots,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	EndedAt   *time.Time `bson:"ended_at,omitempty" json:"ended_at,omitempty"`
}

type SessionMetadata struct {
	InterviewType string `bson:"interview_type,omitempty" json:"interview_type,omitempty"`
	CompanyName   string `bson:"company_name,omitempty" json:"company_name,omitempty"`
	Position      string `bson:"position,omitempty" json:"position,omitempty"`
}

// LastQuestion returns the most recently asked question.
func (s *InterviewSession) LastQuestion() (AskedQuestion, bool) {
	if len(s.QuestionLog) == 0 {
		return AskedQuestion{}, false
	}
	return s.QuestionLog[len(s.QuestionLog)-1], true
}

// Remaining is the advisory count of questions left after the ones already asked.
func (s *InterviewSession) Remaining() int {
	n := s.MaxQuestions - len(s.QuestionLog)
	if n < 0 {
		return 0
	}
	return n
}
