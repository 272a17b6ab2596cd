package models

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/datatypes"
)

type FeedbackStatus string

const (
	FeedbackPending FeedbackStatus = "pending"
	FeedbackDone    FeedbackStatus = "done"
	FeedbackFailed  FeedbackStatus = "failed"
)

type AnswerLog struct {
	ID         string `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID     string `gorm:"column:user_id;type:uuid;index" json:"user_id"`
	SessionID  string `gorm:"column:session_id;type:uuid;index;uniqueIndex:uniq_answer_question" json:"session_id"`
	QuestionID string `gorm:"column:question_id;type:text;uniqueIndex:uniq_answer_question" json:"question_id"`
	Question   string `gorm:"column:question;type:text" json:"question"`
	IsFollowUp bool   `gorm:"column:is_follow_up" json:"is_follow_up"`

	BlobPath   string `gorm:"column:blob_path;type:text" json:"blob_path"`
	BlobSize   int    `gorm:"column:blob_size;type:integer" json:"blob_size"`
	MimeType   string `gorm:"column:mime_type;type:text" json:"mime_type"`
	Transcript string `gorm:"column:transcript;type:text" json:"transcript"`

	FeedbackStatus FeedbackStatus `gorm:"column:feedback_status;type:text;index" json:"feedback_status"`
	Feedback       string         `gorm:"column:feedback;type:text" json:"feedback"`
	Score          int            `gorm:"column:score;type:integer" json:"score"`
	Strengths      pq.StringArray `gorm:"column:strengths;type:text[]" json:"strengths"`
	Improvements   pq.StringArray `gorm:"column:improvements;type:text[]" json:"improvements"`

	Metadata  datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt time.Time      `gorm:"column:created_at;type:timestamptz;index" json:"created_at"`
}

func (AnswerLog) TableName() string { return "answer_logs" }
