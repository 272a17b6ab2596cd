package services

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Field names of a feedback job on the redis stream.
const (
	FieldAnswerID   = "answer_id"
	FieldSessionID  = "session_id"
	FieldQuestionID = "question_id"
	FieldLanguage   = "language"
)

type FeedbackJob struct {
	AnswerID   string
	SessionID  string
	QuestionID string
	Language   string
}

type FeedbackQueue interface {
	Enqueue(ctx context.Context, job FeedbackJob) error
}

type streamQueue struct {
	rdb    *redis.Client
	stream string
}

func NewStreamQueue(rdb *redis.Client, stream string) FeedbackQueue {
	return &streamQueue{rdb: rdb, stream: stream}
}

func (q *streamQueue) Enqueue(ctx context.Context, job FeedbackJob) error {
	return q.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		Values: []any{
			FieldAnswerID, job.AnswerID,
			FieldSessionID, job.SessionID,
			FieldQuestionID, job.QuestionID,
			FieldLanguage, job.Language,
		},
	}).Err()
}

// FeedbackChannel is the pub/sub channel carrying feedback events for one session.
func FeedbackChannel(sessionID string) string {
	return "interview:" + sessionID + ":feedback"
}
