package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SessionRepository interface {
	Create(ctx context.Context, s *models.InterviewSession) error
	GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewSession, error)
	// AppendQuestion pushes q only while the session is IN_PROGRESS and the log still
	// has expectedLen entries.
	AppendQuestion(ctx context.Context, sessionID string, expectedLen int, q models.AskedQuestion) error
	SetStatus(ctx context.Context, sessionID string, status models.SessionStatus, endedAt *time.Time) error
	ListByUser(ctx context.Context, userID string, limit int64) ([]models.InterviewSession, error)
}

var ErrStaleLog = errors.New("question log changed concurrently")

type sessionRepo struct {
	col *mongo.Collection
}

func NewSessionRepo(db *mongo.Database) SessionRepository {
	return &sessionRepo{col: db.Collection("interview_sessions")}
}

func (r *sessionRepo) Create(ctx context.Context, s *models.InterviewSession) error {
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if s.QuestionLog == nil {
		s.QuestionLog = []models.AskedQuestion{}
	}
	_, err := r.col.InsertOne(ctx, s)
	return err
}

func (r *sessionRepo) GetBySessionID(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	var s models.InterviewSession
	err := r.col.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *sessionRepo) AppendQuestion(ctx context.Context, sessionID string, expectedLen int, q models.AskedQuestion) error {
	filter := bson.M{
		"session_id":   sessionID,
		"status":       models.StatusInProgress,
		"question_log": bson.M{"$size": expectedLen},
	}
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$push": bson.M{"question_log": q}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrStaleLog
	}
	return nil
}

func (r *sessionRepo) SetStatus(ctx context.Context, sessionID string, status models.SessionStatus, endedAt *time.Time) error {
	set := bson.M{"status": status}
	if endedAt != nil {
		set["ended_at"] = endedAt.UTC()
	}
	res, err := r.col.UpdateOne(ctx, bson.M{"session_id": sessionID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) ListByUser(ctx context.Context, userID string, limit int64) ([]models.InterviewSession, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cur, err := r.col.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.InterviewSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
