package postgres

import (
	"context"
	"errors"

	"github.com/lib/pq"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/gorm"
)

type FeedbackUpdate struct {
	Status       models.FeedbackStatus
	Feedback     string
	Score        int
	Strengths    []string
	Improvements []string
}

type AnswerRepo interface {
	Insert(ctx context.Context, a *models.AnswerLog) error
	ListBySession(ctx context.Context, userID, sessionID string) ([]models.AnswerLog, error)
	GetByID(ctx context.Context, id string) (*models.AnswerLog, error)
	GetByQuestion(ctx context.Context, sessionID, questionID string) (*models.AnswerLog, error)
	UpdateFeedback(ctx context.Context, id string, u FeedbackUpdate) error
	CountPending(ctx context.Context, sessionID string) (int64, error)
}

type answerRepo struct {
	db *gorm.DB
}

func NewAnswerRepo(db *gorm.DB) AnswerRepo {
	return &answerRepo{db: db}
}

func (r *answerRepo) Insert(ctx context.Context, a *models.AnswerLog) error {
	return r.db.WithContext(ctx).Create(a).Error
}

// ListBySession returns answers in ask order.
func (r *answerRepo) ListBySession(ctx context.Context, userID, sessionID string) ([]models.AnswerLog, error) {
	var rows []models.AnswerLog
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND session_id = ?", userID, sessionID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

func (r *answerRepo) GetByID(ctx context.Context, id string) (*models.AnswerLog, error) {
	var row models.AnswerLog
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByQuestion returns utils.ErrNotFound when the question has no stored answer.
func (r *answerRepo) GetByQuestion(ctx context.Context, sessionID, questionID string) (*models.AnswerLog, error) {
	var row models.AnswerLog
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND question_id = ?", sessionID, questionID).
		Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, utils.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *answerRepo) UpdateFeedback(ctx context.Context, id string, u FeedbackUpdate) error {
	res := r.db.WithContext(ctx).
		Model(&models.AnswerLog{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"feedback_status": u.Status,
			"feedback":        u.Feedback,
			"score":           u.Score,
			"strengths":       pq.StringArray(u.Strengths),
			"improvements":    pq.StringArray(u.Improvements),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return utils.ErrNotFound
	}
	return nil
}

func (r *answerRepo) CountPending(ctx context.Context, sessionID string) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.AnswerLog{}).
		Where("session_id = ? AND feedback_status = ?", sessionID, models.FeedbackPending).
		Count(&n).Error
	return n, err
}
