package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/yoockh/mockinterview/internal/models"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/datatypes"
)

type AnswerService interface {
	Append(ctx context.Context, a *models.AnswerLog) error
	ListBySession(ctx context.Context, userID, sessionID string) ([]models.AnswerLog, error)
	Get(ctx context.Context, id string) (*models.AnswerLog, error)
	ForQuestion(ctx context.Context, sessionID, questionID string) (*models.AnswerLog, error)
	MarkFeedback(ctx context.Context, id string, u pgrepo.FeedbackUpdate) error
	PendingCount(ctx context.Context, sessionID string) (int64, error)
}

type answerService struct {
	answers pgrepo.AnswerRepo
}

func NewAnswerService(answers pgrepo.AnswerRepo) AnswerService {
	return &answerService{answers: answers}
}

// Append stores a new answer with feedback pending. ID and CreatedAt are filled when empty.
func (s *answerService) Append(ctx context.Context, a *models.AnswerLog) error {
	const op = "AnswerService.Append"

	if a == nil || a.UserID == "" || a.SessionID == "" || a.QuestionID == "" {
		return utils.E(utils.CodeInvalidArgument, op, "user_id, session_id, and question_id are required", nil)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.Metadata == nil {
		a.Metadata = datatypes.JSON("{}")
	}
	a.FeedbackStatus = models.FeedbackPending

	if err := s.answers.Insert(ctx, a); err != nil {
		return utils.E(utils.CodeInternal, op, "failed to insert answer log", err)
	}
	return nil
}

func (s *answerService) ListBySession(ctx context.Context, userID, sessionID string) ([]models.AnswerLog, error) {
	const op = "AnswerService.ListBySession"

	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id are required", nil)
	}

	rows, err := s.answers.ListBySession(ctx, userID, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to list answers", err)
	}
	return rows, nil
}

func (s *answerService) Get(ctx context.Context, id string) (*models.AnswerLog, error) {
	const op = "AnswerService.Get"

	if id == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer id is required", nil)
	}
	a, err := s.answers.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "answer not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get answer", err)
	}
	return a, nil
}

// ForQuestion returns nil, nil when the question has not been answered yet.
func (s *answerService) ForQuestion(ctx context.Context, sessionID, questionID string) (*models.AnswerLog, error) {
	const op = "AnswerService.ForQuestion"

	a, err := s.answers.GetByQuestion(ctx, sessionID, questionID)
	if errors.Is(err, utils.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to look up answer", err)
	}
	return a, nil
}

func (s *answerService) MarkFeedback(ctx context.Context, id string, u pgrepo.FeedbackUpdate) error {
	const op = "AnswerService.MarkFeedback"

	if id == "" || u.Status == "" {
		return utils.E(utils.CodeInvalidArgument, op, "answer id and status are required", nil)
	}
	if err := s.answers.UpdateFeedback(ctx, id, u); err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return utils.E(utils.CodeNotFound, op, "answer not found", err)
		}
		return utils.E(utils.CodeInternal, op, "failed to store feedback", err)
	}
	return nil
}

func (s *answerService) PendingCount(ctx context.Context, sessionID string) (int64, error) {
	const op = "AnswerService.PendingCount"

	n, err := s.answers.CountPending(ctx, sessionID)
	if err != nil {
		return 0, utils.E(utils.CodeInternal, op, "failed to count pending feedback", err)
	}
	return n, nil
}
