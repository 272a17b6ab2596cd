package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/cache"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	"github.com/yoockh/mockinterview/internal/providers/stt"
	"github.com/yoockh/mockinterview/internal/providers/tts"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/storage"
	"github.com/yoockh/mockinterview/internal/utils"
	"gorm.io/datatypes"
)

const (
	snapshotTTL = 30 * time.Minute
)

type StartInput struct {
	Ref      string
	Language string
	Metadata models.SessionMetadata
}

type AnswerUpload struct {
	Data     []byte
	MimeType string
}

// Turn is what the candidate gets back after starting or answering: either the next
// question or the end of the interview.
type Turn struct {
	SessionID      string
	Completed      bool
	Question       models.AskedQuestion
	RemainingSlots int
}

type InterviewService interface {
	Start(ctx context.Context, userID string, in StartInput) (*Turn, error)
	SubmitAnswer(ctx context.Context, userID, sessionID, questionID string, up AnswerUpload) (*Turn, error)
	Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	End(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error)
	ListAnswers(ctx context.Context, userID, sessionID string) ([]models.AnswerLog, error)
}

// InterviewDeps wires the interview service. STT, TTS and Cache may be nil.
type InterviewDeps struct {
	Sessions mongorepo.SessionRepository
	Answers  AnswerService
	Profiles ProfileService
	Uploader storage.Uploader
	Queue    FeedbackQueue
	LLM      llm.Provider
	STT      stt.Provider
	TTS      tts.Provider
	Cache    cache.Cache

	MaxQuestions    int
	DefaultLanguage string
	Logger          *logrus.Logger
}

type interviewService struct {
	InterviewDeps
	log *logrus.Entry
}

func NewInterviewService(d InterviewDeps) InterviewService {
	if d.MaxQuestions <= 0 {
		d.MaxQuestions = 5
	}
	if d.DefaultLanguage == "" {
		d.DefaultLanguage = "en"
	}
	if d.Logger == nil {
		d.Logger = logrus.New()
	}
	return &interviewService{InterviewDeps: d, log: d.Logger.WithField("component", "interview")}
}

func (s *interviewService) Start(ctx context.Context, userID string, in StartInput) (*Turn, error) {
	const op = "InterviewService.Start"

	ref := strings.TrimSpace(in.Ref)
	if userID == "" || ref == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_ref are required", nil)
	}
	lang := strings.TrimSpace(in.Language)
	if lang == "" {
		lang = s.DefaultLanguage
	}

	resume, err := s.Profiles.ResumeText(ctx, userID)
	if err != nil {
		return nil, err
	}

	sess := &models.InterviewSession{
		SessionID:    uuid.NewString(),
		UserID:       userID,
		Ref:          ref,
		Mode:         models.ModeAIResumeDriven,
		Language:     lang,
		Status:       models.StatusInProgress,
		Metadata:     in.Metadata,
		MaxQuestions: s.MaxQuestions,
		CreatedAt:    time.Now().UTC(),
	}

	var next nextQuestion
	if err := llm.GenerateJSON(ctx, s.LLM, firstQuestionPrompt(sess, resume), &next); err != nil || strings.TrimSpace(next.Question) == "" {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to generate the first question", err)
	}

	q := s.ask(ctx, sess, next.Question, false)
	sess.QuestionLog = []models.AskedQuestion{q}
	if err := s.Sessions.Create(ctx, sess); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to create session", err)
	}
	s.remember(ctx, sess)

	return &Turn{SessionID: sess.SessionID, Question: q, RemainingSlots: sess.Remaining()}, nil
}

func (s *interviewService) SubmitAnswer(ctx context.Context, userID, sessionID, questionID string, up AnswerUpload) (*Turn, error) {
	const op = "InterviewService.SubmitAnswer"

	if userID == "" || sessionID == "" || questionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id, session_id, and question_id are required", nil)
	}
	if len(up.Data) == 0 {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer recording is empty", nil)
	}

	sess, err := s.owned(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if turn, ok := replay(sess, questionID); ok {
		return turn, nil
	}
	if sess.Status != models.StatusInProgress {
		return nil, utils.E(utils.CodeConflict, op, "session is not in progress", nil)
	}
	last, ok := sess.LastQuestion()
	if !ok || last.QuestionID != questionID {
		return nil, utils.E(utils.CodeConflict, op, "question_id is not the current question", nil)
	}

	log := s.log.WithFields(logrus.Fields{"session_id": sessionID, "question_id": questionID})

	// a row without a next question means an earlier attempt stopped before advancing
	answer, err := s.Answers.ForQuestion(ctx, sessionID, questionID)
	if err != nil {
		return nil, err
	}
	if answer != nil {
		log.WithField("answer_id", answer.ID).Info("answer already stored, resuming advance")
	} else {
		if answer, err = s.storeAnswer(ctx, log, sess, last, up); err != nil {
			return nil, err
		}
	}

	turn, err := s.advance(ctx, log, sess, answer.Transcript)
	if err != nil {
		return nil, err
	}

	// queued last so the worker always sees the session status this answer produced
	job := FeedbackJob{AnswerID: answer.ID, SessionID: sessionID, QuestionID: questionID, Language: sess.Language}
	if err := s.Queue.Enqueue(ctx, job); err != nil {
		log.WithError(err).Error("enqueue feedback failed")
		_ = s.Answers.MarkFeedback(ctx, answer.ID, feedbackFailed())
	}
	return turn, nil
}

func (s *interviewService) storeAnswer(ctx context.Context, log *logrus.Entry, sess *models.InterviewSession, last models.AskedQuestion, up AnswerUpload) (*models.AnswerLog, error) {
	const op = "InterviewService.SubmitAnswer"

	objectName := storage.AnswerObject(sess.UserID, sess.SessionID, last.QuestionID, up.MimeType)
	path, err := s.Uploader.Upload(ctx, objectName, up.MimeType, bytes.NewReader(up.Data))
	if err != nil {
		return nil, utils.E(utils.CodeUnavailable, op, "failed to store answer recording", err)
	}

	meta, _ := json.Marshal(map[string]any{"language": sess.Language, "is_final": last.IsFinal})
	answer := &models.AnswerLog{
		UserID:     sess.UserID,
		SessionID:  sess.SessionID,
		QuestionID: last.QuestionID,
		Question:   last.Text,
		IsFollowUp: last.IsFollowUp,
		BlobPath:   path,
		BlobSize:   len(up.Data),
		MimeType:   up.MimeType,
		Transcript: s.transcribe(ctx, log, up.Data, sess.Language),
		Metadata:   datatypes.JSON(meta),
	}
	if err := s.Answers.Append(ctx, answer); err != nil {
		return nil, err
	}
	return answer, nil
}

// advance completes the session or appends the next question.
func (s *interviewService) advance(ctx context.Context, log *logrus.Entry, sess *models.InterviewSession, transcript string) (*Turn, error) {
	const op = "InterviewService.advance"

	if len(sess.QuestionLog) >= sess.MaxQuestions {
		return s.complete(ctx, sess)
	}

	resume, err := s.Profiles.ResumeText(ctx, sess.UserID)
	if err != nil {
		log.WithError(err).Warn("résumé unavailable for next question")
	}

	var next nextQuestion
	err = llm.GenerateJSON(ctx, s.LLM, nextQuestionPrompt(sess, resume, transcript), &next)
	switch {
	case err == nil && next.Done:
		return s.complete(ctx, sess)
	case err != nil || strings.TrimSpace(next.Question) == "":
		log.WithError(err).Warn("llm next question failed, using fallback")
		next = nextQuestion{Question: fallbackQuestion(sess)}
	}

	q := s.ask(ctx, sess, next.Question, next.FollowUp)
	if err := s.Sessions.AppendQuestion(ctx, sess.SessionID, len(sess.QuestionLog), q); err != nil {
		if errors.Is(err, mongorepo.ErrStaleLog) {
			return nil, utils.E(utils.CodeConflict, op, "session changed while answering", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to append question", err)
	}
	sess.QuestionLog = append(sess.QuestionLog, q)
	s.remember(ctx, sess)

	return &Turn{SessionID: sess.SessionID, Question: q, RemainingSlots: sess.Remaining()}, nil
}

func (s *interviewService) complete(ctx context.Context, sess *models.InterviewSession) (*Turn, error) {
	const op = "InterviewService.complete"

	now := time.Now().UTC()
	if err := s.Sessions.SetStatus(ctx, sess.SessionID, models.StatusCompleted, &now); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to complete session", err)
	}
	sess.Status = models.StatusCompleted
	sess.EndedAt = &now
	s.remember(ctx, sess)
	return &Turn{SessionID: sess.SessionID, Completed: true}, nil
}

func (s *interviewService) Get(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	return s.owned(ctx, "InterviewService.Get", userID, sessionID)
}

// End abandons an in-progress session. Ending a finished session returns it unchanged.
func (s *interviewService) End(ctx context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	const op = "InterviewService.End"

	sess, err := s.owned(ctx, op, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if sess.Status != models.StatusInProgress {
		return sess, nil
	}

	now := time.Now().UTC()
	if err := s.Sessions.SetStatus(ctx, sessionID, models.StatusAbandoned, &now); err != nil {
		return nil, utils.E(utils.CodeInternal, op, "failed to end session", err)
	}
	sess.Status = models.StatusAbandoned
	sess.EndedAt = &now
	s.remember(ctx, sess)
	return sess, nil
}

func (s *interviewService) ListAnswers(ctx context.Context, userID, sessionID string) ([]models.AnswerLog, error) {
	if _, err := s.owned(ctx, "InterviewService.ListAnswers", userID, sessionID); err != nil {
		return nil, err
	}
	return s.Answers.ListBySession(ctx, userID, sessionID)
}

func (s *interviewService) owned(ctx context.Context, op, userID, sessionID string) (*models.InterviewSession, error) {
	if userID == "" || sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "user_id and session_id are required", nil)
	}

	sess, err := s.load(ctx, sessionID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return nil, utils.E(utils.CodeNotFound, op, "session not found", err)
		}
		return nil, utils.E(utils.CodeInternal, op, "failed to get session", err)
	}
	if sess.UserID != userID {
		return nil, utils.E(utils.CodeForbidden, op, "forbidden", nil)
	}
	sess.RemainingSlots = nil
	return sess, nil
}

func (s *interviewService) load(ctx context.Context, sessionID string) (*models.InterviewSession, error) {
	if s.Cache != nil {
		var cached models.InterviewSession
		if hit, err := s.Cache.GetJSON(ctx, cache.SessionKey(sessionID), &cached); err == nil && hit {
			return &cached, nil
		}
	}
	sess, err := s.Sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	s.remember(ctx, sess)
	return sess, nil
}

func (s *interviewService) remember(ctx context.Context, sess *models.InterviewSession) {
	if s.Cache == nil {
		return
	}
	if err := s.Cache.SetJSON(ctx, cache.SessionKey(sess.SessionID), sess, snapshotTTL); err != nil {
		s.log.WithError(err).WithField("session_id", sess.SessionID).Warn("cache session snapshot failed")
	}
}

// ask builds the next log entry and its spoken cue.
func (s *interviewService) ask(ctx context.Context, sess *models.InterviewSession, text string, followUp bool) models.AskedQuestion {
	text = strings.TrimSpace(text)
	return models.AskedQuestion{
		QuestionID: uuid.NewString(),
		Text:       text,
		IsFollowUp: followUp,
		IsFinal:    len(sess.QuestionLog)+1 >= sess.MaxQuestions,
		AudioCue:   s.speak(ctx, text, sess.Language),
		AskedAt:    time.Now().UTC(),
	}
}

func (s *interviewService) speak(ctx context.Context, text, lang string) string {
	if s.TTS == nil {
		return ""
	}
	clip, err := s.TTS.Synthesize(ctx, text, stt.NormalizeLanguage(lang))
	if err != nil {
		s.log.WithError(err).Warn("tts failed, question goes out without audio")
		return ""
	}
	return base64.StdEncoding.EncodeToString(clip)
}

func (s *interviewService) transcribe(ctx context.Context, log *logrus.Entry, data []byte, lang string) string {
	if s.STT == nil {
		return ""
	}
	text, conf, err := s.STT.Transcribe(ctx, data, stt.NormalizeLanguage(lang))
	if errors.Is(err, stt.ErrTooLarge) {
		log.WithField("bytes", len(data)).Warn("answer too large for transcription")
		return ""
	}
	if err != nil {
		log.WithError(err).Warn("stt failed")
		return ""
	}
	log.WithField("confidence", conf).Debug("answer transcribed")
	return text
}

// replay answers a resubmission of an already processed answer with the outcome it
// produced the first time.
func replay(sess *models.InterviewSession, questionID string) (*Turn, bool) {
	n := len(sess.QuestionLog)
	if n == 0 {
		return nil, false
	}
	if sess.Status == models.StatusCompleted && sess.QuestionLog[n-1].QuestionID == questionID {
		return &Turn{SessionID: sess.SessionID, Completed: true}, true
	}
	if sess.Status == models.StatusInProgress && n >= 2 && sess.QuestionLog[n-2].QuestionID == questionID {
		return &Turn{SessionID: sess.SessionID, Question: sess.QuestionLog[n-1], RemainingSlots: sess.Remaining()}, true
	}
	return nil, false
}

func fallbackQuestion(sess *models.InterviewSession) string {
	if strings.HasPrefix(sess.Language, "id") {
		return "Ceritakan pengalaman lain yang paling Anda banggakan dan peran Anda di dalamnya."
	}
	return "Tell me about another experience you are proud of and the part you played in it."
}

func feedbackFailed() pgrepo.FeedbackUpdate {
	return pgrepo.FeedbackUpdate{Status: models.FeedbackFailed}
}
