package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

// MaxAnswerBytes caps one uploaded answer recording.
const MaxAnswerBytes = 200 << 20

type InterviewHandler struct {
	svc services.InterviewService
}

func NewInterviewHandler(svc services.InterviewService) *InterviewHandler {
	return &InterviewHandler{svc: svc}
}

func (h *InterviewHandler) Start(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req contract.StartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, "InterviewHandler.Start", "invalid request body", err))
		return
	}

	turn, err := h.svc.Start(c.Request.Context(), userID, services.StartInput{
		Ref:      req.SessionRef,
		Language: req.Language,
		Metadata: models.SessionMetadata{
			InterviewType: req.InterviewType,
			CompanyName:   req.CompanyName,
			Position:      req.Position,
		},
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, questionResponse(turn))
}

func (h *InterviewHandler) Get(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.Get(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	remaining := sess.Remaining()
	sess.RemainingSlots = &remaining

	c.JSON(http.StatusOK, sess)
}

// SubmitAnswer takes multipart form fields question_id and answer (the recording).
func (h *InterviewHandler) SubmitAnswer(c *gin.Context) {
	const op = "InterviewHandler.SubmitAnswer"

	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	questionID := strings.TrimSpace(c.PostForm("question_id"))
	if questionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'question_id'", nil))
		return
	}

	fh, err := c.FormFile("answer")
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "missing multipart field 'answer'", err))
		return
	}
	if fh.Size <= 0 || fh.Size > MaxAnswerBytes {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "answer recording is empty or too large (max 200MB)", nil))
		return
	}

	mimeType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "video/") && !strings.HasPrefix(mimeType, "audio/") {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "answer must be an audio or video recording", nil))
		return
	}

	file, err := fh.Open()
	if err != nil {
		writeError(c, utils.E(utils.CodeInternal, op, "failed to open upload", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxAnswerBytes))
	if err != nil {
		writeError(c, utils.E(utils.CodeInvalidArgument, op, "failed to read upload", err))
		return
	}

	turn, err := h.svc.SubmitAnswer(c.Request.Context(), userID, c.Param("session_id"), questionID, services.AnswerUpload{
		Data:     data,
		MimeType: mimeType,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	if turn.Completed {
		c.JSON(http.StatusOK, contract.SubmitResponse{Status: contract.StatusCompleted})
		return
	}
	q := questionResponse(turn)
	c.JSON(http.StatusOK, contract.SubmitResponse{
		Status:         contract.StatusContinue,
		QuestionID:     q.QuestionID,
		Text:           q.Text,
		IsFollowUp:     q.IsFollowUp,
		AudioBase64:    q.AudioBase64,
		RemainingSlots: q.RemainingSlots,
		IsFinal:        q.IsFinal,
	})
}

func (h *InterviewHandler) End(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sess, err := h.svc.End(c.Request.Context(), userID, c.Param("session_id"))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.SessionID,
		"status":     sess.Status,
		"ended_at":   sess.EndedAt,
	})
}

func (h *InterviewHandler) ListAnswers(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	rows, err := h.svc.ListAnswers(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	out := contract.AnswerListResponse{SessionID: sessionID, Answers: make([]contract.AnswerView, 0, len(rows))}
	for _, a := range rows {
		out.Answers = append(out.Answers, contract.AnswerView{
			QuestionID:     a.QuestionID,
			Question:       a.Question,
			IsFollowUp:     a.IsFollowUp,
			Transcript:     a.Transcript,
			FeedbackStatus: string(a.FeedbackStatus),
			Feedback:       a.Feedback,
			Score:          a.Score,
			Strengths:      a.Strengths,
			Improvements:   a.Improvements,
			CreatedAt:      a.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, out)
}

func questionResponse(t *services.Turn) contract.QuestionResponse {
	remaining := t.RemainingSlots
	return contract.QuestionResponse{
		SessionID:      t.SessionID,
		QuestionID:     t.Question.QuestionID,
		Text:           t.Question.Text,
		IsFollowUp:     t.Question.IsFollowUp,
		AudioBase64:    t.Question.AudioCue,
		RemainingSlots: &remaining,
		IsFinal:        t.Question.IsFinal,
	}
}
