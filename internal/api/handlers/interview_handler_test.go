package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/services"
	"github.com/yoockh/mockinterview/internal/utils"
)

type fakeInterviews struct {
	start  func(userID string, in services.StartInput) (*services.Turn, error)
	submit func(userID, sessionID, questionID string, up services.AnswerUpload) (*services.Turn, error)
	rows   []models.AnswerLog
}

func (f *fakeInterviews) Start(_ context.Context, userID string, in services.StartInput) (*services.Turn, error) {
	return f.start(userID, in)
}

func (f *fakeInterviews) SubmitAnswer(_ context.Context, userID, sessionID, questionID string, up services.AnswerUpload) (*services.Turn, error) {
	return f.submit(userID, sessionID, questionID, up)
}

func (f *fakeInterviews) Get(_ context.Context, userID, sessionID string) (*models.InterviewSession, error) {
	if sessionID != "s1" {
		return nil, utils.E(utils.CodeNotFound, "fake", "session not found", nil)
	}
	return &models.InterviewSession{
		SessionID:    "s1",
		UserID:       userID,
		Status:       models.StatusInProgress,
		MaxQuestions: 5,
		QuestionLog:  []models.AskedQuestion{{QuestionID: "q1", Text: "Hi?"}},
	}, nil
}

func (f *fakeInterviews) End(_ context.Context, _, sessionID string) (*models.InterviewSession, error) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &models.InterviewSession{SessionID: sessionID, Status: models.StatusAbandoned, EndedAt: &now}, nil
}

func (f *fakeInterviews) ListAnswers(context.Context, string, string) ([]models.AnswerLog, error) {
	return f.rows, nil
}

func newRouter(svc services.InterviewService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if c.GetHeader("X-Test-User") != "" {
			c.Set("user_id", c.GetHeader("X-Test-User"))
		}
	})
	h := NewInterviewHandler(svc)
	r.POST("/interview/start", h.Start)
	r.GET("/interview/:session_id", h.Get)
	r.POST("/interview/:session_id/answer", h.SubmitAnswer)
	r.POST("/interview/:session_id/end", h.End)
	r.GET("/interview/:session_id/answers", h.ListAnswers)
	return r
}

func do(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	req.Header.Set("X-Test-User", "u1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func answerForm(t *testing.T, questionID, mimeType string, body []byte) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	if questionID != "" {
		require.NoError(t, mw.WriteField("question_id", questionID))
	}
	if body != nil {
		hdr := textproto.MIMEHeader{}
		hdr.Set("Content-Disposition", `form-data; name="answer"; filename="answer.webm"`)
		hdr.Set("Content-Type", mimeType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, _ = part.Write(body)
	}
	require.NoError(t, mw.Close())
	return buf, mw.FormDataContentType()
}

func TestStart(t *testing.T) {
	svc := &fakeInterviews{start: func(userID string, in services.StartInput) (*services.Turn, error) {
		assert.Equal(t, "u1", userID)
		assert.Equal(t, "resume-9", in.Ref)
		assert.Equal(t, "Backend Engineer", in.Metadata.Position)
		return &services.Turn{
			SessionID:      "s1",
			Question:       models.AskedQuestion{QuestionID: "q1", Text: "Tell me about you", AudioCue: "UklGRg=="},
			RemainingSlots: 4,
		}, nil
	}}
	r := newRouter(svc)

	body, _ := json.Marshal(contract.StartRequest{SessionRef: "resume-9", Position: "Backend Engineer"})
	w := do(r, httptest.NewRequest(http.MethodPost, "/interview/start", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, w.Code)

	var got contract.QuestionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NoError(t, contract.Validate(got))
	assert.Equal(t, "s1", got.SessionID)
	assert.Equal(t, "UklGRg==", got.AudioBase64)
	require.NotNil(t, got.RemainingSlots)
	assert.Equal(t, 4, *got.RemainingSlots)
}

func TestStart_BadBody(t *testing.T) {
	r := newRouter(&fakeInterviews{})
	w := do(r, httptest.NewRequest(http.MethodPost, "/interview/start", bytes.NewReader([]byte(`{}`))))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var apiErr contract.APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Equal(t, string(utils.CodeInvalidArgument), apiErr.Code)
}

func TestStart_Unauthenticated(t *testing.T) {
	r := newRouter(&fakeInterviews{})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/interview/start", bytes.NewReader([]byte(`{"session_ref":"x"}`))))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitAnswer_Continue(t *testing.T) {
	svc := &fakeInterviews{submit: func(userID, sessionID, questionID string, up services.AnswerUpload) (*services.Turn, error) {
		assert.Equal(t, "s1", sessionID)
		assert.Equal(t, "q1", questionID)
		assert.Equal(t, "video/webm", up.MimeType)
		assert.Equal(t, []byte("recording"), up.Data)
		return &services.Turn{
			SessionID: "s1",
			Question:  models.AskedQuestion{QuestionID: "q2", Text: "And then?", IsFollowUp: true, IsFinal: true},
		}, nil
	}}
	r := newRouter(svc)

	buf, ct := answerForm(t, "q1", "video/webm", []byte("recording"))
	req := httptest.NewRequest(http.MethodPost, "/interview/s1/answer", buf)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)

	var got contract.SubmitResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.NoError(t, contract.Validate(got))
	assert.Equal(t, contract.StatusContinue, got.Status)
	assert.Equal(t, "q2", got.QuestionID)
	assert.True(t, got.IsFollowUp)
	assert.True(t, got.IsFinal)
}

func TestSubmitAnswer_Completed(t *testing.T) {
	svc := &fakeInterviews{submit: func(string, string, string, services.AnswerUpload) (*services.Turn, error) {
		return &services.Turn{SessionID: "s1", Completed: true}, nil
	}}
	r := newRouter(svc)

	buf, ct := answerForm(t, "q5", "audio/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/interview/s1/answer", buf)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"completed"}`, w.Body.String())
}

func TestSubmitAnswer_RejectsBadUploads(t *testing.T) {
	cases := map[string]struct {
		questionID string
		mimeType   string
		body       []byte
	}{
		"missing question": {"", "video/webm", []byte("x")},
		"missing file":     {"q1", "video/webm", nil},
		"not media":        {"q1", "application/pdf", []byte("%PDF")},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r := newRouter(&fakeInterviews{submit: func(string, string, string, services.AnswerUpload) (*services.Turn, error) {
				t.Fatal("service must not be called")
				return nil, nil
			}})
			buf, ct := answerForm(t, tc.questionID, tc.mimeType, tc.body)
			req := httptest.NewRequest(http.MethodPost, "/interview/s1/answer", buf)
			req.Header.Set("Content-Type", ct)
			assert.Equal(t, http.StatusBadRequest, do(r, req).Code)
		})
	}
}

func TestSubmitAnswer_ConflictPassesThrough(t *testing.T) {
	svc := &fakeInterviews{submit: func(string, string, string, services.AnswerUpload) (*services.Turn, error) {
		return nil, utils.E(utils.CodeConflict, "fake", "question_id is not the current question", nil)
	}}
	r := newRouter(svc)

	buf, ct := answerForm(t, "old", "video/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/interview/s1/answer", buf)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "not the current question")
}

func TestSubmitAnswer_UnavailableAsksForRetry(t *testing.T) {
	svc := &fakeInterviews{submit: func(string, string, string, services.AnswerUpload) (*services.Turn, error) {
		return nil, utils.E(utils.CodeUnavailable, "fake", "failed to store answer recording", errors.New("gcs 503"))
	}}
	r := newRouter(svc)

	buf, ct := answerForm(t, "q1", "video/webm", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/interview/s1/answer", buf)
	req.Header.Set("Content-Type", ct)
	w := do(r, req)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "5", w.Header().Get("Retry-After"))
	assert.NotContains(t, w.Body.String(), "gcs 503")
}

func TestGetEndAndAnswers(t *testing.T) {
	svc := &fakeInterviews{rows: []models.AnswerLog{{
		QuestionID:     "q1",
		Question:       "Hi?",
		FeedbackStatus: models.FeedbackDone,
		Score:          8,
		Strengths:      []string{"clear"},
	}}}
	r := newRouter(svc)

	w := do(r, httptest.NewRequest(http.MethodGet, "/interview/s1", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var sess models.InterviewSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	require.NotNil(t, sess.RemainingSlots)
	assert.Equal(t, 4, *sess.RemainingSlots)

	w = do(r, httptest.NewRequest(http.MethodGet, "/interview/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, httptest.NewRequest(http.MethodPost, "/interview/s1/end", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ABANDONED"`)

	w = do(r, httptest.NewRequest(http.MethodGet, "/interview/s1/answers", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var list contract.AnswerListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list.Answers, 1)
	assert.Equal(t, "done", list.Answers[0].FeedbackStatus)
	assert.Equal(t, 8, list.Answers[0].Score)
}
