package sessionclient

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/utils"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewHTTPClient(config.ClientConfig{BaseURL: srv.URL, Token: "tok", TimeoutSeconds: 5}, logger.Discard())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestStartSession(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/interview/start", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		var req contract.StartRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "resume-42", req.SessionRef)

		writeJSON(w, http.StatusCreated, contract.QuestionResponse{
			SessionID:  "s1",
			QuestionID: "q1",
			Text:       "Tell me about yourself",
		})
	})

	q, err := c.StartSession(t.Context(), "resume-42")
	require.NoError(t, err)
	assert.Equal(t, "s1", q.SessionID)
	assert.Equal(t, "q1", q.QuestionID)
	assert.Equal(t, "Tell me about yourself", q.Text)
	assert.False(t, q.IsFollowUp)
	assert.Empty(t, q.AudioCue)
	assert.Nil(t, q.RemainingSlots)
}

func TestStartSession_MissingRef(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.StartSession(t.Context(), "  ")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestStartSession_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, contract.APIError{Code: "NOT_FOUND", Message: "unknown ref"})
	})

	_, err := c.StartSession(t.Context(), "nope")
	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeSessionTransport))
	assert.Contains(t, err.Error(), "unknown ref")
}

func TestStartSession_InvalidResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"session_id": "s1", "question_id": "q1"})
	})

	_, err := c.StartSession(t.Context(), "ref")
	assert.True(t, utils.IsCode(err, utils.CodeSessionTransport))
}

func TestSubmitAnswer_Continue(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/interview/s1/answer", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "q1", r.FormValue("question_id"))

		f, hdr, err := r.FormFile("answer")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "webm-bytes", string(body))
		assert.Equal(t, "answer.webm", hdr.Filename)
		assert.Equal(t, "video/webm", hdr.Header.Get("Content-Type"))

		writeJSON(w, http.StatusOK, contract.SubmitResponse{
			Status:     contract.StatusContinue,
			QuestionID: "q2",
			Text:       "Give an example",
			IsFollowUp: true,
		})
	})

	out, err := c.SubmitAnswer(t.Context(), "s1", "q1", media.NewBlob([]byte("webm-bytes"), "video/webm"))
	require.NoError(t, err)

	next, ok := out.(Continue)
	require.True(t, ok)
	assert.Equal(t, "s1", next.Question.SessionID)
	assert.Equal(t, "q2", next.Question.QuestionID)
	assert.True(t, next.Question.IsFollowUp)
}

func TestSubmitAnswer_Completed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, contract.SubmitResponse{Status: contract.StatusCompleted})
	})

	out, err := c.SubmitAnswer(t.Context(), "s1", "q5", media.NewBlob([]byte("x"), "video/webm"))
	require.NoError(t, err)
	assert.Equal(t, Completed{}, out)
}

func TestSubmitAnswer_RejectsMalformedUnion(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown status":          {"status": "paused"},
		"continue without text":   {"status": "continue", "question_id": "q2"},
		"continue without id":     {"status": "continue", "text": "Next?"},
		"audio is not base64":     {"status": "continue", "question_id": "q2", "text": "Next?", "audio_base64": "***"},
		"negative remaining slot": {"status": "continue", "question_id": "q2", "text": "Next?", "remaining_slots": -1},
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, payload)
			})
			_, err := c.SubmitAnswer(t.Context(), "s1", "q1", media.NewBlob([]byte("x"), "video/webm"))
			assert.True(t, utils.IsCode(err, utils.CodeSessionTransport), "got %v", err)
		})
	}
}

func TestSubmitAnswer_ServerError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, contract.APIError{Code: "INTERNAL", Message: "boom"})
	})

	_, err := c.SubmitAnswer(t.Context(), "s1", "q1", media.NewBlob([]byte("x"), "video/webm"))
	assert.True(t, utils.IsCode(err, utils.CodeSessionTransport))
}

func TestSubmitAnswer_EmptyBlob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := c.SubmitAnswer(t.Context(), "s1", "q1", media.Blob{})
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}

func TestEndSessionAndListAnswers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/interview/s1/end":
			writeJSON(w, http.StatusOK, map[string]string{"status": "ABANDONED"})
		case "/interview/s1/answers":
			writeJSON(w, http.StatusOK, contract.AnswerListResponse{
				SessionID: "s1",
				Answers:   []contract.AnswerView{{QuestionID: "q1", Score: 7, FeedbackStatus: "done"}},
			})
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, c.EndSession(t.Context(), "s1"))

	answers, err := c.ListAnswers(t.Context(), "s1")
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, 7, answers[0].Score)
}
