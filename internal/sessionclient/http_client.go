package sessionclient

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/utils"
)

// HTTPClient talks to the interview service. It never retries on its own: a failed
// submit is repeated only when the user asks for it.
type HTTPClient struct {
	r   *resty.Client
	log *logrus.Entry
}

func NewHTTPClient(cfg config.ClientConfig, log *logrus.Logger) *HTTPClient {
	r := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout()).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if cfg.Token != "" {
		r.SetAuthToken(cfg.Token)
	}
	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("X-Request-Id", uuid.NewString())
		return nil
	})

	return &HTTPClient{r: r, log: log.WithField("component", "sessionclient")}
}

func (c *HTTPClient) StartSession(ctx context.Context, sessionRef string) (Question, error) {
	const op = "InterviewSessionClient.StartSession"

	sessionRef = strings.TrimSpace(sessionRef)
	if sessionRef == "" {
		return Question{}, utils.E(utils.CodeInvalidArgument, op, "session_ref is required", nil)
	}

	var out contract.QuestionResponse
	var apiErr contract.APIError
	resp, err := c.r.R().
		SetContext(ctx).
		SetBody(contract.StartRequest{SessionRef: sessionRef}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/interview/start")
	if err != nil {
		return Question{}, utils.E(utils.CodeSessionTransport, op, "start request failed", err)
	}
	if resp.IsError() {
		return Question{}, utils.E(utils.CodeSessionTransport, op, rejected(resp, apiErr), nil)
	}
	if err := contract.Validate(&out); err != nil {
		return Question{}, utils.E(utils.CodeSessionTransport, op, "invalid start response", err)
	}

	c.log.WithFields(logrus.Fields{"session_id": out.SessionID, "question_id": out.QuestionID}).Debug("session started")
	return fromStart(out), nil
}

func (c *HTTPClient) SubmitAnswer(ctx context.Context, sessionID, questionID string, answer media.Blob) (Outcome, error) {
	const op = "InterviewSessionClient.SubmitAnswer"

	if sessionID == "" || questionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id and question_id are required", nil)
	}
	if answer.IsZero() {
		return nil, utils.E(utils.CodeInvalidArgument, op, "answer blob is empty", nil)
	}

	var out contract.SubmitResponse
	var apiErr contract.APIError
	resp, err := c.r.R().
		SetContext(ctx).
		SetPathParam("session_id", sessionID).
		SetMultipartFormData(map[string]string{"question_id": questionID}).
		SetMultipartField("answer", "answer"+contract.ExtensionFor(answer.MimeType()), answer.MimeType(), answer.Reader()).
		SetResult(&out).
		SetError(&apiErr).
		Post("/interview/{session_id}/answer")
	if err != nil {
		return nil, utils.E(utils.CodeSessionTransport, op, "submit request failed", err)
	}
	if resp.IsError() {
		return nil, utils.E(utils.CodeSessionTransport, op, rejected(resp, apiErr), nil)
	}
	if err := contract.Validate(&out); err != nil {
		return nil, utils.E(utils.CodeSessionTransport, op, "invalid submit response", err)
	}

	c.log.WithFields(logrus.Fields{
		"session_id":  sessionID,
		"question_id": questionID,
		"status":      out.Status,
	}).Debug("answer submitted")
	return fromSubmit(sessionID, out), nil
}

// EndSession tells the service the user left early. Best effort.
func (c *HTTPClient) EndSession(ctx context.Context, sessionID string) error {
	const op = "InterviewSessionClient.EndSession"

	var apiErr contract.APIError
	resp, err := c.r.R().
		SetContext(ctx).
		SetPathParam("session_id", sessionID).
		SetError(&apiErr).
		Post("/interview/{session_id}/end")
	if err != nil {
		return utils.E(utils.CodeSessionTransport, op, "end request failed", err)
	}
	if resp.IsError() {
		return utils.E(utils.CodeSessionTransport, op, rejected(resp, apiErr), nil)
	}
	return nil
}

// ListAnswers fetches the per-answer feedback for the feedback view.
func (c *HTTPClient) ListAnswers(ctx context.Context, sessionID string) ([]contract.AnswerView, error) {
	const op = "InterviewSessionClient.ListAnswers"

	var out contract.AnswerListResponse
	var apiErr contract.APIError
	resp, err := c.r.R().
		SetContext(ctx).
		SetPathParam("session_id", sessionID).
		SetResult(&out).
		SetError(&apiErr).
		Get("/interview/{session_id}/answers")
	if err != nil {
		return nil, utils.E(utils.CodeSessionTransport, op, "list request failed", err)
	}
	if resp.IsError() {
		return nil, utils.E(utils.CodeSessionTransport, op, rejected(resp, apiErr), nil)
	}
	return out.Answers, nil
}

func rejected(resp *resty.Response, apiErr contract.APIError) string {
	if apiErr.Message != "" {
		return fmt.Sprintf("server rejected request (%d %s): %s", resp.StatusCode(), apiErr.Code, apiErr.Message)
	}
	return fmt.Sprintf("server rejected request (%d)", resp.StatusCode())
}
