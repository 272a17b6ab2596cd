// Package feedback follows the AI feedback stream of a finished interview.
package feedback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/utils"
)

const ioTimeout = 10 * time.Second

type Watcher struct {
	baseURL string
	token   string
	dialer  websocket.Dialer
	log     *logrus.Entry
}

func NewWatcher(cfg config.ClientConfig, log *logrus.Logger) *Watcher {
	return &Watcher{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		dialer:  websocket.Dialer{HandshakeTimeout: ioTimeout},
		log:     log.WithField("component", "feedback"),
	}
}

// Subscription delivers feedback events until feedback_complete, ctx cancellation
// or a connection error. Events is closed at the end; Err tells why.
type Subscription struct {
	conn   *websocket.Conn
	events chan contract.FeedbackEvent
	done   chan struct{}

	mu  sync.Mutex
	err error

	closeOnce sync.Once
}

func (s *Subscription) Events() <-chan contract.FeedbackEvent { return s.events }

func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err is nil when the stream ended with feedback_complete.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(500*time.Millisecond))
		_ = s.conn.Close()
	})
	return nil
}

func (w *Watcher) Watch(ctx context.Context, sessionID string) (*Subscription, error) {
	const op = "FeedbackWatcher.Watch"

	if sessionID == "" {
		return nil, utils.E(utils.CodeInvalidArgument, op, "session_id is required", nil)
	}
	target, err := wsURL(w.baseURL, sessionID)
	if err != nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "invalid base url", err)
	}

	header := http.Header{}
	if w.token != "" {
		header.Set("Authorization", "Bearer "+w.token)
	}
	conn, resp, err := w.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return nil, utils.E(utils.CodeSessionTransport, op, "feedback stream rejected: "+resp.Status, err)
		}
		return nil, utils.E(utils.CodeSessionTransport, op, "dial feedback stream", err)
	}

	s := &Subscription{
		conn:   conn,
		events: make(chan contract.FeedbackEvent, 16),
		done:   make(chan struct{}),
	}
	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.done:
		}
	}()
	go w.readLoop(ctx, s, sessionID)
	return s, nil
}

func (w *Watcher) readLoop(ctx context.Context, s *Subscription, sessionID string) {
	const op = "FeedbackWatcher.readLoop"

	defer close(s.done)
	defer close(s.events)
	defer s.Close()

	finish := func(err error) {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
	}

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				finish(ctx.Err())
				return
			}
			finish(utils.E(utils.CodeSessionTransport, op, "feedback stream closed", err))
			return
		}

		var ev contract.FeedbackEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			w.log.WithError(err).WithField("session_id", sessionID).Warn("skip malformed feedback event")
			continue
		}

		select {
		case s.events <- ev:
		case <-ctx.Done():
			finish(ctx.Err())
			return
		}

		if ev.Type == contract.EventFeedbackComplete {
			finish(nil)
			return
		}
	}
}

func wsURL(base, sessionID string) (string, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = u.Path + "/ws/interview/" + url.PathEscape(sessionID)
	return u.String(), nil
}
