package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/services"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
)

// WSHandler streams feedback for a finished (or running) interview. Feedback that
// was produced before the client connected is replayed first.
type WSHandler struct {
	interviews services.InterviewService
	redis      *redis.Client
	upgrader   websocket.Upgrader
	log        *logrus.Entry
}

func NewWSHandler(interviews services.InterviewService, rdb *redis.Client, log *logrus.Logger) *WSHandler {
	return &WSHandler{
		interviews: interviews,
		redis:      rdb,
		log:        log.WithField("component", "ws"),
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeEvent(ev contract.FeedbackEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return w.writeText(b)
}

func (w *wsConn) closeNormal() {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "feedback complete"),
		time.Now().Add(wsWriteWait))
}

func (h *WSHandler) FeedbackWS(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	sessionID := c.Param("session_id")
	sess, err := h.interviews.Get(c.Request.Context(), userID, sessionID)
	if err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	log := h.log.WithField("session_id", sessionID)

	// subscribe before replaying so nothing published in between is lost
	pubsub := h.redis.Subscribe(ctx, services.FeedbackChannel(sessionID))
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		log.WithError(err).Warn("subscribe failed")
		return
	}

	complete, err := h.replay(ctx, wc, userID, sess)
	if err != nil {
		log.WithError(err).Warn("replay failed")
		return
	}
	if complete {
		wc.closeNormal()
		return
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	msgs := pubsub.Channel()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case m, ok := <-msgs:
			if !ok {
				return
			}
			if err := wc.writeText([]byte(m.Payload)); err != nil {
				return
			}
			var ev contract.FeedbackEvent
			if json.Unmarshal([]byte(m.Payload), &ev) == nil && ev.Type == contract.EventFeedbackComplete {
				wc.closeNormal()
				return
			}
		}
	}
}

// replay sends feedback already stored for the session. It reports whether the stream
// is finished, in which case feedback_complete has been sent too.
func (h *WSHandler) replay(ctx context.Context, wc *wsConn, userID string, sess *models.InterviewSession) (bool, error) {
	rows, err := h.interviews.ListAnswers(ctx, userID, sess.SessionID)
	if err != nil {
		return false, err
	}

	pending := 0
	for _, a := range rows {
		var ev contract.FeedbackEvent
		switch a.FeedbackStatus {
		case models.FeedbackDone:
			ev = contract.FeedbackEvent{
				Type:         contract.EventFeedback,
				SessionID:    sess.SessionID,
				QuestionID:   a.QuestionID,
				Score:        a.Score,
				Feedback:     a.Feedback,
				Strengths:    a.Strengths,
				Improvements: a.Improvements,
			}
		case models.FeedbackFailed:
			ev = contract.FeedbackEvent{Type: contract.EventFeedbackFailed, SessionID: sess.SessionID, QuestionID: a.QuestionID}
		default:
			pending++
			continue
		}
		if err := wc.writeEvent(ev); err != nil {
			return false, err
		}
	}

	if sess.Status != models.StatusInProgress && pending == 0 {
		return true, wc.writeEvent(contract.FeedbackEvent{Type: contract.EventFeedbackComplete, SessionID: sess.SessionID})
	}
	return false, wc.writeEvent(contract.FeedbackEvent{
		Type:      contract.EventStatus,
		SessionID: sess.SessionID,
		Message:   "waiting for feedback",
	})
}
