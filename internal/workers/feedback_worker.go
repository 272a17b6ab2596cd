package workers

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/providers/llm"
	mongorepo "github.com/yoockh/mockinterview/internal/repositories/mongo"
	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/services"
)

// FeedbackWorkerPool turns queued answers into coaching feedback and pushes the result
// to whoever is watching the session.
type FeedbackWorkerPool struct {
	Redis      *redis.Client
	Answers    services.AnswerService
	Sessions   mongorepo.SessionRepository
	LLM        llm.Provider
	NumWorkers int

	Logger *logrus.Logger

	Stream         string
	Group          string
	ConsumerPrefix string
}

// feedbackResult is the JSON shape the LLM answers with.
type feedbackResult struct {
	Score        int      `json:"score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Improvements []string `json:"improvements"`
}

// Start creates the consumer group and launches the consumers. They stop with ctx.
func (p *FeedbackWorkerPool) Start(ctx context.Context) error {
	if p.Redis == nil || p.Answers == nil || p.Sessions == nil || p.LLM == nil {
		return errors.New("FeedbackWorkerPool missing dependency: Redis/Answers/Sessions/LLM must be set")
	}
	p.defaults()

	_ = p.Redis.XGroupCreateMkStream(ctx, p.Stream, p.Group, "0").Err() // ignore BUSYGROUP

	for i := 0; i < p.NumWorkers; i++ {
		consumer := p.ConsumerPrefix + "-" + strconv.Itoa(i+1)
		go p.runConsumer(ctx, consumer)
	}
	p.Logger.WithFields(logrus.Fields{"stream": p.Stream, "workers": p.NumWorkers}).Info("feedback workers started")
	return nil
}

func (p *FeedbackWorkerPool) defaults() {
	if p.Stream == "" {
		p.Stream = "answer:stream"
	}
	if p.Group == "" {
		p.Group = "feedback-workers"
	}
	if p.ConsumerPrefix == "" {
		p.ConsumerPrefix = "c"
	}
	if p.NumWorkers <= 0 {
		p.NumWorkers = 3
	}
	if p.Logger == nil {
		p.Logger = logrus.New()
	}
}

func (p *FeedbackWorkerPool) runConsumer(ctx context.Context, consumer string) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := p.Redis.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    p.Group,
			Consumer: consumer,
			Streams:  []string{p.Stream, ">"},
			Count:    10,
			Block:    5 * time.Second,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			p.Logger.WithError(err).WithField("consumer", consumer).Warn("xreadgroup failed")
			time.Sleep(500 * time.Millisecond)
			continue
		}

		for _, stream := range res {
			for _, msg := range stream.Messages {
				p.handleMsg(ctx, msg)
				_ = p.Redis.XAck(ctx, p.Stream, p.Group, msg.ID).Err()
			}
		}
	}
}

func (p *FeedbackWorkerPool) handleMsg(ctx context.Context, msg redis.XMessage) {
	getStr := func(k string) string {
		v, ok := msg.Values[k]
		if !ok || v == nil {
			return ""
		}
		s, _ := v.(string)
		return s
	}

	answerID := getStr(services.FieldAnswerID)
	sessionID := getStr(services.FieldSessionID)
	if answerID == "" || sessionID == "" {
		return
	}

	log := p.Logger.WithFields(logrus.Fields{
		"redis_id":   msg.ID,
		"session_id": sessionID,
		"answer_id":  answerID,
	})

	answer, err := p.Answers.Get(ctx, answerID)
	if err != nil {
		log.WithError(err).Error("load answer failed")
		return
	}
	if answer.FeedbackStatus != models.FeedbackPending {
		// redelivered after a crash between store and ack
		p.maybeComplete(ctx, log, sessionID)
		return
	}

	if strings.TrimSpace(answer.Transcript) == "" {
		p.fail(ctx, log, answer, "no transcript available for this answer")
		p.maybeComplete(ctx, log, sessionID)
		return
	}

	start := time.Now()
	var fb feedbackResult
	if err := llm.GenerateJSON(ctx, p.LLM, feedbackPrompt(answer, getStr(services.FieldLanguage)), &fb); err != nil {
		log.WithError(err).Error("llm feedback failed")
		p.fail(ctx, log, answer, "feedback generation failed")
		p.maybeComplete(ctx, log, sessionID)
		return
	}
	fb.Score = clampScore(fb.Score)

	if err := p.Answers.MarkFeedback(ctx, answer.ID, pgrepo.FeedbackUpdate{
		Status:       models.FeedbackDone,
		Feedback:     fb.Summary,
		Score:        fb.Score,
		Strengths:    fb.Strengths,
		Improvements: fb.Improvements,
	}); err != nil {
		log.WithError(err).Error("store feedback failed")
		return
	}
	log.WithField("processing_ms", time.Since(start).Milliseconds()).Info("feedback stored")

	p.publish(ctx, log, contract.FeedbackEvent{
		Type:         contract.EventFeedback,
		SessionID:    sessionID,
		QuestionID:   answer.QuestionID,
		Score:        fb.Score,
		Feedback:     fb.Summary,
		Strengths:    fb.Strengths,
		Improvements: fb.Improvements,
	})
	p.maybeComplete(ctx, log, sessionID)
}

func (p *FeedbackWorkerPool) fail(ctx context.Context, log *logrus.Entry, answer *models.AnswerLog, reason string) {
	if err := p.Answers.MarkFeedback(ctx, answer.ID, pgrepo.FeedbackUpdate{Status: models.FeedbackFailed}); err != nil {
		log.WithError(err).Error("mark feedback failed")
	}
	p.publish(ctx, log, contract.FeedbackEvent{
		Type:       contract.EventFeedbackFailed,
		SessionID:  answer.SessionID,
		QuestionID: answer.QuestionID,
		Message:    reason,
	})
}

// maybeComplete announces the end of the feedback stream once the session is over and
// no answer is still waiting.
func (p *FeedbackWorkerPool) maybeComplete(ctx context.Context, log *logrus.Entry, sessionID string) {
	sess, err := p.Sessions.GetBySessionID(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("load session failed")
		return
	}
	if sess.Status == models.StatusInProgress {
		return
	}
	pending, err := p.Answers.PendingCount(ctx, sessionID)
	if err != nil {
		log.WithError(err).Warn("count pending feedback failed")
		return
	}
	if pending > 0 {
		return
	}
	p.publish(ctx, log, contract.FeedbackEvent{Type: contract.EventFeedbackComplete, SessionID: sessionID})
}

func (p *FeedbackWorkerPool) publish(ctx context.Context, log *logrus.Entry, ev contract.FeedbackEvent) {
	payload, _ := json.Marshal(ev)
	if err := p.Redis.Publish(ctx, services.FeedbackChannel(ev.SessionID), string(payload)).Err(); err != nil {
		log.WithError(err).WithField("type", ev.Type).Warn("publish feedback event failed")
	}
}

func feedbackPrompt(a *models.AnswerLog, language string) string {
	lang := "English"
	if strings.HasPrefix(language, "id") {
		lang = "Indonesian"
	}
	var sb strings.Builder
	sb.WriteString("You are an interview coach. Review the candidate's answer and write the feedback in " + lang + ".\n")
	sb.WriteString("Question:\n" + a.Question + "\n")
	sb.WriteString("Answer (speech transcript):\n" + a.Transcript + "\n")
	sb.WriteString("Score from 0 to 10, rewarding structure and concrete evidence. ")
	sb.WriteString(`Reply with JSON only: {"score": int, "summary": string, "strengths": [string], "improvements": [string]}`)
	return sb.String()
}

func clampScore(n int) int {
	switch {
	case n < 0:
		return 0
	case n > 10:
		return 10
	default:
		return n
	}
}
