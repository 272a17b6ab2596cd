// Package runloop drives one interview attempt: question delivery, the read and answer
// countdowns, recording, and answer submission.
//
// All state lives in one value owned by a single goroutine. Timer ticks, async results
// and user actions arrive as events; reduce turns each event into the next state plus a
// list of effects that the runner performs.
package runloop

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/sessionclient"
	"github.com/yoockh/mockinterview/internal/utils"
)

type Deps struct {
	Media  Media
	Audio  Audio
	Client sessionclient.Client // required in AI_RESUME_DRIVEN mode
	Clock  Clock
}

type Loop struct {
	media  Media
	audio  Audio
	client sessionclient.Client
	local  *sessionclient.FixedList
	clock  Clock
	log    *logrus.Entry

	events   chan event
	updates  chan View
	done     chan struct{}
	doneOnce sync.Once

	mu      sync.Mutex
	st      state
	started bool

	// owned by the run goroutine
	ctx      context.Context
	cancel   context.CancelFunc
	ticker   Ticker
	cue      Ticker
	cueSeq   uint64
	audioC   <-chan struct{}
	audioSeq uint64
	finished bool
}

func New(cfg Config, deps Deps, log *logrus.Logger) (*Loop, error) {
	const op = "InterviewRunLoop.New"

	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if deps.Media == nil {
		return nil, utils.E(utils.CodeInvalidArgument, op, "media manager is required", nil)
	}

	l := &Loop{
		media:   deps.Media,
		audio:   deps.Audio,
		client:  deps.Client,
		clock:   deps.Clock,
		log:     log.WithField("component", "runloop"),
		events:  make(chan event),
		updates: make(chan View, 1),
		done:    make(chan struct{}),
		st:      newState(cfg),
	}
	if l.audio == nil {
		l.audio = silent{}
	}
	if l.clock == nil {
		l.clock = realClock{}
	}

	switch cfg.Mode {
	case models.ModeFixedList:
		l.local = sessionclient.NewFixedList(cfg.Questions)
		l.client = l.local
	default:
		if l.client == nil {
			return nil, utils.E(utils.CodeInvalidArgument, op, "session client is required", nil)
		}
	}
	return l, nil
}

// Start acquires the devices and fetches the first question. Failures show up in
// View().Err and close Done.
func (l *Loop) Start(ctx context.Context) error {
	const op = "InterviewRunLoop.Start"

	l.mu.Lock()
	if l.started || l.st.exited {
		l.mu.Unlock()
		return utils.E(utils.CodeConflict, op, "run loop already started or exited", nil)
	}
	l.started = true
	l.mu.Unlock()

	l.ctx, l.cancel = context.WithCancel(ctx)
	go l.run()
	l.post(evStart{})
	return nil
}

// SubmitNow ends the current answer. It is ignored outside ANSWERING.
func (l *Loop) SubmitNow() { l.post(evSubmitNow{}) }

// RetrySubmit uploads the kept answer again after a failed upload.
func (l *Loop) RetrySubmit() { l.post(evRetry{}) }

// Exit stops recording, releases the devices, stops audio and cancels timers, then
// returns once the loop is gone. Responses still in flight are dropped.
func (l *Loop) Exit() {
	l.mu.Lock()
	if !l.started {
		already := l.st.exited
		l.st.exited = true
		l.mu.Unlock()
		if !already {
			l.release()
			l.audio.Stop()
			l.closeDone()
		}
		return
	}
	l.mu.Unlock()

	l.post(evExit{})
	<-l.done
}

func (l *Loop) Done() <-chan struct{} { return l.done }

// Updates delivers the latest view after every change. Slow readers only miss
// intermediate views.
func (l *Loop) Updates() <-chan View { return l.updates }

// LocalAnswers returns the recorded answers of a FIXED_LIST session.
func (l *Loop) LocalAnswers() []sessionclient.Answer {
	if l.local == nil {
		return nil
	}
	return l.local.Answers()
}

func (l *Loop) post(ev event) {
	select {
	case l.events <- ev:
	case <-l.done:
	}
}

func (l *Loop) run() {
	defer l.closeDone()
	defer l.stopTicker()
	defer l.stopCue()

	for !l.finished {
		var tickC, cueC <-chan time.Time
		if l.ticker != nil {
			tickC = l.ticker.Chan()
		}
		if l.cue != nil {
			cueC = l.cue.Chan()
		}

		select {
		case ev := <-l.events:
			l.dispatch(ev)
		case <-tickC:
			l.dispatch(evTick{})
		case <-cueC:
			seq := l.cueSeq
			l.stopCue()
			l.dispatch(evCueElapsed{seq: seq})
		case <-l.audioC:
			seq := l.audioSeq
			l.audioC = nil
			l.dispatch(evAudioDone{seq: seq})
		case <-l.ctx.Done():
			l.dispatch(evExit{})
		}
	}
}

// dispatch feeds ev and every event produced synchronously by its effects through reduce.
func (l *Loop) dispatch(ev event) {
	queue := []event{ev}
	for len(queue) > 0 {
		ev, queue = queue[0], queue[1:]

		l.mu.Lock()
		prev := l.st
		next, effs := reduce(prev, ev, l.clock.Now())
		l.st = next
		l.mu.Unlock()

		l.logTransition(prev, next)
		for _, eff := range effs {
			if follow := l.apply(eff); follow != nil {
				queue = append(queue, follow)
			}
		}
	}
	l.publish()
}

func (l *Loop) apply(eff effect) event {
	switch e := eff.(type) {
	case effAcquire:
		go func() {
			_, err := l.media.Acquire(l.ctx, e.c)
			l.post(evAcquired{err: err})
		}()

	case effStartSession:
		go func() {
			q, err := l.client.StartSession(l.ctx, e.ref)
			l.post(evStarted{q: q, err: err})
		}()

	case effShowCue:
		l.stopCue()
		l.cue = l.clock.NewTimer(e.d)
		l.cueSeq = e.seq

	case effHideCue:
		l.stopCue()

	case effPlayAudio:
		l.audioSeq = e.seq
		l.audioC = l.audio.Play(l.ctx, e.clip)

	case effStopAudio:
		l.audio.Stop()
		l.audioC = nil

	case effArmTicker:
		l.stopTicker()
		l.ticker = l.clock.NewTicker(time.Second)

	case effDisarmTicker:
		l.stopTicker()

	case effStartRecording:
		return evRecordingStarted{err: l.media.StartRecording()}

	case effStopRecording:
		blob, err := l.media.StopRecording()
		return evRecordingStopped{blob: blob, err: err}

	case effAbortRecording:
		if _, err := l.media.StopRecording(); err != nil {
			l.log.WithError(err).Warn("stop recording on teardown")
		}

	case effSubmit:
		// The upload is not cancelled by Exit; its result is dropped instead.
		ctx := context.WithoutCancel(l.ctx)
		go func() {
			out, err := l.client.SubmitAnswer(ctx, e.sessionID, e.questionID, e.blob)
			l.post(evSubmitted{attempt: e.attempt, outcome: out, err: err})
		}()

	case effRelease:
		l.release()

	case effFinish:
		l.finished = true
		l.cancel()
	}
	return nil
}

func (l *Loop) release() {
	if err := l.media.Release(); err != nil {
		l.log.WithError(err).Warn("release media")
	}
}

func (l *Loop) stopTicker() {
	if l.ticker != nil {
		l.ticker.Stop()
		l.ticker = nil
	}
}

func (l *Loop) stopCue() {
	if l.cue != nil {
		l.cue.Stop()
		l.cue = nil
	}
}

func (l *Loop) closeDone() {
	l.doneOnce.Do(func() { close(l.done) })
}

func (l *Loop) publish() {
	v := l.View()
	select {
	case <-l.updates:
	default:
	}
	select {
	case l.updates <- v:
	default:
	}
}

func (l *Loop) logTransition(prev, next state) {
	entry := l.log.WithFields(logrus.Fields{
		"session_id":  next.sessionID,
		"question_id": next.ps.question.QuestionID,
	})
	if prev.phase != next.phase {
		entry.WithFields(logrus.Fields{"from": prev.phase, "to": next.phase}).Debug("phase change")
	}
	if next.err != nil && next.err != prev.err {
		entry.WithError(next.err).WithField("code", utils.CodeOf(next.err)).Error("interview halted")
	}
	if next.exited && !prev.exited {
		entry.WithField("phase", next.phase).Info("interview exited")
	}
}

type silent struct{}

func (silent) Play(context.Context, string) <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

func (silent) Stop() {}
