package runloop

import (
	"errors"
	"time"

	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/sessionclient"
	"github.com/yoockh/mockinterview/internal/utils"
)

// reduce is the whole state machine. It returns the next state and the effects the
// runner must perform, in order. Events that do not fit the current state are dropped.
func reduce(s state, ev event, now time.Time) (state, []effect) {
	if s.exited {
		return s, nil
	}

	switch ev := ev.(type) {
	case evExit:
		s.exited = true
		effs := teardown(s)
		s.ps.recording = false
		s.ps.audioPlaying = false
		s.ps.cueVisible = false
		return s, effs

	case evStart:
		if s.phase != PhaseNotStarted || s.halted {
			return s, nil
		}
		s.phase = PhaseStarting
		return s, []effect{effAcquire{c: s.cfg.Constraints}}

	case evAcquired:
		if s.phase != PhaseStarting {
			return s, nil
		}
		if ev.err != nil {
			return startFailed(s, surface("InterviewRunLoop.Start", ev.err, utils.CodeDeviceUnavailable, "camera/microphone unavailable"))
		}
		return s, []effect{effStartSession{ref: s.cfg.SessionRef}}

	case evStarted:
		if s.phase != PhaseStarting {
			return s, nil
		}
		if ev.err != nil {
			return startFailed(s, utils.E(utils.CodeSessionTransport, "InterviewRunLoop.Start", "could not start the session", ev.err))
		}
		s.sessionID = ev.q.SessionID
		s.status = models.StatusInProgress
		return load(s, ev.q, now)

	case evCueElapsed:
		if s.phase != PhaseAwaitingAudio || !s.ps.cueVisible || ev.seq != s.ps.seq {
			return s, nil
		}
		s.ps.cueVisible = false
		return present(s, now, nil)

	case evAudioDone:
		if s.phase != PhaseAwaitingAudio || !s.ps.audioPlaying || ev.seq != s.ps.seq {
			return s, nil
		}
		s.ps.audioPlaying = false
		return enterReading(s, now, nil)

	case evTick:
		return tick(s)

	case evRecordingStarted:
		if s.phase != PhaseReading || s.ps.readRemaining != 0 || s.ps.recording || s.halted {
			return s, nil
		}
		if ev.err != nil {
			return fatal(s, surface("InterviewRunLoop.StartRecording", ev.err, utils.CodeRecordingState, "recording could not start"))
		}
		s.phase = PhaseAnswering
		s.ps.recording = true
		if s.answerRemaining <= 0 {
			return beginSubmit(s)
		}
		return s, []effect{effArmTicker{}}

	case evSubmitNow:
		if s.phase != PhaseAnswering || s.halted {
			return s, nil
		}
		return beginSubmit(s)

	case evRecordingStopped:
		if s.phase != PhaseSubmitting || s.blob != nil {
			return s, nil
		}
		s.ps.recording = false
		if ev.err != nil {
			// Nothing to upload: stay in ANSWERING and report.
			s.phase = PhaseAnswering
			if !errors.Is(ev.err, media.ErrNotRecording) {
				return fatal(s, surface("InterviewRunLoop.Submit", ev.err, utils.CodeRecordingState, "recording failed"))
			}
			s.halted = true
			s.err = utils.E(utils.CodeInvariantViolation, "InterviewRunLoop.Submit", "submit requested with no active recording", ev.err)
			return s, nil
		}
		blob := ev.blob
		s.blob = &blob
		return submit(s)

	case evSubmitted:
		if s.phase != PhaseSubmitting || s.halted || ev.attempt != s.attempt {
			return s, nil
		}
		if ev.err != nil {
			s.halted = true
			// every session client failure is a transport error to the presenter,
			// whatever code the client attached
			s.err = utils.E(utils.CodeSessionTransport, "InterviewRunLoop.Submit", "answer upload failed", ev.err)
			return s, nil
		}
		switch out := ev.outcome.(type) {
		case sessionclient.Completed:
			s.blob = nil
			s.phase = PhaseCompleted
			s.status = models.StatusCompleted
			return s, teardown(s)
		case sessionclient.Continue:
			s.blob = nil
			return load(s, out.Question, now)
		default:
			s.halted = true
			s.err = utils.E(utils.CodeInvariantViolation, "InterviewRunLoop.Submit", "unknown submit outcome", nil)
			return s, nil
		}

	case evRetry:
		if s.phase != PhaseSubmitting || !s.halted || s.blob == nil {
			return s, nil
		}
		s.halted = false
		s.err = nil
		return submit(s)
	}

	return s, nil
}

func tick(s state) (state, []effect) {
	if s.halted {
		return s, nil
	}
	switch s.phase {
	case PhaseReading:
		if s.ps.readRemaining == 0 {
			return s, nil
		}
		s.ps.readRemaining--
		if s.ps.readRemaining == 0 {
			return enterAnswering(s, []effect{effDisarmTicker{}})
		}
	case PhaseAnswering:
		if s.answerRemaining > 0 {
			s.answerRemaining--
		}
		if s.answerRemaining == 0 {
			return beginSubmit(s)
		}
	}
	return s, nil
}

// load replaces the phase state with a fresh one for q.
func load(s state, q sessionclient.Question, now time.Time) (state, []effect) {
	s.ps = phaseState{seq: s.ps.seq + 1, question: q}
	s.phase = PhaseAwaitingAudio
	if q.RemainingSlots != nil {
		n := *q.RemainingSlots
		s.slots = &n
	}

	if q.IsFollowUp && s.cfg.FollowUpCueDuration > 0 {
		s.ps.cueVisible = true
		return s, []effect{effShowCue{seq: s.ps.seq, d: s.cfg.FollowUpCueDuration}}
	}
	return present(s, now, nil)
}

// present plays the audio cue, or goes straight to READING when there is none.
func present(s state, now time.Time, effs []effect) (state, []effect) {
	if s.ps.question.AudioCue == "" {
		return enterReading(s, now, effs)
	}
	s.ps.audioPlaying = true
	return s, append(effs, effPlayAudio{seq: s.ps.seq, clip: s.ps.question.AudioCue})
}

func enterReading(s state, now time.Time, effs []effect) (state, []effect) {
	q := s.ps.question
	s.log = append(s.log, models.AskedQuestion{
		QuestionID: q.QuestionID,
		Text:       q.Text,
		IsFollowUp: q.IsFollowUp,
		IsFinal:    q.IsFinal,
		AudioCue:   q.AudioCue,
		AskedAt:    now.UTC(),
	})

	s.phase = PhaseReading
	s.ps.readRemaining = seconds(s.cfg.ReadDuration)
	if s.ps.readRemaining <= 0 {
		s.ps.readRemaining = 0
		return enterAnswering(s, effs)
	}
	return s, append(effs, effArmTicker{})
}

// enterAnswering asks for the recorder; the phase changes once it confirms.
func enterAnswering(s state, effs []effect) (state, []effect) {
	return s, append(effs, effStartRecording{})
}

func beginSubmit(s state) (state, []effect) {
	s.phase = PhaseSubmitting
	return s, []effect{effDisarmTicker{}, effStopRecording{}}
}

func submit(s state) (state, []effect) {
	s.attempt++
	return s, []effect{effSubmit{
		attempt:    s.attempt,
		sessionID:  s.sessionID,
		questionID: s.ps.question.QuestionID,
		blob:       *s.blob,
	}}
}

func startFailed(s state, err error) (state, []effect) {
	s.phase = PhaseNotStarted
	s.halted = true
	s.err = err
	return s, []effect{effRelease{}, effFinish{}}
}

func fatal(s state, err error) (state, []effect) {
	s.halted = true
	s.err = err
	effs := teardown(s)
	s.ps.recording = false
	return s, effs
}

// teardown releases everything in exit order: recorder, stream, audio, timers.
func teardown(s state) []effect {
	var effs []effect
	if s.ps.recording {
		effs = append(effs, effAbortRecording{})
	}
	return append(effs,
		effRelease{},
		effStopAudio{},
		effDisarmTicker{},
		effHideCue{},
		effFinish{},
	)
}

// surface keeps the code of an AppError from the device layer and falls back to code
// for anything else.
func surface(op string, err error, code utils.Code, msg string) error {
	var ae *utils.AppError
	if errors.As(err, &ae) {
		code = ae.Code
	}
	return utils.E(code, op, msg, err)
}
