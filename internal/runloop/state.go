package runloop

import (
	"time"

	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/sessionclient"
)

type Phase string

const (
	PhaseNotStarted    Phase = "NOT_STARTED"
	PhaseStarting      Phase = "STARTING"
	PhaseAwaitingAudio Phase = "AWAITING_AUDIO"
	PhaseReading       Phase = "READING"
	PhaseAnswering     Phase = "ANSWERING"
	PhaseSubmitting    Phase = "SUBMITTING"
	PhaseCompleted     Phase = "COMPLETED"
)

// phaseState belongs to one question. It is replaced, never reset, when the next
// question arrives.
type phaseState struct {
	seq      uint64
	question sessionclient.Question

	cueVisible    bool
	audioPlaying  bool
	readRemaining int
	recording     bool
}

type state struct {
	cfg Config

	phase     Phase
	status    models.SessionStatus
	sessionID string
	log       []models.AskedQuestion
	slots     *int

	ps              phaseState
	answerRemaining int

	// answer kept until the service accepts it
	blob    *media.Blob
	attempt uint64

	halted bool
	exited bool
	err    error
}

func newState(cfg Config) state {
	return state{
		cfg:             cfg,
		phase:           PhaseNotStarted,
		answerRemaining: seconds(cfg.AnswerBudget),
	}
}

// terminal reports whether the loop has nothing left to do.
func (s state) terminal() bool {
	return s.exited || s.phase == PhaseCompleted || (s.halted && s.phase == PhaseNotStarted)
}

type event interface{ isEvent() }

type (
	evStart    struct{}
	evAcquired struct{ err error }
	evStarted  struct {
		q   sessionclient.Question
		err error
	}
	evCueElapsed       struct{ seq uint64 }
	evAudioDone        struct{ seq uint64 }
	evTick             struct{}
	evRecordingStarted struct{ err error }
	evRecordingStopped struct {
		blob media.Blob
		err  error
	}
	evSubmitted struct {
		attempt uint64
		outcome sessionclient.Outcome
		err     error
	}
	evSubmitNow struct{}
	evRetry     struct{}
	evExit      struct{}
)

func (evStart) isEvent()            {}
func (evAcquired) isEvent()         {}
func (evStarted) isEvent()          {}
func (evCueElapsed) isEvent()       {}
func (evAudioDone) isEvent()        {}
func (evTick) isEvent()             {}
func (evRecordingStarted) isEvent() {}
func (evRecordingStopped) isEvent() {}
func (evSubmitted) isEvent()        {}
func (evSubmitNow) isEvent()        {}
func (evRetry) isEvent()            {}
func (evExit) isEvent()             {}

// effects are instructions for the runner; reduce never performs I/O.
type effect interface{ isEffect() }

type (
	effAcquire      struct{ c media.Constraints }
	effStartSession struct{ ref string }
	effShowCue      struct {
		seq uint64
		d   time.Duration
	}
	effHideCue   struct{}
	effPlayAudio struct {
		seq  uint64
		clip string
	}
	effStopAudio      struct{}
	effArmTicker      struct{}
	effDisarmTicker   struct{}
	effStartRecording struct{}
	effStopRecording  struct{}
	// effAbortRecording stops the recorder and drops the result.
	effAbortRecording struct{}
	effSubmit         struct {
		attempt    uint64
		sessionID  string
		questionID string
		blob       media.Blob
	}
	effRelease struct{}
	effFinish  struct{}
)

func (effAcquire) isEffect()        {}
func (effStartSession) isEffect()   {}
func (effShowCue) isEffect()        {}
func (effHideCue) isEffect()        {}
func (effPlayAudio) isEffect()      {}
func (effStopAudio) isEffect()      {}
func (effArmTicker) isEffect()      {}
func (effDisarmTicker) isEffect()   {}
func (effStartRecording) isEffect() {}
func (effStopRecording) isEffect()  {}
func (effAbortRecording) isEffect() {}
func (effSubmit) isEffect()         {}
func (effRelease) isEffect()        {}
func (effFinish) isEffect()         {}
