package runloop

import "github.com/yoockh/mockinterview/internal/models"

// View is a read-only snapshot for the presenter.
type View struct {
	Phase     Phase
	Status    models.SessionStatus
	SessionID string

	QuestionID          string
	CurrentQuestionText string
	IsFollowUp          bool
	IsFinal             bool
	CueVisible          bool
	AudioPlaying        bool

	ReadSecondsRemaining        int
	TotalAnswerSecondsRemaining int
	RemainingSlots              *int

	QuestionLog []models.AskedQuestion

	Err      error
	Halted   bool
	CanRetry bool // an upload failed and the answer is still held
	Exited   bool
}

func (l *Loop) View() View {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.st.view()
}

func (s state) view() View {
	v := View{
		Phase:                       s.phase,
		Status:                      s.status,
		SessionID:                   s.sessionID,
		TotalAnswerSecondsRemaining: s.answerRemaining,
		QuestionLog:                 append([]models.AskedQuestion(nil), s.log...),
		Err:                         s.err,
		Halted:                      s.halted,
		CanRetry:                    s.halted && s.phase == PhaseSubmitting && s.blob != nil && !s.exited,
		Exited:                      s.exited,
	}
	if s.slots != nil {
		n := *s.slots
		v.RemainingSlots = &n
	}

	switch s.phase {
	case PhaseAwaitingAudio, PhaseReading, PhaseAnswering, PhaseSubmitting:
		q := s.ps.question
		v.QuestionID = q.QuestionID
		v.CurrentQuestionText = q.Text
		v.IsFollowUp = q.IsFollowUp
		v.IsFinal = q.IsFinal
		v.CueVisible = s.ps.cueVisible
		v.AudioPlaying = s.ps.audioPlaying
		v.ReadSecondsRemaining = s.ps.readRemaining
	}
	return v
}
