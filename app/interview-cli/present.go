package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/runloop"
)

type viewSource interface {
	Updates() <-chan runloop.View
	Done() <-chan struct{}
	View() runloop.View
}

// present prints a status line whenever the rendered view changes, until the loop ends.
func present(out io.Writer, src viewSource) {
	last := ""
	lastQuestion := ""
	show := func(v runloop.View) {
		if v.QuestionID != "" && v.QuestionID != lastQuestion {
			lastQuestion = v.QuestionID
			fmt.Fprintln(out)
			fmt.Fprintln(out, questionHeader(v))
		}
		if line := statusLine(v); line != last {
			last = line
			fmt.Fprintln(out, line)
		}
	}

	for {
		select {
		case v := <-src.Updates():
			show(v)
		case <-src.Done():
			show(src.View())
			return
		}
	}
}

func questionHeader(v runloop.View) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Question %d", questionNumber(v))
	if v.RemainingSlots != nil {
		fmt.Fprintf(&sb, " (%d more after this)", *v.RemainingSlots)
	}
	if v.IsFinal {
		sb.WriteString(" [final]")
	}
	if v.IsFollowUp {
		sb.WriteString(" [follow-up]")
	}
	sb.WriteString("\n  ")
	sb.WriteString(v.CurrentQuestionText)
	return sb.String()
}

// questionNumber counts the current question even before it enters the log, which
// happens once reading starts.
func questionNumber(v runloop.View) int {
	n := len(v.QuestionLog)
	if n == 0 || v.QuestionLog[n-1].QuestionID != v.QuestionID {
		n++
	}
	return n
}

func clock(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%d:%02d", sec/60, sec%60)
}

func statusLine(v runloop.View) string {
	budget := "answer time left " + clock(v.TotalAnswerSecondsRemaining)

	switch {
	case v.Exited && v.Err != nil:
		return "Stopped: " + v.Err.Error()
	case v.Exited:
		return "Interview ended."
	case v.CanRetry:
		return fmt.Sprintf("Upload failed: %v. Type r + Enter to retry, q to quit.", v.Err)
	case v.Halted && v.Err != nil:
		return "Halted: " + v.Err.Error()
	}

	switch v.Phase {
	case runloop.PhaseNotStarted, runloop.PhaseStarting:
		return "Preparing camera and first question..."
	case runloop.PhaseAwaitingAudio:
		if v.CueVisible {
			return "Follow-up question coming up..."
		}
		return "Listening to the question..."
	case runloop.PhaseReading:
		return fmt.Sprintf("Read the question: %ds | %s", v.ReadSecondsRemaining, budget)
	case runloop.PhaseAnswering:
		return fmt.Sprintf("Recording | %s | Enter to submit", budget)
	case runloop.PhaseSubmitting:
		return "Uploading your answer..."
	case runloop.PhaseCompleted:
		return "All questions answered."
	default:
		return string(v.Phase)
	}
}

func printEvent(out io.Writer, ev contract.FeedbackEvent) {
	switch ev.Type {
	case contract.EventFeedback:
		fmt.Fprintf(out, "- %s: %d/10 %s\n", ev.QuestionID, ev.Score, ev.Feedback)
	case contract.EventFeedbackFailed:
		fmt.Fprintf(out, "- %s: no feedback (%s)\n", ev.QuestionID, ev.Message)
	case contract.EventFeedbackComplete:
		fmt.Fprintln(out, "All feedback received.")
	}
}

func printSummary(out io.Writer, answers []contract.AnswerView) {
	if len(answers) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary")
	total, scored := 0, 0
	for i, a := range answers {
		fmt.Fprintf(out, "%d. %s\n", i+1, a.Question)
		if a.FeedbackStatus != "done" {
			fmt.Fprintf(out, "   feedback %s\n", a.FeedbackStatus)
			continue
		}
		total += a.Score
		scored++
		fmt.Fprintf(out, "   score %d/10: %s\n", a.Score, a.Feedback)
		for _, s := range a.Strengths {
			fmt.Fprintf(out, "   + %s\n", s)
		}
		for _, s := range a.Improvements {
			fmt.Fprintf(out, "   - %s\n", s)
		}
	}
	if scored > 0 {
		fmt.Fprintf(out, "Average score %.1f/10 over %d answers\n", float64(total)/float64(scored), scored)
	}
}
