package services

import (
	"fmt"
	"strings"

	"github.com/yoockh/mockinterview/internal/models"
)

// nextQuestion is the JSON shape the LLM answers with.
type nextQuestion struct {
	Question string `json:"question"`
	FollowUp bool   `json:"follow_up"`
	Done     bool   `json:"done"`
}

func languageName(lang string) string {
	if strings.HasPrefix(lang, "id") {
		return "Indonesian"
	}
	return "English"
}

func describeRole(md models.SessionMetadata) string {
	parts := []string{}
	if md.InterviewType != "" {
		parts = append(parts, md.InterviewType+" interview")
	}
	if md.Position != "" {
		parts = append(parts, "for the "+md.Position+" position")
	}
	if md.CompanyName != "" {
		parts = append(parts, "at "+md.CompanyName)
	}
	if len(parts) == 0 {
		return "a general job interview"
	}
	return strings.Join(parts, " ")
}

func firstQuestionPrompt(s *models.InterviewSession, resume string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are running %s in %s.\n", describeRole(s.Metadata), languageName(s.Language))
	fmt.Fprintf(&sb, "The interview has %d questions in total.\n", s.MaxQuestions)
	if resume != "" {
		sb.WriteString("Candidate résumé:\n")
		sb.WriteString(resume)
		sb.WriteString("\n")
	} else {
		sb.WriteString("No résumé is available; open with a general question about the candidate's background.\n")
	}
	sb.WriteString(`Ask the opening question. Reply with JSON only: {"question": string, "follow_up": false, "done": false}`)
	return sb.String()
}

func nextQuestionPrompt(s *models.InterviewSession, resume, transcript string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are running %s in %s.\n", describeRole(s.Metadata), languageName(s.Language))
	if resume != "" {
		sb.WriteString("Candidate résumé:\n")
		sb.WriteString(resume)
		sb.WriteString("\n")
	}
	sb.WriteString("Questions asked so far:\n")
	for i, q := range s.QuestionLog {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, q.Text)
	}
	if transcript == "" {
		transcript = "(answer could not be transcribed)"
	}
	sb.WriteString("Candidate's answer to the last question:\n")
	sb.WriteString(transcript)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%d questions remain. ", s.Remaining())
	sb.WriteString("Ask a follow-up when the answer was vague or incomplete, otherwise move on to a new topic. ")
	sb.WriteString("Set done to true only when the interview has nothing useful left to ask. ")
	sb.WriteString(`Reply with JSON only: {"question": string, "follow_up": bool, "done": bool}`)
	return sb.String()
}
