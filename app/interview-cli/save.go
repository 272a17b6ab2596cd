package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/yoockh/mockinterview/internal/contract"
	"github.com/yoockh/mockinterview/internal/sessionclient"
)

type savedAnswer struct {
	QuestionID string    `json:"question_id"`
	Question   string    `json:"question"`
	File       string    `json:"file"`
	Bytes      int       `json:"bytes"`
	MimeType   string    `json:"mime_type"`
	RecordedAt time.Time `json:"recorded_at"`
}

// saveAnswers writes each recording plus an answers.json manifest into a fresh
// timestamped directory under root and returns that directory.
func saveAnswers(root string, answers []sessionclient.Answer) (string, error) {
	dir := filepath.Join(root, time.Now().Format("20060102-150405"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	manifest := make([]savedAnswer, 0, len(answers))
	for _, a := range answers {
		name := "answer-" + a.QuestionID + contract.ExtensionFor(a.Blob.MimeType())
		if err := os.WriteFile(filepath.Join(dir, name), a.Blob.Bytes(), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
		manifest = append(manifest, savedAnswer{
			QuestionID: a.QuestionID,
			Question:   a.Text,
			File:       name,
			Bytes:      a.Blob.Len(),
			MimeType:   a.Blob.MimeType(),
			RecordedAt: a.Blob.CreatedAt(),
		})
	}

	b, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "answers.json"), b, 0o644); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return dir, nil
}
