// Package storage keeps answer recordings in object storage.
package storage

import (
	"context"
	"io"
	"path"

	"github.com/yoockh/mockinterview/internal/contract"
)

type Uploader interface {
	// Upload stores r under objectName and returns the path recorded on the answer log.
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}

// AnswerObject names the recording of one answer: answers/<user>/<session>/<question><ext>.
func AnswerObject(userID, sessionID, questionID, mimeType string) string {
	return path.Join("answers", userID, sessionID, questionID+contract.ExtensionFor(mimeType))
}
