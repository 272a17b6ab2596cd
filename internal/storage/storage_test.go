package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerObject(t *testing.T) {
	assert.Equal(t, "answers/u1/s1/q2.webm", AnswerObject("u1", "s1", "q2", "video/webm;codecs=vp8,opus"))
	assert.Equal(t, "answers/u1/s1/q3.bin", AnswerObject("u1", "s1", "q3", "application/x-unknown"))
}
