package sessionclient

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/utils"
)

func TestFixedList_WalksListThenCompletes(t *testing.T) {
	ctx := context.Background()
	f := NewFixedList([]string{"Q1", " ", "Q2"})

	q1, err := f.StartSession(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "1", q1.QuestionID)
	assert.Equal(t, "Q1", q1.Text)
	assert.False(t, q1.IsFollowUp)
	assert.False(t, q1.IsFinal)
	require.NotNil(t, q1.RemainingSlots)
	assert.Equal(t, 1, *q1.RemainingSlots)

	out, err := f.SubmitAnswer(ctx, q1.SessionID, "1", media.NewBlob([]byte("a1"), "video/webm"))
	require.NoError(t, err)
	next, ok := out.(Continue)
	require.True(t, ok)
	assert.Equal(t, "2", next.Question.QuestionID)
	assert.Equal(t, "Q2", next.Question.Text)
	assert.True(t, next.Question.IsFinal)
	assert.False(t, next.Question.IsFollowUp)

	out, err = f.SubmitAnswer(ctx, q1.SessionID, "2", media.NewBlob([]byte("a2"), "video/webm"))
	require.NoError(t, err)
	assert.Equal(t, Completed{}, out)

	answers := f.Answers()
	require.Len(t, answers, 2)
	assert.Equal(t, "Q1", answers[0].Text)
	assert.Equal(t, []byte("a2"), answers[1].Blob.Bytes())

	_, err = f.SubmitAnswer(ctx, q1.SessionID, "3", media.NewBlob([]byte("a3"), "video/webm"))
	assert.True(t, utils.IsCode(err, utils.CodeConflict))
}

func TestFixedList_RejectsOutOfOrderAnswer(t *testing.T) {
	ctx := context.Background()
	f := NewFixedList([]string{"Q1", "Q2"})
	q, err := f.StartSession(ctx, "")
	require.NoError(t, err)

	_, err = f.SubmitAnswer(ctx, q.SessionID, "2", media.NewBlob([]byte("x"), "video/webm"))
	assert.True(t, utils.IsCode(err, utils.CodeConflict))

	_, err = f.SubmitAnswer(ctx, "other", "1", media.NewBlob([]byte("x"), "video/webm"))
	assert.True(t, utils.IsCode(err, utils.CodeNotFound))
	assert.Empty(t, f.Answers())
}

func TestFixedList_Empty(t *testing.T) {
	_, err := NewFixedList(nil).StartSession(context.Background(), "")
	assert.True(t, utils.IsCode(err, utils.CodeInvalidArgument))
}
