package audio

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockinterview/internal/logger"
)

// blockingOutput plays until released or cancelled.
type blockingOutput struct {
	mu        sync.Mutex
	started   chan []byte
	release   chan struct{}
	cancelled int
	err       error
}

func newBlockingOutput() *blockingOutput {
	return &blockingOutput{started: make(chan []byte, 4), release: make(chan struct{})}
}

func (o *blockingOutput) Play(ctx context.Context, clip []byte) error {
	o.started <- clip
	select {
	case <-o.release:
		return o.err
	case <-ctx.Done():
		o.mu.Lock()
		o.cancelled++
		o.mu.Unlock()
		return ctx.Err()
	}
}

func (o *blockingOutput) cancelCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cancelled
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	case <-time.After(time.Second):
		return false
	}
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

func TestPlay_EmptyClipResolvesImmediately(t *testing.T) {
	out := newBlockingOutput()
	p := NewPlayer(out, logger.Discard())

	done := p.Play(context.Background(), "")

	select {
	case <-done:
	default:
		t.Fatal("empty clip must resolve without waiting")
	}
	assert.Empty(t, out.started)
}

func TestPlay_DecodeErrorResolves(t *testing.T) {
	p := NewPlayer(newBlockingOutput(), logger.Discard())
	assert.True(t, closed(p.Play(context.Background(), "%%% not base64 %%%")))
}

func TestPlay_NoOutputResolves(t *testing.T) {
	p := NewPlayer(nil, logger.Discard())
	assert.True(t, closed(p.Play(context.Background(), b64("clip"))))
}

func TestPlay_PlaybackErrorResolves(t *testing.T) {
	out := newBlockingOutput()
	out.err = errors.New("device busy")
	p := NewPlayer(out, logger.Discard())

	done := p.Play(context.Background(), b64("clip"))
	assert.Equal(t, []byte("clip"), <-out.started)
	close(out.release)

	assert.True(t, closed(done))
}

func TestPlay_NaturalEnd(t *testing.T) {
	out := newBlockingOutput()
	p := NewPlayer(out, logger.Discard())

	done := p.Play(context.Background(), "data:audio/wav;base64,"+b64("hello"))
	assert.Equal(t, []byte("hello"), <-out.started)

	select {
	case <-done:
		t.Fatal("must not resolve before playback ends")
	default:
	}
	close(out.release)
	assert.True(t, closed(done))
}

func TestPlay_NewClipStopsPrevious(t *testing.T) {
	out := newBlockingOutput()
	p := NewPlayer(out, logger.Discard())

	first := p.Play(context.Background(), b64("one"))
	<-out.started
	second := p.Play(context.Background(), b64("two"))
	<-out.started

	assert.True(t, closed(first))
	assert.Equal(t, 1, out.cancelCount())

	p.Stop()
	assert.True(t, closed(second))
	assert.Equal(t, 2, out.cancelCount())
}

func TestPlay_EmptyClipStopsCurrent(t *testing.T) {
	out := newBlockingOutput()
	p := NewPlayer(out, logger.Discard())

	first := p.Play(context.Background(), b64("one"))
	<-out.started
	second := p.Play(context.Background(), "")

	assert.True(t, closed(first))
	assert.True(t, closed(second))
	assert.Equal(t, 1, out.cancelCount())
	assert.Empty(t, out.started)
}

func TestStop_Idle(t *testing.T) {
	p := NewPlayer(newBlockingOutput(), logger.Discard())
	p.Stop()
	p.Stop()
}

func makeWAV(byteRate uint32, dataLen int) []byte {
	buf := make([]byte, 0, 44+dataLen)
	le := binary.LittleEndian
	buf = append(buf, "RIFF"...)
	buf = le.AppendUint32(buf, uint32(36+dataLen))
	buf = append(buf, "WAVE"...)
	buf = append(buf, "fmt "...)
	buf = le.AppendUint32(buf, 16)
	buf = le.AppendUint16(buf, 1)          // PCM
	buf = le.AppendUint16(buf, 1)          // mono
	buf = le.AppendUint32(buf, byteRate/2) // sample rate
	buf = le.AppendUint32(buf, byteRate)   // byte rate
	buf = le.AppendUint16(buf, 2)          // block align
	buf = le.AppendUint16(buf, 16)         // bits
	buf = append(buf, "data"...)
	buf = le.AppendUint32(buf, uint32(dataLen))
	return append(buf, make([]byte, dataLen)...)
}

func TestWAVDuration(t *testing.T) {
	d, err := WAVDuration(makeWAV(32000, 16000))
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, d)

	_, err = WAVDuration([]byte("ID3 mp3 data"))
	assert.ErrorIs(t, err, ErrUnsupportedClip)
}

func TestPacedOutput_WaitsForDuration(t *testing.T) {
	var asked time.Duration
	fire := make(chan time.Time, 1)
	o := &PacedOutput{after: func(d time.Duration) <-chan time.Time {
		asked = d
		fire <- time.Now()
		return fire
	}}

	require.NoError(t, o.Play(context.Background(), makeWAV(16000, 32000)))
	assert.Equal(t, 2*time.Second, asked)
}

func TestPacedOutput_Cancelled(t *testing.T) {
	o := &PacedOutput{after: func(time.Duration) <-chan time.Time { return nil }}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, o.Play(ctx, makeWAV(16000, 160)), context.Canceled)
}
