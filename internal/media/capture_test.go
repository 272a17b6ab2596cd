package media

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yoockh/mockinterview/internal/logger"
	"github.com/yoockh/mockinterview/internal/utils"
)

type fakePlatform struct {
	openErr error
	block   chan struct{} // when set, Open waits on it
	entered chan struct{}

	mu      sync.Mutex
	sources []*fakeSource
}

func (p *fakePlatform) Open(ctx context.Context, c Constraints) (Source, error) {
	if p.entered != nil {
		close(p.entered)
	}
	if p.block != nil {
		<-p.block
	}
	if p.openErr != nil {
		return nil, p.openErr
	}
	s := &fakeSource{c: c}
	p.mu.Lock()
	p.sources = append(p.sources, s)
	p.mu.Unlock()
	return s, nil
}

type fakeSource struct {
	c Constraints

	mu       sync.Mutex
	closed   bool
	captures []*fakeCapture
}

func (s *fakeSource) Info() StreamInfo {
	return StreamInfo{VideoDevice: s.c.VideoDevice, HasVideo: s.c.Video, HasAudio: s.c.Audio, MimeType: s.c.MimeType}
}

func (s *fakeSource) Capture(onChunk func([]byte)) (Capture, error) {
	c := &fakeCapture{onChunk: onChunk}
	s.mu.Lock()
	s.captures = append(s.captures, c)
	s.mu.Unlock()
	return c, nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeCapture struct {
	onChunk func([]byte)
	stopped int
}

func (c *fakeCapture) Stop() error {
	c.stopped++
	return nil
}

func newTestManager(p Platform) *Manager {
	return NewManager(p, logger.Discard())
}

var videoOnly = Constraints{Video: true, VideoDevice: "/dev/video0"}

func TestAcquire_FailureIsDeviceUnavailable(t *testing.T) {
	m := newTestManager(&fakePlatform{openErr: errors.New("permission denied")})

	_, err := m.Acquire(context.Background(), videoOnly)

	require.Error(t, err)
	assert.True(t, utils.IsCode(err, utils.CodeDeviceUnavailable))
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	_, ok := m.Stream()
	assert.False(t, ok)
}

func TestAcquire_NoPlatform(t *testing.T) {
	m := newTestManager(nil)
	_, err := m.Acquire(context.Background(), videoOnly)
	assert.True(t, utils.IsCode(err, utils.CodeDeviceUnavailable))
}

func TestAcquire_DefaultsMimeTypeAndIsIdempotent(t *testing.T) {
	p := &fakePlatform{}
	m := newTestManager(p)

	info, err := m.Acquire(context.Background(), videoOnly)
	require.NoError(t, err)
	assert.Equal(t, DefaultMimeType, info.MimeType)

	_, err = m.Acquire(context.Background(), videoOnly)
	require.NoError(t, err)
	assert.Len(t, p.sources, 1, "second acquire must reuse the stream")
}

func TestStartRecording_RequiresStream(t *testing.T) {
	m := newTestManager(&fakePlatform{})

	err := m.StartRecording()

	assert.True(t, utils.IsCode(err, utils.CodeRecordingState))
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartRecording_Twice(t *testing.T) {
	m := newTestManager(&fakePlatform{})
	_, err := m.Acquire(context.Background(), videoOnly)
	require.NoError(t, err)

	require.NoError(t, m.StartRecording())
	err = m.StartRecording()
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStopRecording_ChunksInOrderAndIdempotent(t *testing.T) {
	p := &fakePlatform{}
	m := newTestManager(p)
	_, err := m.Acquire(context.Background(), videoOnly)
	require.NoError(t, err)
	require.NoError(t, m.StartRecording())

	capture := p.sources[0].captures[0]
	capture.onChunk([]byte("ab"))
	capture.onChunk(nil)
	capture.onChunk([]byte("cd"))

	blob, err := m.StopRecording()
	require.NoError(t, err)
	assert.Equal(t, []byte("abcd"), blob.Bytes())
	assert.Equal(t, DefaultMimeType, blob.MimeType())
	assert.Equal(t, 1, capture.stopped)

	again, err := m.StopRecording()
	assert.ErrorIs(t, err, ErrNotRecording)
	assert.True(t, again.IsZero())
}

func TestBlob_IsImmutable(t *testing.T) {
	b := NewBlob([]byte("xyz"), "video/webm")
	out := b.Bytes()
	out[0] = 'Q'
	assert.Equal(t, []byte("xyz"), b.Bytes())
}

func TestRelease_StopsRecordingAndClosesStream(t *testing.T) {
	p := &fakePlatform{}
	m := newTestManager(p)
	_, err := m.Acquire(context.Background(), videoOnly)
	require.NoError(t, err)
	require.NoError(t, m.StartRecording())

	require.NoError(t, m.Release())
	require.NoError(t, m.Release())

	assert.True(t, p.sources[0].isClosed())
	assert.Equal(t, 1, p.sources[0].captures[0].stopped)
	assert.False(t, m.Recording())
	_, err = m.StopRecording()
	assert.ErrorIs(t, err, ErrNotRecording)
}

func TestRelease_NeverAcquired(t *testing.T) {
	m := newTestManager(&fakePlatform{})
	assert.NoError(t, m.Release())
}

func TestRelease_DuringAcquisitionClosesLateStream(t *testing.T) {
	p := &fakePlatform{block: make(chan struct{}), entered: make(chan struct{})}
	m := newTestManager(p)

	errCh := make(chan error, 1)
	go func() {
		_, err := m.Acquire(context.Background(), videoOnly)
		errCh <- err
	}()

	<-p.entered
	require.NoError(t, m.Release())
	close(p.block)

	err := <-errCh
	assert.ErrorIs(t, err, ErrDeviceUnavailable)
	require.Len(t, p.sources, 1)
	assert.True(t, p.sources[0].isClosed())
	_, ok := m.Stream()
	assert.False(t, ok)
}
