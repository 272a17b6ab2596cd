// Package media owns camera/microphone acquisition and answer recording.
//
// A Manager holds at most one acquired stream and at most one active recording.
// Recorded chunks are kept in arrival order and finalized into a single Blob.
package media

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/utils"
)

var (
	ErrDeviceUnavailable = errors.New("capture device unavailable")
	ErrInvalidState      = errors.New("recorder in invalid state")
	ErrNotRecording      = errors.New("not recording")
	ErrEmptyRecording    = errors.New("recorder produced no data")
)

const DefaultMimeType = "video/webm"

type Constraints struct {
	Video       bool
	Audio       bool
	VideoDevice string
	AudioDevice string
	MimeType    string
}

type StreamInfo struct {
	VideoDevice string `json:"video_device,omitempty"`
	AudioDevice string `json:"audio_device,omitempty"`
	HasVideo    bool   `json:"has_video"`
	HasAudio    bool   `json:"has_audio"`
	MimeType    string `json:"mime_type"`
}

// Platform is the OS/browser capture API.
type Platform interface {
	Open(ctx context.Context, c Constraints) (Source, error)
}

// Source is an acquired live stream.
type Source interface {
	Info() StreamInfo
	// Capture starts encoding; onChunk receives chunks in order until Stop returns.
	Capture(onChunk func([]byte)) (Capture, error)
	Close() error
}

type Capture interface {
	// Stop finishes the recording and returns after the last chunk was delivered.
	Stop() error
}

// Blob is a finished recording. Its bytes cannot be changed after creation.
type Blob struct {
	data      []byte
	mimeType  string
	createdAt time.Time
}

func NewBlob(data []byte, mimeType string) Blob {
	cp := make([]byte, len(data))
	copy(cp, data)
	return Blob{data: cp, mimeType: mimeType, createdAt: time.Now().UTC()}
}

func (b Blob) Len() int             { return len(b.data) }
func (b Blob) IsZero() bool         { return len(b.data) == 0 }
func (b Blob) MimeType() string     { return b.mimeType }
func (b Blob) CreatedAt() time.Time { return b.createdAt }
func (b Blob) Reader() io.Reader    { return bytes.NewReader(b.data) }

func (b Blob) Bytes() []byte {
	cp := make([]byte, len(b.data))
	copy(cp, b.data)
	return cp
}

type chunkBuffer struct {
	mu     sync.Mutex
	chunks [][]byte
	size   int
}

func (b *chunkBuffer) append(p []byte) {
	if len(p) == 0 {
		return
	}
	cp := make([]byte, len(p))
	copy(cp, p)

	b.mu.Lock()
	b.chunks = append(b.chunks, cp)
	b.size += len(cp)
	b.mu.Unlock()
}

func (b *chunkBuffer) join() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, 0, b.size)
	for _, c := range b.chunks {
		out = append(out, c...)
	}
	return out
}

type Manager struct {
	platform Platform
	log      *logrus.Entry

	mu      sync.Mutex
	gen     uint64 // bumped by Release so late acquisitions are discarded
	source  Source
	info    StreamInfo
	capture Capture
	buf     *chunkBuffer
}

func NewManager(platform Platform, log *logrus.Logger) *Manager {
	return &Manager{
		platform: platform,
		log:      log.WithField("component", "media"),
	}
}

// Acquire opens the capture devices. Calling it with a stream already acquired
// returns the current stream.
func (m *Manager) Acquire(ctx context.Context, c Constraints) (StreamInfo, error) {
	const op = "MediaCaptureManager.Acquire"

	if m.platform == nil {
		return StreamInfo{}, utils.E(utils.CodeDeviceUnavailable, op, "capture platform is not available", ErrDeviceUnavailable)
	}
	if !c.Video && !c.Audio {
		return StreamInfo{}, utils.E(utils.CodeInvalidArgument, op, "at least one of video or audio is required", nil)
	}
	if c.MimeType == "" {
		c.MimeType = DefaultMimeType
	}

	m.mu.Lock()
	if m.source != nil {
		info := m.info
		m.mu.Unlock()
		return info, nil
	}
	gen := m.gen
	m.mu.Unlock()

	src, err := m.platform.Open(ctx, c)
	if err != nil {
		return StreamInfo{}, utils.E(utils.CodeDeviceUnavailable, op, "failed to acquire camera/microphone", errors.Join(ErrDeviceUnavailable, err))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		_ = src.Close()
		return StreamInfo{}, utils.E(utils.CodeDeviceUnavailable, op, "released while acquiring", ErrDeviceUnavailable)
	}
	if m.source != nil {
		// a concurrent Acquire won
		_ = src.Close()
		return m.info, nil
	}

	m.source = src
	m.info = src.Info()
	m.log.WithFields(logrus.Fields{
		"video_device": m.info.VideoDevice,
		"audio_device": m.info.AudioDevice,
	}).Debug("stream acquired")
	return m.info, nil
}

// Stream exposes the live stream for preview. It never grants recorder control.
func (m *Manager) Stream() (StreamInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.info, m.source != nil
}

func (m *Manager) Recording() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.capture != nil
}

func (m *Manager) StartRecording() error {
	const op = "MediaCaptureManager.StartRecording"

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.source == nil {
		return utils.E(utils.CodeRecordingState, op, "no acquired stream", ErrInvalidState)
	}
	if m.capture != nil {
		return utils.E(utils.CodeRecordingState, op, "already recording", ErrInvalidState)
	}

	buf := &chunkBuffer{}
	c, err := m.source.Capture(buf.append)
	if err != nil {
		return utils.E(utils.CodeRecordingState, op, "failed to start recorder", errors.Join(ErrInvalidState, err))
	}
	m.capture = c
	m.buf = buf
	m.log.Debug("recording started")
	return nil
}

// StopRecording finalizes the active recording. Without one it reports ErrNotRecording,
// so a second call after a successful stop never yields another blob.
func (m *Manager) StopRecording() (Blob, error) {
	const op = "MediaCaptureManager.StopRecording"

	m.mu.Lock()
	c, buf, mime := m.capture, m.buf, m.info.MimeType
	m.capture, m.buf = nil, nil
	m.mu.Unlock()

	if c == nil {
		return Blob{}, utils.E(utils.CodeRecordingState, op, "no active recording", ErrNotRecording)
	}

	stopErr := c.Stop()
	data := buf.join()
	if len(data) == 0 {
		return Blob{}, utils.E(utils.CodeRecordingState, op, "recorder failed to finalize", errors.Join(ErrEmptyRecording, stopErr))
	}
	if stopErr != nil {
		m.log.WithError(stopErr).Warn("recorder stop reported an error; keeping buffered data")
	}

	m.log.WithField("bytes", len(data)).Debug("recording stopped")
	return Blob{data: data, mimeType: mime, createdAt: time.Now().UTC()}, nil
}

// Release stops any recording and closes the stream. Safe to call at any time, repeatedly.
func (m *Manager) Release() error {
	m.mu.Lock()
	m.gen++
	c, src := m.capture, m.source
	m.capture, m.buf, m.source = nil, nil, nil
	m.info = StreamInfo{}
	m.mu.Unlock()

	var errs []error
	if c != nil {
		if err := c.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if src != nil {
		if err := src.Close(); err != nil {
			errs = append(errs, err)
		}
		m.log.Debug("stream released")
	}
	return errors.Join(errs...)
}
