package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"
)

const (
	chunkSize       = 32 << 10
	stopGracePeriod = 5 * time.Second
	stderrTail      = 2 << 10
)

// FFmpegPlatform captures through an ffmpeg child process (v4l2 video, alsa/pulse audio)
// that writes a WebM stream to stdout.
type FFmpegPlatform struct {
	Binary      string // default "ffmpeg"
	VideoFormat string // default "v4l2"
	AudioFormat string // default "alsa"
}

func NewFFmpegPlatform() *FFmpegPlatform {
	return &FFmpegPlatform{Binary: "ffmpeg", VideoFormat: "v4l2", AudioFormat: "alsa"}
}

func (p *FFmpegPlatform) Open(ctx context.Context, c Constraints) (Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bin, err := exec.LookPath(p.Binary)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}

	if c.Video {
		if c.VideoDevice == "" {
			return nil, errors.New("no video device configured")
		}
		if err := checkDevice(c.VideoDevice); err != nil {
			return nil, err
		}
	}
	if c.Audio && c.AudioDevice == "" {
		return nil, errors.New("no audio device configured")
	}

	return &ffmpegSource{bin: bin, platform: p, c: c}, nil
}

// device nodes must exist and be readable; alsa/pulse names are not paths
func checkDevice(path string) error {
	if !strings.HasPrefix(path, "/dev/") {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return fmt.Errorf("permission denied for %s: %w", path, err)
		}
		return fmt.Errorf("device %s: %w", path, err)
	}
	return f.Close()
}

type ffmpegSource struct {
	bin      string
	platform *FFmpegPlatform
	c        Constraints

	mu     sync.Mutex
	closed bool
}

func (s *ffmpegSource) Info() StreamInfo {
	info := StreamInfo{HasVideo: s.c.Video, HasAudio: s.c.Audio, MimeType: s.c.MimeType}
	if s.c.Video {
		info.VideoDevice = s.c.VideoDevice
	}
	if s.c.Audio {
		info.AudioDevice = s.c.AudioDevice
	}
	if !s.c.Video && info.MimeType == DefaultMimeType {
		info.MimeType = "audio/webm"
	}
	return info
}

func (s *ffmpegSource) args() []string {
	// stdin stays open: Stop writes "q" to it
	args := []string{"-hide_banner", "-loglevel", "error"}
	if s.c.Video {
		args = append(args, "-f", s.platform.VideoFormat, "-i", s.c.VideoDevice)
	}
	if s.c.Audio {
		args = append(args, "-f", s.platform.AudioFormat, "-i", s.c.AudioDevice)
	}
	if s.c.Video {
		args = append(args, "-c:v", "libvpx", "-deadline", "realtime", "-b:v", "1M")
	} else {
		args = append(args, "-vn")
	}
	if s.c.Audio {
		args = append(args, "-c:a", "libopus")
	}
	return append(args, "-f", "webm", "pipe:1")
}

func (s *ffmpegSource) Capture(onChunk func([]byte)) (Capture, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.New("stream closed")
	}

	cmd := exec.Command(s.bin, s.args()...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr := &tailBuffer{max: stderrTail}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	c := &ffmpegCapture{cmd: cmd, stdin: stdin, stderr: stderr, done: make(chan struct{})}
	go func() {
		defer close(c.done)
		buf := make([]byte, chunkSize)
		for {
			n, rerr := stdout.Read(buf)
			if n > 0 {
				onChunk(buf[:n])
			}
			if rerr != nil {
				if !errors.Is(rerr, io.EOF) {
					c.readErr = rerr
				}
				return
			}
		}
	}()
	return c, nil
}

func (s *ffmpegSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type ffmpegCapture struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer
	done   chan struct{}

	once    sync.Once
	readErr error
	err     error
}

// Stop asks ffmpeg to finish the container ("q" on stdin) and waits for the last chunk.
// A process that was already gone before the request is a failed recording.
func (c *ffmpegCapture) Stop() error {
	c.once.Do(func() {
		exitedEarly := false
		select {
		case <-c.done:
			exitedEarly = true
		default:
		}

		_, _ = io.WriteString(c.stdin, "q")
		_ = c.stdin.Close()

		select {
		case <-c.done:
		case <-time.After(stopGracePeriod):
			_ = c.cmd.Process.Kill()
			<-c.done
		}

		// ffmpeg exits non-zero when interrupted even after a clean trailer
		if err := c.cmd.Wait(); err != nil {
			var exitErr *exec.ExitError
			if !errors.As(err, &exitErr) || exitedEarly {
				c.err = err
			}
		}
		if c.err != nil {
			if tail := c.stderr.String(); tail != "" {
				c.err = fmt.Errorf("ffmpeg: %w: %s", c.err, tail)
			}
		}
		if c.readErr != nil {
			c.err = errors.Join(c.err, c.readErr)
		}
	})
	return c.err
}

// tailBuffer keeps the last max bytes written to it.
type tailBuffer struct {
	mu  sync.Mutex
	max int
	buf []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = t.buf[over:]
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.TrimSpace(string(t.buf))
}
