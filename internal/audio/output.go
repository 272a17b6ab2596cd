package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

var ErrUnsupportedClip = errors.New("unsupported clip format")

// FFplayOutput pipes the clip into ffplay without a window.
type FFplayOutput struct {
	Binary string
}

func (o FFplayOutput) Play(ctx context.Context, clip []byte) error {
	bin := o.Binary
	if bin == "" {
		bin = "ffplay"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, path, "-nodisp", "-autoexit", "-loglevel", "error", "-i", "pipe:0")
	cmd.Stdin = bytes.NewReader(clip)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("ffplay: %w", err)
	}
	return nil
}

// PacedOutput has no device: it waits as long as the WAV clip would play.
type PacedOutput struct {
	after func(time.Duration) <-chan time.Time
}

func NewPacedOutput() *PacedOutput {
	return &PacedOutput{after: time.After}
}

func (o *PacedOutput) Play(ctx context.Context, clip []byte) error {
	d, err := WAVDuration(clip)
	if err != nil {
		return err
	}
	after := o.after
	if after == nil {
		after = time.After
	}
	select {
	case <-after(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DefaultOutput prefers ffplay and falls back to pacing when it is not installed.
func DefaultOutput() Output {
	if _, err := exec.LookPath("ffplay"); err == nil {
		return FFplayOutput{}
	}
	return NewPacedOutput()
}

// WAVDuration reads the RIFF header (fmt + data chunks) of a PCM WAV clip.
func WAVDuration(clip []byte) (time.Duration, error) {
	if len(clip) < 12 || string(clip[0:4]) != "RIFF" || string(clip[8:12]) != "WAVE" {
		return 0, ErrUnsupportedClip
	}

	var byteRate uint32
	pos := 12
	for pos+8 <= len(clip) {
		id := string(clip[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(clip[pos+4 : pos+8]))
		body := pos + 8

		switch id {
		case "fmt ":
			if body+12 > len(clip) {
				return 0, ErrUnsupportedClip
			}
			byteRate = binary.LittleEndian.Uint32(clip[body+8 : body+12])
		case "data":
			if byteRate == 0 {
				return 0, ErrUnsupportedClip
			}
			// streaming encoders leave the size unset; use what is there
			if size < 0 || body+size > len(clip) {
				size = len(clip) - body
			}
			return time.Duration(float64(size) / float64(byteRate) * float64(time.Second)), nil
		}

		pos = body + size + size%2
	}
	return 0, ErrUnsupportedClip
}
