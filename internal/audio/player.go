// Package audio plays the spoken version of a question before the read phase.
//
// Audio is an enhancement: every failure is logged and reported as "finished" so the
// interview keeps its cadence with the question shown as text only.
package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/yoockh/mockinterview/internal/utils"
)

var ErrEmptyClip = errors.New("empty audio clip")

// Output plays a decoded clip and returns when playback ends or ctx is cancelled.
type Output interface {
	Play(ctx context.Context, clip []byte) error
}

type Player struct {
	out Output
	log *logrus.Entry

	opMu sync.Mutex // serializes Play and Stop

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewPlayer(out Output, log *logrus.Logger) *Player {
	return &Player{out: out, log: log.WithField("component", "audio")}
}

// Play starts the clip and returns a channel closed when playback is over, for any reason.
// An empty clip stops any current clip and returns an already closed channel.
func (p *Player) Play(ctx context.Context, encoded string) <-chan struct{} {
	const op = "AudioCuePlayer.Play"

	p.opMu.Lock()
	defer p.opMu.Unlock()

	// the previous clip ends even when the new question has none
	p.stopLocked()

	finished := make(chan struct{})
	if strings.TrimSpace(encoded) == "" {
		close(finished)
		return finished
	}

	clip, err := Decode(encoded)
	if err != nil {
		p.absorb(utils.E(utils.CodeAudioPlayback, op, "failed to decode clip", err))
		close(finished)
		return finished
	}
	if p.out == nil {
		p.absorb(utils.E(utils.CodeAudioPlayback, op, "no audio output", nil))
		close(finished)
		return finished
	}

	playCtx, cancel := context.WithCancel(ctx)
	p.mu.Lock()
	p.cancel, p.done = cancel, finished
	p.mu.Unlock()

	go func() {
		defer close(finished)
		defer cancel()

		err := p.out.Play(playCtx, clip)
		if err != nil && playCtx.Err() == nil {
			p.absorb(utils.E(utils.CodeAudioPlayback, op, "playback failed", err))
		}

		p.mu.Lock()
		if p.done == finished {
			p.cancel, p.done = nil, nil
		}
		p.mu.Unlock()
	}()

	return finished
}

// Stop halts the current clip, if any, and waits until its resources are released.
func (p *Player) Stop() {
	p.opMu.Lock()
	defer p.opMu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *Player) absorb(err error) {
	p.log.WithError(err).Warn("audio cue skipped")
}

// Decode accepts raw base64 or a data URL ("data:audio/wav;base64,....").
func Decode(encoded string) ([]byte, error) {
	raw := strings.TrimSpace(encoded)
	if strings.HasPrefix(raw, "data:") {
		if i := strings.Index(raw, ","); i >= 0 {
			raw = raw[i+1:]
		}
	}

	out, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		var rerr error
		out, rerr = base64.RawStdEncoding.DecodeString(raw)
		if rerr != nil {
			return nil, err
		}
	}
	if len(out) == 0 {
		return nil, ErrEmptyClip
	}
	return out, nil
}
