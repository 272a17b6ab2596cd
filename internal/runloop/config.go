package runloop

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/yoockh/mockinterview/config"
	"github.com/yoockh/mockinterview/internal/media"
	"github.com/yoockh/mockinterview/internal/models"
	"github.com/yoockh/mockinterview/internal/utils"
)

const (
	DefaultReadDuration        = 10 * time.Second
	DefaultFollowUpCueDuration = 2 * time.Second
	DefaultAnswerBudget        = 300 * time.Second
)

type Config struct {
	Mode       models.Mode `validate:"required,oneof=AI_RESUME_DRIVEN FIXED_LIST"`
	SessionRef string      `validate:"required_if=Mode AI_RESUME_DRIVEN"`
	Questions  []string    `validate:"dive,required"`

	// ReadDuration and FollowUpCueDuration are identical for every question.
	ReadDuration        time.Duration `validate:"gte=0"`
	FollowUpCueDuration time.Duration `validate:"gte=0"`
	// NoFollowUpCue skips the cue; a zero FollowUpCueDuration alone means the default.
	NoFollowUpCue bool
	// AnswerBudget is shared by all answers of the session and never refilled.
	AnswerBudget time.Duration `validate:"gte=0"`

	Constraints media.Constraints
}

// FromAppConfig builds the loop settings from the interview and client sections.
func FromAppConfig(ic config.InterviewConfig, cc config.ClientConfig) Config {
	return Config{
		Mode:                models.ModeAIResumeDriven,
		ReadDuration:        ic.ReadDuration(),
		FollowUpCueDuration: ic.FollowUpCueDuration(),
		NoFollowUpCue:       ic.FollowUpCueSeconds == 0,
		AnswerBudget:        time.Duration(ic.AnswerBudgetSeconds) * time.Second,
		Constraints: media.Constraints{
			Video:       cc.VideoDevice != "",
			Audio:       cc.AudioDevice != "",
			VideoDevice: cc.VideoDevice,
			AudioDevice: cc.AudioDevice,
			MimeType:    media.DefaultMimeType,
		},
	}
}

func (c Config) validate() error {
	const op = "InterviewRunLoop.Config"

	if err := validator.New().Struct(c); err != nil {
		return utils.E(utils.CodeInvalidArgument, op, "invalid run loop config", err)
	}
	if c.Mode == models.ModeFixedList && len(c.Questions) == 0 {
		return utils.E(utils.CodeInvalidArgument, op, "fixed list mode needs at least one question", nil)
	}
	for _, q := range c.Questions {
		if strings.TrimSpace(q) == "" {
			return utils.E(utils.CodeInvalidArgument, op, "questions must not be blank", nil)
		}
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c.ReadDuration == 0 {
		c.ReadDuration = DefaultReadDuration
	}
	switch {
	case c.NoFollowUpCue:
		c.FollowUpCueDuration = 0
	case c.FollowUpCueDuration == 0:
		c.FollowUpCueDuration = DefaultFollowUpCueDuration
	}
	return c
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}

// Media is the part of the capture manager the loop drives.
type Media interface {
	Acquire(ctx context.Context, c media.Constraints) (media.StreamInfo, error)
	StartRecording() error
	StopRecording() (media.Blob, error)
	Release() error
}

// Audio is the cue player.
type Audio interface {
	Play(ctx context.Context, encoded string) <-chan struct{}
	Stop()
}
