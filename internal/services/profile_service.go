package services

import (
	"context"
	"errors"
	"strings"

	pgrepo "github.com/yoockh/mockinterview/internal/repositories/postgres"
	"github.com/yoockh/mockinterview/internal/utils"
)

// maxResumeChars bounds how much résumé text goes into a prompt.
const maxResumeChars = 6000

type ProfileService interface {
	// ResumeText returns the candidate's résumé as prompt material. A missing profile
	// yields an empty string, not an error.
	ResumeText(ctx context.Context, userID string) (string, error)
}

type profileService struct {
	profiles pgrepo.ProfileRepository
}

func NewProfileService(profiles pgrepo.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

func (s *profileService) ResumeText(ctx context.Context, userID string) (string, error) {
	const op = "ProfileService.ResumeText"

	if userID == "" {
		return "", utils.E(utils.CodeInvalidArgument, op, "user_id is required", nil)
	}

	p, err := s.profiles.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, utils.ErrNotFound) {
			return "", nil
		}
		return "", utils.E(utils.CodeInternal, op, "failed to get profile", err)
	}

	var sb strings.Builder
	if p.FullName != "" {
		sb.WriteString("Name: " + p.FullName + "\n")
	}
	if p.TargetRole != "" {
		sb.WriteString("Target role: " + p.TargetRole + "\n")
	}
	if len(p.Skills) > 0 {
		sb.WriteString("Skills: " + strings.Join(p.Skills, ", ") + "\n")
	}
	cv := strings.TrimSpace(p.CVText)
	if len(cv) > maxResumeChars {
		cv = cv[:maxResumeChars]
	}
	sb.WriteString(cv)
	return strings.TrimSpace(sb.String()), nil
}
