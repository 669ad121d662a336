package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	apperrors "github.com/skillswap/exchange-server-go/internal/errors"
	"github.com/skillswap/exchange-server-go/internal/model"
	redisclient "github.com/skillswap/exchange-server-go/internal/redis"
	"github.com/skillswap/exchange-server-go/internal/repository"
)

const (
	MaxSkillsPerList = 50
	MaxSkillLength   = 64
	MaxNameLength    = 80
	MaxTitleLength   = 120
	MaxBioLength     = 2000
)

type ProfileService struct {
	profileRepo repository.ProfileRepository
	publisher   EventPublisher
}

func NewProfileService(profileRepo repository.ProfileRepository, publisher EventPublisher) *ProfileService {
	return &ProfileService{
		profileRepo: profileRepo,
		publisher:   publisher,
	}
}

func (s *ProfileService) Get(ctx context.Context, id string) (*model.UserProfile, error) {
	if err := requireID(id, "profile"); err != nil {
		return nil, err
	}
	profile, err := s.profileRepo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.RemoteOperation("load profile", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("profile")
	}
	return profile, nil
}

func (s *ProfileService) ListAll(ctx context.Context) ([]model.UserProfile, error) {
	profiles, err := s.profileRepo.FindAll(ctx)
	if err != nil {
		return nil, apperrors.RemoteOperation("list profiles", err)
	}
	return profiles, nil
}

func (s *ProfileService) List(ctx context.Context, limit, offset int) ([]model.UserProfile, int, error) {
	profiles, err := s.profileRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperrors.RemoteOperation("list profiles", err)
	}
	total, err := s.profileRepo.Count(ctx)
	if err != nil {
		return nil, 0, apperrors.RemoteOperation("count profiles", err)
	}
	return profiles, total, nil
}

// Update merges the provided fields into the profile. Absent fields keep their
// stored value.
func (s *ProfileService) Update(ctx context.Context, id string, params model.UpdateProfileParams) (*model.UserProfile, error) {
	if err := requireID(id, "profile"); err != nil {
		return nil, err
	}
	cleaned, err := cleanProfileUpdate(params)
	if err != nil {
		return nil, err
	}
	if cleaned.IsEmpty() {
		return s.Get(ctx, id)
	}

	profile, err := s.profileRepo.Update(ctx, id, cleaned)
	if err != nil {
		return nil, apperrors.RemoteOperation("update profile", err)
	}
	if profile == nil {
		return nil, apperrors.NotFound("profile")
	}

	log.Info().
		Str("userId", id).
		Int("skillsOffered", len(profile.SkillsOffered)).
		Int("skillsWanted", len(profile.SkillsWanted)).
		Msg("profile updated")

	notify(ctx, s.publisher, redisclient.ProfilesTopic, map[string]string{"id": id})
	return profile, nil
}

func cleanProfileUpdate(params model.UpdateProfileParams) (model.UpdateProfileParams, error) {
	out := params

	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return out, apperrors.ValidationError("name must not be empty")
		}
		if utf8.RuneCountInString(name) > MaxNameLength {
			return out, apperrors.ValidationError("name is too long")
		}
		out.Name = &name
	}
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		if utf8.RuneCountInString(title) > MaxTitleLength {
			return out, apperrors.ValidationError("title is too long")
		}
		out.Title = &title
	}
	if params.Bio != nil {
		bio := strings.TrimSpace(*params.Bio)
		if utf8.RuneCountInString(bio) > MaxBioLength {
			return out, apperrors.ValidationError("bio is too long")
		}
		out.Bio = &bio
	}
	if params.Avatar != nil {
		avatar := strings.TrimSpace(*params.Avatar)
		out.Avatar = &avatar
	}

	var err error
	if params.SkillsOffered != nil {
		if out.SkillsOffered, err = CleanSkills(params.SkillsOffered); err != nil {
			return out, err
		}
	}
	if params.SkillsWanted != nil {
		if out.SkillsWanted, err = CleanSkills(params.SkillsWanted); err != nil {
			return out, err
		}
	}
	return out, nil
}

// CleanSkills trims entries and drops empties and exact duplicates, keeping the
// first occurrence. A non-nil input always yields a non-nil result.
func CleanSkills(skills []string) ([]string, error) {
	out := make([]string, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if utf8.RuneCountInString(s) > MaxSkillLength {
			return nil, apperrors.ValidationError("skill is too long").
				WithDetails(map[string]any{"skill": s, "maxLength": MaxSkillLength})
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) > MaxSkillsPerList {
		return nil, apperrors.ValidationError("too many skills").
			WithDetails(map[string]any{"max": MaxSkillsPerList})
	}
	return out, nil
}
