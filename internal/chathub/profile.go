package chathub

import (
	"campusmatch/backend/internal/config"
	"campusmatch/backend/internal/models"
	"campusmatch/backend/internal/storage"
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"
)

const (
	maxNicknameRunes = 20
	maxBioRunes      = 200
	maxInterests     = 10
)

// ProfileInput is what a user submits on profile setup.
type ProfileInput struct {
	Nickname  string   `json:"nickname"`
	Gender    string   `json:"gender"`
	Year      string   `json:"year"`
	Bio       string   `json:"bio"`
	Interests []string `json:"interests"`
}

// ProfileService manages the anonymous profiles the matchmakers read.
type ProfileService struct {
	Storage storage.ProfileDirectory
	now     func() time.Time
}

func NewProfileService(s storage.ProfileDirectory) *ProfileService {
	return &ProfileService{Storage: s, now: time.Now}
}

func (p *ProfileService) GetProfile(ctx context.Context, userID string) (*models.Profile, error) {
	profile, err := p.Storage.GetProfile(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrProfileRequired
	}
	if err != nil {
		return nil, persistErr("load profile", err)
	}
	return profile, nil
}

// SaveProfile creates or replaces the user's profile. An empty nickname falls
// back to config.DefaultNickname.
func (p *ProfileService) SaveProfile(ctx context.Context, userID string, in ProfileInput) (*models.Profile, error) {
	in.Gender = strings.ToLower(strings.TrimSpace(in.Gender))
	if !models.IsValidGender(in.Gender) {
		return nil, validationErr("validation.gender", "gender must be male or female")
	}
	nickname := strings.TrimSpace(in.Nickname)
	if nickname == "" {
		nickname = config.DefaultNickname
	}
	if utf8.RuneCountInString(nickname) > maxNicknameRunes {
		return nil, validationErr("validation.nickname_too_long", "nickname is too long")
	}
	bio := strings.TrimSpace(in.Bio)
	if utf8.RuneCountInString(bio) > maxBioRunes {
		return nil, validationErr("validation.bio_too_long", "bio is too long")
	}

	interests := make([]string, 0, len(in.Interests))
	for _, i := range in.Interests {
		if i = strings.TrimSpace(i); i != "" {
			interests = append(interests, i)
		}
	}
	if len(interests) > maxInterests {
		return nil, validationErr("validation.too_many_interests", "too many interests")
	}

	now := p.now()
	profile := &models.Profile{
		UserID:    userID,
		Nickname:  nickname,
		Gender:    in.Gender,
		Year:      strings.TrimSpace(in.Year),
		Bio:       bio,
		Interests: interests,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if existing, err := p.Storage.GetProfile(ctx, userID); err == nil {
		profile.CreatedAt = existing.CreatedAt
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, persistErr("load profile", err)
	}

	if err := p.Storage.SaveProfile(ctx, profile); err != nil {
		return nil, persistErr("save profile", err)
	}
	logrus.WithField("user_id", userID).Info("SaveProfile: profile saved")
	return profile, nil
}
