package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"signal-market/internal/access"
	"signal-market/internal/ledger"
	"signal-market/internal/models"
	"signal-market/internal/repository"
)

var (
	// ErrNicknameTaken is returned when another user holds the nickname.
	ErrNicknameTaken = errors.New("nickname already taken")
	// ErrInvalidNickname is returned for nicknames outside [A-Za-z0-9_]{3,32}.
	ErrInvalidNickname = errors.New("nickname must be 3-32 letters, digits or underscores")
)

var nicknamePattern = regexp.MustCompile(`^[A-Za-z0-9_]{3,32}$`)

// Profile is a user as shown to themselves.
type Profile struct {
	*models.User
	Role string `json:"role,omitempty"`
}

// UserService handles user-related business logic
type UserService struct {
	state  *ledger.State
	access *access.Control
}

// NewUserService creates a new UserService
func NewUserService(state *ledger.State, ac *access.Control) *UserService {
	return &UserService{state: state, access: ac}
}

// GetProfile returns the user's profile. The ledger owner gets role "owner".
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*Profile, error) {
	user, err := s.state.Read(ctx).GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	profile := &Profile{User: user}
	if user.WalletAddress == s.access.Owner() {
		profile.Role = "owner"
	}
	return profile, nil
}

// UpdateNickname changes the user's display name.
func (s *UserService) UpdateNickname(ctx context.Context, userID uint, nickname string) (*models.User, error) {
	if !nicknamePattern.MatchString(nickname) {
		return nil, ErrInvalidNickname
	}

	repo := s.state.Read(ctx)
	user, err := repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Nickname == nickname {
		return user, nil
	}

	taken, err := repo.NicknameExists(ctx, nickname)
	if err != nil {
		return nil, fmt.Errorf("check nickname: %w", err)
	}
	if taken {
		return nil, ErrNicknameTaken
	}
	if err := repo.UpdateNickname(ctx, userID, nickname); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrNicknameTaken
		}
		return nil, err
	}
	user.Nickname = nickname
	return user, nil
}
