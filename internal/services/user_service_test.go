package services

import (
	"errors"
	"testing"

	"signal-market/internal/models"
)

func TestUserProfileAndNickname(t *testing.T) {
	env := newTestEnv(t)
	svc := NewUserService(env.state, env.access)
	repo := env.state.Read(env.ctx)

	ownerUser := &models.User{WalletAddress: testOwner, Chain: models.ChainEVM, Nickname: "Calm_Owl_0001"}
	other := &models.User{WalletAddress: alice, Chain: models.ChainEVM, Nickname: "Keen_Fox_0002"}
	for _, u := range []*models.User{ownerUser, other} {
		if err := repo.CreateUser(env.ctx, u); err != nil {
			t.Fatalf("CreateUser: %v", err)
		}
	}

	profile, err := svc.GetProfile(env.ctx, ownerUser.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Role != "owner" {
		t.Fatalf("owner role = %q", profile.Role)
	}
	profile, err = svc.GetProfile(env.ctx, other.ID)
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	if profile.Role != "" {
		t.Fatalf("non-owner role = %q", profile.Role)
	}

	if _, err := svc.UpdateNickname(env.ctx, other.ID, "no"); !errors.Is(err, ErrInvalidNickname) {
		t.Fatalf("expected ErrInvalidNickname, got %v", err)
	}
	if _, err := svc.UpdateNickname(env.ctx, other.ID, "Calm_Owl_0001"); !errors.Is(err, ErrNicknameTaken) {
		t.Fatalf("expected ErrNicknameTaken, got %v", err)
	}
	user, err := svc.UpdateNickname(env.ctx, other.ID, "alice_forecasts")
	if err != nil {
		t.Fatalf("UpdateNickname: %v", err)
	}
	if user.Nickname != "alice_forecasts" {
		t.Fatalf("nickname = %q", user.Nickname)
	}
}
