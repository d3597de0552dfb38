package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"signal-market/internal/ledger"
	"signal-market/internal/models"
	"signal-market/internal/repository"
	"signal-market/internal/utils"
	"signal-market/internal/wallet"
)

const (
	nicknameAttempts = 5
	defaultNonceTTL  = 5 * time.Minute
)

// ErrInvalidNonce is returned when a login names a challenge that is
// unknown, expired or already used.
var ErrInvalidNonce = errors.New("login challenge is invalid or expired")

// NonceStore holds single-use login challenges.
type NonceStore interface {
	Put(ctx context.Context, nonce string, ttl time.Duration) error
	// Take consumes nonce and reports whether it was live.
	Take(ctx context.Context, nonce string) (bool, error)
}

// LoginChallenge is what a wallet signs to log in.
type LoginChallenge struct {
	Message   string    `json:"message"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AuthService handles authentication business logic
type AuthService struct {
	state    *ledger.State
	message  string
	nonceTTL time.Duration
	nonces   NonceStore
	log      logrus.FieldLogger
}

// NewAuthService creates an AuthService that issues challenges built from
// message. Nonces live in the ledger database unless nonces is non-nil.
func NewAuthService(state *ledger.State, message string, nonceTTL time.Duration, nonces NonceStore) *AuthService {
	if nonceTTL <= 0 {
		nonceTTL = defaultNonceTTL
	}
	if nonces == nil {
		nonces = &dbNonceStore{state: state}
	}
	return &AuthService{
		state:    state,
		message:  message,
		nonceTTL: nonceTTL,
		nonces:   nonces,
		log:      state.Log().WithField("component", "auth"),
	}
}

// Challenge issues a fresh single-use login challenge.
func (s *AuthService) Challenge(ctx context.Context) (*LoginChallenge, error) {
	nonce := uuid.New().String()
	if err := s.nonces.Put(ctx, nonce, s.nonceTTL); err != nil {
		return nil, fmt.Errorf("store login nonce: %w", err)
	}
	return &LoginChallenge{
		Message:   s.LoginMessage(nonce),
		Nonce:     nonce,
		ExpiresAt: s.state.Now().Add(s.nonceTTL),
	}, nil
}

// LoginMessage returns the exact text a wallet signs for nonce.
func (s *AuthService) LoginMessage(nonce string) string {
	return s.message + "\n\nNonce: " + nonce
}

// ProcessWalletLogin verifies a signature over the challenge for nonce,
// consumes the nonce, and finds or creates the user for the canonical form
// of address.
func (s *AuthService) ProcessWalletLogin(ctx context.Context, address, signature, nonce string) (*models.User, error) {
	if nonce == "" {
		return nil, ErrInvalidNonce
	}
	canonical, chain, err := wallet.Verify(address, []byte(s.LoginMessage(nonce)), signature)
	if err != nil {
		return nil, err
	}
	live, err := s.nonces.Take(ctx, nonce)
	if err != nil {
		return nil, fmt.Errorf("consume login nonce: %w", err)
	}
	if !live {
		s.log.WithField("wallet", canonical).Warn("Rejected login with spent or expired nonce")
		return nil, ErrInvalidNonce
	}

	repo := s.state.Read(ctx)
	now := s.state.Now()

	user, err := repo.GetUserByWallet(ctx, canonical)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		user, err = s.createUser(ctx, repo, canonical, chain)
		if err != nil {
			return nil, err
		}
		s.log.WithFields(logrus.Fields{
			"user_id": user.ID,
			"wallet":  canonical,
			"chain":   chain,
		}).Info("New user created")
	case err != nil:
		return nil, fmt.Errorf("database error: %w", err)
	default:
		s.log.WithFields(logrus.Fields{"user_id": user.ID, "wallet": canonical}).Debug("User logged in")
	}

	if err := repo.TouchUserLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLoginAt = now
	return user, nil
}

// GetUserByID retrieves a user by their ID
func (s *AuthService) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	return s.state.Read(ctx).GetUserByID(ctx, userID)
}

func (s *AuthService) createUser(ctx context.Context, repo *repository.Repository, addr string, chain models.Chain) (*models.User, error) {
	for i := 0; i < nicknameAttempts; i++ {
		nickname, err := utils.GenerateNickname()
		if err != nil {
			return nil, err
		}
		taken, err := repo.NicknameExists(ctx, nickname)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		user := &models.User{
			WalletAddress: addr,
			Chain:         chain,
			Nickname:      nickname,
			LastLoginAt:   s.state.Now(),
		}
		if err := repo.CreateUser(ctx, user); err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		return user, nil
	}
	return nil, fmt.Errorf("failed to create user: no free nickname after %d attempts", nicknameAttempts)
}

// dbNonceStore keeps nonces in the login_nonces table.
type dbNonceStore struct {
	state *ledger.State
}

// Times are stored in UTC so the expiry comparison is also correct on
// SQLite, which compares them as text.
func (d *dbNonceStore) Put(ctx context.Context, nonce string, ttl time.Duration) error {
	now := d.state.Now().UTC()
	return d.state.Read(ctx).CreateLoginNonce(ctx, &models.LoginNonce{
		Nonce:     nonce,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, now)
}

func (d *dbNonceStore) Take(ctx context.Context, nonce string) (bool, error) {
	return d.state.Read(ctx).ConsumeLoginNonce(ctx, nonce, d.state.Now().UTC())
}
