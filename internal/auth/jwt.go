package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"signal-market/internal/models"
)

// TokenTTL is how long a session token stays valid.
const TokenTTL = 24 * time.Hour

var jwtSecret []byte

// InitJWT initializes the JWT secret
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

// Claims represents the JWT claims. WalletAddress is canonical and is the
// caller identity every ledger operation sees.
type Claims struct {
	UserID        uint         `json:"user_id"`
	WalletAddress string       `json:"wallet_address"`
	Chain         models.Chain `json:"chain"`
	jwt.RegisteredClaims
}

// GenerateToken generates a new JWT token for a user
func GenerateToken(user *models.User) (string, error) {
	if len(jwtSecret) == 0 {
		return "", fmt.Errorf("JWT secret not initialized")
	}

	now := time.Now()
	claims := &Claims{
		UserID:        user.ID,
		WalletAddress: user.WalletAddress,
		Chain:         user.Chain,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.WalletAddress,
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString string) (*Claims, error) {
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("JWT secret not initialized")
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid || claims.WalletAddress == "" {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}
