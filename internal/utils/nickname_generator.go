package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var adjectives = []string{
	"Bullish", "Bearish", "Steady", "Bold", "Patient",
	"Lucky", "Sharp", "Calm", "Contrarian", "Early",
	"Quiet", "Certain", "Hedged", "Wary", "Keen",
}

var nouns = []string{
	"Oracle", "Forecaster", "Punter", "Seer", "Analyst",
	"Owl", "Fox", "Raven", "Hawk", "Lynx",
	"Tipster", "Quant", "Scout", "Sage", "Pundit",
}

// GenerateNickname returns a display name of the form "Adjective_Noun_XXXX"
// for a wallet that has just signed in for the first time.
func GenerateNickname() (string, error) {
	adj, err := pick(len(adjectives))
	if err != nil {
		return "", fmt.Errorf("failed to pick adjective: %w", err)
	}
	noun, err := pick(len(nouns))
	if err != nil {
		return "", fmt.Errorf("failed to pick noun: %w", err)
	}
	suffix, err := pick(10000)
	if err != nil {
		return "", fmt.Errorf("failed to pick suffix: %w", err)
	}

	return fmt.Sprintf("%s_%s_%04d", adjectives[adj], nouns[noun], suffix), nil
}

func pick(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, err
	}
	return int(v.Int64()), nil
}
