// Package wallet canonicalises user addresses and verifies login
// signatures for EVM and Solana wallets.
package wallet

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gagliardetto/solana-go"

	"signal-market/internal/ledger"
	"signal-market/internal/models"
)

// Canonical returns the canonical spelling of addr and the chain it belongs
// to. EVM addresses are returned in EIP-55 checksum form so that the same
// account never maps to two ledger keys.
func Canonical(addr string) (string, models.Chain, error) {
	addr = strings.TrimSpace(addr)
	if strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X") {
		if !common.IsHexAddress(addr) {
			return "", "", fmt.Errorf("%w: %q", ledger.ErrInvalidAddress, addr)
		}
		return common.HexToAddress(addr).Hex(), models.ChainEVM, nil
	}

	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", ledger.ErrInvalidAddress, addr)
	}
	return pk.String(), models.ChainSolana, nil
}

// MustCanonical is Canonical for addresses known to be valid, such as
// configuration that has already been validated.
func MustCanonical(addr string) string {
	out, _, err := Canonical(addr)
	if err != nil {
		panic(err)
	}
	return out
}
