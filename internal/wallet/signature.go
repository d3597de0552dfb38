package wallet

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"signal-market/internal/models"
)

// ErrBadSignature is returned when a signature does not verify against the
// claimed address.
var ErrBadSignature = errors.New("signature does not match address")

// PersonalHash is keccak256("\x19Ethereum Signed Message:\n" + len(msg) + msg),
// the digest personal_sign wallets produce.
func PersonalHash(msg []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(msg))
	return ethcrypto.Keccak256([]byte(prefix), msg)
}

// Verify checks that sig is a signature of message by addr and returns the
// canonical address and its chain.
func Verify(addr string, message []byte, sig string) (string, models.Chain, error) {
	canonical, chain, err := Canonical(addr)
	if err != nil {
		return "", "", err
	}

	switch chain {
	case models.ChainEVM:
		err = verifyEVM(canonical, message, sig)
	default:
		err = verifySolana(canonical, message, sig)
	}
	if err != nil {
		return "", "", err
	}
	return canonical, chain, nil
}

func verifyEVM(addr string, message []byte, sigHex string) error {
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil || len(sig) != 65 {
		return fmt.Errorf("%w: malformed secp256k1 signature", ErrBadSignature)
	}
	// Wallets return v in {27,28}; recovery expects {0,1}.
	if sig[64] >= 27 {
		sig[64] -= 27
	}

	pub, err := ethcrypto.SigToPub(PersonalHash(message), sig)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if ethcrypto.PubkeyToAddress(*pub) != common.HexToAddress(addr) {
		return ErrBadSignature
	}
	return nil
}

func verifySolana(addr string, message []byte, sigStr string) error {
	pk, err := solana.PublicKeyFromBase58(addr)
	if err != nil {
		return err
	}

	// Wallet adapters return base58; some return hex.
	sig, err := base58.Decode(sigStr)
	if err != nil || len(sig) != ed25519.SignatureSize {
		sig, err = hex.DecodeString(sigStr)
		if err != nil {
			return fmt.Errorf("%w: malformed ed25519 signature", ErrBadSignature)
		}
	}
	if len(sig) != ed25519.SignatureSize || !ed25519.Verify(pk.Bytes(), message, sig) {
		return ErrBadSignature
	}
	return nil
}
