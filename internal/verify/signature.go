package verify

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is r(32) || s(32) || v(1).
const SignatureLength = 65

// RecoverAddress returns the account that produced sigHex over message using
// personal_sign (EIP-191): keccak256("\x19Ethereum Signed Message:\n" + len + message).
// v may be 27/28 (wallet encoding) or 0/1. Only low-s signatures are
// accepted, so (r, n-s, v^1) does not verify as a second encoding.
func RecoverAddress(message, sigHex string) (common.Address, error) {
	sig, err := decodeSignature(sigHex)
	if err != nil {
		return common.Address{}, err
	}
	if sig[64] >= 27 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}
	r, sv := new(big.Int).SetBytes(sig[:32]), new(big.Int).SetBytes(sig[32:64])
	if !ethcrypto.ValidateSignatureValues(sig[64], r, sv, true) {
		return common.Address{}, fmt.Errorf("non-canonical signature values")
	}

	digest := accounts.TextHash([]byte(message))
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("recover pubkey: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// Verify reports whether sigHex over message recovers to expected.
// Malformed input of any kind yields false.
func Verify(message, sigHex, expected string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	if !IsValidAddress(expected) {
		return false
	}
	recovered, err := RecoverAddress(message, sigHex)
	if err != nil {
		return false
	}
	return strings.EqualFold(recovered.Hex(), expected)
}

// Sign produces a personal_sign signature (v = 27/28) for message.
// Used by tests and the signer CLI; the service itself never holds keys.
func Sign(message string, key *ecdsa.PrivateKey) (string, error) {
	digest := accounts.TextHash([]byte(message))
	sig, err := ethcrypto.Sign(digest, key)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	sig[64] += 27
	return hexutil.Encode(sig), nil
}

func decodeSignature(sigHex string) ([]byte, error) {
	cleaned := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(sigHex), "0x"), "0X")
	sig, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	return sig, nil
}
