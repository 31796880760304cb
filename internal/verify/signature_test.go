package verify

import (
	"crypto/ecdsa"
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func newWallet(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key, ethcrypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestVerifyValidSignature(t *testing.T) {
	key, addr := newWallet(t)
	msg := BuildMessage(sampleFields())

	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}

	if !Verify(msg, sig, addr) {
		t.Fatal("expected valid signature")
	}
	if !Verify(msg, sig, strings.ToLower(addr)) {
		t.Fatal("address comparison must be case-insensitive")
	}
	if !Verify(msg, strings.TrimPrefix(sig, "0x"), addr) {
		t.Fatal("signature without 0x prefix should verify")
	}
}

func TestVerifyWrongAddress(t *testing.T) {
	key, _ := newWallet(t)
	_, other := newWallet(t)
	msg := BuildMessage(sampleFields())

	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}
	if Verify(msg, sig, other) {
		t.Fatal("signature verified against the wrong address")
	}
}

func TestVerifyRecoveryIDZeroOne(t *testing.T) {
	key, addr := newWallet(t)
	msg := "hello"
	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := hex.DecodeString(sig[2:])
	raw[64] -= 27
	if !Verify(msg, "0x"+hex.EncodeToString(raw), addr) {
		t.Fatal("v in {0,1} should be accepted")
	}
}

func TestVerifyTamperedMessage(t *testing.T) {
	key, addr := newWallet(t)
	msg := BuildMessage(sampleFields())
	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < len(msg); i++ {
		b := []byte(msg)
		b[i] ^= 0x01
		if Verify(string(b), sig, addr) {
			t.Fatalf("tampered message byte %d still verified", i)
		}
	}
}

func TestVerifyTamperedSignature(t *testing.T) {
	key, addr := newWallet(t)
	msg := BuildMessage(sampleFields())
	sig, err := Sign(msg, key)
	if err != nil {
		t.Fatal(err)
	}
	raw, _ := hex.DecodeString(sig[2:])

	for i := range raw {
		mutated := append([]byte(nil), raw...)
		mutated[i] ^= 0x01
		if Verify(msg, "0x"+hex.EncodeToString(mutated), addr) {
			t.Fatalf("tampered signature byte %d still verified", i)
		}
	}

	// The mirrored high-s form recovers the same key and must be refused.
	n := ethcrypto.S256().Params().N
	s := new(big.Int).SetBytes(raw[32:64])
	highS := new(big.Int).Sub(n, s).FillBytes(make([]byte, 32))
	mirrored := append(append(append([]byte(nil), raw[:32]...), highS...), 55-raw[64])
	if Verify(msg, "0x"+hex.EncodeToString(mirrored), addr) {
		t.Fatal("high-s signature verified")
	}
	if _, err := RecoverAddress(msg, "0x"+hex.EncodeToString(mirrored)); err == nil {
		t.Fatal("RecoverAddress accepted a high-s signature")
	}
}

func TestVerifyMalformedInput(t *testing.T) {
	_, addr := newWallet(t)
	tests := []struct {
		name     string
		sig      string
		expected string
	}{
		{"empty", "", addr},
		{"not hex", "0xzz", addr},
		{"short", "0x" + strings.Repeat("ab", 64), addr},
		{"long", "0x" + strings.Repeat("ab", 66), addr},
		{"bad v", "0x" + strings.Repeat("11", 64) + "05", addr},
		{"bad expected", "0x" + strings.Repeat("11", 65), "not-an-address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if Verify("msg", tt.sig, tt.expected) {
				t.Fatal("malformed input verified")
			}
		})
	}
}

func TestRecoverAddress(t *testing.T) {
	key, addr := newWallet(t)
	sig, err := Sign("recover me", key)
	if err != nil {
		t.Fatal(err)
	}
	got, err := RecoverAddress("recover me", sig)
	if err != nil {
		t.Fatal(err)
	}
	if got.Hex() != addr {
		t.Errorf("RecoverAddress() = %s, want %s", got.Hex(), addr)
	}
}
