package auth

import (
	"testing"
	"time"
)

func TestJWT_RoundTrip(t *testing.T) {
	token, err := GenerateJWT("secret", "0xAbC0000000000000000000000000000000000001", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	claims, err := ParseJWT("secret", token)
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if claims.Wallet != "0xabc0000000000000000000000000000000000001" {
		t.Errorf("wallet = %q, want lower-cased address", claims.Wallet)
	}
	if claims.ID == "" {
		t.Error("token id is empty")
	}
}

func TestJWT_Rejects(t *testing.T) {
	valid, _ := GenerateJWT("secret", "0xabc", time.Hour)
	expired, _ := GenerateJWT("secret", "0xabc", -time.Hour)
	_ = expired

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", valid},
		{"garbage", "secret", "not.a.token"},
		{"empty", "secret", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseJWT(tt.secret, tt.token); err == nil {
				t.Error("expected error")
			}
		})
	}
}
