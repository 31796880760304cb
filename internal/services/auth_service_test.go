package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/eventhub/backend/internal/apperr"
	"github.com/eventhub/backend/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthService_Login(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := newTestWallet(t)

	ch, err := env.auth.CreateChallenge(ctx, w.address)
	require.NoError(t, err)
	assert.Contains(t, ch.Message, ch.Nonce.Nonce)
	assert.Contains(t, ch.Message, strings.ToLower(w.address))

	res, err := env.auth.Login(ctx, w.address, ch.Nonce.Nonce, w.sign(t, ch.Message))
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(w.address), res.Wallet)

	claims, err := auth.ParseJWT(env.cfg.JWTSecret, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.Wallet, claims.Wallet)

	// The nonce is single use.
	_, err = env.auth.Login(ctx, w.address, ch.Nonce.Nonce, w.sign(t, ch.Message))
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err))
}

func TestAuthService_LoginRejects(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	w := newTestWallet(t)
	other := newTestWallet(t)

	ch, err := env.auth.CreateChallenge(ctx, w.address)
	require.NoError(t, err)
	_, err = env.auth.Login(ctx, w.address, ch.Nonce.Nonce, other.sign(t, ch.Message))
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err), "foreign signature")

	ch, err = env.auth.CreateChallenge(ctx, w.address)
	require.NoError(t, err)
	env.clock.Advance(2 * time.Minute)
	_, err = env.auth.Login(ctx, w.address, ch.Nonce.Nonce, w.sign(t, ch.Message))
	assert.Equal(t, apperr.KindAuthentication, apperr.KindOf(err), "expired nonce")

	_, err = env.auth.CreateChallenge(ctx, "0xbad")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.auth.Login(ctx, w.address, "", "0x00")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}
