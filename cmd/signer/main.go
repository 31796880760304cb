// Command signer produces wallet signatures for local testing of the API:
// the canonical event message, or a login challenge message.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/eventhub/backend/internal/models"
	"github.com/eventhub/backend/internal/verify"
)

func main() {
	var (
		keyHex    = flag.String("key", os.Getenv("SIGNER_PRIVATE_KEY"), "hex private key (or SIGNER_PRIVATE_KEY)")
		platform  = flag.String("platform", "soundcloud", "event platform")
		action    = flag.String("action", models.ActionLike, "event action")
		actor     = flag.String("actor", "", "actor, defaults to wallet:<address>")
		target    = flag.String("target", "", "event target, e.g. track:123")
		timestamp = flag.Int64("timestamp", 0, "unix ms, defaults to now")
		nonce     = flag.String("nonce", "", "sign a login challenge for this nonce instead of an event")
	)
	flag.Parse()

	key, err := crypto.HexToECDSA(strings.TrimPrefix(*keyHex, "0x"))
	if err != nil {
		fail("invalid -key: %v", err)
	}
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	if *nonce != "" {
		msg := verify.LoginMessage(verify.NormalizeAddress(address), *nonce)
		sig, err := verify.Sign(msg, key)
		if err != nil {
			fail("sign: %v", err)
		}
		emit(map[string]any{"walletAddress": address, "nonce": *nonce, "signature": sig})
		return
	}

	if *target == "" {
		fail("-target is required")
	}
	f := models.EventFields{
		Platform:      *platform,
		Action:        *action,
		Actor:         *actor,
		Target:        *target,
		Timestamp:     *timestamp,
		WalletAddress: address,
	}
	if f.Actor == "" {
		f.Actor = models.WalletActor(address, "", "").Canonical()
	}
	if f.Timestamp == 0 {
		f.Timestamp = time.Now().UnixMilli()
	}

	sig, err := verify.Sign(verify.BuildMessage(f), key)
	if err != nil {
		fail("sign: %v", err)
	}
	emit(map[string]any{
		"platform":      f.Platform,
		"action":        f.Action,
		"actor":         f.Actor,
		"target":        f.Target,
		"timestamp":     f.Timestamp,
		"walletAddress": f.WalletAddress,
		"signature":     sig,
	})
}

func emit(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "signer: "+format+"\n", args...)
	os.Exit(1)
}
