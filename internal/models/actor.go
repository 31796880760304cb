package models

import (
	"fmt"
	"sort"
	"strings"
)

const ActorTypeWallet = "wallet"

// Actor is the identity performing a reported action: a wallet plus any
// linked external accounts. The structured form is authoritative; the
// colon-delimited string only exists inside the signed message.
type Actor struct {
	Type           string            `json:"type"`
	Address        string            `json:"address"`
	SessionID      string            `json:"sessionId,omitempty"`
	LinkedAccounts map[string]string `json:"linkedAccounts,omitempty"`
}

// WalletActor builds a wallet actor with an optional linked account.
func WalletActor(address, platform, externalID string) Actor {
	a := Actor{Type: ActorTypeWallet, Address: address}
	if platform != "" && externalID != "" {
		a.LinkedAccounts = map[string]string{platform: externalID}
	}
	return a
}

func (a Actor) Validate() error {
	if a.Type == "" || a.Address == "" {
		return fmt.Errorf("actor type and address are required")
	}
	for _, s := range []string{a.Type, a.Address, a.SessionID} {
		if strings.Contains(s, ":") {
			return fmt.Errorf("actor component %q must not contain ':'", s)
		}
	}
	for platform, id := range a.LinkedAccounts {
		if platform == "" || id == "" {
			return fmt.Errorf("linked account platform and id are required")
		}
		if strings.Contains(platform, ":") || strings.Contains(id, ":") {
			return fmt.Errorf("linked account %s:%s must not contain ':'", platform, id)
		}
	}
	return nil
}

// Canonical renders type:address[:sessionId][:platform:id...], linked
// accounts ordered by platform.
func (a Actor) Canonical() string {
	parts := []string{a.Type, a.Address}
	if a.SessionID != "" {
		parts = append(parts, a.SessionID)
	}
	platforms := make([]string, 0, len(a.LinkedAccounts))
	for p := range a.LinkedAccounts {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)
	for _, p := range platforms {
		parts = append(parts, p, a.LinkedAccounts[p])
	}
	return strings.Join(parts, ":")
}

// ParseActor is the inverse of Canonical.
func ParseActor(s string) (Actor, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Actor{}, fmt.Errorf("invalid actor %q", s)
	}
	a := Actor{Type: parts[0], Address: parts[1]}
	rest := parts[2:]
	if len(rest)%2 == 1 {
		a.SessionID = rest[0]
		rest = rest[1:]
	}
	for i := 0; i < len(rest); i += 2 {
		if a.LinkedAccounts == nil {
			a.LinkedAccounts = make(map[string]string)
		}
		a.LinkedAccounts[rest[i]] = rest[i+1]
	}
	return a, a.Validate()
}
