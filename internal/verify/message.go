package verify

import (
	"strconv"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/eventhub/backend/internal/models"
)

// MessageTitle is the first line of every event signature message.
const MessageTitle = "Web2-Web3 Event Signature"

// BuildMessage renders the canonical message a wallet signs for an event.
// The layout is shared byte for byte with the wallet frontend: title, blank
// line, then one labeled line per field in a fixed order, no trailing newline.
func BuildMessage(f models.EventFields) string {
	var b strings.Builder
	b.WriteString(MessageTitle)
	b.WriteString("\n\n")
	b.WriteString("Platform: ")
	b.WriteString(f.Platform)
	b.WriteString("\nAction: ")
	b.WriteString(f.Action)
	b.WriteString("\nActor: ")
	b.WriteString(f.Actor)
	b.WriteString("\nTarget: ")
	b.WriteString(f.Target)
	b.WriteString("\nTimestamp: ")
	b.WriteString(strconv.FormatInt(f.Timestamp, 10))
	b.WriteString("\nWallet: ")
	b.WriteString(f.WalletAddress)
	return b.String()
}

// Fingerprint identifies the signed tuple independent of the letter case of
// the wallet address, including where the address appears inside the actor.
// Two submits with the same fingerprint describe the same action.
func Fingerprint(f models.EventFields) string {
	wallet := NormalizeAddress(f.WalletAddress)
	parts := strings.Split(f.Actor, ":")
	for i, p := range parts {
		if strings.EqualFold(p, wallet) {
			parts[i] = wallet
		}
	}
	f.WalletAddress = wallet
	f.Actor = strings.Join(parts, ":")
	return ethcrypto.Keccak256Hash([]byte(BuildMessage(f))).Hex()
}

// LoginMessage is signed by a wallet to obtain a session token.
func LoginMessage(walletAddress, nonce string) string {
	return "Event Hub login\n\nWallet: " + walletAddress + "\nNonce: " + nonce
}
