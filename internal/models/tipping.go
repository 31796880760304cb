package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Token struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	ChainID  int64  `json:"chainId"`
}

type TipRule struct {
	Enabled bool   `json:"enabled"`
	Amount  string `json:"amount"` // decimal as string
}

type TipLimits struct {
	DailyBudget string `json:"dailyBudget,omitempty"` // "" or "0" = no limit
	CooldownSec int64  `json:"cooldownSec"`
}

// TippingConfig is owned by one wallet and always replaced wholesale.
type TippingConfig struct {
	Enabled   bool               `json:"enabled"`
	Token     Token              `json:"token"`
	Rules     map[string]TipRule `json:"rules"`
	Limits    TipLimits          `json:"limits"`
	UpdatedAt *time.Time         `json:"updatedAt,omitempty"`
}

// Validate checks amounts and limits. Amounts must be non-negative decimals
// with no more fractional digits than the token allows.
func (c *TippingConfig) Validate() error {
	if c.Token.Decimals < 0 || c.Token.Decimals > 36 {
		return fmt.Errorf("token.decimals out of range: %d", c.Token.Decimals)
	}
	for action, rule := range c.Rules {
		if action == "" {
			return fmt.Errorf("rule action must not be empty")
		}
		if rule.Amount == "" {
			if rule.Enabled {
				return fmt.Errorf("rule %s: amount is required", action)
			}
			continue
		}
		amt, err := ParseAmount(rule.Amount)
		if err != nil {
			return fmt.Errorf("rule %s: %w", action, err)
		}
		if c.Token.Decimals > 0 && -amt.Exponent() > int32(c.Token.Decimals) {
			return fmt.Errorf("rule %s: amount %s has more than %d decimals", action, rule.Amount, c.Token.Decimals)
		}
	}
	if c.Limits.DailyBudget != "" {
		if _, err := ParseAmount(c.Limits.DailyBudget); err != nil {
			return fmt.Errorf("limits.dailyBudget: %w", err)
		}
	}
	if c.Limits.CooldownSec < 0 {
		return fmt.Errorf("limits.cooldownSec must not be negative")
	}
	return nil
}

// Clone deep-copies the config so readers never see a later writer's map.
func (c *TippingConfig) Clone() *TippingConfig {
	if c == nil {
		return nil
	}
	out := *c
	if c.Rules != nil {
		out.Rules = make(map[string]TipRule, len(c.Rules))
		for k, v := range c.Rules {
			out.Rules[k] = v
		}
	}
	out.UpdatedAt = cloneTime(c.UpdatedAt)
	return &out
}

// HasDailyBudget distinguishes "no limit" from a configured budget.
func (l TipLimits) HasDailyBudget() bool {
	if l.DailyBudget == "" {
		return false
	}
	d, err := ParseAmount(l.DailyBudget)
	return err == nil && d.IsPositive()
}

// ParseAmount parses a non-negative decimal string.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("amount %q must not be negative", s)
	}
	return d, nil
}

// DefaultTippingConfig is served to wallets that never saved a config.
func DefaultTippingConfig() *TippingConfig {
	return &TippingConfig{
		Enabled: false,
		Token: Token{
			Address:  "0x0000000000000000000000000000000000000000",
			Symbol:   "USDC",
			Decimals: 6,
			ChainID:  1,
		},
		Rules: map[string]TipRule{
			ActionLike:   {Enabled: false, Amount: "0.10"},
			ActionFollow: {Enabled: false, Amount: "0.50"},
		},
		Limits: TipLimits{
			DailyBudget: "10.00",
			CooldownSec: 60,
		},
	}
}

// Recipient sources
const (
	RecipientSourceClaim   = "claim"
	RecipientSourceDefault = "default"
)

// Quote is the outcome of the tip-eligibility decision.
type Quote struct {
	EventID             int64  `json:"eventId"`
	ShouldTip           bool   `json:"shouldTip"`
	Reason              string `json:"reason,omitempty"`
	Token               *Token `json:"token,omitempty"`
	Amount              string `json:"amount,omitempty"`
	Recipient           string `json:"recipient,omitempty"`
	RecipientSource     string `json:"recipientSource,omitempty"`
	IdempotencyKey      string `json:"idempotencyKey,omitempty"`
	DailyBudgetEnforced bool   `json:"dailyBudgetEnforced"`
}
