package models

import "testing"

func TestTippingConfigValidate(t *testing.T) {
	base := func() *TippingConfig {
		c := DefaultTippingConfig()
		c.Enabled = true
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *TippingConfig)
		wantErr bool
	}{
		{"default is valid", func(c *TippingConfig) {}, false},
		{"bad amount", func(c *TippingConfig) { c.Rules[ActionLike] = TipRule{Enabled: true, Amount: "ten"} }, true},
		{"negative amount", func(c *TippingConfig) { c.Rules[ActionLike] = TipRule{Enabled: true, Amount: "-1"} }, true},
		{"too many decimals", func(c *TippingConfig) { c.Rules[ActionLike] = TipRule{Enabled: true, Amount: "0.0000001"} }, true},
		{"enabled rule without amount", func(c *TippingConfig) { c.Rules[ActionFollow] = TipRule{Enabled: true} }, true},
		{"disabled rule without amount", func(c *TippingConfig) { c.Rules[ActionFollow] = TipRule{} }, false},
		{"bad budget", func(c *TippingConfig) { c.Limits.DailyBudget = "lots" }, true},
		{"negative cooldown", func(c *TippingConfig) { c.Limits.CooldownSec = -5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHasDailyBudget(t *testing.T) {
	tests := map[string]bool{
		"":      false,
		"0":     false,
		"0.00":  false,
		"10.00": true,
		"bad":   false,
	}
	for budget, want := range tests {
		if got := (TipLimits{DailyBudget: budget}).HasDailyBudget(); got != want {
			t.Errorf("HasDailyBudget(%q) = %v, want %v", budget, got, want)
		}
	}
}

func TestTippingConfigCloneIsolatesRules(t *testing.T) {
	c := DefaultTippingConfig()
	clone := c.Clone()
	clone.Rules[ActionLike] = TipRule{Enabled: true, Amount: "9"}
	if c.Rules[ActionLike].Amount != "0.10" {
		t.Fatal("clone shares rules map with original")
	}
}
