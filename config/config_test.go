package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

func validRaw() rawConfig {
	return rawConfig{
		ListenAddr:      ":3001",
		Network:         "solana-devnet",
		AssetMint:       solana.NewWallet().PublicKey().String(),
		RecipientWallet: solana.NewWallet().PublicKey().String(),
		PriceBaseUnits:  "100",
		SettlementRPC:   "https://api.devnet.solana.com",
		UpstreamRPC:     "https://premium.example.com/rpc",
		Resource:        "https://gateway.example.com/rpc",
	}
}

func TestParse_Valid(t *testing.T) {
	raw := validRaw()
	cfg, err := parse(raw)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}

	if cfg.Price != 100 {
		t.Errorf("price = %d, want 100", cfg.Price)
	}
	if cfg.RecipientTokenAccount.IsZero() {
		t.Error("recipient token account was not derived")
	}
	if cfg.Commitment != rpc.CommitmentConfirmed {
		t.Errorf("commitment = %s, want confirmed default", cfg.Commitment)
	}
	if cfg.ConfirmTimeout != 60*time.Second {
		t.Errorf("confirm timeout = %s, want 60s default", cfg.ConfirmTimeout)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("log level = %s, want info default", cfg.LogLevel)
	}
}

func TestParse_DerivedTokenAccountIsDeterministic(t *testing.T) {
	raw := validRaw()
	a, err := parse(raw)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	b, err := parse(raw)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if !a.RecipientTokenAccount.Equals(b.RecipientTokenAccount) {
		t.Errorf("token account derivation not deterministic: %s vs %s",
			a.RecipientTokenAccount, b.RecipientTokenAccount)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*rawConfig)
	}{
		{"missing mint", func(r *rawConfig) { r.AssetMint = "" }},
		{"mint not base58", func(r *rawConfig) { r.AssetMint = "not-a-key-0OIl" }},
		{"missing recipient", func(r *rawConfig) { r.RecipientWallet = "" }},
		{"missing price", func(r *rawConfig) { r.PriceBaseUnits = "" }},
		{"negative price", func(r *rawConfig) { r.PriceBaseUnits = "-5" }},
		{"fractional price", func(r *rawConfig) { r.PriceBaseUnits = "0.0001" }},
		{"price not a number", func(r *rawConfig) { r.PriceBaseUnits = "one hundred" }},
		{"missing upstream", func(r *rawConfig) { r.UpstreamRPC = "" }},
		{"upstream not a url", func(r *rawConfig) { r.UpstreamRPC = "::nope" }},
		{"bad commitment", func(r *rawConfig) { r.Commitment = "instant" }},
		{"bad timeout", func(r *rawConfig) { r.ConfirmTimeout = "sixty" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(&raw)
			if _, err := parse(raw); err == nil {
				t.Error("parse() succeeded, want error")
			}
		})
	}
}

func TestParse_CustomDurations(t *testing.T) {
	raw := validRaw()
	raw.Commitment = "finalized"
	raw.ConfirmTimeout = "90s"
	raw.PollInterval = "500ms"
	raw.UpstreamTimeout = "15s"

	cfg, err := parse(raw)
	if err != nil {
		t.Fatalf("parse() error = %v", err)
	}
	if cfg.Commitment != rpc.CommitmentFinalized {
		t.Errorf("commitment = %s, want finalized", cfg.Commitment)
	}
	if cfg.ConfirmTimeout != 90*time.Second {
		t.Errorf("confirm timeout = %s, want 90s", cfg.ConfirmTimeout)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval = %s, want 500ms", cfg.PollInterval)
	}
	if cfg.UpstreamTimeout != 15*time.Second {
		t.Errorf("upstream timeout = %s, want 15s", cfg.UpstreamTimeout)
	}
}
