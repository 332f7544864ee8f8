// Package config builds the gateway's static configuration once at startup.
// Every component receives it read-only; invalid or missing configuration is
// fatal before the server accepts its first request.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// rawConfig mirrors the environment surface before parsing.
type rawConfig struct {
	ListenAddr      string `validate:"required"`
	Network         string `validate:"required"`
	AssetMint       string `validate:"required,base58"`
	RecipientWallet string `validate:"required,base58"`
	PriceBaseUnits  string `validate:"required"`
	SettlementRPC   string `validate:"required,url"`
	UpstreamRPC     string `validate:"required,url"`
	Resource        string `validate:"required,url"`
	Description     string
	FeePayer        string
	Commitment      string `validate:"omitempty,oneof=processed confirmed finalized"`
	ConfirmTimeout  string
	PollInterval    string
	UpstreamTimeout string
	LogLevel        string `validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics   string
}

// Config is the parsed, validated gateway configuration.
type Config struct {
	// ListenAddr is the address the HTTP server binds to.
	ListenAddr string

	// Network is the settlement network identifier advertised in challenges.
	Network string

	// AssetMint is the SPL token mint of the accepted asset.
	AssetMint solana.PublicKey

	// RecipientWallet is the payee's wallet address.
	RecipientWallet solana.PublicKey

	// RecipientTokenAccount is the associated token account derived from
	// (AssetMint, RecipientWallet). Transfers must land here.
	RecipientTokenAccount solana.PublicKey

	// Price is the minimum required transfer, in atomic units.
	Price uint64

	// SettlementRPC is the RPC endpoint used to broadcast and confirm.
	SettlementRPC string

	// UpstreamRPC is the metered premium endpoint requests are relayed to.
	UpstreamRPC string

	// Resource is the public URL of this gateway's paid endpoint.
	Resource string

	// Description is the human text shown in challenges.
	Description string

	// FeePayer is an optional fee-payer hint surfaced in challenge extras.
	FeePayer string

	// Commitment is the confirmation level settlement waits for.
	Commitment rpc.CommitmentType

	// ConfirmTimeout bounds broadcast-plus-confirmation.
	ConfirmTimeout time.Duration

	// PollInterval is the signature status polling cadence.
	PollInterval time.Duration

	// UpstreamTimeout bounds the upstream relay call.
	UpstreamTimeout time.Duration

	// LogLevel selects the zap level.
	LogLevel string

	// EnableMetrics turns on the Prometheus recorder and /metrics endpoint.
	EnableMetrics bool
}

const (
	defaultListenAddr      = ":3001"
	defaultCommitment      = rpc.CommitmentConfirmed
	defaultConfirmTimeout  = 60 * time.Second
	defaultPollInterval    = 3 * time.Second
	defaultUpstreamTimeout = 30 * time.Second
)

// FromEnv assembles a Config from environment variables. Callers that want
// .env file support load it before calling (see cmd/payrpc).
func FromEnv() (*Config, error) {
	raw := rawConfig{
		ListenAddr:      envOr("LISTEN_ADDR", defaultListenAddr),
		Network:         envOr("X402_NETWORK", "solana-devnet"),
		AssetMint:       os.Getenv("USDC_MINT"),
		RecipientWallet: os.Getenv("RECIPIENT_WALLET"),
		PriceBaseUnits:  os.Getenv("PRICE_USDC_BASE"),
		SettlementRPC:   envOr("SETTLEMENT_RPC_URL", rpc.DevNet_RPC),
		UpstreamRPC:     os.Getenv("PREMIUM_RPC_URL"),
		Resource:        os.Getenv("RESOURCE_URL"),
		Description:     os.Getenv("RESOURCE_DESCRIPTION"),
		FeePayer:        os.Getenv("FEE_PAYER"),
		Commitment:      os.Getenv("COMMITMENT"),
		ConfirmTimeout:  os.Getenv("CONFIRM_TIMEOUT"),
		PollInterval:    os.Getenv("POLL_INTERVAL"),
		UpstreamTimeout: os.Getenv("UPSTREAM_TIMEOUT"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		EnableMetrics:   os.Getenv("ENABLE_METRICS"),
	}
	return parse(raw)
}

func parse(raw rawConfig) (*Config, error) {
	v := validator.New()
	if err := v.RegisterValidation("base58", isBase58); err != nil {
		return nil, err
	}
	if err := v.Struct(raw); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	mint, err := solana.PublicKeyFromBase58(raw.AssetMint)
	if err != nil {
		return nil, fmt.Errorf("USDC_MINT: %w", err)
	}
	recipient, err := solana.PublicKeyFromBase58(raw.RecipientWallet)
	if err != nil {
		return nil, fmt.Errorf("RECIPIENT_WALLET: %w", err)
	}
	ata, _, err := solana.FindAssociatedTokenAddress(recipient, mint)
	if err != nil {
		return nil, fmt.Errorf("derive recipient token account: %w", err)
	}

	price, err := parsePrice(raw.PriceBaseUnits)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:            raw.ListenAddr,
		Network:               raw.Network,
		AssetMint:             mint,
		RecipientWallet:       recipient,
		RecipientTokenAccount: ata,
		Price:                 price,
		SettlementRPC:         raw.SettlementRPC,
		UpstreamRPC:           raw.UpstreamRPC,
		Resource:              raw.Resource,
		Description:           raw.Description,
		FeePayer:              raw.FeePayer,
		Commitment:            defaultCommitment,
		LogLevel:              raw.LogLevel,
		EnableMetrics:         raw.EnableMetrics == "true" || raw.EnableMetrics == "1",
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if raw.Commitment != "" {
		cfg.Commitment = rpc.CommitmentType(raw.Commitment)
	}
	if cfg.ConfirmTimeout, err = parseDuration(raw.ConfirmTimeout, defaultConfirmTimeout); err != nil {
		return nil, fmt.Errorf("CONFIRM_TIMEOUT: %w", err)
	}
	if cfg.PollInterval, err = parseDuration(raw.PollInterval, defaultPollInterval); err != nil {
		return nil, fmt.Errorf("POLL_INTERVAL: %w", err)
	}
	if cfg.UpstreamTimeout, err = parseDuration(raw.UpstreamTimeout, defaultUpstreamTimeout); err != nil {
		return nil, fmt.Errorf("UPSTREAM_TIMEOUT: %w", err)
	}
	return cfg, nil
}

// Fields returns the effective configuration as structured log fields,
// logged once at startup.
func (c *Config) Fields() map[string]any {
	return map[string]any{
		"listenAddr":            c.ListenAddr,
		"network":               c.Network,
		"assetMint":             c.AssetMint.String(),
		"recipientWallet":       c.RecipientWallet.String(),
		"recipientTokenAccount": c.RecipientTokenAccount.String(),
		"price":                 c.Price,
		"settlementRpc":         c.SettlementRPC,
		"upstreamRpc":           c.UpstreamRPC,
		"commitment":            string(c.Commitment),
		"confirmTimeout":        c.ConfirmTimeout.String(),
	}
}

// parsePrice accepts a non-negative integer amount in atomic units.
func parsePrice(amount string) (uint64, error) {
	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("PRICE_USDC_BASE: invalid amount format: %w", err)
	}
	if dec.IsNegative() {
		return 0, fmt.Errorf("PRICE_USDC_BASE: amount cannot be negative")
	}
	if !dec.IsInteger() {
		return 0, fmt.Errorf("PRICE_USDC_BASE: amount must be in atomic units (integer)")
	}
	price, err := strconv.ParseUint(dec.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("PRICE_USDC_BASE: amount out of range: %w", err)
	}
	return price, nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if s == "" {
		return def, nil
	}
	return time.ParseDuration(s)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func isBase58(fl validator.FieldLevel) bool {
	_, err := solana.PublicKeyFromBase58(fl.Field().String())
	return err == nil
}
