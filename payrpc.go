// Package payrpc implements a settlement-gated proxy in front of a metered
// Solana RPC endpoint. A request either receives a structured x402 payment
// challenge, or — once the caller supplies a signed SPL token transfer that
// verifiably pays the configured price — is settled on-chain and relayed to
// the premium upstream exactly once.
package payrpc

import (
	"context"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go/rpc"

	"github.com/blockforge/payrpc/config"
	"github.com/blockforge/payrpc/envelope"
	"github.com/blockforge/payrpc/logger"
	"github.com/blockforge/payrpc/metrics"
	"github.com/blockforge/payrpc/settlement"
	"github.com/blockforge/payrpc/types"
	"github.com/blockforge/payrpc/upstream"
	"github.com/blockforge/payrpc/verification"
)

// Gateway wires the payment pipeline: envelope decoding, transfer
// verification, settlement, and upstream forwarding. It holds no per-request
// state; everything mutable is scoped to a single Process call.
type Gateway struct {
	cfg       *config.Config
	validator *verification.Validator
	submitter *settlement.Submitter
	forwarder *upstream.Forwarder
	challenge types.PaymentRequired

	rpcClient settlement.RPCClient
	log       logger.Logger
	metrics   metrics.Recorder
}

// New creates a Gateway from validated configuration.
func New(cfg *config.Config, opts ...Option) *Gateway {
	g := &Gateway{
		cfg:     cfg,
		log:     logger.NoopLogger{},
		metrics: metrics.NoopRecorder{},
	}

	for _, opt := range opts {
		opt(g)
	}

	if g.rpcClient == nil {
		g.rpcClient = rpc.New(cfg.SettlementRPC)
	}

	g.validator = verification.NewValidator(cfg.RecipientTokenAccount, cfg.Price)
	g.submitter = settlement.NewSubmitter(g.rpcClient, cfg.Commitment, cfg.ConfirmTimeout, cfg.PollInterval, g.log)
	g.forwarder = upstream.NewForwarder(cfg.UpstreamRPC, cfg.UpstreamTimeout)
	g.challenge = buildChallenge(cfg)

	return g
}

// Challenge returns the payment challenge issued to unpaid requests. It is
// built once from configuration, so its serialization is identical across
// calls and caller tooling can cache it.
func (g *Gateway) Challenge() types.PaymentRequired {
	return g.challenge
}

// Logger returns the gateway's logger, for collaborators that share it.
func (g *Gateway) Logger() logger.Logger { return g.log }

// Process runs the paid path for one request: decode the payment header,
// verify the transfer, settle on-chain, then relay body to the upstream.
// The returned map is the merged upstream response. On failure the returned
// PaymentError identifies the stage; the settlement broadcast is reached
// only after verification succeeds.
func (g *Gateway) Process(ctx context.Context, paymentHeader string, body []byte) (map[string]any, *types.PaymentError) {
	txBytes, perr := envelope.Decode(paymentHeader)
	if perr != nil {
		g.observe("decode", perr)
		return nil, perr
	}

	match, perr := g.validator.ValidateTransfer(txBytes)
	if perr != nil {
		g.observe("verify", perr)
		return nil, perr
	}
	g.log.Info("transfer verified", map[string]any{
		"amount":      match.Amount,
		"destination": match.Destination,
		"instruction": match.InstructionIndex,
	})

	settleStart := time.Now()
	result, perr := g.submitter.Settle(ctx, txBytes)
	g.metrics.ObserveLatency("settle", time.Since(settleStart), map[string]string{"stage": "settle"})
	if perr != nil {
		g.observe("settle", perr)
		return nil, perr
	}

	forwardStart := time.Now()
	merged, perr := g.forwarder.Forward(ctx, body, result.Signature)
	g.metrics.ObserveLatency("forward", time.Since(forwardStart), map[string]string{"stage": "forward"})
	if perr != nil {
		g.observe("forward", perr)
		return nil, perr
	}

	g.metrics.IncCounter("fulfilled", map[string]string{"stage": "forward"})
	g.log.Info("request fulfilled", map[string]any{
		"signature": result.Signature,
	})
	return merged, nil
}

func (g *Gateway) observe(stage string, perr *types.PaymentError) {
	g.metrics.IncCounter(string(perr.Code), map[string]string{"stage": stage})
	g.log.Warn("payment stage failed", map[string]any{
		"stage": stage,
		"code":  string(perr.Code),
		"error": perr.Error(),
	})
}

func buildChallenge(cfg *config.Config) types.PaymentRequired {
	challenge := types.PaymentChallenge{
		Scheme:            "exact",
		Network:           cfg.Network,
		MaxAmountRequired: strconv.FormatUint(cfg.Price, 10),
		Resource:          cfg.Resource,
		Description:       cfg.Description,
		MimeType:          "application/json",
		OutputSchema: &types.OutputSchema{
			Input: types.InputSchema{
				Type:     "http",
				Method:   "POST",
				BodyType: "json",
			},
		},
		PayTo:             cfg.RecipientWallet.String(),
		MaxTimeoutSeconds: int(cfg.ConfirmTimeout / time.Second),
		Asset:             cfg.AssetMint.String(),
	}
	if cfg.FeePayer != "" {
		challenge.Extra = map[string]string{"feePayer": cfg.FeePayer}
	}
	return types.PaymentRequired{
		X402Version: types.X402Version,
		Error:       "X-PAYMENT header is required",
		Accepts:     []types.PaymentChallenge{challenge},
	}
}

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = types.X402Version
)
