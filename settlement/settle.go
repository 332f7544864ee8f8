// Package settlement broadcasts a validated transaction to the settlement
// network and waits for it to reach the configured commitment. This is the
// irreversible step of the pipeline: once a broadcast succeeds, value has
// moved and the failure surface changes shape (see types.PaymentError).
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/blockforge/payrpc/logger"
	"github.com/blockforge/payrpc/types"
)

// RPCClient is the slice of the Solana RPC surface the submitter needs.
// *rpc.Client satisfies it; tests inject fakes.
type RPCClient interface {
	SendRawTransactionWithOpts(ctx context.Context, serializedTx []byte, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// Submitter broadcasts raw transaction bytes exactly once and polls for
// confirmation. The broadcast itself is never retried: a resend could double
// submit. Only the status polling repeats, on a bounded cadence.
type Submitter struct {
	client       RPCClient
	commitment   rpc.CommitmentType
	timeout      time.Duration
	pollInterval time.Duration
	log          logger.Logger
}

// NewSubmitter builds a Submitter. timeout bounds broadcast plus
// confirmation; pollInterval is the status polling cadence.
func NewSubmitter(client RPCClient, commitment rpc.CommitmentType, timeout, pollInterval time.Duration, log logger.Logger) *Submitter {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Submitter{
		client:       client,
		commitment:   commitment,
		timeout:      timeout,
		pollInterval: pollInterval,
		log:          log,
	}
}

// Settle broadcasts raw verbatim and blocks until the signature reaches the
// configured commitment or the timeout elapses.
//
// The whole settlement window is detached from the request context: a caller
// disconnect cannot cancel a transfer once the gateway has committed to
// broadcasting it. The timeout alone bounds the wait.
func (s *Submitter) Settle(ctx context.Context, raw []byte) (*types.SettlementResult, *types.PaymentError) {
	confirmCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	sig, err := s.client.SendRawTransactionWithOpts(confirmCtx, raw, rpc.TransactionOpts{
		SkipPreflight:       false,
		PreflightCommitment: s.commitment,
	})
	if err != nil {
		return nil, types.NewPaymentError(types.ErrSettlementRejected,
			"settlement network refused the transaction", err)
	}

	s.log.Info("transaction broadcast", map[string]any{
		"signature":  sig.String(),
		"commitment": string(s.commitment),
	})

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-confirmCtx.Done():
			perr := types.NewPaymentError(types.ErrSettlementTimeout,
				fmt.Sprintf("transaction %s not confirmed within %s", sig, s.timeout), confirmCtx.Err())
			perr.Signature = sig.String()
			return nil, perr
		case <-ticker.C:
		}

		statuses, err := s.client.GetSignatureStatuses(confirmCtx, false, sig)
		if err != nil || len(statuses.Value) == 0 || statuses.Value[0] == nil {
			// Transient lookup failure or not yet observed; keep polling.
			continue
		}

		status := statuses.Value[0]
		if status.Err != nil {
			perr := types.NewPaymentError(types.ErrSettlementRejected,
				fmt.Sprintf("transaction %s failed on-chain: %v", sig, status.Err), nil)
			perr.Signature = sig.String()
			return nil, perr
		}
		if commitmentReached(status.ConfirmationStatus, s.commitment) {
			s.log.Info("transaction confirmed", map[string]any{
				"signature": sig.String(),
				"slot":      status.Slot,
				"status":    string(status.ConfirmationStatus),
			})
			return &types.SettlementResult{
				Signature:  sig.String(),
				Slot:       status.Slot,
				Commitment: string(status.ConfirmationStatus),
			}, nil
		}
	}
}

// commitmentReached compares a reported confirmation status against the
// commitment the submitter waits for.
func commitmentReached(got rpc.ConfirmationStatusType, want rpc.CommitmentType) bool {
	rank := func(s string) int {
		switch s {
		case string(rpc.ConfirmationStatusProcessed):
			return 1
		case string(rpc.ConfirmationStatusConfirmed):
			return 2
		case string(rpc.ConfirmationStatusFinalized):
			return 3
		}
		return 0
	}
	return rank(string(got)) >= rank(string(want))
}
