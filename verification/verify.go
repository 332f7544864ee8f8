// Package verification decides whether a caller-supplied settlement
// transaction actually pays for the request. The decision is derived from the
// instruction encoding alone: amounts or destinations declared anywhere else
// by the caller are attacker-controlled and never consulted.
package verification

import (
	"encoding/binary"
	"math/big"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"

	"github.com/blockforge/payrpc/types"
)

// SPL token program instruction discriminators accepted as payment.
const (
	opTransfer        byte = 3
	opTransferChecked byte = 12
)

// Transfer instruction data layout: [opcode u8][amount u64 LE]...
const minTransferDataLen = 9

// Validator establishes a single fact about a transaction: some instruction
// moves at least the configured price of the configured asset into the
// recipient's token account.
type Validator struct {
	tokenProgram solana.PublicKey
	recipient    solana.PublicKey
	price        decimal.Decimal
}

// NewValidator builds a Validator for the given recipient token account and
// minimum price in atomic units.
func NewValidator(recipientTokenAccount solana.PublicKey, price uint64) *Validator {
	return &Validator{
		tokenProgram: solana.TokenProgramID,
		recipient:    recipientTokenAccount,
		price:        decimal.NewFromBigInt(new(big.Int).SetUint64(price), 0),
	}
}

// ValidateTransfer parses raw transaction bytes and scans every instruction
// for a sufficient transfer. The raw buffer is never modified: on success the
// caller broadcasts those exact bytes, not a re-serialization of the parse.
//
// The scan covers the whole instruction list. Callers legitimately prepend
// compute-budget or token-account-creation instructions, so a transfer at any
// position satisfies the requirement.
func (v *Validator) ValidateTransfer(raw []byte) (*types.TransferMatch, *types.PaymentError) {
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, types.NewPaymentError(types.ErrMalformedTransaction,
			"transaction bytes failed to decode", err)
	}

	keys := tx.Message.AccountKeys
	for i, inst := range tx.Message.Instructions {
		if int(inst.ProgramIDIndex) >= len(keys) {
			continue
		}
		if !keys[inst.ProgramIDIndex].Equals(v.tokenProgram) {
			continue
		}
		if len(inst.Data) < minTransferDataLen {
			continue
		}
		if inst.Data[0] != opTransfer && inst.Data[0] != opTransferChecked {
			continue
		}
		// Account slot 1 is the destination for both transfer variants.
		if len(inst.Accounts) < 2 || int(inst.Accounts[1]) >= len(keys) {
			continue
		}
		dest := keys[inst.Accounts[1]]
		if !dest.Equals(v.recipient) {
			continue
		}

		amount := binary.LittleEndian.Uint64(inst.Data[1:minTransferDataLen])
		paid := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0)
		if paid.GreaterThanOrEqual(v.price) {
			return &types.TransferMatch{
				InstructionIndex: i,
				Amount:           amount,
				Destination:      dest.String(),
			}, nil
		}
	}

	return nil, types.NewPaymentError(types.ErrInsufficientOrInvalidTransfer,
		"no instruction transfers the required amount to the recipient", nil)
}
