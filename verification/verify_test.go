package verification

import (
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/blockforge/payrpc/types"
)

var computeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// transferInstruction builds raw SPL token transfer instruction data:
// [opcode][amount u64 LE].
func transferInstruction(opcode byte, amount uint64, source, dest, owner solana.PublicKey) solana.Instruction {
	data := make([]byte, 9)
	data[0] = opcode
	binary.LittleEndian.PutUint64(data[1:], amount)

	return solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
		{PublicKey: source, IsWritable: true},
		{PublicKey: dest, IsWritable: true},
		{PublicKey: owner, IsSigner: true},
	}, data)
}

// computeUnitLimitInstruction builds a SetComputeUnitLimit instruction, the
// kind of prefix instruction wallets commonly add before the transfer.
func computeUnitLimitInstruction(units uint32) solana.Instruction {
	data := make([]byte, 5)
	data[0] = 2
	binary.LittleEndian.PutUint32(data[1:], units)
	return solana.NewInstruction(computeBudgetProgramID, solana.AccountMetaSlice{}, data)
}

func serialize(t *testing.T, payer solana.PublicKey, instructions ...solana.Instruction) []byte {
	t.Helper()
	tx, err := solana.NewTransaction(instructions, solana.Hash{}, solana.TransactionPayer(payer))
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		t.Fatalf("serialize transaction: %v", err)
	}
	return raw
}

func TestValidateTransfer_MalformedBytes(t *testing.T) {
	v := NewValidator(solana.NewWallet().PublicKey(), 100)

	for _, raw := range [][]byte{nil, {}, {0x01}, {0xde, 0xad, 0xbe, 0xef}} {
		_, perr := v.ValidateTransfer(raw)
		if perr == nil {
			t.Fatalf("ValidateTransfer(%x) succeeded, want error", raw)
		}
		if perr.Code != types.ErrMalformedTransaction {
			t.Errorf("ValidateTransfer(%x) code = %s, want %s", raw, perr.Code, types.ErrMalformedTransaction)
		}
	}
}

func TestValidateTransfer_Match(t *testing.T) {
	recipientATA := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	source := solana.NewWallet().PublicKey()
	const price = 100

	tests := []struct {
		name   string
		opcode byte
		amount uint64
	}{
		{"transfer at exact price", 3, price},
		{"transfer above price", 3, price + 1},
		{"checked transfer at exact price", 12, price},
		{"checked transfer above price", 12, 1_000_000},
	}

	v := NewValidator(recipientATA, price)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := serialize(t, payer, transferInstruction(tt.opcode, tt.amount, source, recipientATA, payer))

			match, perr := v.ValidateTransfer(raw)
			if perr != nil {
				t.Fatalf("ValidateTransfer() error = %v", perr)
			}
			if match.Amount != tt.amount {
				t.Errorf("match amount = %d, want %d", match.Amount, tt.amount)
			}
			if match.Destination != recipientATA.String() {
				t.Errorf("match destination = %s, want %s", match.Destination, recipientATA)
			}
		})
	}
}

func TestValidateTransfer_NoMatch(t *testing.T) {
	recipientATA := solana.NewWallet().PublicKey()
	otherAccount := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	source := solana.NewWallet().PublicKey()
	const price = 100

	tests := []struct {
		name        string
		instruction solana.Instruction
	}{
		{
			"amount one below price",
			transferInstruction(3, price-1, source, recipientATA, payer),
		},
		{
			"wrong destination",
			transferInstruction(3, price, source, otherAccount, payer),
		},
		{
			"wrong program",
			solana.NewInstruction(solana.SystemProgramID, solana.AccountMetaSlice{
				{PublicKey: source, IsWritable: true},
				{PublicKey: recipientATA, IsWritable: true},
			}, []byte{3, 100, 0, 0, 0, 0, 0, 0, 0}),
		},
		{
			"wrong opcode",
			transferInstruction(7, price, source, recipientATA, payer),
		},
		{
			"truncated instruction data",
			solana.NewInstruction(solana.TokenProgramID, solana.AccountMetaSlice{
				{PublicKey: source, IsWritable: true},
				{PublicKey: recipientATA, IsWritable: true},
			}, []byte{3, 100}),
		},
	}

	v := NewValidator(recipientATA, price)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := serialize(t, payer, tt.instruction)

			_, perr := v.ValidateTransfer(raw)
			if perr == nil {
				t.Fatal("ValidateTransfer() succeeded, want error")
			}
			if perr.Code != types.ErrInsufficientOrInvalidTransfer {
				t.Errorf("code = %s, want %s", perr.Code, types.ErrInsufficientOrInvalidTransfer)
			}
		})
	}
}

func TestValidateTransfer_SDKBuiltTransfer(t *testing.T) {
	recipientATA := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	source := solana.NewWallet().PublicKey()
	const price = 100

	v := NewValidator(recipientATA, price)

	// A Transfer built with the token program's own builder puts the
	// destination at account slot 1, which is where the gateway reads it.
	// Paying clients must use this shape.
	transfer := token.NewTransferInstructionBuilder().
		SetAmount(price).
		SetSourceAccount(source).
		SetDestinationAccount(recipientATA).
		SetOwnerAccount(payer).
		Build()

	match, perr := v.ValidateTransfer(serialize(t, payer, transfer))
	if perr != nil {
		t.Fatalf("ValidateTransfer() error = %v", perr)
	}
	if match.Destination != recipientATA.String() {
		t.Errorf("match destination = %s, want %s", match.Destination, recipientATA)
	}
	if match.Amount != price {
		t.Errorf("match amount = %d, want %d", match.Amount, price)
	}

	// TransferChecked interposes the mint at slot 1 (source, mint,
	// destination, owner), so it does not satisfy the slot-1 destination
	// check even for a sufficient amount paid to the right account.
	checked := token.NewTransferCheckedInstructionBuilder().
		SetAmount(price).
		SetDecimals(6).
		SetSourceAccount(source).
		SetDestinationAccount(recipientATA).
		SetMintAccount(mint).
		SetOwnerAccount(payer).
		Build()

	_, perr = v.ValidateTransfer(serialize(t, payer, checked))
	if perr == nil {
		t.Fatal("ValidateTransfer() accepted a TransferChecked, want rejection")
	}
	if perr.Code != types.ErrInsufficientOrInvalidTransfer {
		t.Errorf("code = %s, want %s", perr.Code, types.ErrInsufficientOrInvalidTransfer)
	}
}

func TestValidateTransfer_MatchAtAnyPosition(t *testing.T) {
	recipientATA := solana.NewWallet().PublicKey()
	payer := solana.NewWallet().PublicKey()
	source := solana.NewWallet().PublicKey()
	const price = 100

	// Transfer preceded by compute-budget and an undersized transfer: the
	// scan must keep going until it finds the satisfying instruction.
	raw := serialize(t, payer,
		computeUnitLimitInstruction(200_000),
		transferInstruction(3, price-1, source, recipientATA, payer),
		transferInstruction(3, price, source, recipientATA, payer),
	)

	v := NewValidator(recipientATA, price)
	match, perr := v.ValidateTransfer(raw)
	if perr != nil {
		t.Fatalf("ValidateTransfer() error = %v", perr)
	}
	if match.InstructionIndex != 2 {
		t.Errorf("match instruction index = %d, want 2", match.InstructionIndex)
	}
	if match.Amount != price {
		t.Errorf("match amount = %d, want %d", match.Amount, price)
	}
}
