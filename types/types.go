// Package types defines the wire-level data model of the pay-per-call
// gateway: the x402 payment challenge, the payment envelope carried in the
// X-Payment header, and the results produced by settlement and forwarding.
package types

// X402Version is the protocol version advertised in challenges.
const X402Version = 1

// PaymentChallenge describes the payment a caller must supply to access the
// metered resource. It is built once from static configuration and reused
// verbatim for every unpaid request, so its serialization must be stable.
type PaymentChallenge struct {
	// Scheme of the payment protocol (always "exact" for this gateway).
	Scheme string `json:"scheme"`

	// Network identifier of the settlement chain (e.g. "solana-devnet").
	Network string `json:"network"`

	// MaxAmountRequired is the price in atomic units of the asset,
	// represented as a string.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// Resource is the URL of the paid endpoint.
	Resource string `json:"resource"`

	// Description of what a payment buys.
	Description string `json:"description"`

	// MimeType of the paid response.
	MimeType string `json:"mimeType"`

	// OutputSchema describes the request shape the paid endpoint expects.
	OutputSchema *OutputSchema `json:"outputSchema,omitempty"`

	// PayTo is the recipient wallet address.
	PayTo string `json:"payTo"`

	// MaxTimeoutSeconds bounds how long settlement may take.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Asset is the SPL token mint address of the accepted asset.
	Asset string `json:"asset"`

	// Extra carries scheme-specific hints such as the fee payer.
	Extra map[string]string `json:"extra,omitempty"`
}

// OutputSchema describes how to invoke the paid resource.
type OutputSchema struct {
	Input InputSchema `json:"input"`
}

// InputSchema is the inbound half of OutputSchema.
type InputSchema struct {
	Type     string `json:"type"`
	Method   string `json:"method"`
	BodyType string `json:"bodyType"`
}

// PaymentRequired is the HTTP 402 body returned when no payment envelope
// accompanies a request.
type PaymentRequired struct {
	X402Version int                `json:"x402Version"`
	Error       string             `json:"error"`
	Accepts     []PaymentChallenge `json:"accepts"`
}

// PaymentEnvelope is the decoded X-Payment header. Fields beyond the
// serialized transaction are informational; nothing in them is trusted.
type PaymentEnvelope struct {
	X402Version int             `json:"x402Version,omitempty"`
	Scheme      string          `json:"scheme,omitempty"`
	Network     string          `json:"network,omitempty"`
	Payload     EnvelopePayload `json:"payload"`
}

// EnvelopePayload holds the base64-encoded signed settlement transaction.
type EnvelopePayload struct {
	SerializedTransaction string `json:"serializedTransaction"`
}

// TransferMatch records the instruction that satisfied the payment
// requirement. Derived from the instruction encoding itself, never from
// caller-declared metadata.
type TransferMatch struct {
	// InstructionIndex is the position of the matching instruction.
	InstructionIndex int

	// Amount moved, in atomic units.
	Amount uint64

	// Destination is the token account receiving the transfer.
	Destination string
}

// SettlementResult is produced once a broadcast transaction reaches the
// configured commitment. It is scoped to the request and never persisted.
type SettlementResult struct {
	// Signature is the base58 transaction signature.
	Signature string `json:"signature"`

	// Slot the transaction was observed in, when known.
	Slot uint64 `json:"slot,omitempty"`

	// Commitment the transaction reached.
	Commitment string `json:"commitment,omitempty"`
}

// PaymentFailure is the JSON body returned for any failed payment attempt.
// PaymentSignature is set only for post-settlement failures, so the caller
// retains proof that value moved.
type PaymentFailure struct {
	Error            string `json:"error"`
	Details          string `json:"details,omitempty"`
	PaymentSignature string `json:"paymentSignature,omitempty"`
}
