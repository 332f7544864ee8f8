// Package envelope decodes the opaque X-Payment header into raw settlement
// transaction bytes. It is purely syntactic: nothing here inspects payment
// semantics, which belong to the verification package.
package envelope

import (
	"encoding/base64"
	"encoding/json"

	"github.com/blockforge/payrpc/types"
)

// Decode turns the base64 X-Payment header into the raw transaction bytes
// nested at payload.serializedTransaction. Every failure mode collapses to
// ErrMalformedEnvelope: the decoder fails closed on missing or mistyped
// fields rather than letting a half-decoded envelope reach later stages.
func Decode(header string) ([]byte, *types.PaymentError) {
	data, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, types.NewPaymentError(types.ErrMalformedEnvelope,
			"payment header is not valid base64", err)
	}

	var env types.PaymentEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, types.NewPaymentError(types.ErrMalformedEnvelope,
			"payment header is not a valid envelope", err)
	}

	if env.Payload.SerializedTransaction == "" {
		return nil, types.NewPaymentError(types.ErrMalformedEnvelope,
			"envelope is missing payload.serializedTransaction", nil)
	}

	txBytes, err := base64.StdEncoding.DecodeString(env.Payload.SerializedTransaction)
	if err != nil {
		return nil, types.NewPaymentError(types.ErrMalformedEnvelope,
			"serializedTransaction is not valid base64", err)
	}
	if len(txBytes) == 0 {
		return nil, types.NewPaymentError(types.ErrMalformedEnvelope,
			"serializedTransaction is empty", nil)
	}

	return txBytes, nil
}
