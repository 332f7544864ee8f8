// Package upstream relays the caller's original JSON body to the metered
// premium endpoint once payment has settled, and merges settlement metadata
// into the upstream's response. Bodies are opaque blobs to this package.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/blockforge/payrpc/types"
)

// Response body size cap for the upstream relay.
const maxResponseBytes = 10 << 20

// Forwarder posts request bodies to a single configured upstream URL.
type Forwarder struct {
	url    string
	client *http.Client
}

// NewForwarder builds a Forwarder with a bounded per-call timeout.
func NewForwarder(url string, timeout time.Duration) *Forwarder {
	return &Forwarder{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Forward relays body to the upstream and returns its JSON object merged
// with the settlement signature and the upstream URL. Any relay failure maps
// to ErrUpstreamUnavailable carrying the signature: the payment has already
// been consumed at this point and the caller must keep its proof.
func (f *Forwarder) Forward(ctx context.Context, body []byte, signature string) (map[string]any, *types.PaymentError) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, bytes.NewReader(body))
	if err != nil {
		return nil, f.unavailable("building upstream request failed", err, signature)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, f.unavailable("upstream call failed", err, signature)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, f.unavailable("reading upstream response failed", err, signature)
	}

	// The upstream's own JSON-RPC errors pass through untouched; only a
	// non-JSON reply counts as unavailable.
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, f.unavailable("upstream returned a non-JSON response", err, signature)
	}

	merged["premiumRpcUrl"] = f.url
	merged["paymentSignature"] = signature
	return merged, nil
}

func (f *Forwarder) unavailable(msg string, cause error, signature string) *types.PaymentError {
	perr := types.NewPaymentError(types.ErrUpstreamUnavailable, msg, cause)
	perr.Signature = signature
	return perr
}
