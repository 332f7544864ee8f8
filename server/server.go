// Package server exposes the gateway over HTTP: a single POST endpoint that
// either issues a payment challenge or runs the paid pipeline, plus health
// and metrics endpoints.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/blockforge/payrpc"
	"github.com/blockforge/payrpc/logger"
	"github.com/blockforge/payrpc/types"
)

// PaymentHeader carries the base64 payment envelope.
const PaymentHeader = "X-Payment"

// Signed transactions are large; match the upstream's body allowance.
const maxBodyBytes = 10 << 20

// Server adapts a Gateway to HTTP.
type Server struct {
	gateway *payrpc.Gateway
	log     logger.Logger
}

// New builds a Server around a configured Gateway.
func New(gateway *payrpc.Gateway) *Server {
	return &Server{
		gateway: gateway,
		log:     gateway.Logger(),
	}
}

// Handler returns the route table. The paid endpoint lives at /rpc.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /rpc", s.handleRPC)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

// handleRPC drives the per-request state machine: no payment header issues a
// challenge and terminates; otherwise the pipeline runs decode, verify,
// settle, forward, and each failure category maps to exactly one response.
func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	// Nothing past settlement may take the process down: an unexpected
	// fault degrades to a payment failure for this request only.
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("request handler panicked", map[string]any{"panic": rec})
			writeJSON(w, http.StatusPaymentRequired, types.PaymentFailure{
				Error:   "Payment failed",
				Details: "internal error",
			})
		}
	}()

	// Oversized bodies are refused outright, before any payment can be
	// consumed on a request we would then mangle.
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, types.PaymentFailure{
				Error:   "Payment failed",
				Details: "request body exceeds the size limit",
			})
			return
		}
		writeJSON(w, http.StatusPaymentRequired, types.PaymentFailure{
			Error:   "Payment failed",
			Details: "unreadable request body",
		})
		return
	}

	header := r.Header.Get(PaymentHeader)
	if header == "" {
		writeJSON(w, http.StatusPaymentRequired, s.gateway.Challenge())
		return
	}

	merged, perr := s.gateway.Process(r.Context(), header, body)
	if perr != nil {
		s.writeFailure(w, perr)
		return
	}

	writeJSON(w, http.StatusOK, merged)
}

// writeFailure maps the error taxonomy onto HTTP. Pre-settlement failures
// are 402: no value moved and the caller may retry with a better payment.
// A post-settlement failure is 502 and must surface the signature, since the
// payment was consumed without the content being delivered.
func (s *Server) writeFailure(w http.ResponseWriter, perr *types.PaymentError) {
	failure := types.PaymentFailure{
		Error:   "Payment failed",
		Details: perr.Error(),
	}
	status := http.StatusPaymentRequired
	if !perr.PreSettlement() {
		status = http.StatusBadGateway
		failure.Error = "Upstream unavailable"
		failure.PaymentSignature = perr.Signature
	}
	writeJSON(w, status, failure)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
