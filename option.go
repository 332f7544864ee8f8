package payrpc

import (
	"github.com/blockforge/payrpc/logger"
	"github.com/blockforge/payrpc/metrics"
	"github.com/blockforge/payrpc/settlement"
)

type Option func(*Gateway)

func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		g.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) {
		g.metrics = r
	}
}

// WithRPCClient overrides the settlement RPC client, mainly for tests.
func WithRPCClient(c settlement.RPCClient) Option {
	return func(g *Gateway) {
		g.rpcClient = c
	}
}
