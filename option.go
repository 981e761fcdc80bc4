package zkstash

import (
	"net/http"
	"time"

	"github.com/zkstash/zkstash-go/auth"
	"github.com/zkstash/zkstash-go/logger"
	"github.com/zkstash/zkstash-go/metrics"
	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

type Option func(*Client)

func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(c *Client) {
		c.metrics = r
	}
}

// WithHTTPClient replaces the underlying HTTP client. Connection reuse is
// safe across calls: each request carries its own signed headers.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// WithRequestTimeout bounds each individual HTTP attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithPreferredNetworks sets the settlement network preference order used
// when selecting among challenge options.
func WithPreferredNetworks(networks ...types.Network) Option {
	return func(c *Client) {
		c.prefs = networks
	}
}

// WithConfirmDeadline bounds on-chain confirmation polling for networks
// registered through AddNetwork.
func WithConfirmDeadline(d time.Duration) Option {
	return func(c *Client) {
		c.confirmDeadline = d
	}
}

// WithRPCEndpoint overrides the RPC endpoint used when AddNetwork is called
// without an explicit URL.
func WithRPCEndpoint(network types.Network, url string) Option {
	return func(c *Client) {
		c.rpcEndpoints[network] = url
	}
}

// WithWallet registers an additional identity for a second chain family. The
// wallet passed to New remains the request-signing identity.
func WithWallet(w wallet.Wallet) Option {
	return func(c *Client) {
		c.wallets[w.Family()] = w
	}
}

// WithSettlement injects a custom settlement executor in place of the
// built-in per-network service.
func WithSettlement(s Settlement) Option {
	return func(c *Client) {
		c.settler = s
	}
}

// WithServerKeyURL enables the server key cache, fetching the server's
// signing address from the given URL on first use.
func WithServerKeyURL(url string) Option {
	return func(c *Client) {
		c.serverKeys = auth.NewServerKeyCache(url, c.http)
	}
}
