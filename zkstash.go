// Package zkstash implements a wallet-authenticated, payment-gated HTTP
// client. Every request carries identity headers signed by a blockchain
// wallet; calls answered with a 402 payment challenge are settled on-chain
// and retried exactly once with a payment proof attached.
package zkstash

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/zkstash/zkstash-go/auth"
	"github.com/zkstash/zkstash-go/challenge"
	"github.com/zkstash/zkstash-go/logger"
	"github.com/zkstash/zkstash-go/metrics"
	"github.com/zkstash/zkstash-go/settlement"
	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

// Payment protocol headers.
const (
	HeaderPayment               = "x-payment"
	HeaderPaymentResponse       = "PAYMENT-RESPONSE"
	HeaderPaymentResponseLegacy = "X-PAYMENT-RESPONSE"
)

// State names the orchestrator's position in the pay-per-call cycle. The
// final state and the attempt count are recorded on the Result so tests and
// callers can inspect whether and how a retry happened.
type State string

const (
	StateSending    State = "sending"
	StateChallenged State = "challenged"
	StateSettling   State = "settling"
	StateRetrying   State = "retrying"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Result is the outcome of one logical call.
type Result struct {
	StatusCode int
	Body       []byte

	// State is the terminal orchestrator state.
	State State

	// Attempts counts HTTP requests issued for this call: 1 without a
	// payment cycle, 2 when a challenge was settled and retried.
	Attempts int

	// Receipt is set when a settlement was executed, including on failures
	// after broadcast.
	Receipt *settlement.Receipt

	// SettleResponse carries the server's optional settlement confirmation
	// header, when present.
	SettleResponse *types.SettleResponse
}

// Settlement executes one on-chain transfer for a selected payment option.
// *settlement.Service is the production implementation.
type Settlement interface {
	Settle(ctx context.Context, option *types.PaymentOption) (*settlement.Receipt, error)
}

// Client is the protocol client. It owns one immutable identity per chain
// family; all mutable per-call state lives on the stack of Do, so a Client
// is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	wallets map[types.ChainFamily]wallet.Wallet
	auth    *auth.Authenticator

	parser  *challenge.Parser
	settler Settlement
	service *settlement.Service
	prefs   []types.Network

	serverKeys *auth.ServerKeyCache

	log            logger.Logger
	metrics        metrics.Recorder
	requestTimeout time.Duration

	confirmDeadline time.Duration
	rpcEndpoints    map[types.Network]string
}

// New builds a client for the API at baseURL, authenticating with the given
// wallet. Settlement networks are registered with AddNetwork or injected via
// WithSettlement.
func New(baseURL string, w wallet.Wallet, opts ...Option) (*Client, error) {
	if w == nil {
		return nil, types.NewError(types.ErrConfig, "a signing wallet is required")
	}

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: 30 * time.Second},
		wallets:        map[types.ChainFamily]wallet.Wallet{w.Family(): w},
		log:            logger.NoopLogger{},
		metrics:        metrics.NoopRecorder{},
		requestTimeout: 30 * time.Second,
		prefs:          []types.Network{types.NetworkBaseSepolia, types.NetworkSolanaDevnet},
		rpcEndpoints:   map[types.Network]string{},
	}
	for _, opt := range opts {
		opt(c)
	}

	c.auth = auth.NewAuthenticator(w)
	c.parser = challenge.NewParser(c.log)

	if c.settler == nil {
		c.service = settlement.NewService(c.log, c.metrics)
		c.settler = c.service
	}
	return c, nil
}

// AddNetwork registers a settlement network, using the client identity of the
// matching chain family to sign transfers.
func (c *Client) AddNetwork(network types.Network, rpcURL string) error {
	if c.service == nil {
		return types.NewError(types.ErrConfig, "custom settlement is configured; AddNetwork is unavailable")
	}
	if rpcURL == "" {
		rpcURL = c.rpcEndpoints[network]
	}

	switch network.Family() {
	case types.ChainEVM:
		w, ok := c.wallets[types.ChainEVM].(*wallet.EVMWallet)
		if !ok {
			return types.NewError(types.ErrConfig,
				fmt.Sprintf("no EVM identity configured for network %s", network))
		}
		var opts []settlement.EVMSettlerOption
		if c.confirmDeadline > 0 {
			opts = append(opts, settlement.WithConfirmDeadline(c.confirmDeadline))
		}
		settler, err := settlement.NewEVMSettler(network, rpcURL, w, opts...)
		if err != nil {
			return err
		}
		return c.service.AddEVM(settler)

	case types.ChainSolana:
		w, ok := c.wallets[types.ChainSolana].(*wallet.SolanaWallet)
		if !ok {
			return types.NewError(types.ErrConfig,
				fmt.Sprintf("no Solana identity configured for network %s", network))
		}
		var opts []settlement.SolanaSettlerOption
		if c.confirmDeadline > 0 {
			opts = append(opts, settlement.WithSolanaConfirmDeadline(c.confirmDeadline))
		}
		settler, err := settlement.NewSolanaSettler(network, rpcURL, w, opts...)
		if err != nil {
			return err
		}
		return c.service.AddSolana(settler)
	}

	return types.NewError(types.ErrUnsupportedNetwork,
		fmt.Sprintf("unsupported network: %s", network))
}

// Address returns the address of the request-signing identity.
func (c *Client) Address() string {
	return c.auth.Address()
}

// ServerKeys returns the server key cache, or nil when none is configured.
func (c *Client) ServerKeys() *auth.ServerKeyCache {
	return c.serverKeys
}

// Close releases settlement client connections.
func (c *Client) Close() {
	if c.service != nil {
		c.service.Close()
	}
}

// Get issues a GET call through the payment cycle.
func (c *Client) Get(ctx context.Context, path string) (*Result, error) {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post issues a POST call through the payment cycle.
func (c *Client) Post(ctx context.Context, path string, body []byte) (*Result, error) {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Do runs one logical call through the state machine:
//
//	Sending -> Challenged -> Settling -> Retrying -> Done | Failed
//
// A 401 never enters the payment path. A 402 on the retry is terminal: the
// orchestrator never settles twice for the same logical call, bounding both
// worst-case latency and fund exposure.
func (c *Client) Do(ctx context.Context, method, path string, body []byte) (*Result, error) {
	result := &Result{State: StateSending}

	status, respBody, header, err := c.send(ctx, method, path, body, "")
	result.Attempts++
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.StatusCode = status
	result.Body = respBody

	switch {
	case status == http.StatusOK:
		result.State = StateDone
		result.SettleResponse = c.extractSettleResponse(header)
		c.countCall("ok")
		return result, nil

	case status == http.StatusUnauthorized:
		result.State = StateFailed
		c.countCall("auth_invalid")
		return result, types.NewErrorWithData(types.ErrAuthInvalid,
			"server rejected the request signature or timestamp", string(respBody))

	case status == http.StatusPaymentRequired:
		// fall through to the payment cycle below

	default:
		result.State = StateFailed
		c.countCall("server_error")
		return result, serverError(status, respBody)
	}

	result.State = StateChallenged
	c.metrics.IncCounter(metrics.EventChallenge, map[string]string{"result": "received"})

	ch, err := c.parser.Parse(respBody)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	option, err := challenge.Select(ch, c.prefs)
	if err != nil {
		result.State = StateFailed
		return result, err
	}

	c.log.Info("payment challenge received", map[string]any{
		"network": option.Network,
		"amount":  option.Amount(),
		"options": len(ch.Accepts),
	})

	result.State = StateSettling
	receipt, err := c.settler.Settle(ctx, option)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.Receipt = receipt

	proof := &types.PaymentProof{
		Scheme:  "exact",
		Network: receipt.Network.String(),
		Asset:   receipt.Asset,
		Amount:  receipt.Amount,
		PayTo:   receipt.PayTo,
		Tx:      receipt.TxRef,
	}
	encoded, err := proof.Encode()
	if err != nil {
		result.State = StateFailed
		return result, types.NewError(types.ErrPaymentFailed, err.Error())
	}

	result.State = StateRetrying
	status, respBody, header, err = c.send(ctx, method, path, body, encoded)
	result.Attempts++
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	result.StatusCode = status
	result.Body = respBody

	switch status {
	case http.StatusOK:
		result.State = StateDone
		result.SettleResponse = c.extractSettleResponse(header)
		c.countCall("paid")
		return result, nil

	case http.StatusPaymentRequired:
		result.State = StateFailed
		c.metrics.IncCounter(metrics.EventPaymentRejected, map[string]string{
			"network": receipt.Network.String(),
		})
		return result, types.NewErrorWithData(types.ErrPaymentRejected,
			"server still requires payment after proof was attached", receipt.TxRef)

	case http.StatusUnauthorized:
		result.State = StateFailed
		return result, types.NewErrorWithData(types.ErrAuthInvalid,
			"server rejected the retried request signature", string(respBody))

	default:
		result.State = StateFailed
		return result, serverError(status, respBody)
	}
}

// send issues one signed HTTP request. Identity headers are regenerated on
// every attempt so the timestamp stays inside the server's freshness window.
func (c *Client) send(ctx context.Context, method, path string, body []byte, proof string) (int, []byte, http.Header, error) {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build request: %w", err)
	}

	headers, err := c.auth.Headers(method, path, body)
	if err != nil {
		return 0, nil, nil, err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if proof != "" {
		req.Header.Set(HeaderPayment, proof)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	c.metrics.ObserveLatency(metrics.OpRequest, time.Since(start), map[string]string{})
	if err != nil {
		return 0, nil, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response: %w", err)
	}

	c.log.Debug("response received", map[string]any{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	})
	return resp.StatusCode, respBody, resp.Header, nil
}

// extractSettleResponse decodes the optional settlement confirmation header,
// accepting the legacy header name from older servers.
func (c *Client) extractSettleResponse(header http.Header) *types.SettleResponse {
	raw := header.Get(HeaderPaymentResponse)
	if raw == "" {
		raw = header.Get(HeaderPaymentResponseLegacy)
	}
	if raw == "" {
		return nil
	}

	sr, err := types.DecodeSettleResponse(raw)
	if err != nil {
		c.log.Warn("malformed settlement response header", map[string]any{"error": err.Error()})
		return nil
	}
	return sr
}

func (c *Client) countCall(result string) {
	c.metrics.IncCounter(metrics.EventCall, map[string]string{"result": result})
}

func serverError(status int, body []byte) error {
	return types.NewErrorWithData(types.ErrServerError,
		fmt.Sprintf("API error: %d", status),
		map[string]any{"status": status, "body": string(body)})
}
