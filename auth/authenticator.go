package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zkstash/zkstash-go/wallet"
)

// Identity header names.
const (
	HeaderWalletAddress   = "x-wallet-address"
	HeaderWalletSignature = "x-wallet-signature"
	HeaderWalletTimestamp = "x-wallet-timestamp"
)

// Authenticator produces the identity headers for outbound requests. Headers
// must be regenerated before every attempt: the timestamp changes, and the
// server rejects signatures outside a 2-minute freshness window.
type Authenticator struct {
	wallet wallet.Wallet
	now    func() time.Time
}

func NewAuthenticator(w wallet.Wallet) *Authenticator {
	return &Authenticator{wallet: w, now: time.Now}
}

// Headers builds the three identity headers for the given request. The signed
// canonical message embeds the exact millisecond timestamp placed in the
// timestamp header; regenerating one without the other invalidates the
// signature.
func (a *Authenticator) Headers(method, path string, body []byte) (map[string]string, error) {
	ts := a.now().UnixMilli()
	message := CanonicalMessage(method, path, body, ts)

	sig, err := a.wallet.SignMessage(message)
	if err != nil {
		return nil, fmt.Errorf("sign request: %w", err)
	}

	headers := map[string]string{
		HeaderWalletAddress:   a.wallet.Address(),
		HeaderWalletSignature: sig,
		HeaderWalletTimestamp: strconv.FormatInt(ts, 10),
	}
	if len(body) > 0 {
		headers["Content-Type"] = "application/json"
	}
	return headers, nil
}

// Address returns the wallet address the authenticator signs with.
func (a *Authenticator) Address() string {
	return a.wallet.Address()
}
