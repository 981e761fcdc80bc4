package auth

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ServerKeyCache caches the server's signing address for local verification
// of server-signed payloads. The key is fetched on first use and kept until
// explicitly invalidated (e.g. after a verification failure that suggests a
// key rotation). The cache is owned by the client instance, not a package
// singleton.
type ServerKeyCache struct {
	url  string
	http *http.Client

	mu      sync.Mutex
	address common.Address
	loaded  bool
}

// NewServerKeyCache builds a cache that fetches the key document from url.
// The document is JSON of the form {"address": "0x..."}.
func NewServerKeyCache(url string, httpClient *http.Client) *ServerKeyCache {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ServerKeyCache{url: url, http: httpClient}
}

// Address returns the cached server signing address, fetching it on first
// use.
func (c *ServerKeyCache) Address(ctx context.Context) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.address, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return common.Address{}, fmt.Errorf("server key request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return common.Address{}, fmt.Errorf("fetch server key: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return common.Address{}, fmt.Errorf("fetch server key: status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return common.Address{}, fmt.Errorf("read server key: %w", err)
	}

	var doc struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return common.Address{}, fmt.Errorf("decode server key: %w", err)
	}
	if !common.IsHexAddress(doc.Address) {
		return common.Address{}, fmt.Errorf("server key document carries no valid address")
	}

	c.address = common.HexToAddress(doc.Address)
	c.loaded = true
	return c.address, nil
}

// Invalidate drops the cached key so the next Address call refetches it.
func (c *ServerKeyCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.address = common.Address{}
	c.mu.Unlock()
}

// Verify checks a personal-sign signature over message against the cached
// server address.
func (c *ServerKeyCache) Verify(ctx context.Context, message, sigHex string) (bool, error) {
	expected, err := c.Address(ctx)
	if err != nil {
		return false, err
	}

	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return false, fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != 65 {
		return false, fmt.Errorf("signature must be 65 bytes, got %d", len(sig))
	}
	if sig[64] >= 27 {
		sig = append(append([]byte{}, sig[:64]...), sig[64]-27)
	}

	hash := accounts.TextHash([]byte(message))
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return false, fmt.Errorf("recover signer: %w", err)
	}
	return crypto.PubkeyToAddress(*pub) == expected, nil
}
