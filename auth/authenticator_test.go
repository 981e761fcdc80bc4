package auth

import (
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkstash/zkstash-go/wallet"
)

const testPrivateKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestAuthenticator_Headers(t *testing.T) {
	w, err := wallet.NewEVMWallet(testPrivateKey)
	require.NoError(t, err)

	auth := NewAuthenticator(w)
	fixed := time.UnixMilli(1700000000000)
	auth.now = func() time.Time { return fixed }

	headers, err := auth.Headers("POST", "/memories", []byte(`{"agentId":"a"}`))
	require.NoError(t, err)

	assert.Equal(t, w.Address(), headers[HeaderWalletAddress])
	assert.Equal(t, "1700000000000", headers[HeaderWalletTimestamp])
	assert.Equal(t, "application/json", headers["Content-Type"])

	// The signature must recover to the wallet address over the canonical
	// message built with the same timestamp.
	ts, err := strconv.ParseInt(headers[HeaderWalletTimestamp], 10, 64)
	require.NoError(t, err)
	message := CanonicalMessage("POST", "/memories", []byte(`{"agentId":"a"}`), ts)

	sig, err := hex.DecodeString(headers[HeaderWalletSignature])
	require.NoError(t, err)
	require.Len(t, sig, 65)
	sig[64] -= 27
	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), crypto.PubkeyToAddress(*pub).Hex())
}

func TestAuthenticator_NoContentTypeWithoutBody(t *testing.T) {
	w, err := wallet.NewEVMWallet(testPrivateKey)
	require.NoError(t, err)

	headers, err := NewAuthenticator(w).Headers("GET", "/memories", nil)
	require.NoError(t, err)

	_, ok := headers["Content-Type"]
	assert.False(t, ok)
}

func TestAuthenticator_FreshTimestampPerCall(t *testing.T) {
	w, err := wallet.NewEVMWallet(testPrivateKey)
	require.NoError(t, err)

	auth := NewAuthenticator(w)
	ts := int64(1700000000000)
	auth.now = func() time.Time {
		ts++
		return time.UnixMilli(ts)
	}

	first, err := auth.Headers("GET", "/memories", nil)
	require.NoError(t, err)
	second, err := auth.Headers("GET", "/memories", nil)
	require.NoError(t, err)

	assert.NotEqual(t, first[HeaderWalletTimestamp], second[HeaderWalletTimestamp])
	assert.NotEqual(t, first[HeaderWalletSignature], second[HeaderWalletSignature])
}
