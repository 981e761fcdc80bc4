package wallet

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/zkstash/zkstash-go/types"
)

var _ Wallet = (*EVMWallet)(nil)

// EVMWallet signs canonical messages with a secp256k1 key using the Ethereum
// personal-sign convention ("\x19Ethereum Signed Message:\n" + len + message,
// keccak256, sign).
type EVMWallet struct {
	key     *ecdsa.PrivateKey
	address common.Address

	// legacyRecoveryID keeps the recovery byte in the {27,28} range, which
	// most verifying servers expect. Set to false for verifiers that want the
	// raw {0,1} encoding.
	legacyRecoveryID bool
}

// EVMOption configures an EVMWallet.
type EVMOption func(*EVMWallet)

// WithRawRecoveryID leaves the signature recovery byte in the raw {0,1}
// range instead of normalizing to {27,28}.
func WithRawRecoveryID() EVMOption {
	return func(w *EVMWallet) {
		w.legacyRecoveryID = false
	}
}

// NewEVMWallet parses a hex private key (with or without 0x prefix).
func NewEVMWallet(hexKey string, opts ...EVMOption) (*EVMWallet, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, types.NewError(types.ErrInvalidKey, fmt.Sprintf("invalid EVM private key: %v", err))
	}

	w := &EVMWallet{
		key:              key,
		address:          crypto.PubkeyToAddress(key.PublicKey),
		legacyRecoveryID: true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

func (w *EVMWallet) Address() string {
	return w.address.Hex()
}

func (w *EVMWallet) Family() types.ChainFamily {
	return types.ChainEVM
}

func (w *EVMWallet) SignMessage(message string) (string, error) {
	hash := accounts.TextHash([]byte(message))

	sig, err := crypto.Sign(hash, w.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}

	if w.legacyRecoveryID {
		sig[64] += 27
	}

	return hex.EncodeToString(sig), nil
}

// PrivateKey exposes the key for settlement signing. Never log the result.
func (w *EVMWallet) PrivateKey() *ecdsa.PrivateKey {
	return w.key
}
