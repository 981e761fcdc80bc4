package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/zkstash/zkstash-go/types"
)

var _ Wallet = (*SolanaWallet)(nil)

// SolanaWallet signs canonical messages with an Ed25519 key. The raw UTF-8
// message bytes are signed directly; there is no prefix convention on Solana.
type SolanaWallet struct {
	key solana.PrivateKey
}

// NewSolanaWallet parses a base58 private key.
func NewSolanaWallet(base58Key string) (*SolanaWallet, error) {
	key, err := solana.PrivateKeyFromBase58(base58Key)
	if err != nil {
		return nil, types.NewError(types.ErrInvalidKey, fmt.Sprintf("invalid Solana private key: %v", err))
	}
	return &SolanaWallet{key: key}, nil
}

func (w *SolanaWallet) Address() string {
	return w.key.PublicKey().String()
}

func (w *SolanaWallet) Family() types.ChainFamily {
	return types.ChainSolana
}

func (w *SolanaWallet) SignMessage(message string) (string, error) {
	sig, err := w.key.Sign([]byte(message))
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return sig.String(), nil
}

// PrivateKey exposes the key for settlement signing. Never log the result.
func (w *SolanaWallet) PrivateKey() solana.PrivateKey {
	return w.key
}
