// Package wallet holds the signing identities used to authenticate requests.
// A wallet is immutable after construction and safe for concurrent use:
// signing is a pure function of the key and the message.
package wallet

import (
	"github.com/zkstash/zkstash-go/types"
)

// Wallet is the capability interface over chain families. The concrete
// variant is chosen at construction time by the kind of key material, never
// by runtime type inspection.
type Wallet interface {
	// Address returns the wallet address: 0x-hex for EVM, base58 for Solana.
	Address() string

	// Family returns the chain family this wallet signs for.
	Family() types.ChainFamily

	// SignMessage signs the canonical message and returns the encoded
	// signature: hex for EVM, base58 for Solana. Deterministic, no I/O.
	SignMessage(message string) (string, error)
}
