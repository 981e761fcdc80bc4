package types

import "math/big"

// ChainFamily classifies a network into a blockchain family.
type ChainFamily string

const (
	ChainEVM    ChainFamily = "evm"
	ChainSolana ChainFamily = "solana"
)

// Network represents supported settlement networks.
type Network string

const (
	// EVM Networks
	NetworkBase        Network = "base"
	NetworkBaseSepolia Network = "base-sepolia" // testnet
	NetworkPolygon     Network = "polygon"
	NetworkPolygonAmoy Network = "polygon-amoy" // testnet

	// Solana Networks
	NetworkSolanaMainnet Network = "solana-mainnet"
	NetworkSolanaDevnet  Network = "solana-devnet" // testnet
)

// networkAliases maps chain-namespaced identifiers (CAIP-2 style) to the bare
// aliases used elsewhere. Challenge payloads are not consistent about which
// form they carry, so both must resolve to the same Network.
var networkAliases = map[string]Network{
	"eip155:8453":  NetworkBase,
	"eip155:84532": NetworkBaseSepolia,
	"eip155:137":   NetworkPolygon,
	"eip155:80002": NetworkPolygonAmoy,

	"solana:5eykt4UsFv8P8NJdTREpY1vzqKqZKvdp": NetworkSolanaMainnet,
	"solana:EtWTRABZaYq6iMfeYKouRu166VU2xqa1": NetworkSolanaDevnet,
}

// EVMChainIDs maps EVM networks to their chain IDs for EIP-155 signing.
var EVMChainIDs = map[Network]int64{
	NetworkBase:        8453,
	NetworkBaseSepolia: 84532,
	NetworkPolygon:     137,
	NetworkPolygonAmoy: 80002,
}

// DefaultRPCEndpoints are used when no per-network RPC override is configured.
var DefaultRPCEndpoints = map[Network]string{
	NetworkBase:          "https://mainnet.base.org",
	NetworkBaseSepolia:   "https://sepolia.base.org",
	NetworkPolygon:       "https://polygon-rpc.com",
	NetworkPolygonAmoy:   "https://rpc-amoy.polygon.technology",
	NetworkSolanaMainnet: "https://api.mainnet-beta.solana.com",
	NetworkSolanaDevnet:  "https://api.devnet.solana.com",
}

// USDCAssets maps networks to the USDC contract (EVM) or mint (Solana) used
// as the default settlement asset.
var USDCAssets = map[Network]string{
	NetworkBase:          "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
	NetworkBaseSepolia:   "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	NetworkPolygon:       "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
	NetworkPolygonAmoy:   "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
	NetworkSolanaMainnet: "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
	NetworkSolanaDevnet:  "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
}

// ParseNetwork resolves a network identifier in either bare-alias or
// chain-namespaced form. The second return is false when the identifier is
// unknown.
func ParseNetwork(id string) (Network, bool) {
	if n, ok := networkAliases[id]; ok {
		return n, true
	}
	n := Network(id)
	if n.IsEVM() || n.IsSolana() {
		return n, true
	}
	return "", false
}

// Matches reports whether the given wire identifier refers to this network,
// accepting both the bare alias and the chain-namespaced form.
func (n Network) Matches(id string) bool {
	parsed, ok := ParseNetwork(id)
	return ok && parsed == n
}

func (n Network) IsEVM() bool {
	_, ok := EVMChainIDs[n]
	return ok
}

func (n Network) IsSolana() bool {
	return n == NetworkSolanaMainnet || n == NetworkSolanaDevnet
}

func (n Network) IsTestnet() bool {
	return n == NetworkBaseSepolia || n == NetworkPolygonAmoy || n == NetworkSolanaDevnet
}

func (n Network) Family() ChainFamily {
	if n.IsSolana() {
		return ChainSolana
	}
	return ChainEVM
}

// ChainID returns the EIP-155 chain ID for an EVM network, nil otherwise.
func (n Network) ChainID() *big.Int {
	id, ok := EVMChainIDs[n]
	if !ok {
		return nil
	}
	return big.NewInt(id)
}

func (n Network) String() string {
	return string(n)
}
