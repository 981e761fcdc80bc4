package zkstash

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/zkstash/zkstash-go/logger"
	"github.com/zkstash/zkstash-go/types"
	"github.com/zkstash/zkstash-go/wallet"
)

// Config collects the environment inputs the client consumes: key material,
// the API base URL, and per-network RPC endpoints. It is configuration, not
// protocol state.
type Config struct {
	APIURL string `validate:"required,url"`

	// Exactly one identity per chain family. At least one key is required.
	EVMPrivateKey    string
	SolanaPrivateKey string

	PreferredNetworks []types.Network
	RPCEndpoints      map[types.Network]string

	ConfirmDeadline time.Duration
	LogLevel        string
}

var validateConfig = validator.New()

// LoadEnv reads configuration from the environment, loading a .env file when
// one is present.
func LoadEnv() Config {
	_ = godotenv.Load()

	cfg := Config{
		APIURL:           os.Getenv("ZKSTASH_API_URL"),
		EVMPrivateKey:    os.Getenv("EVM_PRIVATE_KEY"),
		SolanaPrivateKey: os.Getenv("SOLANA_PRIVATE_KEY"),
		LogLevel:         os.Getenv("ZKSTASH_LOG_LEVEL"),
		RPCEndpoints:     map[types.Network]string{},
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://api.zkstash.ai"
	}
	if url := os.Getenv("EVM_RPC_URL"); url != "" {
		cfg.RPCEndpoints[types.NetworkBaseSepolia] = url
		cfg.RPCEndpoints[types.NetworkBase] = url
	}
	if url := os.Getenv("SOLANA_RPC_URL"); url != "" {
		cfg.RPCEndpoints[types.NetworkSolanaDevnet] = url
		cfg.RPCEndpoints[types.NetworkSolanaMainnet] = url
	}
	return cfg
}

// NewFromConfig builds a client from configuration: wallets from the key
// material, settlement networks for every preferred network whose chain
// family has an identity.
func NewFromConfig(cfg Config) (*Client, error) {
	if err := validateConfig.Struct(&cfg); err != nil {
		return nil, types.NewError(types.ErrConfig, err.Error())
	}
	if cfg.EVMPrivateKey == "" && cfg.SolanaPrivateKey == "" {
		return nil, types.NewError(types.ErrConfig,
			"at least one of EVMPrivateKey or SolanaPrivateKey is required")
	}

	prefs := cfg.PreferredNetworks
	if len(prefs) == 0 {
		prefs = []types.Network{types.NetworkBaseSepolia, types.NetworkSolanaDevnet}
	}

	var primary wallet.Wallet
	var secondary wallet.Wallet

	if cfg.EVMPrivateKey != "" {
		w, err := wallet.NewEVMWallet(cfg.EVMPrivateKey)
		if err != nil {
			return nil, err
		}
		primary = w
	}
	if cfg.SolanaPrivateKey != "" {
		w, err := wallet.NewSolanaWallet(cfg.SolanaPrivateKey)
		if err != nil {
			return nil, err
		}
		if primary == nil {
			primary = w
		} else {
			secondary = w
		}
	}

	opts := []Option{
		WithPreferredNetworks(prefs...),
	}
	if secondary != nil {
		opts = append(opts, WithWallet(secondary))
	}
	if cfg.ConfirmDeadline > 0 {
		opts = append(opts, WithConfirmDeadline(cfg.ConfirmDeadline))
	}
	if cfg.LogLevel != "" {
		opts = append(opts, WithLogger(logger.NewZapLogger(cfg.LogLevel)))
	}
	for network, url := range cfg.RPCEndpoints {
		opts = append(opts, WithRPCEndpoint(network, url))
	}

	client, err := New(cfg.APIURL, primary, opts...)
	if err != nil {
		return nil, err
	}

	for _, network := range prefs {
		if _, ok := client.wallets[network.Family()]; !ok {
			continue
		}
		if err := client.AddNetwork(network, cfg.RPCEndpoints[network]); err != nil {
			client.Close()
			return nil, err
		}
	}
	return client, nil
}
