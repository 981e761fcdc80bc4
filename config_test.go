package zkstash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zkstash/zkstash-go/types"
)

func TestNewFromConfig_RequiresKey(t *testing.T) {
	_, err := NewFromConfig(Config{APIURL: "https://api.zkstash.ai"})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

func TestNewFromConfig_RequiresURL(t *testing.T) {
	_, err := NewFromConfig(Config{EVMPrivateKey: testPrivateKey})
	require.Error(t, err)
	assert.Equal(t, types.ErrConfig, types.CodeOf(err))
}

func TestNewFromConfig_BadKey(t *testing.T) {
	_, err := NewFromConfig(Config{
		APIURL:        "https://api.zkstash.ai",
		EVMPrivateKey: "zz",
	})
	require.Error(t, err)
	assert.Equal(t, types.ErrInvalidKey, types.CodeOf(err))
}

func TestNewFromConfig_EVMOnly(t *testing.T) {
	client, err := NewFromConfig(Config{
		APIURL:        "https://api.zkstash.ai",
		EVMPrivateKey: testPrivateKey,
		// Only the EVM preference: no Solana identity is configured.
		PreferredNetworks: []types.Network{types.NetworkBaseSepolia},
	})
	require.NoError(t, err)
	defer client.Close()

	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", client.Address())
	assert.True(t, client.service.IsNetworkSupported(types.NetworkBaseSepolia))
}

func TestNewFromConfig_SkipsNetworksWithoutIdentity(t *testing.T) {
	// Default preferences include Solana devnet, but only an EVM key is
	// given; the Solana network is skipped rather than failing.
	client, err := NewFromConfig(Config{
		APIURL:        "https://api.zkstash.ai",
		EVMPrivateKey: testPrivateKey,
	})
	require.NoError(t, err)
	defer client.Close()

	assert.True(t, client.service.IsNetworkSupported(types.NetworkBaseSepolia))
	assert.False(t, client.service.IsNetworkSupported(types.NetworkSolanaDevnet))
}

func TestLoadEnv_Defaults(t *testing.T) {
	t.Setenv("ZKSTASH_API_URL", "")
	t.Setenv("EVM_RPC_URL", "http://localhost:8545")

	cfg := LoadEnv()
	assert.Equal(t, "https://api.zkstash.ai", cfg.APIURL)
	assert.Equal(t, "http://localhost:8545", cfg.RPCEndpoints[types.NetworkBaseSepolia])
}
