package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known anvil account #0
const testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func validConfig() *WalletConfig {
	cfg := NewDefaultWalletConfig()
	cfg.ProjectId = "584495c68516f78a2aa4e225307b4f07"
	cfg.PrivateKeys = []string{testPrivateKey}
	cfg.RpcUrls = map[string]string{"eip155:31337": "http://localhost:8545"}
	return cfg
}

func Test_WalletConfig_Validate(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		require.NoError(t, validConfig().Validate())
	})

	tests := []struct {
		name    string
		mutate  func(c *WalletConfig)
		wantErr string
	}{
		{name: "missing project id", mutate: func(c *WalletConfig) { c.ProjectId = "" }, wantErr: "projectId"},
		{name: "http bridge url", mutate: func(c *WalletConfig) { c.BridgeUrl = "http://localhost" }, wantErr: "bridgeUrl"},
		{name: "short private key", mutate: func(c *WalletConfig) { c.PrivateKeys = []string{"0x1234"} }, wantErr: "privateKeys[0]"},
		{name: "non hex private key", mutate: func(c *WalletConfig) { c.PrivateKeys = []string{"zz"} }, wantErr: "privateKeys[0]"},
		{name: "non evm rpc chain", mutate: func(c *WalletConfig) { c.RpcUrls = map[string]string{"cosmos:hub": "http://x"} }, wantErr: "rpcUrls[cosmos:hub]"},
		{name: "empty rpc url", mutate: func(c *WalletConfig) { c.RpcUrls = map[string]string{"eip155:1": ""} }, wantErr: "rpcUrls[eip155:1]"},
		{name: "web3signer with local keys", mutate: func(c *WalletConfig) { c.Web3SignerUrl = "http://localhost:9000" }, wantErr: "privateKeys"},
		{name: "web3signer ws url", mutate: func(c *WalletConfig) {
			c.PrivateKeys = nil
			c.Web3SignerUrl = "ws://localhost:9000"
		}, wantErr: "web3SignerUrl"},
		{name: "zero rate limit", mutate: func(c *WalletConfig) { c.RequestRateLimit = 0 }, wantErr: "requestRateLimit"},
		{name: "zero burst", mutate: func(c *WalletConfig) { c.RequestBurst = 0 }, wantErr: "requestBurst"},
		{name: "unknown activity store", mutate: func(c *WalletConfig) { c.Activity.Type = "postgres" }, wantErr: "activity.type"},
		{name: "redis without address", mutate: func(c *WalletConfig) { c.Activity.Type = ActivityStoreRedis }, wantErr: "activity.redis.address"},
		{name: "badger without dir", mutate: func(c *WalletConfig) {
			c.Activity.Type = ActivityStoreBadger
			c.Activity.BadgerDir = ""
		}, wantErr: "activity.badgerDir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func Test_WalletConfig_ValidateDoesNotLeakKeys(t *testing.T) {
	cfg := validConfig()
	cfg.PrivateKeys = []string{"0xdeadbeef"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "deadbeef")
}

func Test_LoadWalletConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wallet.yaml")
	contents := `
projectId: abc123
bridgeUrl: wss://bridge.example.com/ws
callTimeout: 10s
metadata:
  name: Test Wallet
  description: test
  url: https://wallet.example
  icons: []
rpcUrls:
  eip155:11155111: https://rpc.sepolia.example
activity:
  type: badger
  badgerDir: /tmp/activity
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	cfg, err := LoadWalletConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "abc123", cfg.ProjectId)
	assert.Equal(t, "wss://bridge.example.com/ws", cfg.BridgeUrl)
	assert.Equal(t, 10*time.Second, cfg.CallTimeout)
	assert.Equal(t, "Test Wallet", cfg.Metadata.Name)
	assert.Equal(t, "https://rpc.sepolia.example", cfg.RpcUrls["eip155:11155111"])
	assert.Equal(t, ActivityStoreBadger, cfg.Activity.Type)

	// defaults survive fields the file omits
	assert.Equal(t, DefaultRequestBurst, cfg.RequestBurst)
	assert.Equal(t, "web3wallettutorial://wc?uri=", cfg.DeepLinkPrefix)

	require.NoError(t, cfg.Validate())
}

func Test_LoadWalletConfigFromFile_Missing(t *testing.T) {
	_, err := LoadWalletConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func Test_ParsePrivateKeys(t *testing.T) {
	assert.Equal(t, []string{"0x1", "0x2"}, ParsePrivateKeys(" 0x1, ,0x2,"))
	assert.Empty(t, ParsePrivateKeys(""))
}

func Test_ChainId_Caip2(t *testing.T) {
	assert.Equal(t, "eip155:1", ChainId_EthereumMainnet.Caip2())
	assert.Equal(t, "eip155:31337", ChainId_EthereumAnvil.Caip2())
}
