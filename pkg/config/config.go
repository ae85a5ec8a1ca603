package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Layr-Labs/web3wallet-go/pkg/deeplink"
	"github.com/Layr-Labs/web3wallet-go/pkg/namespaces"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/validation/field"
)

// Environment variable names for wallet configuration
const (
	EnvWalletConfigFile     = "WALLET_CONFIG_FILE"
	EnvWalletProjectID      = "WALLET_PROJECT_ID"
	EnvWalletBridgeURL      = "WALLET_BRIDGE_URL"
	EnvWalletPrivateKeys    = "WALLET_PRIVATE_KEYS"
	EnvWalletRPCURL         = "WALLET_RPC_URL"
	EnvWalletChainID        = "WALLET_CHAIN_ID"
	EnvWalletDeepLinkPrefix = "WALLET_DEEP_LINK_PREFIX"
	EnvWalletActivityType   = "WALLET_ACTIVITY_TYPE"
	EnvWalletBadgerDir      = "WALLET_BADGER_DIR"
	EnvWalletRedisAddress   = "WALLET_REDIS_ADDRESS"
	EnvWalletRedisPassword  = "WALLET_REDIS_PASSWORD"
	EnvWalletRedisDB        = "WALLET_REDIS_DB"
	EnvWalletVerbose        = "WALLET_VERBOSE"
	EnvWalletWeb3SignerURL  = "WALLET_WEB3SIGNER_URL"
)

type ChainId uint

const (
	ChainId_EthereumMainnet ChainId = 1
	ChainId_EthereumSepolia ChainId = 11155111
	ChainId_EthereumAnvil   ChainId = 31337
)

type ChainName string

const (
	ChainName_EthereumMainnet ChainName = "mainnet"
	ChainName_EthereumSepolia ChainName = "sepolia"
	ChainName_EthereumAnvil   ChainName = "devnet"
)

var ChainIdToName = map[ChainId]ChainName{
	ChainId_EthereumMainnet: ChainName_EthereumMainnet,
	ChainId_EthereumSepolia: ChainName_EthereumSepolia,
	ChainId_EthereumAnvil:   ChainName_EthereumAnvil,
}

// Caip2 returns the CAIP-2 id of an EVM chain, e.g. "eip155:1"
func (c ChainId) Caip2() string {
	return fmt.Sprintf("%s:%d", namespaces.NamespaceEIP155, uint(c))
}

// GetSupportedChainIDsString returns supported chain IDs as strings for CLI help
func GetSupportedChainIDsString() string {
	return fmt.Sprintf("%d (mainnet), %d (sepolia), %d (anvil)",
		ChainId_EthereumMainnet, ChainId_EthereumSepolia, ChainId_EthereumAnvil)
}

type ActivityStoreType string

const (
	ActivityStoreMemory ActivityStoreType = "memory"
	ActivityStoreBadger ActivityStoreType = "badger"
	ActivityStoreRedis  ActivityStoreType = "redis"
)

// Defaults for the mediator and bridge client
const (
	DefaultBridgeURL        = "ws://127.0.0.1:8787/bridge"
	DefaultCallTimeout      = 30 * time.Second
	DefaultRequestRateLimit = 5.0
	DefaultRequestBurst     = 10
	DefaultBadgerDir        = "./data/activity"
)

type RedisConfig struct {
	Address   string `json:"address" yaml:"address"`
	Password  string `json:"password" yaml:"password"`
	DB        int    `json:"db" yaml:"db"`
	KeyPrefix string `json:"keyPrefix" yaml:"keyPrefix"`
}

type ActivityConfig struct {
	Type      ActivityStoreType `json:"type" yaml:"type"`
	BadgerDir string            `json:"badgerDir" yaml:"badgerDir"`
	Redis     RedisConfig       `json:"redis" yaml:"redis"`
}

// WalletConfig represents the complete configuration for the wallet daemon
type WalletConfig struct {
	// SDK / bridge
	ProjectId   string         `json:"projectId" yaml:"projectId"`
	BridgeUrl   string         `json:"bridgeUrl" yaml:"bridgeUrl"`
	CallTimeout time.Duration  `json:"callTimeout" yaml:"callTimeout"`
	Metadata    types.Metadata `json:"metadata" yaml:"metadata"`

	// Wallet
	PrivateKeys []string `json:"privateKeys" yaml:"privateKeys"` // hex secp256k1 keys, empty means one ephemeral key

	// Web3SignerUrl selects a remote Web3Signer for key custody instead of local keys
	Web3SignerUrl string `json:"web3SignerUrl" yaml:"web3SignerUrl"`

	// Chains: CAIP-2 chain id -> JSON-RPC endpoint used for eth_sendTransaction
	RpcUrls map[string]string `json:"rpcUrls" yaml:"rpcUrls"`

	// Mediator policy
	DeepLinkPrefix       string  `json:"deepLinkPrefix" yaml:"deepLinkPrefix"`
	DefaultRelayProtocol string  `json:"defaultRelayProtocol" yaml:"defaultRelayProtocol"`
	RequestRateLimit     float64 `json:"requestRateLimit" yaml:"requestRateLimit"`
	RequestBurst         int     `json:"requestBurst" yaml:"requestBurst"`

	Activity ActivityConfig `json:"activity" yaml:"activity"`

	Debug bool `json:"debug" yaml:"debug"`
}

// NewDefaultWalletConfig returns the configuration the tutorial wallet ships with
func NewDefaultWalletConfig() *WalletConfig {
	return &WalletConfig{
		BridgeUrl:   DefaultBridgeURL,
		CallTimeout: DefaultCallTimeout,
		Metadata: types.Metadata{
			Name:        "Web3Wallet Go Tutorial",
			Description: "Go Web3Wallet",
			Url:         "web3wallettutorial://",
			Icons:       []string{"https://avatars.githubusercontent.com/u/37784886"},
			Redirect:    &types.Redirect{Native: "web3wallettutorial://"},
		},
		RpcUrls:              map[string]string{},
		DeepLinkPrefix:       deeplink.DefaultPrefix,
		DefaultRelayProtocol: types.DefaultRelayProtocol,
		RequestRateLimit:     DefaultRequestRateLimit,
		RequestBurst:         DefaultRequestBurst,
		Activity: ActivityConfig{
			Type:      ActivityStoreMemory,
			BadgerDir: DefaultBadgerDir,
		},
	}
}

// LoadWalletConfigFromFile reads a YAML config file on top of the defaults
func LoadWalletConfigFromFile(path string) (*WalletConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return ParseWalletConfig(data)
}

// ParseWalletConfig decodes YAML bytes on top of the defaults
func ParseWalletConfig(data []byte) (*WalletConfig, error) {
	cfg := NewDefaultWalletConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse wallet config: %w", err)
	}
	if cfg.RpcUrls == nil {
		cfg.RpcUrls = map[string]string{}
	}
	return cfg, nil
}

// ParsePrivateKeys splits a comma separated key list as passed through the environment
func ParsePrivateKeys(raw string) []string {
	keys := make([]string, 0)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// Validate validates the wallet configuration
func (c *WalletConfig) Validate() error {
	var allErrors field.ErrorList

	if c.ProjectId == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("projectId"), "projectId is required"))
	}
	if c.BridgeUrl == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("bridgeUrl"), "bridgeUrl is required"))
	} else if !strings.HasPrefix(c.BridgeUrl, "ws://") && !strings.HasPrefix(c.BridgeUrl, "wss://") {
		allErrors = append(allErrors, field.Invalid(field.NewPath("bridgeUrl"), c.BridgeUrl, "must be a ws:// or wss:// url"))
	}
	if c.CallTimeout < 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("callTimeout"), c.CallTimeout.String(), "must not be negative"))
	}
	if c.Metadata.Name == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("metadata", "name"), "wallet name is required"))
	}

	for i, key := range c.PrivateKeys {
		if err := validatePrivateKey(key); err != nil {
			// never echo key material back in the error
			allErrors = append(allErrors, field.Invalid(field.NewPath("privateKeys").Index(i), "<redacted>", err.Error()))
		}
	}

	if c.Web3SignerUrl != "" {
		if !strings.HasPrefix(c.Web3SignerUrl, "http://") && !strings.HasPrefix(c.Web3SignerUrl, "https://") {
			allErrors = append(allErrors, field.Invalid(field.NewPath("web3SignerUrl"), c.Web3SignerUrl, "must be an http:// or https:// url"))
		}
		if len(c.PrivateKeys) > 0 {
			allErrors = append(allErrors, field.Forbidden(field.NewPath("privateKeys"), "privateKeys cannot be combined with web3SignerUrl"))
		}
	}

	for chainId, rpcUrl := range c.RpcUrls {
		if _, err := namespaces.EvmChainId(chainId); err != nil {
			allErrors = append(allErrors, field.Invalid(field.NewPath("rpcUrls").Key(chainId), chainId, err.Error()))
		}
		if rpcUrl == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("rpcUrls").Key(chainId), "rpc url is required"))
		}
	}

	if c.DeepLinkPrefix == "" {
		allErrors = append(allErrors, field.Required(field.NewPath("deepLinkPrefix"), "deepLinkPrefix is required"))
	}
	if c.RequestRateLimit <= 0 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestRateLimit"), c.RequestRateLimit, "must be positive"))
	}
	if c.RequestBurst < 1 {
		allErrors = append(allErrors, field.Invalid(field.NewPath("requestBurst"), c.RequestBurst, "must be at least 1"))
	}

	switch c.Activity.Type {
	case ActivityStoreMemory:
	case ActivityStoreBadger:
		if c.Activity.BadgerDir == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("activity", "badgerDir"), "badgerDir is required for badger activity store"))
		}
	case ActivityStoreRedis:
		if c.Activity.Redis.Address == "" {
			allErrors = append(allErrors, field.Required(field.NewPath("activity", "redis", "address"), "redis address is required for redis activity store"))
		}
	default:
		allErrors = append(allErrors, field.NotSupported(field.NewPath("activity", "type"), c.Activity.Type,
			[]ActivityStoreType{ActivityStoreMemory, ActivityStoreBadger, ActivityStoreRedis}))
	}

	if len(allErrors) > 0 {
		return allErrors.ToAggregate()
	}
	return nil
}

func validatePrivateKey(key string) error {
	if !strings.HasPrefix(key, "0x") {
		key = "0x" + key
	}
	raw, err := hexutil.Decode(key)
	if err != nil {
		return fmt.Errorf("private key is not valid hex")
	}
	if len(raw) != 32 {
		return fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	if _, err := crypto.ToECDSA(raw); err != nil {
		return fmt.Errorf("private key is not a valid secp256k1 scalar")
	}
	return nil
}
