package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/activity/badger"
	"github.com/Layr-Labs/web3wallet-go/pkg/activity/memory"
	"github.com/Layr-Labs/web3wallet-go/pkg/activity/redis"
	"github.com/Layr-Labs/web3wallet-go/pkg/config"
	"github.com/Layr-Labs/web3wallet-go/pkg/deeplink"
	"github.com/Layr-Labs/web3wallet-go/pkg/logger"
	"github.com/Layr-Labs/web3wallet-go/pkg/namespaces"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "walletd",
		Usage: "WalletConnect wallet daemon",
		Description: `A terminal wallet that pairs with dapps over WalletConnect.

The daemon talks to a sidecar hosting the WalletConnect SDK and:
- pairs from wc: URIs or deep links
- approves or rejects session proposals
- signs eth_sign / personal_sign requests
- sends eth_sendTransaction requests after confirmation`,
		Version: "0.1.0",
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "Connect to the SDK bridge and mediate sessions interactively",
				Action: runWallet,
			},
			{
				Name:      "pair",
				Usage:     "Validate a pairing uri or deep link and print its parts",
				ArgsUsage: "<wc-uri | deep-link>",
				Action:    inspectPairing,
			},
			{
				Name:  "namespaces",
				Usage: "Print the namespaces the wallet would approve for the given chains",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:     "chains",
						Usage:    "CAIP-2 chain ids, e.g. eip155:1",
						Required: true,
					},
					&cli.StringSliceFlag{
						Name:  "methods",
						Usage: "Methods the dapp requires",
						Value: cli.NewStringSlice(types.MethodEthSendTransaction, types.MethodPersonalSign),
					},
					&cli.StringSliceFlag{
						Name:  "events",
						Usage: "Events the dapp requires",
						Value: cli.NewStringSlice("chainChanged", "accountsChanged"),
					},
					&cli.StringSliceFlag{
						Name:     "address",
						Usage:    "Wallet addresses to approve with",
						Required: true,
					},
				},
				Action: printNamespaces,
			},
			{
				Name:  "history",
				Usage: "Print the most recent activity log entries",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of entries, 0 for all",
						Value: 20,
					},
				},
				Action: printHistory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML wallet config file",
			EnvVars: []string{config.EnvWalletConfigFile},
		},
		&cli.StringFlag{
			Name:    "project-id",
			Usage:   "WalletConnect cloud project id",
			EnvVars: []string{config.EnvWalletProjectID},
		},
		&cli.StringFlag{
			Name:    "bridge-url",
			Usage:   "Websocket url of the SDK sidecar",
			EnvVars: []string{config.EnvWalletBridgeURL},
		},
		&cli.StringFlag{
			Name:    "private-keys",
			Usage:   "Comma separated hex private keys; empty creates one ephemeral account",
			EnvVars: []string{config.EnvWalletPrivateKeys},
		},
		&cli.StringFlag{
			Name:    "web3signer-url",
			Usage:   "Web3Signer endpoint holding the wallet keys; replaces --private-keys",
			EnvVars: []string{config.EnvWalletWeb3SignerURL},
		},
		&cli.StringFlag{
			Name:    "rpc-url",
			Aliases: []string{"rpc"},
			Usage:   "Ethereum RPC endpoint used for eth_sendTransaction",
			EnvVars: []string{config.EnvWalletRPCURL},
		},
		&cli.Uint64Flag{
			Name:    "chain-id",
			Aliases: []string{"chain"},
			Usage:   fmt.Sprintf("Chain served by --rpc-url: %s", config.GetSupportedChainIDsString()),
			Value:   uint64(config.ChainId_EthereumMainnet),
			EnvVars: []string{config.EnvWalletChainID},
		},
		&cli.StringFlag{
			Name:    "deep-link-prefix",
			Usage:   "Deep link prefix that carries a pairing uri",
			EnvVars: []string{config.EnvWalletDeepLinkPrefix},
		},
		&cli.StringFlag{
			Name:    "activity-type",
			Usage:   "Activity log backend: memory, badger or redis",
			EnvVars: []string{config.EnvWalletActivityType},
		},
		&cli.StringFlag{
			Name:    "badger-dir",
			Usage:   "Data directory of the badger activity log",
			EnvVars: []string{config.EnvWalletBadgerDir},
		},
		&cli.StringFlag{
			Name:    "redis-address",
			Usage:   "Redis address (host:port) of the redis activity log",
			EnvVars: []string{config.EnvWalletRedisAddress},
		},
		&cli.StringFlag{
			Name:    "redis-password",
			Usage:   "Redis password",
			EnvVars: []string{config.EnvWalletRedisPassword},
		},
		&cli.IntFlag{
			Name:    "redis-db",
			Usage:   "Redis database number",
			EnvVars: []string{config.EnvWalletRedisDB},
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Usage:   "Enable verbose logging",
			EnvVars: []string{config.EnvWalletVerbose},
		},
	}
}

// loadWalletConfig reads the optional config file and applies flags on top of it
func loadWalletConfig(c *cli.Context) (*config.WalletConfig, error) {
	cfg := config.NewDefaultWalletConfig()
	if path := c.String("config"); path != "" {
		fileCfg, err := config.LoadWalletConfigFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = fileCfg
	}

	if c.IsSet("project-id") {
		cfg.ProjectId = c.String("project-id")
	}
	if c.IsSet("bridge-url") {
		cfg.BridgeUrl = c.String("bridge-url")
	}
	if c.IsSet("private-keys") {
		cfg.PrivateKeys = config.ParsePrivateKeys(c.String("private-keys"))
	}
	if c.IsSet("web3signer-url") {
		cfg.Web3SignerUrl = c.String("web3signer-url")
	}
	if c.IsSet("rpc-url") {
		cfg.RpcUrls[config.ChainId(c.Uint64("chain-id")).Caip2()] = c.String("rpc-url")
	}
	if c.IsSet("deep-link-prefix") {
		cfg.DeepLinkPrefix = c.String("deep-link-prefix")
	}
	if c.IsSet("activity-type") {
		cfg.Activity.Type = config.ActivityStoreType(c.String("activity-type"))
	}
	if c.IsSet("badger-dir") {
		cfg.Activity.BadgerDir = c.String("badger-dir")
	}
	if c.IsSet("redis-address") {
		cfg.Activity.Redis.Address = c.String("redis-address")
	}
	if c.IsSet("redis-password") {
		cfg.Activity.Redis.Password = c.String("redis-password")
	}
	if c.IsSet("redis-db") {
		cfg.Activity.Redis.DB = c.Int("redis-db")
	}
	if c.Bool("verbose") {
		cfg.Debug = true
	}
	return cfg, nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: debug})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return l, nil
}

func newActivityStore(cfg *config.ActivityConfig, l *zap.Logger) (activity.IActivityStore, error) {
	switch cfg.Type {
	case config.ActivityStoreBadger:
		return badger.NewBadgerActivityStore(cfg.BadgerDir, l)
	case config.ActivityStoreRedis:
		return redis.NewRedisActivityStore(&redis.RedisConfig{
			Address:   cfg.Redis.Address,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
		}, l)
	case config.ActivityStoreMemory, "":
		return memory.NewMemoryActivityStore(l), nil
	default:
		return nil, fmt.Errorf("unsupported activity store type %q", cfg.Type)
	}
}

func inspectPairing(c *cli.Context) error {
	input := strings.TrimSpace(c.Args().First())
	if input == "" {
		return fmt.Errorf("a pairing uri or deep link is required")
	}
	cfg, err := loadWalletConfig(c)
	if err != nil {
		return err
	}

	uri := input
	if !strings.HasPrefix(input, deeplink.PairingScheme) {
		if uri, err = deeplink.ExtractPairingURI(input, cfg.DeepLinkPrefix); err != nil {
			return fmt.Errorf("not a pairing link: %w", err)
		}
	}
	parsed, err := deeplink.ValidatePairingURI(uri)
	if err != nil {
		return err
	}

	fmt.Printf("topic:          %s\n", parsed.Topic)
	fmt.Printf("version:        %s\n", parsed.Version)
	fmt.Printf("relay-protocol: %s\n", parsed.RelayProtocol)
	if parsed.ExpiryUnix != "" {
		fmt.Printf("expiry:         %s\n", parsed.ExpiryUnix)
	}
	return nil
}

func printNamespaces(c *cli.Context) error {
	required := map[string]types.RequiredNamespace{
		namespaces.NamespaceEIP155: {
			Chains:  c.StringSlice("chains"),
			Methods: c.StringSlice("methods"),
			Events:  c.StringSlice("events"),
		},
	}
	approved, err := namespaces.BuildApprovedNamespaces(required, c.StringSlice("address"))
	if err != nil {
		return err
	}
	if err := namespaces.VerifyCoverage(required, approved); err != nil {
		return err
	}

	out, err := json.MarshalIndent(approved, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printHistory(c *cli.Context) error {
	cfg, err := loadWalletConfig(c)
	if err != nil {
		return err
	}
	l, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	store, err := newActivityStore(&cfg.Activity, l)
	if err != nil {
		return fmt.Errorf("failed to open activity store: %w", err)
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(c.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range records {
		fmt.Println(formatRecord(r))
	}
	return nil
}

func formatRecord(r *activity.Record) string {
	parts := []string{r.Timestamp.Format("2006-01-02 15:04:05"), string(r.Kind)}
	if r.Topic != "" {
		parts = append(parts, "topic="+r.Topic)
	}
	if r.ProposalId != "" {
		parts = append(parts, "proposal="+r.ProposalId)
	}
	if r.Method != "" {
		parts = append(parts, fmt.Sprintf("request=%d method=%s", r.RequestId, r.Method))
	}
	if r.Detail != "" {
		parts = append(parts, r.Detail)
	}
	return strings.Join(parts, " ")
}
