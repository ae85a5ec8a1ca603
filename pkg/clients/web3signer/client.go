package web3signer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"
)

const DefaultTimeout = 10 * time.Second

type Config struct {
	Url     string
	Timeout time.Duration
}

func DefaultConfig() *Config {
	return &Config{
		Url:     "http://localhost:9000",
		Timeout: DefaultTimeout,
	}
}

// TransactionArgs is the eth_signTransaction request object. Fee fields follow the transaction
// type: GasPrice for legacy, MaxFeePerGas and MaxPriorityFeePerGas for EIP-1559.
type TransactionArgs struct {
	From                 common.Address  `json:"from"`
	To                   *common.Address `json:"to,omitempty"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *hexutil.Big    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *hexutil.Big    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *hexutil.Big    `json:"maxPriorityFeePerGas,omitempty"`
	Value                *hexutil.Big    `json:"value"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	Data                 hexutil.Bytes   `json:"data"`
	ChainId              *hexutil.Big    `json:"chainId,omitempty"`
}

// Client talks to a Web3Signer instance over its Ethereum JSON-RPC endpoint
type Client struct {
	config *Config
	rpc    *rpc.Client
	logger *zap.Logger
}

func NewClient(cfg *Config, logger *zap.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if !strings.HasPrefix(cfg.Url, "http://") && !strings.HasPrefix(cfg.Url, "https://") {
		return nil, fmt.Errorf("web3signer url must be an http(s) url, got %q", cfg.Url)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rc, err := rpc.DialOptions(context.Background(), cfg.Url, rpc.WithHTTPClient(&http.Client{Timeout: timeout}))
	if err != nil {
		return nil, fmt.Errorf("failed to create web3signer rpc client: %w", err)
	}
	return &Client{
		config: cfg,
		rpc:    rc,
		logger: logger,
	}, nil
}

func (c *Client) EthAccounts(ctx context.Context) ([]string, error) {
	var accounts []string
	if err := c.rpc.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, fmt.Errorf("eth_accounts failed: %w", err)
	}
	c.logger.Sugar().Debugw("Listed web3signer accounts", "count", len(accounts))
	return accounts, nil
}

func (c *Client) EthSign(ctx context.Context, account string, data string) (string, error) {
	var signature string
	if err := c.rpc.CallContext(ctx, &signature, "eth_sign", account, data); err != nil {
		return "", fmt.Errorf("eth_sign failed for %s: %w", account, err)
	}
	return signature, nil
}

func (c *Client) EthSignTransaction(ctx context.Context, transaction *TransactionArgs) (string, error) {
	if transaction == nil {
		return "", fmt.Errorf("transaction cannot be nil")
	}
	var signed string
	if err := c.rpc.CallContext(ctx, &signed, "eth_signTransaction", transaction); err != nil {
		return "", fmt.Errorf("eth_signTransaction failed for %s: %w", transaction.From.Hex(), err)
	}
	return signed, nil
}

func (c *Client) Close() {
	c.rpc.Close()
}
