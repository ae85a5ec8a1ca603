package transactionSigner

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ITransactionSender executes eth_sendTransaction requests on behalf of the wallet
type ITransactionSender interface {
	// SendTransaction signs and broadcasts the transaction described by params on chainId (CAIP-2)
	// and returns its hash
	SendTransaction(ctx context.Context, chainId string, params json.RawMessage) (string, error)
}

// IEthClient is the subset of ethclient.Client the sender needs
type IEthClient interface {
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Compile-time check to ensure ethclient.Client satisfies IEthClient
var _ IEthClient = (*ethclient.Client)(nil)

// DialEthClients connects to one JSON-RPC endpoint per CAIP-2 chain id
func DialEthClients(ctx context.Context, rpcUrls map[string]string, logger *zap.Logger) (map[string]IEthClient, error) {
	clients := make(map[string]IEthClient, len(rpcUrls))
	for chainId, rpcUrl := range rpcUrls {
		client, err := ethclient.DialContext(ctx, rpcUrl)
		if err != nil {
			return nil, fmt.Errorf("failed to dial rpc for chain %s: %w", chainId, err)
		}
		clients[chainId] = client
		logger.Sugar().Infow("Connected chain rpc", "chain", chainId, "rpc_url", rpcUrl)
	}
	return clients, nil
}
