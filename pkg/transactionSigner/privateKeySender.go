package transactionSigner

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/Layr-Labs/web3wallet-go/pkg/namespaces"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var (
	// FallbackGasTipCap is used when the node does not support eth_maxPriorityFeePerGas
	FallbackGasTipCap = big.NewInt(1500000000) // 1.5 gwei

	baseFeeMultiplier = big.NewInt(2)
)

// TransactionRequest is the decoded first param of an eth_sendTransaction request
type TransactionRequest struct {
	From                 common.Address
	To                   *common.Address
	Value                *big.Int
	Data                 []byte
	Gas                  uint64
	Nonce                *uint64
	GasPrice             *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
}

// PrivateKeySender fills in fees, gas and nonce, signs through the wallet provider and broadcasts
type PrivateKeySender struct {
	wallet  wallet.IWalletProvider
	clients map[string]IEthClient
	logger  *zap.Logger
}

// NewPrivateKeySender creates a sender. clients is keyed by CAIP-2 chain id.
func NewPrivateKeySender(w wallet.IWalletProvider, clients map[string]IEthClient, logger *zap.Logger) *PrivateKeySender {
	if clients == nil {
		clients = make(map[string]IEthClient)
	}
	return &PrivateKeySender{
		wallet:  w,
		clients: clients,
		logger:  logger,
	}
}

// SendTransaction signs and sends the transaction and returns its hash without waiting for it to be mined
func (s *PrivateKeySender) SendTransaction(ctx context.Context, chainId string, params json.RawMessage) (string, error) {
	client, ok := s.clients[chainId]
	if !ok {
		return "", fmt.Errorf("no rpc endpoint configured for chain %s", chainId)
	}

	chainID, err := namespaces.EvmChainId(chainId)
	if err != nil {
		return "", err
	}
	rpcChainID, err := client.ChainID(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get chain ID: %w", err)
	}
	if rpcChainID.Cmp(chainID) != 0 {
		return "", fmt.Errorf("rpc endpoint for %s reports chain id %s", chainId, rpcChainID.String())
	}

	req, err := ParseTransactionRequest(params)
	if err != nil {
		return "", err
	}

	tx, err := s.buildTransaction(ctx, client, chainID, req)
	if err != nil {
		return "", err
	}

	signedTx, err := s.wallet.SignTransaction(ctx, req.From.Hex(), tx, chainID)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	s.logger.Info("SendTransaction: transaction sent",
		zap.String("chain", chainId),
		zap.String("from", req.From.Hex()),
		zap.String("txHash", signedTx.Hash().Hex()),
		zap.Uint64("nonce", signedTx.Nonce()),
		zap.Uint64("gasLimit", signedTx.Gas()),
	)
	return signedTx.Hash().Hex(), nil
}

func (s *PrivateKeySender) buildTransaction(ctx context.Context, client IEthClient, chainID *big.Int, req *TransactionRequest) (*types.Transaction, error) {
	legacy := req.GasPrice != nil && req.MaxFeePerGas == nil && req.MaxPriorityFeePerGas == nil

	var gasTipCap, maxFeePerGas *big.Int
	if !legacy {
		gasTipCap = req.MaxPriorityFeePerGas
		if gasTipCap == nil {
			suggested, err := client.SuggestGasTipCap(ctx)
			if err != nil {
				// If the backend does not support eth_maxPriorityFeePerGas, fallback to using the default constant.
				s.logger.Sugar().Warnw("SendTransaction: cannot get gasTipCap, using fallback", zap.Error(err))
				suggested = new(big.Int).Set(FallbackGasTipCap)
			}
			gasTipCap = suggested
		}

		maxFeePerGas = req.MaxFeePerGas
		if maxFeePerGas == nil {
			header, err := client.HeaderByNumber(ctx, nil)
			if err != nil {
				return nil, fmt.Errorf("failed to get latest block header: %w", err)
			}
			baseFee := header.BaseFee
			if baseFee == nil {
				baseFee = big.NewInt(0)
			}
			// basefee * 2 + tip
			maxFeePerGas = new(big.Int).Add(new(big.Int).Mul(baseFee, baseFeeMultiplier), gasTipCap)
		}
	}

	gasLimit := req.Gas
	if gasLimit == 0 {
		msg := ethereum.CallMsg{
			From:  req.From,
			To:    req.To,
			Value: req.Value,
			Data:  req.Data,
		}
		if legacy {
			msg.GasPrice = req.GasPrice
		} else {
			msg.GasTipCap = gasTipCap
			msg.GasFeeCap = maxFeePerGas
		}
		estimated, err := client.EstimateGas(ctx, msg)
		if err != nil {
			return nil, fmt.Errorf("failed to estimate gas: %w", err)
		}
		gasLimit = addGasBuffer(estimated)
	}

	var nonce uint64
	if req.Nonce != nil {
		nonce = *req.Nonce
	} else {
		pending, err := client.PendingNonceAt(ctx, req.From)
		if err != nil {
			return nil, fmt.Errorf("failed to get nonce: %w", err)
		}
		nonce = pending
	}

	if legacy {
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: req.GasPrice,
			Gas:      gasLimit,
			To:       req.To,
			Value:    req.Value,
			Data:     req.Data,
		}), nil
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		GasTipCap: gasTipCap,
		GasFeeCap: maxFeePerGas,
		Gas:       gasLimit,
		To:        req.To,
		Value:     req.Value,
		Data:      req.Data,
	}), nil
}

// addGasBuffer adds 20% on top of an estimate
func addGasBuffer(gas uint64) uint64 {
	return gas + gas/5
}

// ParseTransactionRequest decodes eth_sendTransaction params. Both `[{...}]` and a bare `{...}` are accepted.
func ParseTransactionRequest(params json.RawMessage) (*TransactionRequest, error) {
	root := gjson.ParseBytes(params)
	tx := root
	if root.IsArray() {
		tx = root.Get("0")
	}
	if !tx.IsObject() {
		return nil, fmt.Errorf("eth_sendTransaction expects a transaction object")
	}

	from := tx.Get("from").String()
	if !common.IsHexAddress(from) {
		return nil, fmt.Errorf("invalid from address %q", from)
	}
	req := &TransactionRequest{
		From:  common.HexToAddress(from),
		Value: big.NewInt(0),
	}

	if to := tx.Get("to"); to.Exists() && to.String() != "" {
		if !common.IsHexAddress(to.String()) {
			return nil, fmt.Errorf("invalid to address %q", to.String())
		}
		addr := common.HexToAddress(to.String())
		req.To = &addr
	}

	var err error
	if v := tx.Get("value"); v.Exists() {
		if req.Value, err = parseQuantity(v.String()); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
	}

	data := tx.Get("data")
	if !data.Exists() {
		data = tx.Get("input")
	}
	if data.Exists() && data.String() != "" && data.String() != "0x" {
		if req.Data, err = hexutil.Decode(data.String()); err != nil {
			return nil, fmt.Errorf("invalid data: %w", err)
		}
	}
	if req.To == nil && len(req.Data) == 0 {
		return nil, fmt.Errorf("transaction has neither a recipient nor contract code")
	}

	gas := tx.Get("gas")
	if !gas.Exists() {
		gas = tx.Get("gasLimit")
	}
	if gas.Exists() {
		gasValue, err := parseQuantity(gas.String())
		if err != nil {
			return nil, fmt.Errorf("invalid gas: %w", err)
		}
		if !gasValue.IsUint64() {
			return nil, fmt.Errorf("gas %s overflows uint64", gasValue.String())
		}
		req.Gas = gasValue.Uint64()
	}

	if n := tx.Get("nonce"); n.Exists() {
		nonceValue, err := parseQuantity(n.String())
		if err != nil {
			return nil, fmt.Errorf("invalid nonce: %w", err)
		}
		if !nonceValue.IsUint64() {
			return nil, fmt.Errorf("nonce %s overflows uint64", nonceValue.String())
		}
		nonce := nonceValue.Uint64()
		req.Nonce = &nonce
	}

	for field, dst := range map[string]**big.Int{
		"gasPrice":             &req.GasPrice,
		"maxFeePerGas":         &req.MaxFeePerGas,
		"maxPriorityFeePerGas": &req.MaxPriorityFeePerGas,
	} {
		if v := tx.Get(field); v.Exists() {
			parsed, err := parseQuantity(v.String())
			if err != nil {
				return nil, fmt.Errorf("invalid %s: %w", field, err)
			}
			*dst = parsed
		}
	}

	return req, nil
}

// parseQuantity accepts 0x-prefixed hex quantities and plain decimal strings
func parseQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return hexutil.DecodeBig(strings.ToLower(s[:2]) + s[2:])
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid quantity %q", s)
	}
	return v, nil
}

// Compile-time check to ensure PrivateKeySender implements ITransactionSender
var _ ITransactionSender = (*PrivateKeySender)(nil)
