package remoteWallet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/web3wallet-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// RemoteWallet delegates key custody to a Web3Signer instance
type RemoteWallet struct {
	signer web3signer.IWeb3Signer
	logger *zap.Logger
}

func NewRemoteWallet(signer web3signer.IWeb3Signer, logger *zap.Logger) *RemoteWallet {
	return &RemoteWallet{
		signer: signer,
		logger: logger,
	}
}

// Addresses returns the signer's accounts in checksum form, in the order the signer lists them
func (rw *RemoteWallet) Addresses(ctx context.Context) ([]string, error) {
	accounts, err := rw.signer.EthAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if !common.IsHexAddress(a) {
			rw.logger.Sugar().Warnw("Skipping malformed signer account", "account", a)
			continue
		}
		out = append(out, common.HexToAddress(a).Hex())
	}
	return out, nil
}

func (rw *RemoteWallet) SignPersonalMessage(ctx context.Context, address string, message []byte) ([]byte, error) {
	account, err := rw.owned(ctx, address)
	if err != nil {
		return nil, err
	}

	// eth_sign on Web3Signer applies the EIP-191 prefix itself
	sigHex, err := rw.signer.EthSign(ctx, account.Hex(), hexutil.Encode(message))
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	signature, err := hexutil.Decode(sigHex)
	if err != nil {
		return nil, fmt.Errorf("signer returned malformed signature: %w", err)
	}
	if len(signature) != crypto.SignatureLength {
		return nil, fmt.Errorf("signer returned a %d byte signature", len(signature))
	}
	if signature[crypto.RecoveryIDOffset] < 27 {
		signature[crypto.RecoveryIDOffset] += 27
	}
	return signature, nil
}

// SignTransaction has the signer sign tx and checks the result was signed by address for chainId
func (rw *RemoteWallet) SignTransaction(ctx context.Context, address string, tx *ethTypes.Transaction, chainId *big.Int) (*ethTypes.Transaction, error) {
	account, err := rw.owned(ctx, address)
	if err != nil {
		return nil, err
	}

	args := &web3signer.TransactionArgs{
		From:    account,
		To:      tx.To(),
		Gas:     hexutil.Uint64(tx.Gas()),
		Value:   (*hexutil.Big)(tx.Value()),
		Nonce:   hexutil.Uint64(tx.Nonce()),
		Data:    tx.Data(),
		ChainId: (*hexutil.Big)(chainId),
	}
	switch tx.Type() {
	case ethTypes.LegacyTxType:
		args.GasPrice = (*hexutil.Big)(tx.GasPrice())
	case ethTypes.DynamicFeeTxType:
		args.MaxFeePerGas = (*hexutil.Big)(tx.GasFeeCap())
		args.MaxPriorityFeePerGas = (*hexutil.Big)(tx.GasTipCap())
	default:
		return nil, fmt.Errorf("unsupported transaction type %d", tx.Type())
	}

	raw, err := rw.signer.EthSignTransaction(ctx, args)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	encoded, err := hexutil.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("signer returned malformed transaction: %w", err)
	}

	signed := new(ethTypes.Transaction)
	if err := signed.UnmarshalBinary(encoded); err != nil {
		return nil, fmt.Errorf("failed to decode signed transaction: %w", err)
	}
	sender, err := ethTypes.Sender(ethTypes.LatestSignerForChainID(chainId), signed)
	if err != nil {
		return nil, fmt.Errorf("signed transaction has an invalid signature: %w", err)
	}
	if sender != account {
		return nil, fmt.Errorf("signed transaction recovers to %s, expected %s", sender.Hex(), account.Hex())
	}
	return signed, nil
}

// owned checks that the signer holds a key for address
func (rw *RemoteWallet) owned(ctx context.Context, address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("invalid address %q", address)
	}
	want := common.HexToAddress(address)

	accounts, err := rw.Addresses(ctx)
	if err != nil {
		return common.Address{}, err
	}
	for _, a := range accounts {
		if common.HexToAddress(a) == want {
			return want, nil
		}
	}
	return common.Address{}, fmt.Errorf("%w: %s", wallet.ErrUnknownAddress, address)
}

// Compile-time check to ensure RemoteWallet implements IWalletProvider
var _ wallet.IWalletProvider = (*RemoteWallet)(nil)
