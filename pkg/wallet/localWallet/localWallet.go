package localWallet

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// keyEntry stores the private key and metadata for one account
type keyEntry struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
	keyId      string
	ephemeral  bool
}

// LocalWallet keeps secp256k1 keys in process memory
type LocalWallet struct {
	logger *zap.Logger
	mu     sync.RWMutex
	keys   map[common.Address]*keyEntry
	order  []common.Address
}

// NewLocalWallet restores accounts from hex private keys. With no keys it creates one ephemeral account
// so a fresh install can still pair.
func NewLocalWallet(privateKeys []string, logger *zap.Logger) (*LocalWallet, error) {
	lw := &LocalWallet{
		logger: logger,
		keys:   make(map[common.Address]*keyEntry),
	}

	for i, hexKey := range privateKeys {
		pk, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %d: %w", i, err)
		}
		lw.add(pk, false)
	}

	if len(lw.order) == 0 {
		pk, err := crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
		}
		entry := lw.add(pk, true)
		logger.Warn("No wallet keys configured, generated an ephemeral account",
			zap.String("address", entry.address.Hex()),
			zap.String("keyId", entry.keyId),
		)
	}

	logger.Sugar().Infow("Local wallet ready", "accounts", len(lw.order), "current_address", lw.order[0].Hex())
	return lw, nil
}

func (lw *LocalWallet) add(pk *ecdsa.PrivateKey, ephemeral bool) *keyEntry {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	address := crypto.PubkeyToAddress(pk.PublicKey)
	if existing, ok := lw.keys[address]; ok {
		return existing
	}
	entry := &keyEntry{
		privateKey: pk,
		address:    address,
		keyId:      fmt.Sprintf("local-key-%s", uuid.New().String()),
		ephemeral:  ephemeral,
	}
	lw.keys[address] = entry
	lw.order = append(lw.order, address)
	return entry
}

func (lw *LocalWallet) Addresses(ctx context.Context) ([]string, error) {
	lw.mu.RLock()
	defer lw.mu.RUnlock()

	out := make([]string, 0, len(lw.order))
	for _, addr := range lw.order {
		out = append(out, addr.Hex())
	}
	return out, nil
}

func (lw *LocalWallet) SignPersonalMessage(ctx context.Context, address string, message []byte) ([]byte, error) {
	entry, err := lw.lookup(address)
	if err != nil {
		return nil, err
	}

	signature, err := crypto.Sign(accounts.TextHash(message), entry.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign message: %w", err)
	}
	// yellow paper V
	signature[crypto.RecoveryIDOffset] += 27

	lw.logger.Debug("Signed personal message",
		zap.String("address", entry.address.Hex()),
		zap.String("signature", hexutil.Encode(signature)),
	)
	return signature, nil
}

func (lw *LocalWallet) SignTransaction(ctx context.Context, address string, tx *ethTypes.Transaction, chainId *big.Int) (*ethTypes.Transaction, error) {
	entry, err := lw.lookup(address)
	if err != nil {
		return nil, err
	}

	signed, err := ethTypes.SignTx(tx, ethTypes.LatestSignerForChainID(chainId), entry.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return signed, nil
}

func (lw *LocalWallet) lookup(address string) (*keyEntry, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address %q", address)
	}

	lw.mu.RLock()
	entry, ok := lw.keys[common.HexToAddress(address)]
	lw.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", wallet.ErrUnknownAddress, address)
	}
	return entry, nil
}

// Compile-time check to ensure LocalWallet implements IWalletProvider
var _ wallet.IWalletProvider = (*LocalWallet)(nil)
