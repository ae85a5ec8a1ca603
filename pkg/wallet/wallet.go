package wallet

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/core/types"
)

var ErrUnknownAddress = errors.New("address is not owned by this wallet")

// IWalletProvider is the wallet/keystore collaborator. It owns key material; callers only ever see
// addresses and signatures.
type IWalletProvider interface {
	// Addresses returns the wallet's EIP155 addresses, primary first
	Addresses(ctx context.Context) ([]string, error)

	// SignPersonalMessage signs an EIP-191 "personal" message and returns a 65 byte [R || S || V] signature with V in {27, 28}
	SignPersonalMessage(ctx context.Context, address string, message []byte) ([]byte, error)

	// SignTransaction signs tx for chainId with the key behind address
	SignTransaction(ctx context.Context, address string, tx *types.Transaction, chainId *big.Int) (*types.Transaction, error)
}
