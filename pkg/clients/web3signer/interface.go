package web3signer

import (
	"context"
)

// IWeb3Signer is the subset of the Web3Signer JSON-RPC API a remote wallet needs.
// Keys never leave the signer; callers only see addresses and signatures.
type IWeb3Signer interface {
	// EthAccounts returns the addresses the signer holds keys for.
	// This corresponds to the eth_accounts JSON-RPC method.
	EthAccounts(ctx context.Context) ([]string, error)

	// EthSign signs hex data with the EIP-191 personal message prefix and returns the hex signature.
	// This corresponds to the eth_sign JSON-RPC method.
	EthSign(ctx context.Context, account string, data string) (string, error)

	// EthSignTransaction signs a transaction object and returns the RLP encoded signed transaction.
	// This corresponds to the eth_signTransaction JSON-RPC method.
	EthSignTransaction(ctx context.Context, transaction *TransactionArgs) (string, error)
}

// Compile-time check to ensure Client implements IWeb3Signer
var _ IWeb3Signer = (*Client)(nil)
