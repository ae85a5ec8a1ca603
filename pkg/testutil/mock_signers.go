package testutil

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/Layr-Labs/web3wallet-go/pkg/messageSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/transactionSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	ethTypes "github.com/ethereum/go-ethereum/core/types"
)

// MockWallet implements IWalletProvider with fixed addresses. It cannot sign.
type MockWallet struct {
	AddressList []string
	Err         error
}

func NewMockWallet(addresses ...string) *MockWallet {
	return &MockWallet{AddressList: addresses}
}

func (w *MockWallet) Addresses(ctx context.Context) ([]string, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	return append([]string(nil), w.AddressList...), nil
}

func (w *MockWallet) SignPersonalMessage(ctx context.Context, address string, message []byte) ([]byte, error) {
	return nil, wallet.ErrUnknownAddress
}

func (w *MockWallet) SignTransaction(ctx context.Context, address string, tx *ethTypes.Transaction, chainId *big.Int) (*ethTypes.Transaction, error) {
	return nil, wallet.ErrUnknownAddress
}

// SendCall is one recorded SendTransaction call
type SendCall struct {
	ChainId string
	Params  json.RawMessage
}

// MockTransactionSender returns TxHash, or Err, for every send
type MockTransactionSender struct {
	mu     sync.Mutex
	TxHash string
	Err    error
	calls  []SendCall
}

func NewMockTransactionSender(txHash string) *MockTransactionSender {
	return &MockTransactionSender{TxHash: txHash}
}

func (s *MockTransactionSender) SendTransaction(ctx context.Context, chainId string, params json.RawMessage) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, SendCall{ChainId: chainId, Params: params})
	if s.Err != nil {
		return "", s.Err
	}
	return s.TxHash, nil
}

func (s *MockTransactionSender) Calls() []SendCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]SendCall(nil), s.calls...)
}

// MockMessageSigner returns Signature, or Err, for every request
type MockMessageSigner struct {
	mu        sync.Mutex
	Signature string
	Err       error
	requests  []*types.SessionRequestEvent
}

func NewMockMessageSigner(signature string) *MockMessageSigner {
	return &MockMessageSigner{Signature: signature}
}

func (s *MockMessageSigner) SignRequest(ctx context.Context, event *types.SessionRequestEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, event)
	if s.Err != nil {
		return "", s.Err
	}
	return s.Signature, nil
}

func (s *MockMessageSigner) Requests() []*types.SessionRequestEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*types.SessionRequestEvent(nil), s.requests...)
}

var (
	_ wallet.IWalletProvider               = (*MockWallet)(nil)
	_ transactionSigner.ITransactionSender = (*MockTransactionSender)(nil)
	_ messageSigner.IMessageSigner         = (*MockMessageSigner)(nil)
)
