package testutil

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/Layr-Labs/web3wallet-go/pkg/clients/walletSdk"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

// SdkCall is one recorded call into MockWalletSdk
type SdkCall struct {
	Method string
	Args   []interface{}
}

// SdkResponse is a recorded RespondSessionRequest call
type SdkResponse struct {
	Topic    string
	Response *types.JsonRpcResponse
}

// MockWalletSdk implements IWalletSdk for testing. It records every call, returns the configured
// results and lets tests push events to subscribers with Emit.
// Configure the exported fields before the code under test runs.
type MockWalletSdk struct {
	mu sync.Mutex

	PairResult *types.PairResult
	PairErr    error

	ApprovedSession *types.Session
	ApproveErr      error
	// BeforeApprove runs inside ApproveSession before it returns; used to interleave other operations
	BeforeApprove func(id types.ProposalId)

	RejectErr     error
	Sessions      map[string]*types.Session
	SessionsErr   error
	DisconnectErr error
	RespondErr    error

	calls     []SdkCall
	responses []SdkResponse
	subs      map[string]map[uint64]walletSdk.EventHandler
	nextSub   uint64
	closed    bool
}

func NewMockWalletSdk() *MockWalletSdk {
	return &MockWalletSdk{
		Sessions: make(map[string]*types.Session),
		subs:     make(map[string]map[uint64]walletSdk.EventHandler),
	}
}

func (m *MockWalletSdk) record(method string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SdkCall{Method: method, Args: args})
}

func (m *MockWalletSdk) Pair(ctx context.Context, uri string) (*types.PairResult, error) {
	m.record("Pair", uri)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PairResult, m.PairErr
}

func (m *MockWalletSdk) ApproveSession(ctx context.Context, id types.ProposalId, relayProtocol string, namespaces types.Namespaces) (*types.Session, error) {
	m.record("ApproveSession", id, relayProtocol, namespaces)

	m.mu.Lock()
	hook := m.BeforeApprove
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ApproveErr != nil {
		return nil, m.ApproveErr
	}
	if m.ApprovedSession != nil {
		return m.ApprovedSession, nil
	}
	return &types.Session{Topic: "session-" + id.String(), Namespaces: namespaces}, nil
}

func (m *MockWalletSdk) RejectSession(ctx context.Context, id types.ProposalId, reason *types.SdkError) error {
	m.record("RejectSession", id, reason)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.RejectErr
}

func (m *MockWalletSdk) GetActiveSessions(ctx context.Context) (map[string]*types.Session, error) {
	m.record("GetActiveSessions")
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SessionsErr != nil {
		return nil, m.SessionsErr
	}
	out := make(map[string]*types.Session, len(m.Sessions))
	for topic, s := range m.Sessions {
		out[topic] = s
	}
	return out, nil
}

func (m *MockWalletSdk) GetSession(ctx context.Context, topic string) (*types.Session, error) {
	m.record("GetSession", topic)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SessionsErr != nil {
		return nil, m.SessionsErr
	}
	s, ok := m.Sessions[topic]
	if !ok {
		return nil, walletSdk.ErrSessionNotFound
	}
	return s, nil
}

func (m *MockWalletSdk) DisconnectSession(ctx context.Context, topic string, reason *types.SdkError) error {
	m.record("DisconnectSession", topic, reason)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DisconnectErr != nil {
		return m.DisconnectErr
	}
	delete(m.Sessions, topic)
	return nil
}

func (m *MockWalletSdk) RespondSessionRequest(ctx context.Context, topic string, response *types.JsonRpcResponse) error {
	m.record("RespondSessionRequest", topic, response)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RespondErr != nil {
		return m.RespondErr
	}
	m.responses = append(m.responses, SdkResponse{Topic: topic, Response: response})
	return nil
}

func (m *MockWalletSdk) Subscribe(event string, handler walletSdk.EventHandler) walletSdk.Disposer {
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	if m.subs[event] == nil {
		m.subs[event] = make(map[uint64]walletSdk.EventHandler)
	}
	m.subs[event][id] = handler
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.subs[event], id)
			m.mu.Unlock()
		})
	}
}

func (m *MockWalletSdk) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Emit delivers payload to every subscriber of event, in subscription order, on the caller's goroutine
func (m *MockWalletSdk) Emit(event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	m.mu.Lock()
	ids := make([]uint64, 0, len(m.subs[event]))
	for id := range m.subs[event] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]walletSdk.EventHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, m.subs[event][id])
	}
	m.mu.Unlock()

	for _, h := range handlers {
		h(data)
	}
	return nil
}

// SubscriberCount returns how many live subscriptions event has
func (m *MockWalletSdk) SubscriberCount(event string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs[event])
}

// Calls returns the recorded calls, optionally filtered to one method
func (m *MockWalletSdk) Calls(method string) []SdkCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SdkCall, 0, len(m.calls))
	for _, c := range m.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Responses returns every successfully sent session request response
func (m *MockWalletSdk) Responses() []SdkResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SdkResponse(nil), m.responses...)
}

func (m *MockWalletSdk) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ walletSdk.IWalletSdk = (*MockWalletSdk)(nil)
