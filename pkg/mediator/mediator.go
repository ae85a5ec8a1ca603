package mediator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/clients/walletSdk"
	"github.com/Layr-Labs/web3wallet-go/pkg/config"
	"github.com/Layr-Labs/web3wallet-go/pkg/deeplink"
	"github.com/Layr-Labs/web3wallet-go/pkg/messageSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/transactionSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

type Config struct {
	DeepLinkPrefix       string
	DefaultRelayProtocol string
	RequestRateLimit     float64
	RequestBurst         int
}

// NewConfig takes the mediator policy out of the wallet config
func NewConfig(wc *config.WalletConfig) *Config {
	return &Config{
		DeepLinkPrefix:       wc.DeepLinkPrefix,
		DefaultRelayProtocol: wc.DefaultRelayProtocol,
		RequestRateLimit:     wc.RequestRateLimit,
		RequestBurst:         wc.RequestBurst,
	}
}

// Deps is the context object the mediator works through. Sdk and Presenter are required.
type Deps struct {
	Sdk               walletSdk.IWalletSdk
	Presenter         presenter.IPresenter
	Wallet            wallet.IWalletProvider
	MessageSigner     messageSigner.IMessageSigner
	TransactionSender transactionSigner.ITransactionSender
	Activity          activity.IActivityStore
}

// PendingRequest is a deferred signing request and the session it arrived on
type PendingRequest struct {
	Event   *types.SessionRequestEvent
	Session *types.Session

	seq uint64
}

// Mediator turns SDK events into local decisions and SDK calls. It holds at most one pending
// proposal and one pending signing request; a newer event of the same kind replaces the old one.
// mu guards the slots only and is never held across a call into the SDK, presenter or wallet.
type Mediator struct {
	cfg     *Config
	deps    *Deps
	logger  *zap.Logger
	limiter *topicLimiter

	mu              sync.Mutex
	pendingProposal *types.SessionProposal
	approving       bool
	pendingRequest  *PendingRequest

	arrivals atomic.Uint64

	lifecycleMu sync.RWMutex
	started     atomic.Bool
	runCtx      context.Context
	cancel      context.CancelFunc
	disposers   []walletSdk.Disposer
	inflight    sync.WaitGroup
}

func NewMediator(cfg *Config, deps *Deps, logger *zap.Logger) (*Mediator, error) {
	if cfg == nil {
		return nil, fmt.Errorf("mediator config cannot be nil")
	}
	if deps == nil || deps.Sdk == nil {
		return nil, fmt.Errorf("mediator requires a wallet sdk client")
	}
	if deps.Presenter == nil {
		return nil, fmt.Errorf("mediator requires a presenter")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	c := *cfg
	if c.DeepLinkPrefix == "" {
		c.DeepLinkPrefix = deeplink.DefaultPrefix
	}
	if c.DefaultRelayProtocol == "" {
		c.DefaultRelayProtocol = types.DefaultRelayProtocol
	}
	if c.RequestRateLimit <= 0 {
		c.RequestRateLimit = config.DefaultRequestRateLimit
	}
	if c.RequestBurst < 1 {
		c.RequestBurst = config.DefaultRequestBurst
	}

	return &Mediator{
		cfg:     &c,
		deps:    deps,
		logger:  logger,
		limiter: newTopicLimiter(c.RequestRateLimit, c.RequestBurst),
		runCtx:  context.Background(),
	}, nil
}

// Start resolves the wallet, then subscribes to SDK events for the mediator's lifetime
func (m *Mediator) Start(ctx context.Context) error {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if !m.started.CAS(false, true) {
		return fmt.Errorf("mediator already started")
	}

	if m.deps.Wallet != nil {
		addresses, err := m.deps.Wallet.Addresses(ctx)
		if err != nil {
			m.started.Store(false)
			return fmt.Errorf("failed to load wallet addresses: %w", err)
		}
		if len(addresses) > 0 {
			m.logger.Sugar().Infow("Wallet ready", "address", addresses[0], "accounts", len(addresses))
		} else {
			m.logger.Sugar().Warnw("Wallet has no addresses, proposals cannot be approved")
		}
	}

	m.runCtx, m.cancel = context.WithCancel(ctx)
	m.disposers = []walletSdk.Disposer{
		m.deps.Sdk.Subscribe(types.EventSessionProposal, m.handleProposalEvent),
		m.deps.Sdk.Subscribe(types.EventSessionRequest, m.handleRequestEvent),
		m.deps.Sdk.Subscribe(types.EventSessionDelete, m.handleDeleteEvent),
	}

	m.logger.Sugar().Infow("Session mediator started")
	return nil
}

// Stop disposes the subscriptions, cancels in-flight request handling and waits for it to finish
func (m *Mediator) Stop() {
	m.lifecycleMu.Lock()
	if !m.started.CAS(true, false) {
		m.lifecycleMu.Unlock()
		return
	}
	disposers := m.disposers
	m.disposers = nil
	cancel := m.cancel
	m.lifecycleMu.Unlock()

	for _, dispose := range disposers {
		dispose()
	}
	cancel()
	m.inflight.Wait()

	m.logger.Sugar().Infow("Session mediator stopped")
}

func (m *Mediator) handleProposalEvent(payload json.RawMessage) {
	var proposal types.SessionProposal
	if err := json.Unmarshal(payload, &proposal); err != nil {
		m.logger.Sugar().Warnw("Dropping malformed session proposal", "error", err)
		return
	}
	ctx, ok := m.beginEvent()
	if !ok {
		return
	}
	defer m.inflight.Done()
	m.OnSessionProposal(ctx, &proposal)
}

// handleRequestEvent stamps the arrival order on the dispatch goroutine, then handles the
// request on its own goroutine because eth_sendTransaction waits for the user
func (m *Mediator) handleRequestEvent(payload json.RawMessage) {
	var event types.SessionRequestEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		m.logger.Sugar().Warnw("Dropping malformed session request", "error", err)
		return
	}
	seq := m.arrivals.Inc()

	ctx, ok := m.beginEvent()
	if !ok {
		return
	}
	go func() {
		defer m.inflight.Done()
		if err := m.handleSessionRequest(ctx, &event, seq); err != nil {
			m.logger.Sugar().Debugw("Session request finished with error", "id", event.Id, "error", err)
		}
	}()
}

func (m *Mediator) handleDeleteEvent(payload json.RawMessage) {
	topic := gjson.GetBytes(payload, "topic").String()
	if topic == "" {
		return
	}
	m.logger.Sugar().Infow("Peer deleted session", "topic", topic)
	m.dropTopic(topic)
	m.record(activity.NewRecord(activity.KindSessionDisconnected).WithTopic(topic).WithDetail("deleted by peer"))
	m.deps.Presenter.Notify(presenter.KindInfo, fmt.Sprintf("Session %s was closed by the dapp", topic))
}

// beginEvent registers an in-flight handler unless the mediator is stopping
func (m *Mediator) beginEvent() (context.Context, bool) {
	m.lifecycleMu.RLock()
	defer m.lifecycleMu.RUnlock()
	if !m.started.Load() {
		return nil, false
	}
	m.inflight.Add(1)
	return m.runCtx, true
}

// PendingProposal returns the proposal awaiting a decision, or nil
func (m *Mediator) PendingProposal() *types.SessionProposal {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingProposal == nil {
		return nil
	}
	p := *m.pendingProposal
	return &p
}

// PendingRequest returns the signing request awaiting a decision, or nil
func (m *Mediator) PendingRequest() *PendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingRequest == nil {
		return nil
	}
	r := *m.pendingRequest
	return &r
}

// ActiveSessions lists the SDK's settled sessions
func (m *Mediator) ActiveSessions(ctx context.Context) (map[string]*types.Session, error) {
	sessions, err := m.deps.Sdk.GetActiveSessions(ctx)
	if err != nil {
		e := newError(KindSdkCallFailed, "ActiveSessions", err, "failed to list active sessions")
		m.report(e, activity.NewRecord(activity.KindSdkCallFailed))
		return nil, e
	}
	return sessions, nil
}

// report surfaces a failure to the user and the activity log
func (m *Mediator) report(err *Error, record *activity.Record) {
	m.logger.Sugar().Errorw("Mediator operation failed", "op", err.Op, "kind", err.Kind, "error", err.Err)
	m.deps.Presenter.Notify(presenter.KindError, err.Error())
	if record != nil {
		m.record(record.WithDetail(err.Error()))
	}
}

func (m *Mediator) record(record *activity.Record) {
	if m.deps.Activity == nil {
		return
	}
	if err := m.deps.Activity.Record(record); err != nil {
		m.logger.Sugar().Warnw("Failed to record activity", "kind", record.Kind, "error", err)
	}
}
