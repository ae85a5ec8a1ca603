package walletSdk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/tidwall/gjson"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const (
	writeTimeout       = 10 * time.Second
	handshakeTimeout   = 10 * time.Second
	eventBufferSize    = 64
	defaultPingPeriod  = 30 * time.Second
	pongWaitMultiplier = 2
)

// BridgeConfig configures the websocket bridge to the SDK sidecar
type BridgeConfig struct {
	Url       string
	ProjectId string
	Metadata  types.Metadata

	// CallTimeout bounds every bridge call on top of the caller's context. Zero disables it.
	CallTimeout time.Duration

	// PingInterval is how often the client pings the sidecar. Zero uses the default, negative disables.
	PingInterval time.Duration
}

// BridgeClient implements IWalletSdk by speaking JSON-RPC 2.0 over a websocket to a sidecar that hosts
// the WalletConnect SDK. Calls are matched to responses by id; frames without an id are SDK events and
// are delivered to subscribers, in arrival order, on a single dispatch goroutine.
type BridgeClient struct {
	config   *BridgeConfig
	logger   *zap.Logger
	clientId string

	conn    *websocket.Conn
	writeMu sync.Mutex

	nextId atomic.Int64

	pendingMu sync.Mutex
	pending   map[int64]chan *rpcResponse

	subsMu  sync.RWMutex
	subs    map[string]map[uint64]EventHandler
	nextSub uint64

	events    chan *rpcNotification
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewBridgeClient dials the sidecar, starts the read and dispatch loops and initializes the SDK with the
// wallet's project id and metadata.
func NewBridgeClient(ctx context.Context, cfg *BridgeConfig, logger *zap.Logger) (*BridgeClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bridge config cannot be nil")
	}
	if cfg.Url == "" {
		return nil, fmt.Errorf("bridge url cannot be empty")
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, cfg.Url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial wallet sdk bridge at %s: %w", cfg.Url, err)
	}

	b := &BridgeClient{
		config:   cfg,
		logger:   logger,
		clientId: uuid.NewString(),
		conn:     conn,
		pending:  make(map[int64]chan *rpcResponse),
		subs:     make(map[string]map[uint64]EventHandler),
		events:   make(chan *rpcNotification, eventBufferSize),
		done:     make(chan struct{}),
	}

	pingInterval := cfg.PingInterval
	if pingInterval == 0 {
		pingInterval = defaultPingPeriod
	}
	if pingInterval > 0 {
		pongWait := pingInterval * pongWaitMultiplier
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		b.wg.Add(1)
		go b.pingLoop(pingInterval)
	}

	b.wg.Add(2)
	go b.readLoop()
	go b.dispatchLoop()

	err = b.call(ctx, MethodInit, &initParams{
		ProjectId: cfg.ProjectId,
		ClientId:  b.clientId,
		Metadata:  cfg.Metadata,
	}, nil)
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("failed to initialize wallet sdk: %w", err)
	}

	logger.Sugar().Infow("Wallet SDK bridge initialized",
		"url", cfg.Url,
		"client_id", b.clientId,
		"wallet", cfg.Metadata.Name,
	)
	return b, nil
}

func (b *BridgeClient) Pair(ctx context.Context, uri string) (*types.PairResult, error) {
	var result types.PairResult
	if err := b.call(ctx, MethodPair, &types.PairingRequest{Uri: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (b *BridgeClient) ApproveSession(ctx context.Context, id types.ProposalId, relayProtocol string, namespaces types.Namespaces) (*types.Session, error) {
	var session types.Session
	err := b.call(ctx, MethodApproveSession, &approveSessionParams{
		Id:            id,
		RelayProtocol: relayProtocol,
		Namespaces:    namespaces,
	}, &session)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (b *BridgeClient) RejectSession(ctx context.Context, id types.ProposalId, reason *types.SdkError) error {
	return b.call(ctx, MethodRejectSession, &rejectSessionParams{Id: id, Reason: reason}, nil)
}

func (b *BridgeClient) GetActiveSessions(ctx context.Context) (map[string]*types.Session, error) {
	sessions := make(map[string]*types.Session)
	if err := b.call(ctx, MethodGetActiveSessions, struct{}{}, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (b *BridgeClient) GetSession(ctx context.Context, topic string) (*types.Session, error) {
	var session *types.Session
	err := b.call(ctx, MethodGetSession, &topicParams{Topic: topic}, &session)
	if err != nil {
		var rpcErr *RpcError
		if errors.As(err, &rpcErr) && rpcErr.Code == CodeSessionNotFound {
			return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, topic)
		}
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, topic)
	}
	return session, nil
}

func (b *BridgeClient) DisconnectSession(ctx context.Context, topic string, reason *types.SdkError) error {
	return b.call(ctx, MethodDisconnectSession, &disconnectSessionParams{Topic: topic, Reason: reason}, nil)
}

func (b *BridgeClient) RespondSessionRequest(ctx context.Context, topic string, response *types.JsonRpcResponse) error {
	return b.call(ctx, MethodRespondSessionRequest, &respondSessionRequestParams{Topic: topic, Response: response}, nil)
}

// Subscribe registers handler for event. Handlers run on the dispatch goroutine in subscription order.
func (b *BridgeClient) Subscribe(event string, handler EventHandler) Disposer {
	b.subsMu.Lock()
	b.nextSub++
	id := b.nextSub
	if b.subs[event] == nil {
		b.subs[event] = make(map[uint64]EventHandler)
	}
	b.subs[event][id] = handler
	b.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.subsMu.Lock()
			delete(b.subs[event], id)
			b.subsMu.Unlock()
		})
	}
}

// Close shuts the bridge down. It must not be called from inside an event handler.
func (b *BridgeClient) Close() error {
	if !b.closed.CAS(false, true) {
		return nil
	}

	b.writeMu.Lock()
	_ = b.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	b.writeMu.Unlock()

	err := b.conn.Close()
	b.shutdown()
	b.wg.Wait()

	b.logger.Sugar().Infow("Wallet SDK bridge closed", "client_id", b.clientId)
	return err
}

func (b *BridgeClient) shutdown() {
	b.closeOnce.Do(func() {
		close(b.done)
	})
}

func (b *BridgeClient) call(ctx context.Context, method string, params interface{}, result interface{}) error {
	if b.closed.Load() {
		return ErrClientClosed
	}

	if b.config.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.CallTimeout)
		defer cancel()
	}

	id := b.nextId.Inc()
	respCh := make(chan *rpcResponse, 1)

	b.pendingMu.Lock()
	b.pending[id] = respCh
	b.pendingMu.Unlock()
	defer func() {
		b.pendingMu.Lock()
		delete(b.pending, id)
		b.pendingMu.Unlock()
	}()

	data, err := json.Marshal(&rpcRequest{
		Id:      id,
		JsonRpc: "2.0",
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", method, err)
	}

	b.logger.Sugar().Debugw("Sending bridge request", "method", method, "id", id)
	if err := b.write(data); err != nil {
		return fmt.Errorf("failed to send %s request: %w", method, err)
	}

	select {
	case resp := <-respCh:
		if resp.Error != nil {
			return resp.Error
		}
		if result == nil || len(resp.Result) == 0 || string(resp.Result) == "null" {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("failed to decode %s result: %w", method, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s request %d: %w", method, id, ctx.Err())
	case <-b.done:
		return ErrClientClosed
	}
}

func (b *BridgeClient) write(data []byte) error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	if err := b.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return b.conn.WriteMessage(websocket.TextMessage, data)
}

func (b *BridgeClient) readLoop() {
	defer b.wg.Done()
	defer b.shutdown()

	for {
		msgType, data, err := b.conn.ReadMessage()
		if err != nil {
			if !b.closed.Load() {
				b.logger.Sugar().Warnw("Wallet SDK bridge connection lost", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		b.handleFrame(data)
	}
}

func (b *BridgeClient) handleFrame(data []byte) {
	if !gjson.ValidBytes(data) {
		b.logger.Sugar().Warnw("Dropping malformed bridge frame", "size", len(data))
		return
	}
	frame := gjson.ParseBytes(data)

	if frame.Get("id").Exists() && (frame.Get("result").Exists() || frame.Get("error").Exists()) {
		var resp rpcResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			b.logger.Sugar().Warnw("Dropping undecodable bridge response", "error", err)
			return
		}

		b.pendingMu.Lock()
		respCh, ok := b.pending[resp.Id]
		b.pendingMu.Unlock()
		if !ok {
			b.logger.Sugar().Debugw("Dropping response for unknown request", "id", resp.Id)
			return
		}
		select {
		case respCh <- &resp:
		default:
		}
		return
	}

	method := frame.Get("method").String()
	if method == "" {
		b.logger.Sugar().Warnw("Dropping bridge frame without method or id")
		return
	}

	notification := &rpcNotification{
		JsonRpc: frame.Get("jsonrpc").String(),
		Method:  method,
		Params:  json.RawMessage(frame.Get("params").Raw),
	}
	select {
	case b.events <- notification:
	case <-b.done:
	}
}

func (b *BridgeClient) dispatchLoop() {
	defer b.wg.Done()

	for {
		select {
		case n := <-b.events:
			b.dispatch(n)
		case <-b.done:
			return
		}
	}
}

func (b *BridgeClient) dispatch(n *rpcNotification) {
	b.subsMu.RLock()
	registered := b.subs[n.Method]
	ids := make([]uint64, 0, len(registered))
	for id := range registered {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	handlers := make([]EventHandler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, registered[id])
	}
	b.subsMu.RUnlock()

	if len(handlers) == 0 {
		b.logger.Sugar().Debugw("No subscribers for wallet sdk event", "event", n.Method)
		return
	}

	for _, h := range handlers {
		b.runHandler(n, h)
	}
}

func (b *BridgeClient) runHandler(n *rpcNotification, h EventHandler) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Sugar().Errorw("Wallet sdk event handler panicked", "event", n.Method, "panic", r)
		}
	}()
	h(n.Params)
}

func (b *BridgeClient) pingLoop(interval time.Duration) {
	defer b.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := b.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				b.logger.Sugar().Debugw("Failed to ping wallet sdk bridge", "error", err)
			}
		case <-b.done:
			return
		}
	}
}
