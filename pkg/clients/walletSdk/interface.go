package walletSdk

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrClientClosed    = errors.New("wallet sdk client is closed")
)

// EventHandler receives the raw params of an SDK event
type EventHandler func(payload json.RawMessage)

// Disposer removes a subscription. Calling it more than once is safe.
type Disposer func()

// IWalletSdk is the wallet-connection SDK surface the mediator consumes. Pairing, relay transport,
// key exchange and session storage all live behind it.
type IWalletSdk interface {
	// Pair connects to a peer using a pairing URI and returns the pairing topic and the proposal it carried
	Pair(ctx context.Context, uri string) (*types.PairResult, error)

	// ApproveSession settles a session for proposal id with the given namespaces
	ApproveSession(ctx context.Context, id types.ProposalId, relayProtocol string, namespaces types.Namespaces) (*types.Session, error)

	// RejectSession rejects proposal id with a protocol reason
	RejectSession(ctx context.Context, id types.ProposalId, reason *types.SdkError) error

	// GetActiveSessions returns every settled session keyed by topic
	GetActiveSessions(ctx context.Context) (map[string]*types.Session, error)

	// GetSession returns one settled session, or ErrSessionNotFound
	GetSession(ctx context.Context, topic string) (*types.Session, error)

	// DisconnectSession tears down the session on topic with a protocol reason
	DisconnectSession(ctx context.Context, topic string, reason *types.SdkError) error

	// RespondSessionRequest sends the JSON-RPC response for a session request
	RespondSessionRequest(ctx context.Context, topic string, response *types.JsonRpcResponse) error

	// Subscribe registers handler for a named event until the returned Disposer is called
	Subscribe(event string, handler EventHandler) Disposer

	Close() error
}

// Compile-time check to ensure BridgeClient implements IWalletSdk
var _ IWalletSdk = (*BridgeClient)(nil)
