package presenter

import (
	"context"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

type NotificationKind string

const (
	KindInfo    NotificationKind = "info"
	KindSuccess NotificationKind = "success"
	KindWarning NotificationKind = "warning"
	KindError   NotificationKind = "error"
)

// IPresenter is the user-facing side of the mediator. Show* calls only render; decisions come back
// through the mediator's Approve*/Reject* operations, except transaction approval which blocks.
type IPresenter interface {
	// ShowProposal displays a pending session proposal
	ShowProposal(ctx context.Context, proposal *types.SessionProposal)

	// ShowSigningRequest displays a deferred eth_sign / personal_sign request. session may be nil
	// when the SDK no longer knows the topic.
	ShowSigningRequest(ctx context.Context, event *types.SessionRequestEvent, session *types.Session)

	// ShowTransactionApproval blocks until the user approves or rejects the eth_sendTransaction
	// request, or ctx is done
	ShowTransactionApproval(ctx context.Context, event *types.SessionRequestEvent) (bool, error)

	// Notify shows a one-line status message
	Notify(kind NotificationKind, message string)
}
