package testutil

import (
	"context"
	"sync"

	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

type Notification struct {
	Kind    presenter.NotificationKind
	Message string
}

// MockPresenter records what the mediator shows. Transaction approvals answer ApproveTransactions,
// or block on Decisions when it is set.
type MockPresenter struct {
	mu sync.Mutex

	ApproveTransactions bool
	ApprovalErr         error
	Decisions           chan bool

	proposals           []*types.SessionProposal
	signingRequests     []*types.SessionRequestEvent
	transactionRequests []*types.SessionRequestEvent
	notifications       []Notification
}

func NewMockPresenter() *MockPresenter {
	return &MockPresenter{}
}

func (p *MockPresenter) ShowProposal(ctx context.Context, proposal *types.SessionProposal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proposals = append(p.proposals, proposal)
}

func (p *MockPresenter) ShowSigningRequest(ctx context.Context, event *types.SessionRequestEvent, session *types.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signingRequests = append(p.signingRequests, event)
}

func (p *MockPresenter) ShowTransactionApproval(ctx context.Context, event *types.SessionRequestEvent) (bool, error) {
	p.mu.Lock()
	p.transactionRequests = append(p.transactionRequests, event)
	decisions, approve, approvalErr := p.Decisions, p.ApproveTransactions, p.ApprovalErr
	p.mu.Unlock()

	if decisions == nil {
		return approve, approvalErr
	}
	select {
	case d := <-decisions:
		return d, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (p *MockPresenter) Notify(kind presenter.NotificationKind, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, Notification{Kind: kind, Message: message})
}

func (p *MockPresenter) Proposals() []*types.SessionProposal {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*types.SessionProposal(nil), p.proposals...)
}

func (p *MockPresenter) SigningRequests() []*types.SessionRequestEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*types.SessionRequestEvent(nil), p.signingRequests...)
}

func (p *MockPresenter) TransactionRequests() []*types.SessionRequestEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*types.SessionRequestEvent(nil), p.transactionRequests...)
}

// Notifications returns recorded notifications of kind, or all of them when kind is empty
func (p *MockPresenter) Notifications(kind presenter.NotificationKind) []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Notification, 0, len(p.notifications))
	for _, n := range p.notifications {
		if kind == "" || n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

var _ presenter.IPresenter = (*MockPresenter)(nil)
