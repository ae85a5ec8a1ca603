package mediator

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/deeplink"
	"github.com/Layr-Labs/web3wallet-go/pkg/namespaces"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

// HandleDeepLink strips the wallet's deep-link prefix and pairs with the carried URI. Links
// without the prefix are not ours and are ignored.
func (m *Mediator) HandleDeepLink(ctx context.Context, link string) error {
	uri, err := deeplink.ExtractPairingURI(link, m.cfg.DeepLinkPrefix)
	if errors.Is(err, deeplink.ErrNotPairingLink) {
		m.logger.Sugar().Infow("Ignoring link without pairing uri", "link", link)
		return nil
	}
	if err != nil {
		e := newError(KindPairingFailed, "HandleDeepLink", err, "invalid deep link")
		m.report(e, activity.NewRecord(activity.KindPairingFailed))
		return e
	}
	return m.HandlePair(ctx, uri)
}

// HandlePair pairs with a peer. A proposal returned by the pairing call becomes the pending
// proposal; otherwise the proposal arrives later as a session_proposal event.
func (m *Mediator) HandlePair(ctx context.Context, uri string) error {
	parsed, err := deeplink.ValidatePairingURI(uri)
	if err != nil {
		e := newError(KindPairingFailed, "HandlePair", err, "invalid pairing uri")
		m.report(e, activity.NewRecord(activity.KindPairingFailed))
		return e
	}

	result, err := m.deps.Sdk.Pair(ctx, uri)
	if err != nil {
		e := newError(KindPairingFailed, "HandlePair", err, "failed to pair with topic %s", parsed.Topic)
		m.report(e, activity.NewRecord(activity.KindPairingFailed).WithTopic(parsed.Topic))
		return e
	}

	topic := parsed.Topic
	if result != nil && result.Topic != "" {
		topic = result.Topic
	}
	m.logger.Sugar().Infow("Paired with peer", "topic", topic)
	m.record(activity.NewRecord(activity.KindPaired).WithTopic(topic))

	if result == nil || result.Proposal == nil {
		m.deps.Presenter.Notify(presenter.KindInfo, "Paired, waiting for the session proposal")
		return nil
	}
	m.OnSessionProposal(ctx, result.Proposal)
	return nil
}

// OnSessionProposal makes proposal the pending one, replacing any earlier proposal
func (m *Mediator) OnSessionProposal(ctx context.Context, proposal *types.SessionProposal) {
	if proposal == nil {
		return
	}

	m.mu.Lock()
	previous := m.pendingProposal
	m.pendingProposal = proposal
	m.approving = false
	m.mu.Unlock()

	if previous != nil && previous.Id != proposal.Id {
		m.logger.Sugar().Infow("Session proposal superseded", "previous", previous.Id, "current", proposal.Id)
		m.record(activity.NewRecord(activity.KindProposalSuperseded).
			WithProposal(previous.Id.String()).
			WithDetail(fmt.Sprintf("replaced by %s", proposal.Id)))
	}

	m.logger.Sugar().Infow("Session proposal received",
		"id", proposal.Id,
		"proposer", proposal.Proposer.Metadata.Name,
		"requiredNamespaces", len(proposal.RequiredNamespaces),
	)
	m.record(activity.NewRecord(activity.KindProposalReceived).
		WithTopic(proposal.PairingTopic).
		WithProposal(proposal.Id.String()).
		WithDetail(proposal.Proposer.Metadata.Name))
	m.deps.Presenter.ShowProposal(ctx, proposal)
}

// ApproveProposal approves the pending proposal with one account per required chain and address.
// A nil proposal means whatever is pending. Approving a proposal that is no longer pending is a
// no-op. With no addresses given, the wallet provider's addresses are used; if the provider fails
// the proposal stays pending.
func (m *Mediator) ApproveProposal(ctx context.Context, proposal *types.SessionProposal, addresses []string) error {
	m.mu.Lock()
	pending := m.pendingProposal
	if pending == nil || (proposal != nil && pending.Id != proposal.Id) || m.approving {
		m.mu.Unlock()
		m.logger.Sugar().Debugw("Approve ignored, proposal is not pending", "id", proposalId(proposal))
		return nil
	}
	m.approving = true
	m.mu.Unlock()

	if len(addresses) == 0 && m.deps.Wallet != nil {
		walletAddresses, err := m.deps.Wallet.Addresses(ctx)
		if err != nil {
			m.releaseApproval(pending.Id)
			e := newError(KindWalletUnavailable, "ApproveProposal", err, "failed to load wallet addresses for proposal %s", pending.Id)
			m.report(e, activity.NewRecord(activity.KindSessionApproveFailed).WithProposal(pending.Id.String()))
			return e
		}
		addresses = walletAddresses
	}

	approved, err := namespaces.BuildApprovedNamespaces(pending.RequiredNamespaces, addresses)
	if err != nil {
		m.releaseApproval(pending.Id)
		e := newError(KindNoWalletAddress, "ApproveProposal", err, "cannot approve proposal %s", pending.Id)
		m.report(e, activity.NewRecord(activity.KindSessionApproveFailed).WithProposal(pending.Id.String()))
		return e
	}

	relayProtocol := pending.RelayProtocol(m.cfg.DefaultRelayProtocol)
	session, err := m.deps.Sdk.ApproveSession(ctx, pending.Id, relayProtocol, approved)
	m.clearProposal(pending.Id)
	if err != nil {
		e := newError(KindSdkCallFailed, "ApproveProposal", err, "failed to approve proposal %s", pending.Id)
		m.report(e, activity.NewRecord(activity.KindSessionApproveFailed).WithProposal(pending.Id.String()))
		return e
	}

	topic := ""
	if session != nil {
		topic = session.Topic
	}
	m.logger.Sugar().Infow("Session approved", "id", pending.Id, "topic", topic, "relay", relayProtocol)
	m.record(activity.NewRecord(activity.KindSessionApproved).
		WithTopic(topic).
		WithProposal(pending.Id.String()).
		WithDetail(fmt.Sprintf("%d account(s)", countAccounts(approved))))
	m.deps.Presenter.Notify(presenter.KindSuccess, fmt.Sprintf("Session active: %s", topic))
	return nil
}

// RejectProposal clears the pending proposal and rejects it with USER_REJECTED_METHODS. The slot is
// cleared even when the SDK call fails. Rejecting while an approve is in flight is a no-op.
func (m *Mediator) RejectProposal(ctx context.Context, proposal *types.SessionProposal) error {
	m.mu.Lock()
	pending := m.pendingProposal
	if pending == nil || (proposal != nil && pending.Id != proposal.Id) {
		m.mu.Unlock()
		m.logger.Sugar().Debugw("Reject ignored, proposal is not pending", "id", proposalId(proposal))
		return nil
	}
	if m.approving {
		m.mu.Unlock()
		m.logger.Sugar().Infow("Reject ignored, proposal is being approved", "id", pending.Id)
		return nil
	}
	m.pendingProposal = nil
	m.mu.Unlock()

	reason := types.GetSdkError(types.SdkErrorUserRejectedMethods)
	if err := m.deps.Sdk.RejectSession(ctx, pending.Id, reason); err != nil {
		e := newError(KindSdkCallFailed, "RejectProposal", err, "failed to reject proposal %s", pending.Id)
		m.report(e, activity.NewRecord(activity.KindSdkCallFailed).WithProposal(pending.Id.String()))
		return e
	}

	m.logger.Sugar().Infow("Session proposal rejected", "id", pending.Id)
	m.record(activity.NewRecord(activity.KindSessionRejected).WithProposal(pending.Id.String()))
	m.deps.Presenter.Notify(presenter.KindInfo, "Session proposal rejected")
	return nil
}

// DisconnectActiveSession disconnects the first active session in topic order. It only makes
// sense for a single-session wallet; DisconnectSession takes an explicit topic.
func (m *Mediator) DisconnectActiveSession(ctx context.Context) error {
	sessions, err := m.deps.Sdk.GetActiveSessions(ctx)
	if err != nil {
		e := newError(KindSdkCallFailed, "DisconnectActiveSession", err, "failed to list active sessions")
		m.report(e, activity.NewRecord(activity.KindSdkCallFailed))
		return e
	}
	if len(sessions) == 0 {
		m.logger.Sugar().Infow("No active session to disconnect")
		return nil
	}

	topics := make([]string, 0, len(sessions))
	for topic := range sessions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	if len(topics) > 1 {
		m.logger.Sugar().Warnw("Several sessions are active, disconnecting only the first",
			"topic", topics[0], "active", len(topics))
	}
	return m.disconnect(ctx, "DisconnectActiveSession", topics[0])
}

// DisconnectSession disconnects the session on topic
func (m *Mediator) DisconnectSession(ctx context.Context, topic string) error {
	if _, err := m.deps.Sdk.GetSession(ctx, topic); err != nil {
		e := newError(KindSdkCallFailed, "DisconnectSession", err, "cannot disconnect %s", topic)
		m.report(e, activity.NewRecord(activity.KindSdkCallFailed).WithTopic(topic))
		return e
	}
	return m.disconnect(ctx, "DisconnectSession", topic)
}

func (m *Mediator) disconnect(ctx context.Context, op string, topic string) error {
	reason := types.GetSdkError(types.SdkErrorUserDisconnected)
	if err := m.deps.Sdk.DisconnectSession(ctx, topic, reason); err != nil {
		e := newError(KindSdkCallFailed, op, err, "failed to disconnect %s", topic)
		m.report(e, activity.NewRecord(activity.KindSdkCallFailed).WithTopic(topic))
		return e
	}

	m.dropTopic(topic)
	m.logger.Sugar().Infow("Session disconnected", "topic", topic)
	m.record(activity.NewRecord(activity.KindSessionDisconnected).WithTopic(topic))
	m.deps.Presenter.Notify(presenter.KindSuccess, fmt.Sprintf("Session %s disconnected", topic))
	return nil
}

// clearProposal empties the slot only if it still holds id
func (m *Mediator) clearProposal(id types.ProposalId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingProposal != nil && m.pendingProposal.Id == id {
		m.pendingProposal = nil
		m.approving = false
	}
}

func (m *Mediator) releaseApproval(id types.ProposalId) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingProposal != nil && m.pendingProposal.Id == id {
		m.approving = false
	}
}

// dropTopic forgets local state tied to a session that no longer exists
func (m *Mediator) dropTopic(topic string) {
	m.limiter.Forget(topic)

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pendingRequest != nil && m.pendingRequest.Event.Topic == topic {
		m.pendingRequest = nil
	}
}

func proposalId(p *types.SessionProposal) string {
	if p == nil {
		return ""
	}
	return p.Id.String()
}

func countAccounts(ns types.Namespaces) int {
	n := 0
	for _, namespace := range ns {
		n += len(namespace.Accounts)
	}
	return n
}
