package mediator

import (
	"context"
	"fmt"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

// rateLimitedCode reuses the USER_REJECTED code
const rateLimitedCode = 5000

// OnSessionRequest routes one inbound RPC call. Signing methods are deferred to the signing flow,
// eth_sendTransaction waits for the user's decision, and everything else is answered with
// UNSUPPORTED_METHODS. Each request gets exactly one response unless it is deferred.
func (m *Mediator) OnSessionRequest(ctx context.Context, event *types.SessionRequestEvent) error {
	return m.handleSessionRequest(ctx, event, m.arrivals.Inc())
}

func (m *Mediator) handleSessionRequest(ctx context.Context, event *types.SessionRequestEvent, seq uint64) error {
	if event == nil {
		return nil
	}
	method := event.Method()

	if !m.limiter.Allow(event.Topic) {
		m.logger.Sugar().Warnw("Session request rate limited", "topic", event.Topic, "id", event.Id, "method", method)
		m.record(activity.NewRecord(activity.KindRateLimited).WithTopic(event.Topic).WithRequest(event.Id, method))
		return m.respond(ctx, "OnSessionRequest", event, types.FormatJsonRpcError(event.Id,
			&types.SdkError{Code: rateLimitedCode, Message: "rate limited"}))
	}

	m.logger.Sugar().Infow("Session request received", "topic", event.Topic, "id", event.Id, "method", method, "chain", event.Params.ChainId)
	m.record(activity.NewRecord(activity.KindRequestReceived).
		WithTopic(event.Topic).
		WithRequest(event.Id, method).
		WithDetail(event.Params.ChainId))

	switch method {
	case types.MethodEthSign, types.MethodPersonalSign:
		return m.deferSigningRequest(ctx, event, seq)
	case types.MethodEthSendTransaction:
		return m.handleSendTransaction(ctx, event)
	default:
		return m.rejectUnsupported(ctx, event)
	}
}

// deferSigningRequest parks a signing request in the pending slot. If a newer request is already
// there, the incoming one is superseded right away; otherwise it replaces the older one.
func (m *Mediator) deferSigningRequest(ctx context.Context, event *types.SessionRequestEvent, seq uint64) error {
	session, err := m.deps.Sdk.GetSession(ctx, event.Topic)
	if err != nil {
		m.logger.Sugar().Warnw("Could not resolve session for signing request", "topic", event.Topic, "error", err)
		session = nil
	}

	incoming := &PendingRequest{Event: event, Session: session, seq: seq}

	m.mu.Lock()
	var superseded *PendingRequest
	current := m.pendingRequest
	if current != nil && current.seq > seq {
		superseded = incoming
	} else {
		superseded = current
		m.pendingRequest = incoming
	}
	m.mu.Unlock()

	if superseded != nil {
		m.supersede(ctx, superseded)
	}
	if superseded == incoming {
		return nil
	}

	m.deps.Presenter.ShowSigningRequest(ctx, event, session)
	return nil
}

// supersede answers a replaced signing request so the peer is not left waiting on it
func (m *Mediator) supersede(ctx context.Context, replaced *PendingRequest) {
	event := replaced.Event
	m.logger.Sugar().Infow("Signing request superseded", "topic", event.Topic, "id", event.Id)
	m.record(activity.NewRecord(activity.KindRequestSuperseded).WithTopic(event.Topic).WithRequest(event.Id, event.Method()))
	_ = m.respond(ctx, "OnSessionRequest", event, types.FormatJsonRpcError(event.Id,
		types.GetSdkError(types.SdkErrorUserRejected, "Superseded by a newer request.")))
}

// ApproveSignRequest signs the pending request and responds with the signature. It is a no-op
// when nothing is pending.
func (m *Mediator) ApproveSignRequest(ctx context.Context) error {
	pending := m.takeRequest()
	if pending == nil {
		m.logger.Sugar().Debugw("Sign ignored, no pending request")
		return nil
	}
	event := pending.Event

	if m.deps.MessageSigner == nil {
		return m.failRequest(ctx, "ApproveSignRequest", event, activity.KindRequestRejected, fmt.Errorf("no message signer configured"))
	}

	signature, err := m.deps.MessageSigner.SignRequest(ctx, event)
	if err != nil {
		return m.failRequest(ctx, "ApproveSignRequest", event, activity.KindRequestRejected, err)
	}

	if err := m.respond(ctx, "ApproveSignRequest", event, types.FormatJsonRpcResult(event.Id, signature)); err != nil {
		return err
	}
	m.record(activity.NewRecord(activity.KindRequestSigned).WithTopic(event.Topic).WithRequest(event.Id, event.Method()))
	m.deps.Presenter.Notify(presenter.KindSuccess, fmt.Sprintf("Signed %s request %d", event.Method(), event.Id))
	return nil
}

// RejectSignRequest declines the pending request with USER_REJECTED_METHODS. It is a no-op when
// nothing is pending.
func (m *Mediator) RejectSignRequest(ctx context.Context) error {
	pending := m.takeRequest()
	if pending == nil {
		m.logger.Sugar().Debugw("Decline ignored, no pending request")
		return nil
	}
	event := pending.Event

	if err := m.respond(ctx, "RejectSignRequest", event, types.FormatJsonRpcError(event.Id,
		types.GetSdkError(types.SdkErrorUserRejectedMethods))); err != nil {
		return err
	}
	m.record(activity.NewRecord(activity.KindRequestRejected).WithTopic(event.Topic).WithRequest(event.Id, event.Method()))
	m.deps.Presenter.Notify(presenter.KindInfo, fmt.Sprintf("Declined %s request %d", event.Method(), event.Id))
	return nil
}

func (m *Mediator) handleSendTransaction(ctx context.Context, event *types.SessionRequestEvent) error {
	const op = "OnSessionRequest"

	approved, err := m.deps.Presenter.ShowTransactionApproval(ctx, event)
	if err != nil {
		if ctx.Err() != nil {
			m.logger.Sugar().Infow("Transaction approval abandoned", "topic", event.Topic, "id", event.Id, "error", err)
			return ctx.Err()
		}
		m.logger.Sugar().Warnw("Transaction approval failed, treating as rejection", "id", event.Id, "error", err)
		approved = false
	}

	if !approved {
		if err := m.respond(ctx, op, event, types.FormatJsonRpcError(event.Id,
			types.GetSdkError(types.SdkErrorUserRejectedMethods))); err != nil {
			return err
		}
		m.record(activity.NewRecord(activity.KindTransactionRejected).WithTopic(event.Topic).WithRequest(event.Id, event.Method()))
		m.deps.Presenter.Notify(presenter.KindInfo, "Transaction rejected")
		return nil
	}

	if m.deps.TransactionSender == nil {
		return m.failRequest(ctx, op, event, activity.KindTransactionFailed, fmt.Errorf("no transaction sender configured"))
	}

	txHash, err := m.deps.TransactionSender.SendTransaction(ctx, event.Params.ChainId, event.Params.Request.Params)
	if err != nil {
		return m.failRequest(ctx, op, event, activity.KindTransactionFailed, err)
	}

	if err := m.respond(ctx, op, event, types.FormatJsonRpcResult(event.Id, txHash)); err != nil {
		return err
	}
	m.logger.Sugar().Infow("Transaction sent", "topic", event.Topic, "id", event.Id, "txHash", txHash)
	m.record(activity.NewRecord(activity.KindTransactionSent).
		WithTopic(event.Topic).
		WithRequest(event.Id, event.Method()).
		WithDetail(txHash))
	m.deps.Presenter.Notify(presenter.KindSuccess, fmt.Sprintf("Transaction sent: %s", txHash))
	return nil
}

func (m *Mediator) rejectUnsupported(ctx context.Context, event *types.SessionRequestEvent) error {
	method := event.Method()
	e := newError(KindUnsupportedMethod, "OnSessionRequest", nil, "method %q is not supported", method)

	m.logger.Sugar().Warnw("Unsupported session request method", "topic", event.Topic, "id", event.Id, "method", method)
	m.record(activity.NewRecord(activity.KindUnsupportedMethod).WithTopic(event.Topic).WithRequest(event.Id, method))
	m.deps.Presenter.Notify(presenter.KindWarning, e.Error())

	if err := m.respond(ctx, "OnSessionRequest", event, types.FormatJsonRpcError(event.Id,
		types.GetSdkError(types.SdkErrorUnsupportedMethods, method))); err != nil {
		return err
	}
	return e
}

// failRequest answers a request the wallet could not carry out with an internal error
func (m *Mediator) failRequest(ctx context.Context, op string, event *types.SessionRequestEvent, kind activity.Kind, cause error) error {
	m.logger.Sugar().Errorw("Session request failed", "op", op, "topic", event.Topic, "id", event.Id, "error", cause)
	m.record(activity.NewRecord(kind).
		WithTopic(event.Topic).
		WithRequest(event.Id, event.Method()).
		WithDetail(cause.Error()))
	m.deps.Presenter.Notify(presenter.KindError, fmt.Sprintf("%s request %d failed: %v", event.Method(), event.Id, cause))

	if err := m.respond(ctx, op, event, types.FormatJsonRpcError(event.Id, types.InternalError(cause.Error()))); err != nil {
		return err
	}
	return cause
}

// respond sends the response for event; a failure is reported as SdkCallFailed
func (m *Mediator) respond(ctx context.Context, op string, event *types.SessionRequestEvent, response *types.JsonRpcResponse) error {
	if err := m.deps.Sdk.RespondSessionRequest(ctx, event.Topic, response); err != nil {
		e := newError(KindSdkCallFailed, op, err, "failed to respond to request %d on %s", event.Id, event.Topic)
		m.report(e, activity.NewRecord(activity.KindSdkCallFailed).WithTopic(event.Topic).WithRequest(event.Id, event.Method()))
		return e
	}
	return nil
}

// takeRequest empties the signing slot and returns what it held
func (m *Mediator) takeRequest() *PendingRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	pending := m.pendingRequest
	m.pendingRequest = nil
	return pending
}
