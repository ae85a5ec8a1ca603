package mediator

import (
	"context"
	"testing"
	"time"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/activity/memory"
	"github.com/Layr-Labs/web3wallet-go/pkg/testutil"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testAddress = "0xABC"

type testMediator struct {
	*Mediator
	sdk       *testutil.MockWalletSdk
	presenter *testutil.MockPresenter
	wallet    *testutil.MockWallet
	signer    *testutil.MockMessageSigner
	sender    *testutil.MockTransactionSender
	activity  *memory.MemoryActivityStore
}

func newTestMediator(t *testing.T, cfg *Config) *testMediator {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	logger := zaptest.NewLogger(t)

	tm := &testMediator{
		sdk:       testutil.NewMockWalletSdk(),
		presenter: testutil.NewMockPresenter(),
		wallet:    testutil.NewMockWallet(testAddress),
		signer:    testutil.NewMockMessageSigner("0xsignature"),
		sender:    testutil.NewMockTransactionSender("0xtxhash"),
		activity:  memory.NewMemoryActivityStore(logger),
	}
	m, err := NewMediator(cfg, &Deps{
		Sdk:               tm.sdk,
		Presenter:         tm.presenter,
		Wallet:            tm.wallet,
		MessageSigner:     tm.signer,
		TransactionSender: tm.sender,
		Activity:          tm.activity,
	}, logger)
	require.NoError(t, err)
	tm.Mediator = m
	return tm
}

// activityKinds returns the recorded kinds oldest first
func (tm *testMediator) activityKinds(t *testing.T) []activity.Kind {
	t.Helper()
	records, err := tm.activity.List(0)
	require.NoError(t, err)
	kinds := make([]activity.Kind, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		kinds = append(kinds, records[i].Kind)
	}
	return kinds
}

func Test_NewMediator_Validation(t *testing.T) {
	logger := zaptest.NewLogger(t)
	sdk := testutil.NewMockWalletSdk()
	p := testutil.NewMockPresenter()

	_, err := NewMediator(nil, &Deps{Sdk: sdk, Presenter: p}, logger)
	assert.Error(t, err)

	_, err = NewMediator(&Config{}, &Deps{Presenter: p}, logger)
	assert.Error(t, err)

	_, err = NewMediator(&Config{}, &Deps{Sdk: sdk}, logger)
	assert.Error(t, err)

	_, err = NewMediator(&Config{}, &Deps{Sdk: sdk, Presenter: p}, nil)
	assert.Error(t, err)

	m, err := NewMediator(&Config{}, &Deps{Sdk: sdk, Presenter: p}, logger)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultRelayProtocol, m.cfg.DefaultRelayProtocol)
	assert.NotEmpty(t, m.cfg.DeepLinkPrefix)
	assert.Greater(t, m.cfg.RequestRateLimit, 0.0)
	assert.GreaterOrEqual(t, m.cfg.RequestBurst, 1)
}

func Test_Mediator_StartStop(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()

	require.NoError(t, tm.Start(ctx))
	assert.Error(t, tm.Start(ctx), "second start must fail")

	for _, event := range []string{types.EventSessionProposal, types.EventSessionRequest, types.EventSessionDelete} {
		assert.Equal(t, 1, tm.sdk.SubscriberCount(event), event)
	}

	tm.Stop()
	for _, event := range []string{types.EventSessionProposal, types.EventSessionRequest, types.EventSessionDelete} {
		assert.Equal(t, 0, tm.sdk.SubscriberCount(event), event)
	}

	// stopping twice is harmless and the mediator can be started again
	tm.Stop()
	require.NoError(t, tm.Start(ctx))
	tm.Stop()
}

func Test_Mediator_StartFailsWithoutWallet(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.wallet.Err = assert.AnError

	err := tm.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, 0, tm.sdk.SubscriberCount(types.EventSessionProposal))

	tm.wallet.Err = nil
	require.NoError(t, tm.Start(context.Background()))
	tm.Stop()
}

func Test_Mediator_ProposalEvent(t *testing.T) {
	tm := newTestMediator(t, nil)
	require.NoError(t, tm.Start(context.Background()))
	defer tm.Stop()

	proposal := testutil.NewProposal("1700000000001", []string{"eip155:1"}, []string{types.MethodPersonalSign})
	require.NoError(t, tm.sdk.Emit(types.EventSessionProposal, proposal))

	pending := tm.PendingProposal()
	require.NotNil(t, pending)
	assert.Equal(t, proposal.Id, pending.Id)
	require.Len(t, tm.presenter.Proposals(), 1)

	// malformed payloads are dropped
	require.NoError(t, tm.sdk.Emit(types.EventSessionProposal, "not a proposal"))
	assert.Equal(t, proposal.Id, tm.PendingProposal().Id)
}

func Test_Mediator_RequestEvent(t *testing.T) {
	tm := newTestMediator(t, nil)
	require.NoError(t, tm.Start(context.Background()))
	defer tm.Stop()

	event := testutil.NewSessionRequest(1, "topic-a", "eth_signTypedData_v4", []string{testAddress, "{}"})
	require.NoError(t, tm.sdk.Emit(types.EventSessionRequest, event))

	require.Eventually(t, func() bool { return len(tm.sdk.Responses()) == 1 }, time.Second, 5*time.Millisecond)
	resp := tm.sdk.Responses()[0]
	assert.Equal(t, "topic-a", resp.Topic)
	require.True(t, resp.Response.IsError())
	assert.Equal(t, 5101, resp.Response.Error.Code)
}

func Test_Mediator_DeleteEvent(t *testing.T) {
	tm := newTestMediator(t, nil)
	require.NoError(t, tm.Start(context.Background()))
	defer tm.Stop()

	ctx := context.Background()
	require.NoError(t, tm.OnSessionRequest(ctx, testutil.NewSessionRequest(1, "topic-a", types.MethodPersonalSign, []string{"0x68656c6c6f", testAddress})))
	require.NotNil(t, tm.PendingRequest())

	require.NoError(t, tm.sdk.Emit(types.EventSessionDelete, map[string]string{"topic": "topic-b"}))
	assert.NotNil(t, tm.PendingRequest(), "a delete on another topic leaves the request alone")

	require.NoError(t, tm.sdk.Emit(types.EventSessionDelete, map[string]string{"topic": "topic-a"}))
	assert.Nil(t, tm.PendingRequest())
	assert.Contains(t, tm.activityKinds(t), activity.KindSessionDisconnected)
}

func Test_Mediator_StopCancelsPendingTransaction(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.Decisions = make(chan bool)
	require.NoError(t, tm.Start(context.Background()))

	event := testutil.NewSessionRequest(9, "topic-a", types.MethodEthSendTransaction, []map[string]string{{"from": testAddress, "to": testAddress}})
	require.NoError(t, tm.sdk.Emit(types.EventSessionRequest, event))
	require.Eventually(t, func() bool { return len(tm.presenter.TransactionRequests()) == 1 }, time.Second, 5*time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		tm.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return")
	}

	assert.Empty(t, tm.sdk.Responses())
	assert.Empty(t, tm.sender.Calls())

	// events after Stop are not delivered
	require.NoError(t, tm.sdk.Emit(types.EventSessionRequest, event))
	assert.Len(t, tm.presenter.TransactionRequests(), 1)
}

func Test_Mediator_ActiveSessions(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.sdk.Sessions["topic-a"] = &types.Session{Topic: "topic-a"}

	sessions, err := tm.ActiveSessions(context.Background())
	require.NoError(t, err)
	assert.Contains(t, sessions, "topic-a")

	tm.sdk.SessionsErr = assert.AnError
	_, err = tm.ActiveSessions(context.Background())
	assert.ErrorIs(t, err, ErrSdkCallFailed)
	assert.ErrorIs(t, err, assert.AnError)
}
