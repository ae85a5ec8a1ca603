package mediator

import (
	"context"
	"testing"
	"time"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/testutil"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signRequest(id int64, topic string) *types.SessionRequestEvent {
	return testutil.NewSessionRequest(id, topic, types.MethodPersonalSign, []string{"0x68656c6c6f", testAddress})
}

func sendRequest(id int64, topic string) *types.SessionRequestEvent {
	return testutil.NewSessionRequest(id, topic, types.MethodEthSendTransaction, []map[string]string{
		{"from": testAddress, "to": "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", "value": "0x1"},
	})
}

func Test_SignRequest_DeferredUntilDecision(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()
	session := &types.Session{Topic: "topic-a"}
	tm.sdk.Sessions["topic-a"] = session

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(1, "topic-a")))

	assert.Empty(t, tm.sdk.Responses(), "signing requests wait for the user")
	pending := tm.PendingRequest()
	require.NotNil(t, pending)
	assert.Equal(t, int64(1), pending.Event.Id)
	assert.Same(t, session, pending.Session)
	assert.Len(t, tm.presenter.SigningRequests(), 1)
}

func Test_ApproveSignRequest(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(2, "topic-a")))
	require.NoError(t, tm.ApproveSignRequest(ctx))

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, "topic-a", responses[0].Topic)
	assert.Equal(t, int64(2), responses[0].Response.Id)
	assert.Equal(t, "0xsignature", responses[0].Response.Result)
	assert.Nil(t, tm.PendingRequest())
	assert.Len(t, tm.signer.Requests(), 1)
	assert.Contains(t, tm.activityKinds(t), activity.KindRequestSigned)

	// nothing left to sign
	require.NoError(t, tm.ApproveSignRequest(ctx))
	assert.Len(t, tm.sdk.Responses(), 1)
}

func Test_ApproveSignRequest_SignerFailure(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.signer.Err = assert.AnError
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(3, "topic-a")))
	err := tm.ApproveSignRequest(ctx)
	require.ErrorIs(t, err, assert.AnError)

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	require.True(t, responses[0].Response.IsError())
	assert.Equal(t, types.JsonRpcInternalErrorCode, responses[0].Response.Error.Code)
	assert.Nil(t, tm.PendingRequest())
}

func Test_RejectSignRequest(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(4, "topic-a")))
	require.NoError(t, tm.RejectSignRequest(ctx))

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	require.True(t, responses[0].Response.IsError())
	assert.Equal(t, 5002, responses[0].Response.Error.Code)
	assert.Empty(t, tm.signer.Requests())
	assert.Nil(t, tm.PendingRequest())

	require.NoError(t, tm.RejectSignRequest(ctx))
	assert.Len(t, tm.sdk.Responses(), 1)
}

func Test_SignRequest_NewerSupersedesOlder(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(5, "topic-a")))
	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(6, "topic-a")))

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, int64(5), responses[0].Response.Id)
	require.True(t, responses[0].Response.IsError())
	assert.Equal(t, 5000, responses[0].Response.Error.Code)
	assert.Equal(t, "User rejected. Superseded by a newer request.", responses[0].Response.Error.Message)

	assert.Equal(t, int64(6), tm.PendingRequest().Event.Id)
	assert.Contains(t, tm.activityKinds(t), activity.KindRequestSuperseded)
}

func Test_SignRequest_LateArrivalDoesNotReplaceNewer(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()

	require.NoError(t, tm.handleSessionRequest(ctx, signRequest(8, "topic-a"), 2))
	require.NoError(t, tm.handleSessionRequest(ctx, signRequest(7, "topic-a"), 1))

	assert.Equal(t, int64(8), tm.PendingRequest().Event.Id)
	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, int64(7), responses[0].Response.Id)
	assert.Len(t, tm.presenter.SigningRequests(), 1, "the superseded request is never shown")
}

func Test_SendTransaction_Declined(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.ApproveTransactions = false
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, sendRequest(10, "topic-a")))

	assert.Empty(t, tm.sender.Calls())
	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	require.True(t, responses[0].Response.IsError())
	assert.Equal(t, 5002, responses[0].Response.Error.Code)
	assert.Contains(t, tm.activityKinds(t), activity.KindTransactionRejected)
}

func Test_SendTransaction_Approved(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.ApproveTransactions = true
	ctx := context.Background()

	event := sendRequest(11, "topic-a")
	require.NoError(t, tm.OnSessionRequest(ctx, event))

	calls := tm.sender.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "eip155:1", calls[0].ChainId)
	assert.JSONEq(t, string(event.Params.Request.Params), string(calls[0].Params))

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, "0xtxhash", responses[0].Response.Result)
	assert.Nil(t, tm.PendingRequest(), "transactions never use the signing slot")
	assert.Contains(t, tm.activityKinds(t), activity.KindTransactionSent)
}

func Test_SendTransaction_SendFailure(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.ApproveTransactions = true
	tm.sender.Err = assert.AnError
	ctx := context.Background()

	err := tm.OnSessionRequest(ctx, sendRequest(12, "topic-a"))
	require.ErrorIs(t, err, assert.AnError)

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	require.True(t, responses[0].Response.IsError())
	assert.Equal(t, types.JsonRpcInternalErrorCode, responses[0].Response.Error.Code)
	assert.Contains(t, tm.activityKinds(t), activity.KindTransactionFailed)
}

func Test_SendTransaction_ApprovalErrorIsRejection(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.ApproveTransactions = true
	tm.presenter.ApprovalErr = assert.AnError
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, sendRequest(13, "topic-a")))
	assert.Empty(t, tm.sender.Calls())
	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, 5002, responses[0].Response.Error.Code)
}

func Test_SendTransaction_WaitsForDecision(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.Decisions = make(chan bool)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- tm.OnSessionRequest(ctx, sendRequest(14, "topic-a"))
	}()
	require.Eventually(t, func() bool { return len(tm.presenter.TransactionRequests()) == 1 }, time.Second, 5*time.Millisecond)

	// proposals and signing requests keep flowing while the user decides
	tm.OnSessionProposal(ctx, testutil.NewProposal("20", []string{"eip155:1"}, nil))
	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(15, "topic-a")))
	assert.NotNil(t, tm.PendingProposal())
	assert.NotNil(t, tm.PendingRequest())

	tm.presenter.Decisions <- true
	require.NoError(t, <-done)
	assert.Len(t, tm.sender.Calls(), 1)
}

func Test_SendTransaction_Cancelled(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.presenter.Decisions = make(chan bool)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- tm.OnSessionRequest(ctx, sendRequest(16, "topic-a"))
	}()
	require.Eventually(t, func() bool { return len(tm.presenter.TransactionRequests()) == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Empty(t, tm.sdk.Responses())
	assert.Empty(t, tm.sender.Calls())
}

func Test_UnsupportedMethod(t *testing.T) {
	tm := newTestMediator(t, nil)
	ctx := context.Background()

	err := tm.OnSessionRequest(ctx, testutil.NewSessionRequest(17, "topic-a", "eth_signTypedData_v4", []string{testAddress, "{}"}))
	require.ErrorIs(t, err, ErrUnsupportedMethod)

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	require.True(t, responses[0].Response.IsError())
	assert.Equal(t, 5101, responses[0].Response.Error.Code)
	assert.Contains(t, responses[0].Response.Error.Message, "eth_signTypedData_v4")
	assert.Nil(t, tm.PendingRequest())
	assert.Len(t, tm.presenter.Notifications(presenter.KindWarning), 1)
}

func Test_RespondFailureIsReported(t *testing.T) {
	tm := newTestMediator(t, nil)
	tm.sdk.RespondErr = assert.AnError
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(18, "topic-a")))
	err := tm.RejectSignRequest(ctx)
	require.ErrorIs(t, err, ErrSdkCallFailed)
	assert.Contains(t, tm.activityKinds(t), activity.KindSdkCallFailed)
}

func Test_SessionRequest_RateLimited(t *testing.T) {
	tm := newTestMediator(t, &Config{RequestRateLimit: 0.001, RequestBurst: 1})
	ctx := context.Background()

	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(19, "topic-a")))
	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(20, "topic-a")))

	responses := tm.sdk.Responses()
	require.Len(t, responses, 1)
	assert.Equal(t, int64(20), responses[0].Response.Id)
	assert.Equal(t, rateLimitedCode, responses[0].Response.Error.Code)
	assert.Equal(t, "rate limited", responses[0].Response.Error.Message)
	assert.Equal(t, int64(19), tm.PendingRequest().Event.Id, "a limited request never touches the slot")

	// other topics have their own budget
	require.NoError(t, tm.OnSessionRequest(ctx, signRequest(21, "topic-b")))
	assert.Equal(t, int64(21), tm.PendingRequest().Event.Id)
	assert.Contains(t, tm.activityKinds(t), activity.KindRateLimited)
}

func Test_NilRequestIsIgnored(t *testing.T) {
	tm := newTestMediator(t, nil)
	require.NoError(t, tm.OnSessionRequest(context.Background(), nil))
	assert.Empty(t, tm.sdk.Calls(""))
}
