package walletSdk

import (
	"encoding/json"
	"fmt"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

// Bridge methods served by the SDK sidecar
const (
	MethodInit                  = "wc_init"
	MethodPair                  = "wc_pair"
	MethodApproveSession        = "wc_approveSession"
	MethodRejectSession         = "wc_rejectSession"
	MethodGetActiveSessions     = "wc_getActiveSessions"
	MethodGetSession            = "wc_getSession"
	MethodDisconnectSession     = "wc_disconnectSession"
	MethodRespondSessionRequest = "wc_respondSessionRequest"
)

// CodeSessionNotFound is returned by the sidecar when a topic has no settled session
const CodeSessionNotFound = 7001

type rpcRequest struct {
	Id      int64       `json:"id"`
	JsonRpc string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

type rpcResponse struct {
	Id     int64           `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RpcError       `json:"error,omitempty"`
}

// RpcError is an error returned by the sidecar for a bridge call
type RpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RpcError) Error() string {
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

type rpcNotification struct {
	JsonRpc string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
}

type initParams struct {
	ProjectId string         `json:"projectId"`
	ClientId  string         `json:"clientId"`
	Metadata  types.Metadata `json:"metadata"`
}

type approveSessionParams struct {
	Id            types.ProposalId `json:"id"`
	RelayProtocol string           `json:"relayProtocol"`
	Namespaces    types.Namespaces `json:"namespaces"`
}

type rejectSessionParams struct {
	Id     types.ProposalId `json:"id"`
	Reason *types.SdkError  `json:"reason"`
}

type topicParams struct {
	Topic string `json:"topic"`
}

type disconnectSessionParams struct {
	Topic  string          `json:"topic"`
	Reason *types.SdkError `json:"reason"`
}

type respondSessionRequestParams struct {
	Topic    string                 `json:"topic"`
	Response *types.JsonRpcResponse `json:"response"`
}
