package types

import (
	"encoding/json"
	"fmt"
)

// SdkErrorKey names a protocol-level reason from the WalletConnect SDK error table
type SdkErrorKey string

const (
	SdkErrorUserRejected        SdkErrorKey = "USER_REJECTED"
	SdkErrorUserRejectedChains  SdkErrorKey = "USER_REJECTED_CHAINS"
	SdkErrorUserRejectedMethods SdkErrorKey = "USER_REJECTED_METHODS"
	SdkErrorUserRejectedEvents  SdkErrorKey = "USER_REJECTED_EVENTS"
	SdkErrorUnsupportedMethods  SdkErrorKey = "UNSUPPORTED_METHODS"
	SdkErrorUserDisconnected    SdkErrorKey = "USER_DISCONNECTED"
)

// SdkError is the reason object sent with rejections, disconnects and error responses
type SdkError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *SdkError) Error() string {
	return fmt.Sprintf("%s (code %d)", e.Message, e.Code)
}

var sdkErrors = map[SdkErrorKey]SdkError{
	SdkErrorUserRejected:        {Code: 5000, Message: "User rejected."},
	SdkErrorUserRejectedChains:  {Code: 5001, Message: "User rejected chains."},
	SdkErrorUserRejectedMethods: {Code: 5002, Message: "User rejected methods."},
	SdkErrorUserRejectedEvents:  {Code: 5003, Message: "User rejected events."},
	SdkErrorUnsupportedMethods:  {Code: 5101, Message: "Unsupported methods."},
	SdkErrorUserDisconnected:    {Code: 6000, Message: "User disconnected."},
}

// GetSdkError returns the reason for key. An optional context is appended to the message.
func GetSdkError(key SdkErrorKey, context ...string) *SdkError {
	base, ok := sdkErrors[key]
	if !ok {
		return &SdkError{Code: 0, Message: string(key)}
	}
	out := base
	if len(context) > 0 && context[0] != "" {
		out.Message = fmt.Sprintf("%s %s", base.Message, context[0])
	}
	return &out
}

// JsonRpcResponse is the response body for a session request
type JsonRpcResponse struct {
	Id      int64       `json:"id"`
	JsonRpc string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *SdkError   `json:"error,omitempty"`
}

// MarshalJSON emits exactly one of result and error. A zero result is still written, as null or
// its zero value, so success responses always carry the member.
func (r JsonRpcResponse) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Id      int64     `json:"id"`
			JsonRpc string    `json:"jsonrpc"`
			Error   *SdkError `json:"error"`
		}{r.Id, r.JsonRpc, r.Error})
	}
	return json.Marshal(struct {
		Id      int64       `json:"id"`
		JsonRpc string      `json:"jsonrpc"`
		Result  interface{} `json:"result"`
	}{r.Id, r.JsonRpc, r.Result})
}

// IsError reports whether the response carries an error object
func (r *JsonRpcResponse) IsError() bool {
	return r != nil && r.Error != nil
}

func FormatJsonRpcResult(id int64, result interface{}) *JsonRpcResponse {
	return &JsonRpcResponse{Id: id, JsonRpc: "2.0", Result: result}
}

func FormatJsonRpcError(id int64, err *SdkError) *JsonRpcResponse {
	return &JsonRpcResponse{Id: id, JsonRpc: "2.0", Error: err}
}

// JsonRpcInternalErrorCode is the JSON-RPC 2.0 code for failures inside the wallet, e.g. a
// transaction the node refused to accept
const JsonRpcInternalErrorCode = -32603

// InternalError builds an error object for a failure that is not a user decision
func InternalError(message string) *SdkError {
	return &SdkError{Code: JsonRpcInternalErrorCode, Message: message}
}
