package web3signer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type rpcCall struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	Id     json.RawMessage   `json:"id"`
}

type signerServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls []rpcCall
}

func (s *signerServer) Calls() []rpcCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]rpcCall(nil), s.calls...)
}

// newSignerServer answers every call with result, or a JSON-RPC error when rpcErr is set
func newSignerServer(t *testing.T, result interface{}, rpcErr string) *signerServer {
	t.Helper()
	s := &signerServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var call rpcCall
		if err := json.NewDecoder(r.Body).Decode(&call); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls = append(s.calls, call)
		s.mu.Unlock()

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": call.Id}
		if rpcErr != "" {
			resp["error"] = map[string]interface{}{"code": -32000, "message": rpcErr}
		} else {
			resp["result"] = result
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(&Config{Url: url}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

// Test_ClientImplementsInterface verifies that Client implements IWeb3Signer
func Test_ClientImplementsInterface(t *testing.T) {
	client, err := NewClient(DefaultConfig(), zaptest.NewLogger(t))
	require.NoError(t, err)

	var signer IWeb3Signer = client
	assert.NotNil(t, signer)
}

func Test_NewClient_RejectsNonHttpUrl(t *testing.T) {
	_, err := NewClient(&Config{Url: "ws://localhost:9000"}, zaptest.NewLogger(t))
	assert.Error(t, err)
}

func Test_Client_EthAccounts(t *testing.T) {
	srv := newSignerServer(t, []string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"}, "")
	client := newTestClient(t, srv.URL)

	accounts, err := client.EthAccounts(t.Context())
	require.NoError(t, err)
	assert.Equal(t, []string{"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266"}, accounts)
	calls := srv.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "eth_accounts", calls[0].Method)
}

func Test_Client_EthSign(t *testing.T) {
	srv := newSignerServer(t, "0xdeadbeef", "")
	client := newTestClient(t, srv.URL)

	signature, err := client.EthSign(t.Context(), "0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266", "0x68656c6c6f")
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", signature)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	call := calls[0]
	assert.Equal(t, "eth_sign", call.Method)
	require.Len(t, call.Params, 2)
	assert.JSONEq(t, `"0x68656c6c6f"`, string(call.Params[1]))
}

func Test_Client_EthSignTransaction(t *testing.T) {
	srv := newSignerServer(t, "0x02f8", "")
	client := newTestClient(t, srv.URL)

	to := common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	signed, err := client.EthSignTransaction(t.Context(), &TransactionArgs{
		From:  common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"),
		To:    &to,
		Gas:   21000,
		Value: (*hexutil.Big)(common.Big1),
		Nonce: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "0x02f8", signed)

	calls := srv.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0].Params, 1)
	var args map[string]interface{}
	require.NoError(t, json.Unmarshal(calls[0].Params[0], &args))
	assert.Equal(t, "0x5208", args["gas"])
	assert.Equal(t, "0x3", args["nonce"])
	assert.NotContains(t, args, "gasPrice")
}

func Test_Client_RpcError(t *testing.T) {
	srv := newSignerServer(t, nil, "signing key not found")
	client := newTestClient(t, srv.URL)

	_, err := client.EthSign(t.Context(), "0x01", "0x02")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signing key not found")

	_, err = client.EthSignTransaction(t.Context(), nil)
	assert.Error(t, err)
}
