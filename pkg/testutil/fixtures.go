package testutil

import (
	"encoding/json"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

// TestPairingURI is a well-formed v2 pairing uri
const TestPairingURI = "wc:7f6e504bfad60b485450578e05678ed3e8e8c4751d3c6160be17160d63ec90f9@2?relay-protocol=irn&symKey=587d5484ce2a2a6ee3ba1962fdd7e8588e06200c46823bd18fbd67def96ad303"

// NewProposal builds a single-namespace proposal on the given chains
func NewProposal(id string, chains []string, methods []string) *types.SessionProposal {
	return &types.SessionProposal{
		Id:           types.ProposalId(id),
		PairingTopic: "pairing-" + id,
		RequiredNamespaces: map[string]types.RequiredNamespace{
			"eip155": {Chains: chains, Methods: methods, Events: []string{}},
		},
		Relays:   []types.Relay{{Protocol: "irn"}},
		Proposer: types.Proposer{Metadata: types.Metadata{Name: "Test Dapp", Url: "https://dapp.example"}},
	}
}

// NewSessionRequest builds a session request event; params is marshalled as the RPC params
func NewSessionRequest(id int64, topic string, method string, params interface{}) *types.SessionRequestEvent {
	raw, _ := json.Marshal(params)
	return &types.SessionRequestEvent{
		Id:    id,
		Topic: topic,
		Params: types.SessionRequestParams{
			ChainId: "eip155:1",
			Request: types.RpcRequest{Method: method, Params: raw},
		},
	}
}
