package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SDK event names the mediator subscribes to
const (
	EventSessionProposal = "session_proposal"
	EventSessionRequest  = "session_request"
	EventSessionDelete   = "session_delete"
)

// EIP155 methods the wallet routes
const (
	MethodEthSign            = "eth_sign"
	MethodPersonalSign       = "personal_sign"
	MethodEthSendTransaction = "eth_sendTransaction"
)

// DefaultRelayProtocol is the relay protocol WalletConnect v2 peers advertise
const DefaultRelayProtocol = "irn"

// ProposalId is an opaque proposal identifier. Peers send it either as a JSON number or a string.
type ProposalId string

func (p ProposalId) String() string {
	return string(p)
}

// MarshalJSON writes numeric ids back as JSON numbers, which the SDK expects for approve and reject
func (p ProposalId) MarshalJSON() ([]byte, error) {
	if p.IsNumeric() {
		return []byte(p), nil
	}
	return json.Marshal(string(p))
}

// IsNumeric reports whether the id was sent as an unsigned integer
func (p ProposalId) IsNumeric() bool {
	if p == "" {
		return false
	}
	v, err := strconv.ParseUint(string(p), 10, 64)
	return err == nil && strconv.FormatUint(v, 10) == string(p)
}

// UnmarshalJSON accepts both `123` and `"123"`
func (p *ProposalId) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*p = ""
		return nil
	}
	if strings.HasPrefix(trimmed, "\"") {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid proposal id: %w", err)
		}
		*p = ProposalId(s)
		return nil
	}
	if _, err := strconv.ParseUint(trimmed, 10, 64); err != nil {
		return fmt.Errorf("invalid proposal id %s: %w", trimmed, err)
	}
	*p = ProposalId(trimmed)
	return nil
}

// PairingRequest carries a pairing URI from a deep link or scanned code to the SDK's pair call
type PairingRequest struct {
	Uri string `json:"uri"`
}

type Relay struct {
	Protocol string `json:"protocol"`
	Data     string `json:"data,omitempty"`
}

type Redirect struct {
	Native    string `json:"native,omitempty"`
	Universal string `json:"universal,omitempty"`
}

// Metadata describes a wallet or dapp peer
type Metadata struct {
	Name        string    `json:"name" yaml:"name"`
	Description string    `json:"description" yaml:"description"`
	Url         string    `json:"url" yaml:"url"`
	Icons       []string  `json:"icons" yaml:"icons"`
	Redirect    *Redirect `json:"redirect,omitempty" yaml:"redirect,omitempty"`
}

type Proposer struct {
	PublicKey string   `json:"publicKey"`
	Metadata  Metadata `json:"metadata"`
}

// RequiredNamespace is the capability set a peer demands for one chain namespace (e.g. "eip155")
type RequiredNamespace struct {
	Chains  []string `json:"chains"`
	Methods []string `json:"methods"`
	Events  []string `json:"events"`
}

// SessionProposal is a peer's request to open a session
type SessionProposal struct {
	Id                 ProposalId                   `json:"id"`
	PairingTopic       string                       `json:"pairingTopic,omitempty"`
	RequiredNamespaces map[string]RequiredNamespace `json:"requiredNamespaces"`
	OptionalNamespaces map[string]RequiredNamespace `json:"optionalNamespaces,omitempty"`
	Relays             []Relay                      `json:"relays"`
	Proposer           Proposer                     `json:"proposer"`
}

// RelayProtocol returns the protocol of the first listed relay, or fallback when none is listed
func (sp *SessionProposal) RelayProtocol(fallback string) string {
	if sp == nil || len(sp.Relays) == 0 || sp.Relays[0].Protocol == "" {
		return fallback
	}
	return sp.Relays[0].Protocol
}

// Namespace is an approved capability set: accounts are CAIP-10 "chain:address" strings
type Namespace struct {
	Accounts []string `json:"accounts"`
	Methods  []string `json:"methods"`
	Events   []string `json:"events"`
}

// Namespaces maps a chain namespace key to the approved capabilities
type Namespaces map[string]Namespace

type RpcRequest struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type SessionRequestParams struct {
	Request RpcRequest `json:"request"`
	ChainId string     `json:"chainId"`
}

// SessionRequestEvent is one inbound RPC call on an established session
type SessionRequestEvent struct {
	Id     int64                `json:"id"`
	Topic  string               `json:"topic"`
	Params SessionRequestParams `json:"params"`
}

// Method is a shorthand for Params.Request.Method
func (e *SessionRequestEvent) Method() string {
	if e == nil {
		return ""
	}
	return e.Params.Request.Method
}

// Session is an established session as reported by the SDK. The SDK owns it.
type Session struct {
	Topic        string     `json:"topic"`
	PairingTopic string     `json:"pairingTopic,omitempty"`
	Namespaces   Namespaces `json:"namespaces"`
	Peer         Metadata   `json:"peer"`
	Expiry       int64      `json:"expiry"`
	Acknowledged bool       `json:"acknowledged"`
}

// PairResult is what the SDK hands back after a successful pair call
type PairResult struct {
	Topic    string           `json:"topic"`
	Proposal *SessionProposal `json:"params"`
}
