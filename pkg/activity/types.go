package activity

import (
	"time"

	"github.com/google/uuid"
)

// Kind names a mediator decision
type Kind string

const (
	KindPaired               Kind = "paired"
	KindPairingFailed        Kind = "pairing_failed"
	KindProposalReceived     Kind = "proposal_received"
	KindProposalSuperseded   Kind = "proposal_superseded"
	KindSessionApproved      Kind = "session_approved"
	KindSessionApproveFailed Kind = "session_approve_failed"
	KindSessionRejected      Kind = "session_rejected"
	KindSessionDisconnected  Kind = "session_disconnected"
	KindRequestReceived      Kind = "request_received"
	KindRequestSuperseded    Kind = "request_superseded"
	KindRequestSigned        Kind = "request_signed"
	KindRequestRejected      Kind = "request_rejected"
	KindTransactionSent      Kind = "transaction_sent"
	KindTransactionRejected  Kind = "transaction_rejected"
	KindTransactionFailed    Kind = "transaction_failed"
	KindUnsupportedMethod    Kind = "unsupported_method"
	KindRateLimited          Kind = "rate_limited"
	KindSdkCallFailed        Kind = "sdk_call_failed"
)

// Record is one entry of the activity log. Records are append-only and never describe session
// state; the SDK owns sessions.
type Record struct {
	Id         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       Kind      `json:"kind"`
	Topic      string    `json:"topic,omitempty"`
	ProposalId string    `json:"proposalId,omitempty"`
	RequestId  int64     `json:"requestId,omitempty"`
	Method     string    `json:"method,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// NewRecord stamps a record with a fresh id and the current time
func NewRecord(kind Kind) *Record {
	return &Record{
		Id:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		Kind:      kind,
	}
}

func (r *Record) WithTopic(topic string) *Record {
	r.Topic = topic
	return r
}

func (r *Record) WithProposal(id string) *Record {
	r.ProposalId = id
	return r
}

func (r *Record) WithRequest(id int64, method string) *Record {
	r.RequestId = id
	r.Method = method
	return r
}

func (r *Record) WithDetail(detail string) *Record {
	r.Detail = detail
	return r
}
