package terminalPresenter

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/Layr-Labs/web3wallet-go/pkg/messageSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/transactionSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle  = lipgloss.NewStyle().Faint(true)
	promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13"))
	kindStyles  = map[presenter.NotificationKind]lipgloss.Style{
		presenter.KindInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		presenter.KindSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		presenter.KindWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		presenter.KindError:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
)

// TerminalPresenter renders mediator output to a terminal. Transaction approvals are resolved by
// feeding operator input lines to Answer, oldest pending approval first.
type TerminalPresenter struct {
	mu      sync.Mutex
	out     io.Writer
	pending []chan bool
	logger  *zap.Logger
}

func NewTerminalPresenter(out io.Writer, logger *zap.Logger) *TerminalPresenter {
	return &TerminalPresenter{
		out:    out,
		logger: logger,
	}
}

func (tp *TerminalPresenter) ShowProposal(ctx context.Context, proposal *types.SessionProposal) {
	if proposal == nil {
		return
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Session proposal") + "\n")
	writeField(&b, "id", proposal.Id.String())
	if peer := proposal.Proposer.Metadata; peer.Name != "" {
		writeField(&b, "dapp", peer.Name)
		writeField(&b, "url", peer.Url)
		if peer.Description != "" {
			writeField(&b, "description", peer.Description)
		}
	}
	writeField(&b, "relay", proposal.RelayProtocol(types.DefaultRelayProtocol))
	writeNamespaces(&b, "required", proposal.RequiredNamespaces)
	if len(proposal.OptionalNamespaces) > 0 {
		writeNamespaces(&b, "optional (not approved)", proposal.OptionalNamespaces)
	}
	b.WriteString(promptStyle.Render("approve | reject") + "\n")
	tp.write(b.String())
}

func (tp *TerminalPresenter) ShowSigningRequest(ctx context.Context, event *types.SessionRequestEvent, session *types.Session) {
	if event == nil {
		return
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Signing request") + "\n")
	writeField(&b, "method", event.Method())
	writeField(&b, "topic", event.Topic)
	writeField(&b, "chain", event.Params.ChainId)
	if session != nil {
		writeField(&b, "dapp", session.Peer.Name)
	}
	if params, err := messageSigner.ParseSignRequest(event); err == nil {
		writeField(&b, "address", params.Address)
		writeField(&b, "message", printable(params.Message))
	} else {
		writeField(&b, "params", string(event.Params.Request.Params))
	}
	b.WriteString(promptStyle.Render("sign | decline") + "\n")
	tp.write(b.String())
}

func (tp *TerminalPresenter) ShowTransactionApproval(ctx context.Context, event *types.SessionRequestEvent) (bool, error) {
	if event == nil {
		return false, fmt.Errorf("transaction request cannot be nil")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Transaction request") + "\n")
	writeField(&b, "topic", event.Topic)
	writeField(&b, "chain", event.Params.ChainId)
	if req, err := transactionSigner.ParseTransactionRequest(event.Params.Request.Params); err == nil {
		writeField(&b, "from", req.From.Hex())
		if req.To != nil {
			writeField(&b, "to", req.To.Hex())
		} else {
			writeField(&b, "to", "(contract creation)")
		}
		writeField(&b, "value (wei)", req.Value.String())
		if len(req.Data) > 0 {
			writeField(&b, "data", hexutil.Encode(req.Data))
		}
	} else {
		writeField(&b, "params", string(event.Params.Request.Params))
	}
	b.WriteString(promptStyle.Render("send this transaction? [y/n]") + "\n")

	decision := make(chan bool, 1)
	tp.mu.Lock()
	tp.pending = append(tp.pending, decision)
	tp.mu.Unlock()
	tp.write(b.String())

	select {
	case approved := <-decision:
		return approved, nil
	case <-ctx.Done():
		tp.drop(decision)
		return false, ctx.Err()
	}
}

// Answer resolves the oldest pending transaction approval from an operator input line. It returns
// false when the line is not a y/n answer or nothing is waiting for one.
func (tp *TerminalPresenter) Answer(line string) bool {
	var approved bool
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		approved = true
	case "n", "no":
		approved = false
	default:
		return false
	}

	tp.mu.Lock()
	defer tp.mu.Unlock()
	if len(tp.pending) == 0 {
		return false
	}
	decision := tp.pending[0]
	tp.pending = tp.pending[1:]
	decision <- approved
	return true
}

// AwaitingAnswer reports whether a transaction approval is waiting for input
func (tp *TerminalPresenter) AwaitingAnswer() bool {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	return len(tp.pending) > 0
}

func (tp *TerminalPresenter) Notify(kind presenter.NotificationKind, message string) {
	style, ok := kindStyles[kind]
	if !ok {
		style = kindStyles[presenter.KindInfo]
	}
	tp.write(style.Render(fmt.Sprintf("[%s] %s", kind, message)) + "\n")
}

// ShowSessions lists active sessions in topic order
func (tp *TerminalPresenter) ShowSessions(sessions map[string]*types.Session) {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Active sessions (%d)", len(sessions))) + "\n")
	topics := make([]string, 0, len(sessions))
	for topic := range sessions {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		s := sessions[topic]
		name := ""
		if s != nil {
			name = s.Peer.Name
		}
		writeField(&b, topic, name)
	}
	tp.write(b.String())
}

func (tp *TerminalPresenter) drop(decision chan bool) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	for i, d := range tp.pending {
		if d == decision {
			tp.pending = append(tp.pending[:i], tp.pending[i+1:]...)
			return
		}
	}
}

func (tp *TerminalPresenter) write(s string) {
	tp.mu.Lock()
	defer tp.mu.Unlock()
	if _, err := io.WriteString(tp.out, s); err != nil {
		tp.logger.Sugar().Warnw("Failed to write to terminal", "error", err)
	}
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString("  " + labelStyle.Render(label+":") + " " + value + "\n")
}

func writeNamespaces(b *strings.Builder, label string, namespaces map[string]types.RequiredNamespace) {
	keys := make([]string, 0, len(namespaces))
	for k := range namespaces {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		ns := namespaces[k]
		writeField(b, label+" "+k, fmt.Sprintf("chains=%s methods=%s events=%s",
			strings.Join(ns.Chains, ","), strings.Join(ns.Methods, ","), strings.Join(ns.Events, ",")))
	}
}

func printable(message []byte) string {
	if utf8.Valid(message) {
		return string(message)
	}
	return hexutil.Encode(message)
}

// Compile-time check to ensure TerminalPresenter implements IPresenter
var _ presenter.IPresenter = (*TerminalPresenter)(nil)
