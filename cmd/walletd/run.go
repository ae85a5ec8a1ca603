package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/Layr-Labs/web3wallet-go/pkg/clients/walletSdk"
	"github.com/Layr-Labs/web3wallet-go/pkg/clients/web3signer"
	"github.com/Layr-Labs/web3wallet-go/pkg/config"
	"github.com/Layr-Labs/web3wallet-go/pkg/deeplink"
	"github.com/Layr-Labs/web3wallet-go/pkg/mediator"
	"github.com/Layr-Labs/web3wallet-go/pkg/messageSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/presenter/terminalPresenter"
	"github.com/Layr-Labs/web3wallet-go/pkg/transactionSigner"
	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet/localWallet"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet/remoteWallet"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

const helpText = `commands:
  <wc:uri> | <deep link>   pair with a dapp
  approve | reject         decide on the pending session proposal
  sign | decline           decide on the pending signing request
  y | n                    decide on the oldest transaction request
  disconnect [topic]       disconnect a session
  sessions                 list active sessions
  history                  show recent activity
  quit                     stop the wallet`

func runWallet(c *cli.Context) error {
	cfg, err := loadWalletConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := newLogger(cfg.Debug)
	if err != nil {
		return err
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// wallet first, so the address is known before any proposal can arrive
	w, err := newWallet(cfg, l)
	if err != nil {
		return fmt.Errorf("failed to create wallet: %w", err)
	}

	store, err := newActivityStore(&cfg.Activity, l)
	if err != nil {
		return fmt.Errorf("failed to open activity store: %w", err)
	}
	defer func() { _ = store.Close() }()

	ethClients, err := transactionSigner.DialEthClients(ctx, cfg.RpcUrls, l)
	if err != nil {
		return err
	}
	if len(ethClients) == 0 {
		l.Sugar().Warnw("No rpc endpoints configured, eth_sendTransaction requests will fail")
	}

	sdk, err := walletSdk.NewBridgeClient(ctx, &walletSdk.BridgeConfig{
		Url:         cfg.BridgeUrl,
		ProjectId:   cfg.ProjectId,
		Metadata:    cfg.Metadata,
		CallTimeout: cfg.CallTimeout,
	}, l)
	if err != nil {
		return fmt.Errorf("failed to connect to sdk bridge: %w", err)
	}
	defer func() { _ = sdk.Close() }()

	tp := terminalPresenter.NewTerminalPresenter(os.Stdout, l)

	m, err := mediator.NewMediator(mediator.NewConfig(cfg), &mediator.Deps{
		Sdk:               sdk,
		Presenter:         tp,
		Wallet:            w,
		MessageSigner:     messageSigner.NewMessageSigner(w, l),
		TransactionSender: transactionSigner.NewPrivateKeySender(w, ethClients, l),
		Activity:          store,
	}, l)
	if err != nil {
		return err
	}
	if err := m.Start(ctx); err != nil {
		return fmt.Errorf("failed to start mediator: %w", err)
	}
	defer m.Stop()

	tp.Notify(presenter.KindInfo, "Wallet ready. Paste a wc: uri or deep link, or type help.")
	if first := c.Args().First(); first != "" {
		handleLine(ctx, first, m, tp, store, l)
	}

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			l.Sugar().Infow("Shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				l.Sugar().Infow("Input closed, shutting down")
				return nil
			}
			if !handleLine(ctx, line, m, tp, store, l) {
				return nil
			}
		}
	}
}

func newWallet(cfg *config.WalletConfig, l *zap.Logger) (wallet.IWalletProvider, error) {
	if cfg.Web3SignerUrl == "" {
		return localWallet.NewLocalWallet(cfg.PrivateKeys, l)
	}
	client, err := web3signer.NewClient(&web3signer.Config{Url: cfg.Web3SignerUrl, Timeout: cfg.CallTimeout}, l)
	if err != nil {
		return nil, err
	}
	l.Sugar().Infow("Using remote signer", "url", cfg.Web3SignerUrl)
	return remoteWallet.NewRemoteWallet(client, l), nil
}

// readLines feeds input lines to a channel that is closed at EOF
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

// handleLine runs one operator command; it returns false when the wallet should exit. Failures are
// already surfaced by the mediator, so they are only logged here.
func handleLine(ctx context.Context, line string, m *mediator.Mediator, tp *terminalPresenter.TerminalPresenter, store activity.IActivityStore, l *zap.Logger) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}
	if tp.Answer(line) {
		return true
	}

	fields := strings.Fields(line)
	var err error
	switch strings.ToLower(fields[0]) {
	case "approve":
		err = m.ApproveProposal(ctx, nil, nil)
	case "reject":
		err = m.RejectProposal(ctx, nil)
	case "sign":
		err = m.ApproveSignRequest(ctx)
	case "decline":
		err = m.RejectSignRequest(ctx)
	case "disconnect":
		if len(fields) > 1 {
			err = m.DisconnectSession(ctx, fields[1])
		} else {
			err = m.DisconnectActiveSession(ctx)
		}
	case "sessions":
		var sessions map[string]*types.Session
		if sessions, err = m.ActiveSessions(ctx); err == nil {
			tp.ShowSessions(sessions)
		}
	case "history":
		var records []*activity.Record
		if records, err = store.List(20); err == nil {
			for _, r := range records {
				fmt.Println(formatRecord(r))
			}
		}
	case "help", "?":
		fmt.Println(helpText)
	case "quit", "exit":
		return false
	case "y", "yes", "n", "no":
		tp.Notify(presenter.KindWarning, "No transaction is waiting for a decision")
	default:
		if strings.HasPrefix(line, deeplink.PairingScheme) {
			err = m.HandlePair(ctx, line)
		} else if strings.Contains(line, "://") {
			err = m.HandleDeepLink(ctx, line)
		} else {
			tp.Notify(presenter.KindWarning, fmt.Sprintf("Unknown command %q, type help", fields[0]))
		}
	}
	if err != nil {
		l.Sugar().Debugw("Command failed", "command", fields[0], "error", err)
	}
	return true
}
