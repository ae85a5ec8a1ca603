package messageSigner

import (
	"context"
	"fmt"
	"strings"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
	"github.com/Layr-Labs/web3wallet-go/pkg/wallet"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// IMessageSigner produces the JSON-RPC result for eth_sign and personal_sign requests
type IMessageSigner interface {
	SignRequest(ctx context.Context, event *types.SessionRequestEvent) (string, error)
}

// SignRequestParams is the decoded (address, message) pair of a signing request
type SignRequestParams struct {
	Address string
	Message []byte
}

type MessageSigner struct {
	wallet wallet.IWalletProvider
	logger *zap.Logger
}

func NewMessageSigner(w wallet.IWalletProvider, logger *zap.Logger) *MessageSigner {
	return &MessageSigner{
		wallet: w,
		logger: logger,
	}
}

// SignRequest signs the message carried by an eth_sign or personal_sign request and returns the hex signature
func (ms *MessageSigner) SignRequest(ctx context.Context, event *types.SessionRequestEvent) (string, error) {
	params, err := ParseSignRequest(event)
	if err != nil {
		return "", err
	}

	signature, err := ms.wallet.SignPersonalMessage(ctx, params.Address, params.Message)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s request: %w", event.Method(), err)
	}

	ms.logger.Sugar().Infow("Signed session request",
		"method", event.Method(),
		"topic", event.Topic,
		"address", params.Address,
	)
	return hexutil.Encode(signature), nil
}

// ParseSignRequest extracts address and message. personal_sign carries [message, address];
// eth_sign carries [address, message].
func ParseSignRequest(event *types.SessionRequestEvent) (*SignRequestParams, error) {
	if event == nil {
		return nil, fmt.Errorf("sign request cannot be nil")
	}

	raw := gjson.ParseBytes(event.Params.Request.Params)
	if !raw.IsArray() || len(raw.Array()) < 2 {
		return nil, fmt.Errorf("%s expects [a, b] params, got %s", event.Method(), string(event.Params.Request.Params))
	}

	var addressParam, messageParam string
	switch event.Method() {
	case types.MethodPersonalSign:
		messageParam, addressParam = raw.Get("0").String(), raw.Get("1").String()
	case types.MethodEthSign:
		addressParam, messageParam = raw.Get("0").String(), raw.Get("1").String()
	default:
		return nil, fmt.Errorf("method %s is not a message signing method", event.Method())
	}

	// some dapps swap the personal_sign order; accept whichever slot holds the address
	if !common.IsHexAddress(addressParam) && common.IsHexAddress(messageParam) {
		addressParam, messageParam = messageParam, addressParam
	}
	if !common.IsHexAddress(addressParam) {
		return nil, fmt.Errorf("%s params do not contain an address", event.Method())
	}

	return &SignRequestParams{
		Address: common.HexToAddress(addressParam).Hex(),
		Message: DecodeMessage(messageParam),
	}, nil
}

// DecodeMessage returns the bytes of a 0x-prefixed hex message, or the UTF-8 bytes of anything else
func DecodeMessage(message string) []byte {
	if strings.HasPrefix(message, "0x") {
		if decoded, err := hexutil.Decode(message); err == nil {
			return decoded
		}
	}
	return []byte(message)
}

// RecoverSigner returns the address that produced an EIP-191 signature over message
func RecoverSigner(message []byte, signatureHex string) (common.Address, error) {
	sig, err := hexutil.Decode(signatureHex)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature hex: %w", err)
	}
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27 // Transform yellow paper V from 27/28 to 0/1
	}
	recovered, err := crypto.SigToPub(accounts.TextHash(message), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to recover public key: %w", err)
	}
	return crypto.PubkeyToAddress(*recovered), nil
}

// Compile-time check to ensure MessageSigner implements IMessageSigner
var _ IMessageSigner = (*MessageSigner)(nil)
