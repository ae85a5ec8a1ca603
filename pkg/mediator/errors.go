package mediator

import (
	"fmt"

	"github.com/pkg/errors"
)

type ErrorKind string

const (
	KindPairingFailed     ErrorKind = "PairingFailed"
	KindNoWalletAddress   ErrorKind = "NoWalletAddress"
	KindWalletUnavailable ErrorKind = "WalletUnavailable"
	KindSdkCallFailed     ErrorKind = "SdkCallFailed"
	KindUnsupportedMethod ErrorKind = "UnsupportedMethod"
)

// Sentinels for errors.Is; they match any *Error of the same kind
var (
	ErrPairingFailed     = &Error{Kind: KindPairingFailed}
	ErrNoWalletAddress   = &Error{Kind: KindNoWalletAddress}
	ErrWalletUnavailable = &Error{Kind: KindWalletUnavailable}
	ErrSdkCallFailed     = &Error{Kind: KindSdkCallFailed}
	ErrUnsupportedMethod = &Error{Kind: KindUnsupportedMethod}
)

// Error is every failure the mediator reports. Op names the mediator operation.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newError(kind ErrorKind, op string, cause error, format string, args ...interface{}) *Error {
	if cause == nil {
		return &Error{Kind: kind, Op: op, Err: errors.Errorf(format, args...)}
	}
	return &Error{Kind: kind, Op: op, Err: errors.Wrapf(cause, format, args...)}
}
