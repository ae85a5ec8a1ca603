package deeplink

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

const (
	// DefaultPrefix is the OS-registered link that carries a pairing URI
	DefaultPrefix = "web3wallettutorial://wc?uri="

	// PairingScheme is the scheme every WalletConnect pairing URI starts with
	PairingScheme = "wc:"
)

var (
	ErrNotPairingLink  = errors.New("link does not carry a pairing uri")
	ErrEmptyPairingURI = errors.New("pairing uri is empty")
)

// PairingURI is a parsed "wc:<topic>@<version>?relay-protocol=...&symKey=..." URI
type PairingURI struct {
	Topic         string
	Version       string
	RelayProtocol string
	SymKey        string
	ExpiryUnix    string
	Raw           string
}

// ExtractPairingURI strips prefix from a deep link and returns the URL-decoded pairing URI
func ExtractPairingURI(link string, prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if !strings.HasPrefix(link, prefix) {
		return "", ErrNotPairingLink
	}

	encoded := strings.TrimPrefix(link, prefix)
	if encoded == "" {
		return "", ErrEmptyPairingURI
	}

	// the uri parameter is normally percent-encoded; raw links are passed through unchanged.
	// '+' is literal in a pairing uri, so only percent escapes are decoded.
	if !strings.Contains(encoded, "%") {
		return encoded, nil
	}
	decoded, err := url.PathUnescape(encoded)
	if err != nil {
		return encoded, nil
	}
	return decoded, nil
}

// ValidatePairingURI checks the pairing-URI grammar and returns its parsed form
func ValidatePairingURI(uri string) (*PairingURI, error) {
	if strings.TrimSpace(uri) == "" {
		return nil, ErrEmptyPairingURI
	}
	if !strings.HasPrefix(uri, PairingScheme) {
		return nil, fmt.Errorf("pairing uri must start with %q", PairingScheme)
	}

	body := strings.TrimPrefix(uri, PairingScheme)
	path, rawQuery, _ := strings.Cut(body, "?")

	topic, version, ok := strings.Cut(path, "@")
	if !ok || topic == "" || version == "" {
		return nil, fmt.Errorf("pairing uri %q is missing topic or version", uri)
	}

	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, fmt.Errorf("invalid pairing uri query: %w", err)
	}

	parsed := &PairingURI{
		Topic:         topic,
		Version:       version,
		RelayProtocol: query.Get("relay-protocol"),
		SymKey:        query.Get("symKey"),
		ExpiryUnix:    query.Get("expiryTimestamp"),
		Raw:           uri,
	}

	if parsed.Version == "2" && parsed.SymKey == "" {
		return nil, fmt.Errorf("pairing uri %q is missing symKey", uri)
	}
	return parsed, nil
}
