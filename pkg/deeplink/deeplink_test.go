package deeplink

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPairingURI = "wc:7f6e504bfad60b485450578e05678ed3e8e8c4751d3c6160be17160d63ec90f9@2?relay-protocol=irn&symKey=587d5484ce2a2a6ee3ba1962fdd7e8588e06200c46823bd18fbd67def96ad303"

func Test_ExtractPairingURI(t *testing.T) {
	t.Run("raw uri", func(t *testing.T) {
		uri, err := ExtractPairingURI(DefaultPrefix+testPairingURI, "")
		require.NoError(t, err)
		assert.Equal(t, testPairingURI, uri)
	})

	t.Run("percent encoded uri", func(t *testing.T) {
		link := DefaultPrefix + url.QueryEscape(testPairingURI)
		uri, err := ExtractPairingURI(link, DefaultPrefix)
		require.NoError(t, err)
		assert.Equal(t, testPairingURI, uri)
	})

	t.Run("raw uri keeps plus signs", func(t *testing.T) {
		raw := "wc:abc@2?relay-protocol=irn&symKey=a+b+c&expiryTimestamp=1700000000"
		uri, err := ExtractPairingURI(DefaultPrefix+raw, "")
		require.NoError(t, err)
		assert.Equal(t, raw, uri)
	})

	t.Run("percent encoded plus sign", func(t *testing.T) {
		uri, err := ExtractPairingURI(DefaultPrefix+"wc%3Aabc%402%3Frelay-protocol%3Dirn%26symKey%3Da%2Bb", "")
		require.NoError(t, err)
		assert.Equal(t, "wc:abc@2?relay-protocol=irn&symKey=a+b", uri)
	})

	t.Run("custom prefix", func(t *testing.T) {
		uri, err := ExtractPairingURI("mywallet://wc?uri="+testPairingURI, "mywallet://wc?uri=")
		require.NoError(t, err)
		assert.Equal(t, testPairingURI, uri)
	})

	t.Run("unrelated link", func(t *testing.T) {
		_, err := ExtractPairingURI("web3wallettutorial://settings", "")
		assert.ErrorIs(t, err, ErrNotPairingLink)
	})

	t.Run("empty uri", func(t *testing.T) {
		_, err := ExtractPairingURI(DefaultPrefix, "")
		assert.ErrorIs(t, err, ErrEmptyPairingURI)
	})
}

func Test_ValidatePairingURI(t *testing.T) {
	parsed, err := ValidatePairingURI(testPairingURI)
	require.NoError(t, err)
	assert.Equal(t, "7f6e504bfad60b485450578e05678ed3e8e8c4751d3c6160be17160d63ec90f9", parsed.Topic)
	assert.Equal(t, "2", parsed.Version)
	assert.Equal(t, "irn", parsed.RelayProtocol)
	assert.NotEmpty(t, parsed.SymKey)

	invalid := map[string]string{
		"empty":           "",
		"whitespace":      "   ",
		"wrong scheme":    "https://example.com",
		"missing topic":   "wc:@2?symKey=abc",
		"missing version": "wc:abc?symKey=abc",
		"v2 without key":  "wc:abc@2?relay-protocol=irn",
	}
	for name, uri := range invalid {
		t.Run(name, func(t *testing.T) {
			_, err := ValidatePairingURI(uri)
			assert.Error(t, err)
		})
	}
}
