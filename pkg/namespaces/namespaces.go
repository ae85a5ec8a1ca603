package namespaces

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/Layr-Labs/web3wallet-go/pkg/types"
)

// NamespaceEIP155 is the CAIP-2 namespace for EVM chains
const NamespaceEIP155 = "eip155"

var ErrNoAddresses = errors.New("no wallet addresses to approve with")

// BuildApprovedNamespaces derives the approved namespaces for a proposal. Every required chain gets one
// "chain:address" account per wallet address, in chain order then address order. Methods and events are
// copied from the requirement unchanged.
func BuildApprovedNamespaces(required map[string]types.RequiredNamespace, addresses []string) (types.Namespaces, error) {
	if len(addresses) == 0 {
		return nil, ErrNoAddresses
	}

	approved := make(types.Namespaces, len(required))
	for key, req := range required {
		chains := req.Chains
		// CAIP-25 allows "eip155:1" as a namespace key with the chain list omitted
		if len(chains) == 0 && strings.Contains(key, ":") {
			chains = []string{key}
		}

		accounts := make([]string, 0, len(chains)*len(addresses))
		for _, chain := range chains {
			for _, address := range addresses {
				accounts = append(accounts, FormatAccount(chain, address))
			}
		}

		approved[key] = types.Namespace{
			Accounts: accounts,
			Methods:  copyStrings(req.Methods),
			Events:   copyStrings(req.Events),
		}
	}
	return approved, nil
}

// VerifyCoverage checks that approved satisfies every chain, method and event in required
func VerifyCoverage(required map[string]types.RequiredNamespace, approved types.Namespaces) error {
	for key, req := range required {
		ns, ok := approved[key]
		if !ok {
			return fmt.Errorf("namespace %s is required but not approved", key)
		}

		chains := req.Chains
		if len(chains) == 0 && strings.Contains(key, ":") {
			chains = []string{key}
		}
		covered := make(map[string]bool, len(ns.Accounts))
		for _, account := range ns.Accounts {
			chainId, _, err := ParseAccount(account)
			if err != nil {
				return fmt.Errorf("namespace %s: %w", key, err)
			}
			covered[chainId] = true
		}
		for _, chain := range chains {
			if !covered[chain] {
				return fmt.Errorf("namespace %s: chain %s has no approved account", key, chain)
			}
		}
		if missing := missingFrom(req.Methods, ns.Methods); missing != "" {
			return fmt.Errorf("namespace %s: method %s is not approved", key, missing)
		}
		if missing := missingFrom(req.Events, ns.Events); missing != "" {
			return fmt.Errorf("namespace %s: event %s is not approved", key, missing)
		}
	}
	return nil
}

// FormatAccount builds a CAIP-10 account id
func FormatAccount(chainId string, address string) string {
	return fmt.Sprintf("%s:%s", chainId, address)
}

// ParseAccount splits a CAIP-10 account id into its CAIP-2 chain id and address
func ParseAccount(account string) (string, string, error) {
	idx := strings.LastIndex(account, ":")
	if idx <= 0 || idx == len(account)-1 {
		return "", "", fmt.Errorf("invalid account id %q", account)
	}
	chainId := account[:idx]
	if _, _, err := ParseChainId(chainId); err != nil {
		return "", "", fmt.Errorf("invalid account id %q: %w", account, err)
	}
	return chainId, account[idx+1:], nil
}

// ParseChainId splits a CAIP-2 chain id into namespace and reference
func ParseChainId(chainId string) (string, string, error) {
	parts := strings.Split(chainId, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid chain id %q", chainId)
	}
	return parts[0], parts[1], nil
}

// EvmChainId returns the numeric chain id of an eip155 CAIP-2 chain id
func EvmChainId(chainId string) (*big.Int, error) {
	namespace, reference, err := ParseChainId(chainId)
	if err != nil {
		return nil, err
	}
	if namespace != NamespaceEIP155 {
		return nil, fmt.Errorf("chain %s is not an %s chain", chainId, NamespaceEIP155)
	}
	id, ok := new(big.Int).SetString(reference, 10)
	if !ok || id.Sign() <= 0 {
		return nil, fmt.Errorf("invalid %s chain reference %q", NamespaceEIP155, reference)
	}
	return id, nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func missingFrom(want []string, have []string) string {
	set := make(map[string]bool, len(have))
	for _, h := range have {
		set[h] = true
	}
	for _, w := range want {
		if !set[w] {
			return w
		}
	}
	return ""
}
