package config

import (
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/michaelpento.lv/arbengine/types"
)

// Allowlist is the YAML bootstrap file: the tokens and venues to authorize
// at startup and the pairs the monitor polls.
type Allowlist struct {
	Tokens []string    `yaml:"tokens"`
	Venues []string    `yaml:"venues"`
	Pairs  []PairEntry `yaml:"pairs"`
}

// PairEntry is one monitored opportunity template.
type PairEntry struct {
	TokenA   string `yaml:"token_a"`
	TokenB   string `yaml:"token_b"`
	Venue1   string `yaml:"venue1"`
	Venue2   string `yaml:"venue2"`
	Reverse  bool   `yaml:"reverse"`
	AmountIn string `yaml:"amount_in"`
}

// LoadAllowlist parses the bootstrap file.
func LoadAllowlist(path string) (*Allowlist, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read allowlist file: %w", err)
	}
	var list Allowlist
	if err := yaml.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("failed to parse allowlist file: %w", err)
	}
	return &list, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

// TokenAddresses returns the parsed token allow-list.
func (a *Allowlist) TokenAddresses() ([]common.Address, error) {
	return parseAddresses(a.Tokens)
}

// VenueAddresses returns the parsed venue allow-list.
func (a *Allowlist) VenueAddresses() ([]common.Address, error) {
	return parseAddresses(a.Venues)
}

func parseAddresses(raw []string) ([]common.Address, error) {
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := parseAddress(s)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

// Requests converts the pair entries into opportunity requests.
func (a *Allowlist) Requests() ([]types.OpportunityRequest, error) {
	reqs := make([]types.OpportunityRequest, 0, len(a.Pairs))
	for i, p := range a.Pairs {
		tokenA, err := parseAddress(p.TokenA)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		tokenB, err := parseAddress(p.TokenB)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		venue1, err := parseAddress(p.Venue1)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		venue2, err := parseAddress(p.Venue2)
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		amount, ok := new(big.Int).SetString(p.AmountIn, 10)
		if !ok || amount.Sign() <= 0 {
			return nil, fmt.Errorf("pair %d: invalid amount_in %q", i, p.AmountIn)
		}
		reqs = append(reqs, types.OpportunityRequest{
			TokenA:          tokenA,
			TokenB:          tokenB,
			AmountIn:        amount,
			Venue1:          venue1,
			Venue2:          venue2,
			ReverseOnVenue2: p.Reverse,
		})
	}
	return reqs, nil
}
