package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"tradescope/internal/model"
)

// ContractKind selects the transformer family for a contract address.
type ContractKind string

const (
	KindToken           ContractKind = "token"
	KindPool            ContractKind = "pool"
	KindPositionManager ContractKind = "position_manager"
	KindRouter          ContractKind = "router"
	KindFarm            ContractKind = "farm"
	KindAuction         ContractKind = "auction"
)

// ContractConfig is static per-contract metadata. For pools, BaseToken fixes
// the amount-normalization axis; BaseIsToken0 maps decoded amount0/amount1
// onto it.
type ContractConfig struct {
	Address      string       `yaml:"address"`
	Kind         ContractKind `yaml:"kind"`
	BaseToken    string       `yaml:"base_token,omitempty"`
	QuoteToken   string       `yaml:"quote_token,omitempty"`
	BaseIsToken0 bool         `yaml:"base_is_token0,omitempty"`
	ReceiptToken string       `yaml:"receipt_token,omitempty"`
	FeeCollector string       `yaml:"fee_collector,omitempty"`
	RewardToken  string       `yaml:"reward_token,omitempty"`
}

// Registry is the immutable contract/token lookup table built once at
// startup and passed explicitly into the engine.
type Registry struct {
	ChainID uint64

	contracts map[string]ContractConfig
	tracked   map[string]bool
	routers   map[string]bool
}

type registryFile struct {
	ChainID       uint64           `yaml:"chain_id"`
	TrackedTokens []string         `yaml:"tracked_tokens"`
	Routers       []string         `yaml:"routers"`
	Contracts     []ContractConfig `yaml:"contracts"`
}

// LoadRegistry reads and validates the YAML registry file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}
	return ParseRegistry(data)
}

// ParseRegistry builds a Registry from YAML bytes.
func ParseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse registry: %w", err)
	}

	reg := &Registry{
		ChainID:   file.ChainID,
		contracts: make(map[string]ContractConfig, len(file.Contracts)),
		tracked:   make(map[string]bool, len(file.TrackedTokens)),
		routers:   make(map[string]bool, len(file.Routers)),
	}

	for _, token := range file.TrackedTokens {
		addr, err := model.NormalizeAddress(token)
		if err != nil {
			return nil, fmt.Errorf("tracked token: %w", err)
		}
		reg.tracked[addr] = true
	}

	for _, router := range file.Routers {
		addr, err := model.NormalizeAddress(router)
		if err != nil {
			return nil, fmt.Errorf("router: %w", err)
		}
		reg.routers[addr] = true
	}

	for _, contract := range file.Contracts {
		normalized, err := normalizeContract(contract)
		if err != nil {
			return nil, err
		}
		reg.contracts[normalized.Address] = normalized
		if normalized.Kind == KindRouter {
			reg.routers[normalized.Address] = true
		}
	}

	return reg, nil
}

func normalizeContract(contract ContractConfig) (ContractConfig, error) {
	addr, err := model.NormalizeAddress(contract.Address)
	if err != nil {
		return ContractConfig{}, fmt.Errorf("contract address: %w", err)
	}
	contract.Address = addr

	switch contract.Kind {
	case KindToken, KindPool, KindPositionManager, KindRouter, KindFarm, KindAuction:
	default:
		return ContractConfig{}, fmt.Errorf("contract %s: unknown kind %q", addr, contract.Kind)
	}

	optional := []*string{
		&contract.BaseToken, &contract.QuoteToken, &contract.ReceiptToken,
		&contract.FeeCollector, &contract.RewardToken,
	}
	for _, field := range optional {
		if *field == "" {
			continue
		}
		normalized, err := model.NormalizeAddress(*field)
		if err != nil {
			return ContractConfig{}, fmt.Errorf("contract %s: %w", addr, err)
		}
		*field = normalized
	}

	if contract.Kind == KindPool || contract.Kind == KindPositionManager {
		if contract.BaseToken == "" || contract.QuoteToken == "" {
			return ContractConfig{}, fmt.Errorf("contract %s: pool requires base_token and quote_token", addr)
		}
	}

	return contract, nil
}

// Contract looks up the config for a normalized address.
func (r *Registry) Contract(address string) (ContractConfig, bool) {
	contract, ok := r.contracts[address]
	return contract, ok
}

// Contracts returns all configured contracts.
func (r *Registry) Contracts() []ContractConfig {
	out := make([]ContractConfig, 0, len(r.contracts))
	for _, contract := range r.contracts {
		out = append(out, contract)
	}
	return out
}

// IsTracked reports whether the token's transfers are covered by the
// completeness guarantee.
func (r *Registry) IsTracked(token string) bool {
	return r.tracked[token]
}

// IsKnownRouter reports whether the address is a configured router.
func (r *Registry) IsKnownRouter(address string) bool {
	return r.routers[address]
}

// TrackedTokens returns the tracked token set.
func (r *Registry) TrackedTokens() []string {
	out := make([]string, 0, len(r.tracked))
	for token := range r.tracked {
		out = append(out, token)
	}
	return out
}
