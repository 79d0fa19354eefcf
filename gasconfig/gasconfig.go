// Package gasconfig holds the per-chain static lookup of gas price, safety
// buffer and fee denom consumed by the simulation gate.
package gasconfig

import (
	"fmt"
	"math"
	"math/big"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/CosmWasm/txpipe/types"
)

// ChainGas configures fee derivation for one chain.
type ChainGas struct {
	// GasPrice is the price per gas unit as a decimal string, e.g. "0.025".
	GasPrice string `toml:"GasPrice"`
	// GasBuffer is a multiplicative safety margin (>= 1.0) applied to dry-run
	// estimates, which frequently come in slightly under actual execution
	// cost.
	GasBuffer float64 `toml:"GasBuffer"`
	// FeeDenom is the denom fees are paid in.
	FeeDenom string `toml:"FeeDenom"`
}

// Table maps chain IDs to their gas configuration.
type Table struct {
	Chains map[string]ChainGas `toml:"Chains"`
}

// DefaultTable returns the compiled-in configuration for known chains.
func DefaultTable() Table {
	return Table{
		Chains: map[string]ChainGas{
			"osmosis-1": {
				GasPrice:  "0.025",
				GasBuffer: 1.3,
				FeeDenom:  "uosmo",
			},
			"neutron-1": {
				GasPrice:  "0.0053",
				GasBuffer: 1.3,
				FeeDenom:  "untrn",
			},
		},
	}
}

// Load reads a table from path. A missing file yields the default table;
// chains present in the file override or extend the defaults.
func Load(path string) (Table, error) {
	table := DefaultTable()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return table, nil
	}

	var loaded Table
	meta, err := toml.DecodeFile(path, &loaded)
	if err != nil {
		return Table{}, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Table{}, fmt.Errorf("gas config %s has unknown keys: %v", path, undecoded)
	}

	for chainID, cfg := range loaded.Chains {
		if err := validate(chainID, cfg); err != nil {
			return Table{}, err
		}
		table.Chains[chainID] = cfg
	}
	return table, nil
}

func validate(chainID string, cfg ChainGas) error {
	if cfg.GasBuffer < 1.0 {
		return fmt.Errorf("chain %s: gas buffer %.2f below 1.0", chainID, cfg.GasBuffer)
	}
	if cfg.FeeDenom == "" {
		return fmt.Errorf("chain %s: fee denom is empty", chainID)
	}
	if _, ok := new(big.Rat).SetString(cfg.GasPrice); !ok {
		return fmt.Errorf("chain %s: gas price %q is not a decimal", chainID, cfg.GasPrice)
	}
	return nil
}

// For returns the configuration for chainID.
func (t Table) For(chainID string) (ChainGas, error) {
	cfg, ok := t.Chains[chainID]
	if !ok {
		return ChainGas{}, fmt.Errorf("%w: %s", types.ErrUnknownChain, chainID)
	}
	return cfg, nil
}

// FeeFor derives the broadcast fee from a dry-run gas estimate:
// gas limit = ceil(gasUsed x buffer), amount = ceil(limit x price).
func (g ChainGas) FeeFor(gasUsed uint64) (types.Fee, error) {
	price, ok := new(big.Rat).SetString(g.GasPrice)
	if !ok {
		return types.Fee{}, fmt.Errorf("gas price %q is not a decimal", g.GasPrice)
	}

	limit := uint64(math.Ceil(float64(gasUsed) * g.GasBuffer))

	amount := new(big.Rat).Mul(price, new(big.Rat).SetUint64(limit))
	// ceil(num/denom)
	num, denom := amount.Num(), amount.Denom()
	quo, rem := new(big.Int).QuoRem(num, denom, new(big.Int))
	if rem.Sign() > 0 {
		quo.Add(quo, big.NewInt(1))
	}

	return types.Fee{
		Gas:    limit,
		Amount: types.Coin{Denom: g.FeeDenom, Amount: quo.String()},
	}, nil
}
