package ledger

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"
)

// NetworkInfo summarizes the network configuration produced by genesis.
type NetworkInfo struct {
	Validators  int
	AccountKeys int
}

type networkConfig struct {
	ValidatorConfigs []yaml.Node `yaml:"validator_configs"`
	AccountKeys      []yaml.Node `yaml:"account_keys"`
}

// Network reads network.yaml and counts its validators and funded accounts.
func (l *Ledger) Network() (*NetworkInfo, error) {
	data, err := os.ReadFile(l.NetworkConfigPath())
	if err != nil {
		return nil, fmt.Errorf("reading network config: %w", err)
	}
	var cfg networkConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing network config %s: %w", l.NetworkConfigPath(), err)
	}
	return &NetworkInfo{
		Validators:  len(cfg.ValidatorConfigs),
		AccountKeys: len(cfg.AccountKeys),
	}, nil
}
