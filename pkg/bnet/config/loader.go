package config

import (
	"fmt"

	"github.com/cognicore/bnet/pkg/bnet/network"
)

// AlarmName is the name of the embedded default network
const AlarmName = "alarm"

// Loader loads the network configuration
type Loader struct {
	NetworkPath string // empty selects the embedded alarm network
}

// Components holds the loaded configuration
type Components struct {
	Name    string
	Source  string
	Network *network.Network
}

// Load reads the network definition and builds the network
func (l *Loader) Load() (*Components, error) {
	if l.NetworkPath == "" {
		n, err := Alarm()
		if err != nil {
			return nil, fmt.Errorf("load embedded network: %w", err)
		}
		return &Components{Name: AlarmName, Source: "embedded", Network: n}, nil
	}

	nf, err := LoadNetworkFile(l.NetworkPath)
	if err != nil {
		return nil, fmt.Errorf("load network: %w", err)
	}

	n, err := nf.Build()
	if err != nil {
		return nil, fmt.Errorf("build network %s: %w", l.NetworkPath, err)
	}

	name := nf.Name
	if name == "" {
		name = l.NetworkPath
	}

	return &Components{Name: name, Source: l.NetworkPath, Network: n}, nil
}
