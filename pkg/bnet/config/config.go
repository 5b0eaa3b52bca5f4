package config

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/bnet/pkg/bnet/internalerr"
	"github.com/cognicore/bnet/pkg/bnet/network"
)

//go:embed networks/alarm.yaml
var alarmYAML []byte

// NetworkFile is the YAML form of a network definition
type NetworkFile struct {
	Name      string              `yaml:"name"`
	Variables []string            `yaml:"variables"`
	Parents   map[string][]string `yaml:"parents,omitempty"`
	CPT       []CPTEntry          `yaml:"cpt"`
}

// CPTEntry is one CPT row, e.g. {var: At, given: [Bt, Et], p: 0.95}
type CPTEntry struct {
	Var   string   `yaml:"var"`
	Given []string `yaml:"given,omitempty,flow"`
	P     float64  `yaml:"p"`
}

// LoadNetworkFile loads a network definition from a YAML file
func LoadNetworkFile(path string) (*NetworkFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseNetworkFile(data)
}

// ParseNetworkFile decodes a YAML network definition
func ParseNetworkFile(data []byte) (*NetworkFile, error) {
	var nf NetworkFile
	if err := yaml.Unmarshal(data, &nf); err != nil {
		return nil, fmt.Errorf("%w: %w", internalerr.ErrInvalidConfig, err)
	}
	return &nf, nil
}

// Definition converts the file into the network's definition shape
func (nf *NetworkFile) Definition() (network.Definition, error) {
	def := network.Definition{
		Variables: nf.Variables,
		Parents:   nf.Parents,
		Entries:   make([]network.Entry, 0, len(nf.CPT)),
	}

	for i, row := range nf.CPT {
		child, err := network.ParseLiteral(row.Var)
		if err != nil {
			return network.Definition{}, fmt.Errorf("%w: cpt[%d]: %w", internalerr.ErrInvalidConfig, i, err)
		}
		given, err := network.ParseLiterals(row.Given)
		if err != nil {
			return network.Definition{}, fmt.Errorf("%w: cpt[%d]: %w", internalerr.ErrInvalidConfig, i, err)
		}
		def.Entries = append(def.Entries, network.Entry{Child: child, Given: given, P: row.P})
	}

	return def, nil
}

// Build validates the file and constructs the network
func (nf *NetworkFile) Build() (*network.Network, error) {
	def, err := nf.Definition()
	if err != nil {
		return nil, err
	}
	return network.New(def)
}

// FromDefinition converts a definition back to its YAML form
func FromDefinition(name string, def network.Definition) *NetworkFile {
	nf := &NetworkFile{
		Name:      name,
		Variables: append([]string(nil), def.Variables...),
		CPT:       make([]CPTEntry, 0, len(def.Entries)),
	}
	if len(def.Parents) > 0 {
		nf.Parents = make(map[string][]string, len(def.Parents))
		for child, parents := range def.Parents {
			nf.Parents[child] = append([]string(nil), parents...)
		}
	}

	for _, e := range def.Entries {
		row := CPTEntry{Var: e.Child.String(), P: e.P}
		for _, g := range e.Given {
			row.Given = append(row.Given, g.String())
		}
		nf.CPT = append(nf.CPT, row)
	}
	return nf
}

// MarshalNetwork renders a network as YAML
func MarshalNetwork(name string, n *network.Network) ([]byte, error) {
	return yaml.Marshal(FromDefinition(name, n.Definition()))
}

// Alarm returns the embedded burglary alarm network
func Alarm() (*network.Network, error) {
	nf, err := ParseNetworkFile(alarmYAML)
	if err != nil {
		return nil, err
	}
	return nf.Build()
}
