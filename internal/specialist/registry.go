package specialist

import (
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/Veraticus/mosaic-money/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed lanes.yaml
var defaultLanesYAML []byte

// Lane is one registry entry.
type Lane struct {
	Key           model.SpecialistLane `yaml:"key"`
	SpecialistID  string               `yaml:"specialist_id"`
	Enabled       bool                 `yaml:"enabled"`
	AllowSemantic bool                 `yaml:"allow_semantic"`
	AllowFallback bool                 `yaml:"allow_fallback"`
}

// LaneLookup resolves a lane key to its registry entry.
type LaneLookup interface {
	Lookup(key model.SpecialistLane) (Lane, bool)
}

// Registry is a read-only table of lanes.
type Registry struct {
	lanes map[model.SpecialistLane]Lane
}

type registryFile struct {
	Lanes []Lane `yaml:"lanes"`
}

var knownLanes = []model.SpecialistLane{
	model.LaneCategorization,
	model.LaneTransfer,
	model.LaneIncome,
	model.LaneDebtQuality,
	model.LaneInvestment,
	model.LaneAnomaly,
}

// IsKnownLane reports whether key is one of the defined lanes.
func IsKnownLane(key model.SpecialistLane) bool {
	for _, l := range knownLanes {
		if l == key {
			return true
		}
	}
	return false
}

// NewRegistry builds a registry, rejecting unknown and duplicate keys.
func NewRegistry(lanes []Lane) (*Registry, error) {
	r := &Registry{lanes: make(map[model.SpecialistLane]Lane, len(lanes))}
	for _, l := range lanes {
		if !IsKnownLane(l.Key) {
			return nil, fmt.Errorf("unknown lane %q", l.Key)
		}
		if _, dup := r.lanes[l.Key]; dup {
			return nil, fmt.Errorf("lane %q registered twice", l.Key)
		}
		r.lanes[l.Key] = l
	}
	return r, nil
}

// DefaultRegistry returns the built-in registry, which only enables the
// categorization lane.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(defaultLanesYAML)
	if err != nil {
		panic(fmt.Sprintf("load lanes.yaml: %v", err))
	}
	return r
}

// ParseRegistry decodes a YAML lane file.
func ParseRegistry(data []byte) (*Registry, error) {
	var f registryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse lane registry: %w", err)
	}
	return NewRegistry(f.Lanes)
}

// LoadRegistry reads a YAML lane file from disk.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read lane registry %s: %w", path, err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// Lookup implements LaneLookup.
func (r *Registry) Lookup(key model.SpecialistLane) (Lane, bool) {
	if r == nil {
		return Lane{}, false
	}
	l, ok := r.lanes[key]
	return l, ok
}

// Lanes returns every registered lane ordered by key.
func (r *Registry) Lanes() []Lane {
	out := make([]Lane, 0, len(r.lanes))
	for _, l := range r.lanes {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
