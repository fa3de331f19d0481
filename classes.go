package satprep

// Class taxonomy handling: raw xView type identifiers are remapped to the dense zero-based
// index space the detector trains on.

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// defaultClasses is the built-in simplified taxonomy used when no class config is given.
var defaultClasses = map[int]string{
	11: "Fixed-Wing Aircraft",
	12: "Small Vehicle",
	13: "Large Vehicle",
	15: "Truck",
	21: "Passenger Vehicle",
	37: "Ship",
	52: "Building",
	57: "Helipad",
	58: "Storage Tank",
	59: "Shipping Container",
}

// ClassMap maps raw taxonomy identifiers to dense zero-based detector class indices. Indices are
// contiguous and assigned in ascending raw-identifier order, regardless of annotation frequency.
type ClassMap struct {
	indices map[int]int // Raw identifier -> dense index.
	ids     []int       // Dense index -> raw identifier.
	names   []string    // Dense index -> display name.
}

// classConfig is the on-disk class taxonomy file.
type classConfig struct {
	Classes    map[int]string `yaml:"classes"`
	Simplified map[int]string `yaml:"simplified_classes"`
}

// NewClassMap builds a ClassMap from a raw identifier -> display name mapping.
func NewClassMap(classes map[int]string) ClassMap {
	ids := make([]int, 0, len(classes))
	for id := range classes {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	cm := ClassMap{
		indices: make(map[int]int, len(ids)),
		ids:     ids,
		names:   make([]string, len(ids)),
	}
	for i, id := range ids {
		cm.indices[id] = i
		cm.names[i] = classes[id]
	}

	return cm
}

// DefaultClassMap returns the ClassMap for the built-in ten-class taxonomy.
func DefaultClassMap() ClassMap {
	return NewClassMap(defaultClasses)
}

// LoadClassMap builds the ClassMap from the YAML taxonomy file at path, using the
// simplified_classes mapping when simplified is true and classes otherwise. An empty path
// selects the built-in default taxonomy.
func LoadClassMap(path string, simplified bool) (ClassMap, error) {
	if path == "" {
		return DefaultClassMap(), nil
	}

	enc, err := os.ReadFile(path)
	if err != nil {
		return ClassMap{}, err
	}

	var config classConfig
	if err := yaml.Unmarshal(enc, &config); err != nil {
		return ClassMap{}, fmt.Errorf("failed to parse class config %q: %v", path, err)
	}

	classes := config.Classes
	if simplified {
		classes = config.Simplified
	}
	if len(classes) == 0 {
		return ClassMap{}, fmt.Errorf("class config %q defines no classes", path)
	}

	return NewClassMap(classes), nil
}

// Index returns the dense class index for the given raw identifier.
func (cm ClassMap) Index(rawID int) (int, bool) {
	idx, ok := cm.indices[rawID]
	return idx, ok
}

// Len returns the number of classes.
func (cm ClassMap) Len() int {
	return len(cm.ids)
}

// IDs returns the raw identifiers in dense index order.
func (cm ClassMap) IDs() []int {
	return cm.ids
}

// Names returns the display names in dense index order.
func (cm ClassMap) Names() []string {
	return cm.names
}
