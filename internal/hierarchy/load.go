package hierarchy

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/leapstack-labs/autodash/pkg/core"
	"gopkg.in/yaml.v3"
)

// Load extends the hierarchy from YAML of the form
//
//	type/Revenue: [type/Income]
//	entity/InvoiceTable: [entity/TransactionTable]
//
// Bare names are qualified with InferType. Keys are applied in sorted order.
func (h *Hierarchy) Load(r io.Reader) error {
	var edges map[string][]string
	if err := yaml.NewDecoder(r).Decode(&edges); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("failed to parse type hierarchy: %w", err)
	}

	tags := make([]string, 0, len(edges))
	for tag := range edges {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	for _, tag := range tags {
		parents := make([]core.TypeTag, 0, len(edges[tag]))
		for _, p := range edges[tag] {
			parents = append(parents, h.InferType(p))
		}
		if err := h.Derive(h.InferType(tag), parents...); err != nil {
			return fmt.Errorf("type %s: %w", tag, err)
		}
	}
	return nil
}

// LoadFile extends the hierarchy from a YAML file. See Load.
func (h *Hierarchy) LoadFile(path string) error {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		return fmt.Errorf("failed to open type hierarchy file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return h.Load(f)
}
