// Package hierarchy provides the semantic type hierarchy: a directed acyclic
// graph of type tags supporting is-a and ancestor queries.
// A tag may have several parents, so diamonds are allowed; cycles are not.
package hierarchy

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/leapstack-labs/autodash/pkg/core"
)

// Tag namespaces used when inferring a tag from a bare identifier.
const (
	EntityNamespace = "entity/"
	TypeNamespace   = "type/"
)

// Hierarchy is a DAG of type tags. It is safe for concurrent readers once
// built; ancestor sets are memoized per tag.
type Hierarchy struct {
	mu       sync.Mutex
	parents  map[core.TypeTag][]core.TypeTag // tag -> direct parents
	children map[core.TypeTag][]core.TypeTag // tag -> direct children
	memo     map[core.TypeTag]map[core.TypeTag]bool
}

// New creates an empty hierarchy.
func New() *Hierarchy {
	return &Hierarchy{
		parents:  make(map[core.TypeTag][]core.TypeTag),
		children: make(map[core.TypeTag][]core.TypeTag),
		memo:     make(map[core.TypeTag]map[core.TypeTag]bool),
	}
}

// Add registers a tag with no parents. Adding an existing tag is a no-op.
func (h *Hierarchy) Add(tag core.TypeTag) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.addLocked(tag)
}

func (h *Hierarchy) addLocked(tag core.TypeTag) {
	if _, exists := h.parents[tag]; !exists {
		h.parents[tag] = []core.TypeTag{}
		h.children[tag] = []core.TypeTag{}
	}
}

// Derive declares tag to be a subtype of each parent. Unknown tags are added.
// It fails when an edge would close a cycle.
func (h *Hierarchy) Derive(tag core.TypeTag, parents ...core.TypeTag) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.addLocked(tag)
	for _, parent := range parents {
		if parent == tag {
			return fmt.Errorf("self-loop detected: %s", tag)
		}
		h.addLocked(parent)
		if h.ancestorsLocked(parent)[tag] {
			return fmt.Errorf("cycle detected: %s -> %s", tag, parent)
		}
		if !contains(h.parents[tag], parent) {
			h.parents[tag] = append(h.parents[tag], parent)
		}
		if !contains(h.children[parent], tag) {
			h.children[parent] = append(h.children[parent], tag)
		}
		// Any memoized set may now be stale.
		h.memo = make(map[core.TypeTag]map[core.TypeTag]bool)
	}
	return nil
}

// Has reports whether the tag is registered.
func (h *Hierarchy) Has(tag core.TypeTag) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.parents[tag]
	return ok
}

// Parents returns the direct parents of a tag.
func (h *Hierarchy) Parents(tag core.TypeTag) []core.TypeTag {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.TypeTag(nil), h.parents[tag]...)
}

// Ancestors returns every transitive ancestor of tag, excluding tag itself,
// sorted for deterministic output.
func (h *Hierarchy) Ancestors(tag core.TypeTag) []core.TypeTag {
	h.mu.Lock()
	set := h.ancestorsLocked(tag)
	h.mu.Unlock()

	result := make([]core.TypeTag, 0, len(set))
	for t := range set {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Depth is the number of ancestors of tag; deeper tags are more specific.
func (h *Hierarchy) Depth(tag core.TypeTag) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.ancestorsLocked(tag))
}

// IsA reports whether tag equals ancestor or descends from it.
func (h *Hierarchy) IsA(tag, ancestor core.TypeTag) bool {
	if tag == "" || ancestor == "" {
		return false
	}
	if tag == ancestor {
		return true
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.ancestorsLocked(tag)[ancestor]
}

// ancestorsLocked computes (and memoizes) the ancestor set of tag.
// The returned map must not be modified.
func (h *Hierarchy) ancestorsLocked(tag core.TypeTag) map[core.TypeTag]bool {
	if set, ok := h.memo[tag]; ok {
		return set
	}
	set := make(map[core.TypeTag]bool)

	var markUpstream func(t core.TypeTag)
	markUpstream = func(t core.TypeTag) {
		for _, parent := range h.parents[t] {
			if !set[parent] {
				set[parent] = true
				markUpstream(parent)
			}
		}
	}
	markUpstream(tag)

	h.memo[tag] = set
	return set
}

// Descendants returns every tag that is-a tag, excluding tag itself.
func (h *Hierarchy) Descendants(tag core.TypeTag) []core.TypeTag {
	h.mu.Lock()
	defer h.mu.Unlock()

	seen := make(map[core.TypeTag]bool)
	var markDownstream func(t core.TypeTag)
	markDownstream = func(t core.TypeTag) {
		for _, child := range h.children[t] {
			if !seen[child] {
				seen[child] = true
				markDownstream(child)
			}
		}
	}
	markDownstream(tag)

	result := make([]core.TypeTag, 0, len(seen))
	for t := range seen {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Tags returns all registered tags, sorted.
func (h *Hierarchy) Tags() []core.TypeTag {
	h.mu.Lock()
	defer h.mu.Unlock()
	tags := make([]core.TypeTag, 0, len(h.parents))
	for t := range h.parents {
		tags = append(tags, t)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// InferType maps a rule identifier to a tag. Qualified tags ("type/Name") and
// GA dimensions pass through; a bare name resolves to a known entity tag, then
// a known type tag, and otherwise to the type namespace.
func (h *Hierarchy) InferType(identifier string) core.TypeTag {
	tag := core.TypeTag(identifier)
	if strings.Contains(identifier, "/") || core.IsGADimension(tag) {
		return tag
	}
	if entity := core.TypeTag(EntityNamespace + identifier); h.Has(entity) {
		return entity
	}
	return core.TypeTag(TypeNamespace + identifier)
}

// contains checks if a slice contains a tag.
func contains(slice []core.TypeTag, tag core.TypeTag) bool {
	for _, s := range slice {
		if s == tag {
			return true
		}
	}
	return false
}
