// Package catalog answers "which names look like this one" for products,
// customers and suppliers of a company.
package catalog

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/avvvet/erpbuddy-assistant/internal/textnorm"
)

// EntityKind is the type of catalog record.
type EntityKind string

const (
	KindProduct  EntityKind = "product"
	KindCustomer EntityKind = "customer"
	KindSupplier EntityKind = "supplier"
)

// ErrUnknownKind is returned for an unsupported EntityKind.
var ErrUnknownKind = errors.New("unknown entity kind")

// Valid reports whether k is a known kind.
func (k EntityKind) Valid() bool {
	switch k {
	case KindProduct, KindCustomer, KindSupplier:
		return true
	}
	return false
}

// Lookup finds candidate names by fuzzy substring. An empty query lists
// names. Results are bounded by limit and shortest names come first.
type Lookup interface {
	FindCandidatesByFuzzyName(ctx context.Context, companyID string, kind EntityKind, query string, limit int) ([]string, error)
}

// Memory is an in-process Lookup. The zero value is not usable; use NewMemory.
type Memory struct {
	mu    sync.RWMutex
	names map[string]map[EntityKind][]string
	norm  *textnorm.Normalizer
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{names: make(map[string]map[EntityKind][]string), norm: textnorm.New(nil)}
}

// UseNormalizer makes lookups fold queries and names with n, so a typo
// table shared with the classifier also applies here. A nil n is ignored.
func (m *Memory) UseNormalizer(n *textnorm.Normalizer) *Memory {
	if n != nil {
		m.mu.Lock()
		m.norm = n
		m.mu.Unlock()
	}
	return m
}

// Add registers names for a company.
func (m *Memory) Add(companyID string, kind EntityKind, names ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKind, ok := m.names[companyID]
	if !ok {
		byKind = make(map[EntityKind][]string)
		m.names[companyID] = byKind
	}
	byKind[kind] = append(byKind[kind], names...)
}

// FindCandidatesByFuzzyName matches on normalized containment.
func (m *Memory) FindCandidatesByFuzzyName(ctx context.Context, companyID string, kind EntityKind, query string, limit int) ([]string, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	all := append([]string(nil), m.names[companyID][kind]...)
	norm := m.norm
	m.mu.RUnlock()

	key := norm.Normalize(query)
	var out []string
	for _, n := range all {
		if key == "" || strings.Contains(norm.Normalize(n), key) {
			out = append(out, n)
		}
	}
	return bound(out, limit), nil
}

func bound(names []string, limit int) []string {
	sort.SliceStable(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	if limit > 0 && len(names) > limit {
		names = names[:limit]
	}
	return names
}
