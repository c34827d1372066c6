package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/erpbuddy-assistant/internal/textnorm"
)

func TestMemory_Find(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Add("c1", KindSupplier, "Acme Traders", "Acme Supplies", "Šumadija Drvo")
	m.Add("c2", KindSupplier, "Other Co")

	got, err := m.FindCandidatesByFuzzyName(ctx, "c1", KindSupplier, "acme", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme Traders", "Acme Supplies"}, got)

	got, err = m.FindCandidatesByFuzzyName(ctx, "c1", KindSupplier, "sumadija", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Šumadija Drvo"}, got)

	got, err = m.FindCandidatesByFuzzyName(ctx, "c1", KindSupplier, "", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = m.FindCandidatesByFuzzyName(ctx, "c1", KindCustomer, "acme", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.FindCandidatesByFuzzyName(ctx, "c1", EntityKind("x"), "acme", 10)
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestMemory_UseNormalizer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.Add("c1", KindProduct, "Blue Widget", "Gadget")

	got, err := m.FindCandidatesByFuzzyName(ctx, "c1", KindProduct, "widgit", 10)
	require.NoError(t, err)
	assert.Empty(t, got)

	m.UseNormalizer(textnorm.New(map[string]string{"widgit": "widget"}))
	got, err = m.FindCandidatesByFuzzyName(ctx, "c1", KindProduct, "widgit", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"Blue Widget"}, got)
}

func TestSQLite_Find(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Add(ctx, "c1", KindProduct, "Blue Widget", "Widget", "Gadget 100%", "Widget"))
	require.NoError(t, s.Add(ctx, "c2", KindProduct, "Widget Pro"))

	got, err := s.FindCandidatesByFuzzyName(ctx, "c1", KindProduct, "WIDGET", 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget", "Blue Widget"}, got)

	got, err = s.FindCandidatesByFuzzyName(ctx, "c1", KindProduct, "100%", 60)
	require.NoError(t, err)
	assert.Equal(t, []string{"Gadget 100%"}, got)

	got, err = s.FindCandidatesByFuzzyName(ctx, "c1", KindProduct, "", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget"}, got)

	err = s.Add(ctx, "c1", EntityKind("x"), "n")
	assert.ErrorIs(t, err, ErrUnknownKind)
}
