package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/gddforge/internal/models"
)

func TestLoad_Default(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	pkgs := c.Packages()
	require.Len(t, pkgs, 2)
	assert.Equal(t, "starter", pkgs[0].ID)
	assert.Equal(t, 10, pkgs[0].Credits)
	assert.InDelta(t, 5.0, pkgs[0].PriceUSD, 0.001)
	assert.Equal(t, "pro", pkgs[1].ID)
	assert.Equal(t, 50, pkgs[1].Credits)
	assert.True(t, pkgs[1].Popular)
}

func TestCatalog_RoundTrip(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	for _, p := range c.Packages() {
		got, ok := c.ByVariant(p.ExternalVariantID)
		require.True(t, ok, p.ID)
		assert.Equal(t, p.Credits, got.Credits)

		byID, ok := c.ByID(p.ID)
		require.True(t, ok)
		assert.Equal(t, p, byID)
	}

	_, ok := c.ByVariant("999999")
	assert.False(t, ok)
}

func TestCatalog_PackagesReturnsCopy(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	pkgs := c.Packages()
	pkgs[0].Credits = 1000

	again, _ := c.ByID("starter")
	assert.Equal(t, 10, again.Credits)
	assert.Equal(t, 10, c.Packages()[0].Credits)
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
packages:
  - id: mega
    credits: 200
    price_usd: 60
    variant_id: "42"
`), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	p, ok := c.ByVariant("42")
	require.True(t, ok)
	assert.Equal(t, "mega", p.Name)
	assert.Equal(t, 200, p.Credits)
}

func TestNew_Invalid(t *testing.T) {
	tests := []struct {
		name string
		pkgs []models.CreditPackage
	}{
		{"empty", nil},
		{"missing id", []models.CreditPackage{{Credits: 1, ExternalVariantID: "v"}}},
		{"missing variant", []models.CreditPackage{{ID: "a", Credits: 1}}},
		{"zero credits", []models.CreditPackage{{ID: "a", ExternalVariantID: "v"}}},
		{"duplicate id", []models.CreditPackage{
			{ID: "a", Credits: 1, ExternalVariantID: "v1"},
			{ID: "a", Credits: 1, ExternalVariantID: "v2"},
		}},
		{"duplicate variant", []models.CreditPackage{
			{ID: "a", Credits: 1, ExternalVariantID: "v"},
			{ID: "b", Credits: 1, ExternalVariantID: "v"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.pkgs)
			assert.ErrorIs(t, err, ErrInvalidCatalog)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("packages: [oops"))
	assert.ErrorIs(t, err, ErrInvalidCatalog)
}
