// Package catalog holds the static list of purchasable credit packages.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/digkill/gddforge/internal/models"
)

var ErrInvalidCatalog = errors.New("invalid credit package catalog")

//go:embed packages.yaml
var defaultCatalog []byte

type Catalog struct {
	packages  []models.CreditPackage
	byID      map[string]models.CreditPackage
	byVariant map[string]models.CreditPackage
}

type fileFormat struct {
	Packages []models.CreditPackage `yaml:"packages"`
}

// Load reads the catalog from path, or the built-in catalog when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Parse(defaultCatalog)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCatalog, err)
	}
	return New(f.Packages)
}

func New(packages []models.CreditPackage) (*Catalog, error) {
	if len(packages) == 0 {
		return nil, fmt.Errorf("%w: no packages", ErrInvalidCatalog)
	}

	c := &Catalog{
		packages:  make([]models.CreditPackage, 0, len(packages)),
		byID:      make(map[string]models.CreditPackage, len(packages)),
		byVariant: make(map[string]models.CreditPackage, len(packages)),
	}
	for _, p := range packages {
		p.ID = strings.TrimSpace(p.ID)
		p.ExternalVariantID = strings.TrimSpace(p.ExternalVariantID)
		switch {
		case p.ID == "":
			return nil, fmt.Errorf("%w: package without id", ErrInvalidCatalog)
		case p.ExternalVariantID == "":
			return nil, fmt.Errorf("%w: package %q has no variant id", ErrInvalidCatalog, p.ID)
		case p.Credits <= 0:
			return nil, fmt.Errorf("%w: package %q must grant credits", ErrInvalidCatalog, p.ID)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate package id %q", ErrInvalidCatalog, p.ID)
		}
		if _, dup := c.byVariant[p.ExternalVariantID]; dup {
			return nil, fmt.Errorf("%w: duplicate variant id %q", ErrInvalidCatalog, p.ExternalVariantID)
		}
		if p.Name == "" {
			p.Name = p.ID
		}
		c.packages = append(c.packages, p)
		c.byID[p.ID] = p
		c.byVariant[p.ExternalVariantID] = p
	}
	return c, nil
}

// Packages returns a copy of the catalog in declaration order.
func (c *Catalog) Packages() []models.CreditPackage {
	out := make([]models.CreditPackage, len(c.packages))
	copy(out, c.packages)
	return out
}

func (c *Catalog) ByID(id string) (models.CreditPackage, bool) {
	p, ok := c.byID[strings.TrimSpace(id)]
	return p, ok
}

// ByVariant maps a payment provider variant id to the package it sells.
func (c *Catalog) ByVariant(variantID string) (models.CreditPackage, bool) {
	p, ok := c.byVariant[strings.TrimSpace(variantID)]
	return p, ok
}
