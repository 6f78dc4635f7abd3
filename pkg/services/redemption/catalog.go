package redemption

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/fadedpez/quantumtheater/pkg/entities"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the fixed list of items tokens can be redeemed for
type Catalog struct {
	items []entities.StoreItem
	byID  map[string]entities.StoreItem
}

type catalogFile struct {
	Items []entities.StoreItem `yaml:"items"`
}

// DefaultCatalog returns the built-in catalog
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a catalog from path, or the built-in one when path is empty
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(file.Items) == 0 {
		return nil, fmt.Errorf("catalog has no items")
	}

	c := &Catalog{
		items: file.Items,
		byID:  make(map[string]entities.StoreItem, len(file.Items)),
	}
	for i, item := range file.Items {
		if item.ID == "" || item.Title == "" {
			return nil, fmt.Errorf("catalog item %d needs an id and a title", i)
		}
		if item.Cost <= 0 {
			return nil, fmt.Errorf("catalog item %s has non-positive cost %d", item.ID, item.Cost)
		}
		if !item.Type.Valid() {
			return nil, fmt.Errorf("catalog item %s has unknown type %q", item.ID, item.Type)
		}
		if _, dup := c.byID[item.ID]; dup {
			return nil, fmt.Errorf("catalog item %s is listed twice", item.ID)
		}
		c.byID[item.ID] = item
	}
	return c, nil
}

// Items returns the catalog, optionally filtered by type. An empty type returns everything.
func (c *Catalog) Items(t entities.ItemType) []entities.StoreItem {
	out := make([]entities.StoreItem, 0, len(c.items))
	for _, item := range c.items {
		if t == "" || item.Type == t {
			out = append(out, item)
		}
	}
	return out
}

// Item looks up an item by id
func (c *Catalog) Item(id string) (entities.StoreItem, bool) {
	item, ok := c.byID[id]
	return item, ok
}
