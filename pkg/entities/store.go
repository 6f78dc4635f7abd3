package entities

import "time"

// ItemType groups store items
type ItemType string

const (
	ItemTypeVideo   ItemType = "video"
	ItemTypeFeature ItemType = "feature"
	ItemTypeBadge   ItemType = "badge"
	ItemTypeBoost   ItemType = "boost"
)

// Valid reports whether t is a known item type
func (t ItemType) Valid() bool {
	switch t {
	case ItemTypeVideo, ItemTypeFeature, ItemTypeBadge, ItemTypeBoost:
		return true
	default:
		return false
	}
}

// StoreItem is something tokens can be redeemed for
type StoreItem struct {
	ID          string   `json:"id" yaml:"id"`
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Cost        int64    `json:"cost" yaml:"cost"`
	Type        ItemType `json:"type" yaml:"type"`
	Benefit     string   `json:"benefit" yaml:"benefit"`
	Featured    bool     `json:"featured,omitempty" yaml:"featured"`
}

// Purchase records an item a viewer owns
type Purchase struct {
	ItemID      string    `json:"itemId"`
	Title       string    `json:"title"`
	Type        ItemType  `json:"type"`
	Cost        int64     `json:"cost"`
	PurchasedAt time.Time `json:"purchasedAt"`
}
