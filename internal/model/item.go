package model

import "time"

// Item status constants.
const (
	StatusPending   = "pending"
	StatusAvailable = "available"
	StatusListed    = "listed"
	StatusReserved  = "reserved"
	StatusSold      = "sold"
	StatusRemoved   = "removed"
)

// Item condition constants.
const (
	ConditionNew     = "new"
	ConditionLikeNew = "like_new"
	ConditionGood    = "good"
	ConditionUsed    = "used"
	ConditionFair    = "fair"
	ConditionPoor    = "poor"
)

// Image view types, assigned by photo position within an intake cycle.
const (
	ViewFront  = "front"
	ViewLabel  = "label"
	ViewDetail = "detail"
)

var validStatuses = map[string]bool{
	StatusPending:   true,
	StatusAvailable: true,
	StatusListed:    true,
	StatusReserved:  true,
	StatusSold:      true,
	StatusRemoved:   true,
}

var validConditions = map[string]bool{
	ConditionNew:     true,
	ConditionLikeNew: true,
	ConditionGood:    true,
	ConditionUsed:    true,
	ConditionFair:    true,
	ConditionPoor:    true,
}

// ValidStatus reports whether s is one of the closed item statuses.
func ValidStatus(s string) bool { return validStatuses[s] }

// ValidCondition reports whether c is one of the closed item conditions.
func ValidCondition(c string) bool { return validConditions[c] }

// ViewForPosition maps a photo's position in the intake order to its view
// type. Positions past the third are detail shots.
func ViewForPosition(i int) string {
	switch i {
	case 0:
		return ViewFront
	case 1:
		return ViewLabel
	default:
		return ViewDetail
	}
}

// Item represents a sellable item created from one intake cycle.
// Analysis fields the model could not determine are nil, never guessed.
type Item struct {
	ID              int64          `json:"id"`
	SKU             string         `json:"sku"`
	ItemType        *string        `json:"item_type,omitempty"`
	Brand           *string        `json:"brand,omitempty"`
	Category        *string        `json:"category,omitempty"`
	GenderCategory  *string        `json:"gender_category,omitempty"`
	SizeLabel       *string        `json:"size_label,omitempty"`
	Condition       *string        `json:"condition,omitempty"`
	EstimatedPrice  *float64       `json:"estimated_price,omitempty"`
	Colors          []string       `json:"colors,omitempty"`
	Materials       []string       `json:"materials,omitempty"`
	Features        map[string]any `json:"features,omitempty"`
	ConfidenceScore *float64       `json:"confidence_score,omitempty"`
	Status          string         `json:"status"`
	CreatedAt       string         `json:"created_at"`
}

// ItemImage is one photo of an item, backed by a content-addressed asset.
type ItemImage struct {
	ID          int64  `json:"id"`
	ItemID      int64  `json:"item_id"`
	ViewType    string `json:"view_type"`
	IsPrimary   bool   `json:"is_primary"`
	AssetDigest string `json:"asset_digest"`
	ExternalRef string `json:"external_ref,omitempty"`
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// ItemWithImages is an Item together with its images in view order.
type ItemWithImages struct {
	Item
	Images []ItemImage `json:"images"`
}

// ItemSummary is the per-item line of a session report.
type ItemSummary struct {
	ItemID         int64   `json:"item_id"`
	SKU            string  `json:"sku"`
	Label          string  `json:"label"`
	EstimatedPrice float64 `json:"estimated_price"`
}

// NowRFC3339 returns the current UTC time in the storage timestamp format.
func NowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
