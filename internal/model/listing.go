package model

import "strings"

// Listing is the structured result of analyzing one item's photos.
// Pointer fields distinguish "not determined" from zero values; missing
// fields are stored as NULL, never guessed.
type Listing struct {
	ItemType       *string        `json:"item_type,omitempty"`
	Brand          *string        `json:"brand,omitempty"`
	Category       *string        `json:"category,omitempty"`
	GenderCategory *string        `json:"gender_category,omitempty"`
	SizeLabel      *string        `json:"size_label,omitempty"`
	Condition      *string        `json:"condition,omitempty"`
	EstimatedPrice *float64       `json:"estimated_price,omitempty"`
	Colors         []string       `json:"colors,omitempty"`
	Materials      []string       `json:"materials,omitempty"`
	Features       map[string]any `json:"features,omitempty"`
	Confidence     *float64       `json:"confidence,omitempty"`

	// RawText and ParseError carry the degraded fallback when the model
	// output could not be parsed. A degraded listing is a valid result,
	// not an error; the caller decides whether to retry or accept it.
	RawText    string `json:"-"`
	ParseError bool   `json:"-"`
}

// Label builds a short human-readable description for session reports.
func (l *Listing) Label() string {
	var parts []string
	if l.Brand != nil && *l.Brand != "" {
		parts = append(parts, *l.Brand)
	}
	if l.Category != nil && *l.Category != "" {
		parts = append(parts, *l.Category)
	}
	if len(parts) == 0 {
		if l.ItemType != nil && *l.ItemType != "" {
			return *l.ItemType
		}
		return "item"
	}
	return strings.Join(parts, " ")
}

// Price returns the estimated price, or zero when undetermined.
func (l *Listing) Price() float64 {
	if l.EstimatedPrice == nil {
		return 0
	}
	return *l.EstimatedPrice
}
