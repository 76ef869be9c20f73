package vision

import (
	"context"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// StubAnalyzer returns a canned listing (for keyless development and tests).
type StubAnalyzer struct{}

func (a *StubAnalyzer) AnalyzeItem(_ context.Context, imagePaths []string) (*model.Listing, error) {
	itemType := "placeholder item"
	brand := "Stub Brand"
	category := "misc"
	condition := model.ConditionUsed
	price := 10.0
	confidence := 0.5
	return &model.Listing{
		ItemType:       &itemType,
		Brand:          &brand,
		Category:       &category,
		Condition:      &condition,
		EstimatedPrice: &price,
		Confidence:     &confidence,
		Features:       map[string]any{"photos": len(imagePaths)},
	}, nil
}
