package vision

import "fmt"

func listingPrompt(photoCount int) string {
	return fmt.Sprintf(`You are cataloguing a single second-hand item for resale from %d photos (front view, label close-up, detail shot).

Output ONLY valid JSON with this exact structure (no markdown, no explanation):
{"item_type": "boots", "brand": "Acme", "category": "footwear", "gender_category": "women", "size_label": "38", "condition": "used", "estimated_price": 25, "colors": ["black"], "materials": ["leather"], "features": {"heel": "low"}, "confidence": 0.8}

Rules:
- condition: one of "new", "like_new", "good", "used", "fair", "poor"
- estimated_price: realistic resale value in USD, number only
- confidence: 0 to 1, how certain you are overall
- features: free-form map of notable attributes
- Omit any field you cannot determine from the photos; never guess`, photoCount)
}
