package vision

import (
	"context"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// Analyzer extracts a structured listing from photos of a physical item.
// Implementations wrap a remote multimodal service.
type Analyzer interface {
	// AnalyzeItem sends the images to the vision service and returns the
	// extracted listing. A malformed model response is returned as a
	// degraded Listing with ParseError set, not as an error; transport
	// failures and timeouts return errors (timeouts wrap model.ErrTimeout).
	AnalyzeItem(ctx context.Context, imagePaths []string) (*model.Listing, error)
}
