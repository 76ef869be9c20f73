// Package batch ingests pre-assembled item bundles from disk. A bundle is
// a directory holding a manifest plus the image files it references; each
// bundle is processed at most once, tracked by the ingestion log.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/imaging"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// ManifestName is the file a bundle directory must contain to be picked up.
const ManifestName = "manifest.json"

// ArtifactKindItems is the artifact kind recorded for item manifests.
const ArtifactKindItems = "items"

// Manifest is the bundle's item list.
type Manifest struct {
	Items []ManifestItem `json:"items"`
}

// ManifestItem pairs pre-analyzed listing fields with the bundle-relative
// image paths for one item.
type ManifestItem struct {
	model.Listing
	Images []string `json:"images"`
}

// IngestLog records bundle processing attempts so re-runs are no-ops.
type IngestLog interface {
	ShouldProcess(ctx context.Context, batchName, artifactKind string) (bool, error)
	MarkProcessing(ctx context.Context, batchName, artifactKind, sourceDir string) error
	MarkSuccess(ctx context.Context, batchName, artifactKind string, itemsCreated int) error
	MarkFailed(ctx context.Context, batchName, artifactKind, message string) error
}

// ItemCreator persists one item with its photos.
type ItemCreator interface {
	CreateItem(ctx context.Context, listing *model.Listing, photos []model.PendingPhoto) (*model.Item, error)
}

// Runner processes bundles against the shared item pipeline.
type Runner struct {
	log   IngestLog
	items ItemCreator
}

// NewRunner creates a bundle runner.
func NewRunner(log IngestLog, items ItemCreator) *Runner {
	return &Runner{log: log, items: items}
}

// ProcessBundle ingests one bundle directory. The directory's base name is
// the batch identity: a bundle that already succeeded (or is mid-flight)
// returns ErrDuplicateBatch without touching the datastore, while a failed
// bundle is retried from the top. The processing marker is written before
// the manifest is parsed so a crash mid-run is visible in the log.
func (r *Runner) ProcessBundle(ctx context.Context, dir string) (int, error) {
	batchName := filepath.Base(filepath.Clean(dir))

	ok, err := r.log.ShouldProcess(ctx, batchName, ArtifactKindItems)
	if err != nil {
		return 0, fmt.Errorf("checking ingest log for %s: %w", batchName, err)
	}
	if !ok {
		return 0, fmt.Errorf("bundle %s: %w", batchName, model.ErrDuplicateBatch)
	}

	if err := r.log.MarkProcessing(ctx, batchName, ArtifactKindItems, dir); err != nil {
		return 0, fmt.Errorf("marking %s processing: %w", batchName, err)
	}

	created, err := r.ingest(ctx, dir)
	if err != nil {
		if markErr := r.log.MarkFailed(ctx, batchName, ArtifactKindItems, err.Error()); markErr != nil {
			slog.Error("recording bundle failure", "batch", batchName, "error", markErr)
		}
		return created, fmt.Errorf("bundle %s: %w", batchName, err)
	}

	if err := r.log.MarkSuccess(ctx, batchName, ArtifactKindItems, created); err != nil {
		return created, fmt.Errorf("marking %s success: %w", batchName, err)
	}
	slog.Info("bundle ingested", "batch", batchName, "items", created)
	return created, nil
}

func (r *Runner) ingest(ctx context.Context, dir string) (int, error) {
	manifest, err := readManifest(filepath.Join(dir, ManifestName))
	if err != nil {
		return 0, err
	}

	created := 0
	for i, entry := range manifest.Items {
		if len(entry.Images) == 0 {
			return created, fmt.Errorf("manifest item %d: no images listed", i)
		}
		photos, err := resolvePhotos(dir, entry.Images)
		if err != nil {
			return created, fmt.Errorf("manifest item %d: %w", i, err)
		}

		listing := entry.Listing
		item, err := r.items.CreateItem(ctx, &listing, photos)
		if err != nil {
			return created, fmt.Errorf("manifest item %d: %w", i, err)
		}
		created++
		slog.Debug("bundle item created", "item_id", item.ID, "sku", item.SKU)
	}
	return created, nil
}

func readManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// resolvePhotos maps bundle-relative image names to pending photos. Pixel
// dimensions come from probing the file; a file that is not a decodable
// image fails the bundle rather than ingesting bad bytes.
func resolvePhotos(dir string, names []string) ([]model.PendingPhoto, error) {
	photos := make([]model.PendingPhoto, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		info, err := imaging.Probe(path)
		if err != nil {
			return nil, fmt.Errorf("image %s: %w", name, err)
		}
		photos = append(photos, model.PendingPhoto{
			LocalPath:        path,
			OriginalFilename: name,
			Width:            info.Width,
			Height:           info.Height,
			ReceivedAt:       model.NowRFC3339(),
		})
	}
	return photos, nil
}
