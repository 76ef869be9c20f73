package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/assetstore"
	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

func strptr(s string) *string { return &s }

func floatptr(f float64) *float64 { return &f }

func testListing() *model.Listing {
	return &model.Listing{
		Brand:          strptr("Acme"),
		Category:       strptr("boots"),
		Condition:      strptr(model.ConditionUsed),
		EstimatedPrice: floatptr(25),
		Colors:         []string{"black"},
		Confidence:     floatptr(0.8),
	}
}

func testPhotos(t *testing.T, n int) []model.PendingPhoto {
	t.Helper()
	dir := t.TempDir()
	photos := make([]model.PendingPhoto, n)
	for i := range photos {
		path := filepath.Join(dir, fmt.Sprintf("photo-%d.jpg", i))
		if err := os.WriteFile(path, []byte(fmt.Sprintf("photo bytes %d", i)), 0o644); err != nil {
			t.Fatalf("writing test photo: %v", err)
		}
		photos[i] = model.PendingPhoto{
			LocalPath:        path,
			OriginalFilename: filepath.Base(path),
			ExternalRef:      fmt.Sprintf("tg-file-%d", i),
			Width:            800,
			Height:           600,
			ReceivedAt:       model.NowRFC3339(),
		}
	}
	return photos
}

func TestCreateItemWithImages(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, testListing(), testPhotos(t, 3))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if item.SKU != "ITEM-000001" {
		t.Errorf("SKU = %q, want ITEM-000001", item.SKU)
	}
	if item.Status != model.StatusAvailable {
		t.Errorf("status = %q, want available", item.Status)
	}

	got, err := s.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Brand == nil || *got.Brand != "Acme" {
		t.Errorf("Brand = %v, want Acme", got.Brand)
	}
	if len(got.Colors) != 1 || got.Colors[0] != "black" {
		t.Errorf("Colors = %v, want [black]", got.Colors)
	}
	if len(got.Images) != 3 {
		t.Fatalf("images = %d, want 3", len(got.Images))
	}

	wantViews := []string{model.ViewFront, model.ViewLabel, model.ViewDetail}
	for i, img := range got.Images {
		if img.ViewType != wantViews[i] {
			t.Errorf("image %d view = %q, want %q", i, img.ViewType, wantViews[i])
		}
		if img.IsPrimary != (i == 0) {
			t.Errorf("image %d primary = %v, only the first image may be primary", i, img.IsPrimary)
		}
		if _, err := s.GetAsset(ctx, img.AssetDigest); err != nil {
			t.Errorf("image %d asset %s not registered: %v", i, img.AssetDigest, err)
		}
	}
}

func TestCreateItemSequentialSKUs(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	first, err := s.CreateItem(ctx, testListing(), testPhotos(t, 1))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	second, err := s.CreateItem(ctx, testListing(), testPhotos(t, 1))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if first.SKU != "ITEM-000001" || second.SKU != "ITEM-000002" {
		t.Errorf("SKUs = %q, %q, want sequential", first.SKU, second.SKU)
	}
}

func TestCreateItemStoresNullsForMissingFields(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, &model.Listing{}, testPhotos(t, 1))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	got, err := s.GetItem(ctx, item.ID)
	if err != nil {
		t.Fatalf("GetItem: %v", err)
	}
	if got.Brand != nil || got.Condition != nil || got.EstimatedPrice != nil {
		t.Error("missing analysis fields must stay NULL, not be guessed")
	}
	if got.Colors != nil {
		t.Errorf("Colors = %v, want nil", got.Colors)
	}
}

// failingEnsurer fails after a fixed number of successful calls.
type failingEnsurer struct {
	inner AssetEnsurer
	calls int
	after int
}

func (f *failingEnsurer) Ensure(localPath string) (*model.AssetRecord, error) {
	f.calls++
	if f.calls > f.after {
		return nil, fmt.Errorf("disk full")
	}
	return f.inner.Ensure(localPath)
}

func TestCreateItemRollsBackOnAssetFailure(t *testing.T) {
	assets, err := assetstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating asset store: %v", err)
	}
	s := NewTestStoreWith(t, &failingEnsurer{inner: assets, after: 1})
	ctx := context.Background()

	if _, err := s.CreateItem(ctx, testListing(), testPhotos(t, 3)); err == nil {
		t.Fatal("expected failure on second photo")
	}

	n, err := s.CountItems(ctx)
	if err != nil {
		t.Fatalf("CountItems: %v", err)
	}
	if n != 0 {
		t.Errorf("items = %d, want 0 after rollback", n)
	}

	var images int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM item_images`).Scan(&images); err != nil {
		t.Fatalf("counting images: %v", err)
	}
	if images != 0 {
		t.Errorf("image rows = %d, want 0 after rollback", images)
	}
}

func TestCreateItemRequiresPhotos(t *testing.T) {
	s := NewTestStore(t)
	if _, err := s.CreateItem(context.Background(), testListing(), nil); err == nil {
		t.Error("expected error for item without photos")
	}
}

func TestDeleteItemRemovesImages(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	keep, err := s.CreateItem(ctx, testListing(), testPhotos(t, 2))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	remove, err := s.CreateItem(ctx, testListing(), testPhotos(t, 2))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}

	if err := s.DeleteItem(ctx, remove.ID); err != nil {
		t.Fatalf("DeleteItem: %v", err)
	}

	if _, err := s.GetItem(ctx, remove.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("deleted item lookup error = %v, want ErrNotFound", err)
	}
	kept, err := s.GetItem(ctx, keep.ID)
	if err != nil {
		t.Fatalf("GetItem(keep): %v", err)
	}
	if len(kept.Images) != 2 {
		t.Errorf("kept item images = %d, want 2", len(kept.Images))
	}

	var orphans int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM item_images WHERE item_id = ?`, remove.ID).Scan(&orphans); err != nil {
		t.Fatalf("counting orphan images: %v", err)
	}
	if orphans != 0 {
		t.Errorf("orphan image rows = %d, want 0", orphans)
	}
}

func TestDeleteItemNotFound(t *testing.T) {
	s := NewTestStore(t)
	err := s.DeleteItem(context.Background(), 4242)
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListItemsStatusFilter(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	item, err := s.CreateItem(ctx, testListing(), testPhotos(t, 1))
	if err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if _, err := s.CreateItem(ctx, testListing(), testPhotos(t, 1)); err != nil {
		t.Fatalf("CreateItem: %v", err)
	}
	if _, err := s.db.Exec(`UPDATE items SET status = ? WHERE id = ?`, model.StatusSold, item.ID); err != nil {
		t.Fatalf("updating status: %v", err)
	}

	all, err := s.ListItems(ctx, "")
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all items = %d, want 2", len(all))
	}

	sold, err := s.ListItems(ctx, model.StatusSold)
	if err != nil {
		t.Fatalf("ListItems(sold): %v", err)
	}
	if len(sold) != 1 || sold[0].ID != item.ID {
		t.Errorf("sold items = %v, want just item %d", sold, item.ID)
	}
}

func TestDedupAcrossItems(t *testing.T) {
	s := NewTestStore(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := filepath.Join(dir, "shared.jpg")
	if err := os.WriteFile(path, []byte("identical stock photo"), 0o644); err != nil {
		t.Fatalf("writing photo: %v", err)
	}
	photo := model.PendingPhoto{LocalPath: path, OriginalFilename: "shared.jpg", ReceivedAt: model.NowRFC3339()}

	a, err := s.CreateItem(ctx, testListing(), []model.PendingPhoto{photo})
	if err != nil {
		t.Fatalf("CreateItem(a): %v", err)
	}
	b, err := s.CreateItem(ctx, testListing(), []model.PendingPhoto{photo})
	if err != nil {
		t.Fatalf("CreateItem(b): %v", err)
	}

	gotA, _ := s.GetItem(ctx, a.ID)
	gotB, _ := s.GetItem(ctx, b.ID)
	if gotA.Images[0].AssetDigest != gotB.Images[0].AssetDigest {
		t.Error("identical photo bytes should share one asset digest")
	}

	var assets int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM assets`).Scan(&assets); err != nil {
		t.Fatalf("counting assets: %v", err)
	}
	if assets != 1 {
		t.Errorf("asset rows = %d, want 1", assets)
	}
}
