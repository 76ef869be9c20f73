package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// CreateItem inserts an item together with its images in a single
// transaction. Photos are processed in positional order (front, label,
// detail); the first is marked primary. For each photo the bytes are
// persisted in the asset store, the asset row is upserted by digest, and an
// image row referencing it is written. Any failure rolls the whole item
// back, so no orphaned item or dangling image row survives a partial run.
func (s *Store) CreateItem(ctx context.Context, listing *model.Listing, photos []model.PendingPhoto) (*model.Item, error) {
	if len(photos) == 0 {
		return nil, fmt.Errorf("creating item: no photos")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// The counter bump happens inside the transaction as a single atomic
	// statement, so sequential SKUs never collide under concurrent
	// writers (no MAX(id)+1 read-then-write).
	var seq int64
	if err := tx.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE name = 'item_sku' RETURNING value`,
	).Scan(&seq); err != nil {
		return nil, fmt.Errorf("next sku: %w", err)
	}
	sku := fmt.Sprintf("ITEM-%06d", seq)

	now := model.NowRFC3339()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO items (sku, item_type, brand, category, gender_category, size_label,
			condition, estimated_price, colors, materials, features, confidence_score, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sku, listing.ItemType, listing.Brand, listing.Category, listing.GenderCategory,
		listing.SizeLabel, listing.Condition, listing.EstimatedPrice,
		jsonOrNull(listing.Colors), jsonOrNull(listing.Materials), jsonOrNull(listing.Features),
		listing.Confidence, model.StatusAvailable, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert item: %w", err)
	}
	itemID, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("item id: %w", err)
	}

	for i, photo := range photos {
		asset, err := s.assets.Ensure(photo.LocalPath)
		if err != nil {
			return nil, fmt.Errorf("storing photo %d: %w", i+1, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO assets (digest, file_extension, relative_path, byte_size, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(digest) DO NOTHING`,
			asset.Digest, asset.FileExtension, asset.RelativePath, asset.ByteSize, asset.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("upsert asset: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO item_images (item_id, view_type, is_primary, asset_digest, external_ref, width, height, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			itemID, model.ViewForPosition(i), i == 0, asset.Digest,
			photo.ExternalRef, photo.Width, photo.Height, now,
		); err != nil {
			return nil, fmt.Errorf("insert image %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &model.Item{
		ID:              itemID,
		SKU:             sku,
		ItemType:        listing.ItemType,
		Brand:           listing.Brand,
		Category:        listing.Category,
		GenderCategory:  listing.GenderCategory,
		SizeLabel:       listing.SizeLabel,
		Condition:       listing.Condition,
		EstimatedPrice:  listing.EstimatedPrice,
		Colors:          listing.Colors,
		Materials:       listing.Materials,
		Features:        listing.Features,
		ConfidenceScore: listing.Confidence,
		Status:          model.StatusAvailable,
		CreatedAt:       now,
	}, nil
}

// GetItem returns an item together with its images in view order.
func (s *Store) GetItem(ctx context.Context, id int64) (*model.ItemWithImages, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, sku, item_type, brand, category, gender_category, size_label,
			condition, estimated_price, colors, materials, features, confidence_score, status, created_at
		FROM items WHERE id = ?`, id)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	images, err := s.listImages(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ItemWithImages{Item: *item, Images: images}, nil
}

// ListItems returns items, newest first, optionally filtered by status.
func (s *Store) ListItems(ctx context.Context, status string) ([]model.Item, error) {
	query := `
		SELECT id, sku, item_type, brand, category, gender_category, size_label,
			condition, estimated_price, colors, materials, features, confidence_score, status, created_at
		FROM items`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// CountItems returns the total number of item rows.
func (s *Store) CountItems(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting items: %w", err)
	}
	return n, nil
}

// DeleteItem removes an item and its image rows in one transaction. Stored
// asset files are kept: they are content-addressed and may back other items.
func (s *Store) DeleteItem(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM item_images WHERE item_id = ?`, id); err != nil {
		return fmt.Errorf("delete images: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("item %d: %w", id, model.ErrNotFound)
	}

	return tx.Commit()
}

func (s *Store) listImages(ctx context.Context, itemID int64) ([]model.ItemImage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, item_id, view_type, is_primary, asset_digest, external_ref, width, height, created_at
		FROM item_images WHERE item_id = ? ORDER BY id ASC`, itemID)
	if err != nil {
		return nil, fmt.Errorf("listing images: %w", err)
	}
	defer rows.Close()

	var images []model.ItemImage
	for rows.Next() {
		var img model.ItemImage
		var externalRef sql.NullString
		var width, height sql.NullInt64
		if err := rows.Scan(&img.ID, &img.ItemID, &img.ViewType, &img.IsPrimary,
			&img.AssetDigest, &externalRef, &width, &height, &img.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning image: %w", err)
		}
		img.ExternalRef = externalRef.String
		img.Width = int(width.Int64)
		img.Height = int(height.Int64)
		images = append(images, img)
	}
	return images, rows.Err()
}

// GetAsset returns the asset registry row for a digest.
func (s *Store) GetAsset(ctx context.Context, digest string) (*model.AssetRecord, error) {
	var rec model.AssetRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT digest, file_extension, relative_path, byte_size, created_at
		FROM assets WHERE digest = ?`, digest).
		Scan(&rec.Digest, &rec.FileExtension, &rec.RelativePath, &rec.ByteSize, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", digest, model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	var item model.Item
	var colors, materials, features sql.NullString
	if err := row.Scan(&item.ID, &item.SKU, &item.ItemType, &item.Brand, &item.Category,
		&item.GenderCategory, &item.SizeLabel, &item.Condition, &item.EstimatedPrice,
		&colors, &materials, &features, &item.ConfidenceScore, &item.Status, &item.CreatedAt); err != nil {
		return nil, err
	}
	if colors.Valid {
		json.Unmarshal([]byte(colors.String), &item.Colors)
	}
	if materials.Valid {
		json.Unmarshal([]byte(materials.String), &item.Materials)
	}
	if features.Valid {
		json.Unmarshal([]byte(features.String), &item.Features)
	}
	return &item, nil
}

// jsonOrNull serializes a non-empty collection to a JSON string, or NULL.
func jsonOrNull(v any) any {
	switch x := v.(type) {
	case []string:
		if len(x) == 0 {
			return nil
		}
	case map[string]any:
		if len(x) == 0 {
			return nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(b)
}
