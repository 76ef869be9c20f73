// Package assetstore implements content-addressed binary storage with
// deduplication by SHA-256 digest. Files are stored under
// <root>/<digest[0:2]>/<digest>.<ext>, so byte-identical uploads across any
// number of items consume exactly one stored file.
package assetstore

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// Store persists files under a root directory, addressed by content digest.
// The two-character shard directories bound directory fan-out and keep
// lookups O(1) by path construction.
type Store struct {
	root string
}

// New creates the store, creating the root directory if needed.
func New(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset root: %w", err)
	}
	return &Store{root: root}, nil
}

// Root returns the store's base directory.
func (s *Store) Root() string { return s.root }

// Ensure stores the file at localPath under its content digest and returns
// the asset metadata. If a file with the same digest already exists the call
// is a pure no-op apart from returning the metadata. The caller is
// responsible for upserting the returned record into the asset registry.
func (s *Store) Ensure(localPath string) (*model.AssetRecord, error) {
	f, err := os.Open(localPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("asset source %s: %w", localPath, model.ErrNotFound)
		}
		return nil, fmt.Errorf("opening asset source: %w", err)
	}
	defer f.Close()

	// Stream through the hasher so memory stays bounded regardless of
	// file size.
	hasher := sha256.New()
	size, err := io.Copy(hasher, f)
	if err != nil {
		return nil, fmt.Errorf("hashing %s: %w", localPath, err)
	}
	digest := hex.EncodeToString(hasher.Sum(nil))

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(localPath)), ".")
	if ext == "" {
		ext = "bin"
	}

	rel := filepath.Join(digest[:2], digest+"."+ext)
	rec := &model.AssetRecord{
		Digest:        digest,
		FileExtension: ext,
		RelativePath:  rel,
		ByteSize:      size,
		CreatedAt:     model.NowRFC3339(),
	}

	target := filepath.Join(s.root, rel)
	if _, err := os.Stat(target); err == nil {
		return rec, nil
	}

	if err := s.copyInto(f, target, size); err != nil {
		return nil, err
	}
	return rec, nil
}

// AbsolutePath resolves a stored asset's relative path against the root.
func (s *Store) AbsolutePath(rec *model.AssetRecord) string {
	return filepath.Join(s.root, rec.RelativePath)
}

// copyInto writes src to target through a temp file in the same directory
// followed by a rename, so a partial copy is never visible under the final
// path. Concurrent writers for the same digest converge on the same file;
// a writer that loses the race simply overwrites with identical bytes.
func (s *Store) copyInto(src *os.File, target string, want int64) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating shard dir: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("rewinding source: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".asset-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, src)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("copying asset: %w", err)
	}
	if n != want {
		tmp.Close()
		return fmt.Errorf("copying asset: wrote %d of %d bytes", n, want)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("publishing asset: %w", err)
	}
	return nil
}
