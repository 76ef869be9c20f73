package store

import (
	"testing"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/assetstore"
)

// NewTestStore creates a Store backed by an in-memory database and a
// temp-dir asset store.
func NewTestStore(t *testing.T) *Store {
	t.Helper()

	assets, err := assetstore.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating test asset store: %v", err)
	}
	return NewTestStoreWith(t, assets)
}

// NewTestStoreWith creates a Store with a caller-supplied asset ensurer,
// for tests that need to inject asset failures.
func NewTestStoreWith(t *testing.T, assets AssetEnsurer) *Store {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db, assets)
	if err != nil {
		t.Fatalf("initialising test store: %v", err)
	}
	return s
}
