package store

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/adgedenkers/mythos-arcturus-sub000/internal/model"
)

// AssetEnsurer persists file bytes in content-addressed storage and returns
// the resulting metadata.
type AssetEnsurer interface {
	Ensure(localPath string) (*model.AssetRecord, error)
}

// Store provides data access to the SQLite database. Item creation also
// drives the asset store so that image rows always reference stored bytes.
type Store struct {
	db     *sql.DB
	assets AssetEnsurer
}

// New creates a new Store and initialises the schema.
func New(db *sql.DB, assets AssetEnsurer) (*Store, error) {
	s := &Store{db: db, assets: assets}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 1

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// migrations is an ordered list of migration functions.
	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: initial schema
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}

	return nil
}

// migrateV1 creates the initial schema (v0 → v1).
func (s *Store) migrateV1() error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id               INTEGER PRIMARY KEY,
		sku              TEXT NOT NULL UNIQUE,
		item_type        TEXT,
		brand            TEXT,
		category         TEXT,
		gender_category  TEXT,
		size_label       TEXT,
		condition        TEXT CHECK (condition IS NULL OR condition IN ('new','like_new','good','used','fair','poor')),
		estimated_price  REAL,
		colors           TEXT,
		materials        TEXT,
		features         TEXT,
		confidence_score REAL CHECK (confidence_score IS NULL OR (confidence_score >= 0 AND confidence_score <= 1)),
		status           TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('pending','available','listed','reserved','sold','removed')),
		created_at       TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_items_status ON items(status, created_at);

	CREATE TABLE IF NOT EXISTS assets (
		digest         TEXT PRIMARY KEY,
		file_extension TEXT NOT NULL,
		relative_path  TEXT NOT NULL,
		byte_size      INTEGER NOT NULL,
		created_at     TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS item_images (
		id           INTEGER PRIMARY KEY,
		item_id      INTEGER NOT NULL REFERENCES items(id),
		view_type    TEXT NOT NULL,
		is_primary   INTEGER NOT NULL DEFAULT 0,
		asset_digest TEXT NOT NULL REFERENCES assets(digest),
		external_ref TEXT,
		width        INTEGER,
		height       INTEGER,
		created_at   TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_item_images_item ON item_images(item_id);

	CREATE TABLE IF NOT EXISTS ingest_log (
		batch_name    TEXT NOT NULL,
		artifact_kind TEXT NOT NULL,
		status        TEXT NOT NULL CHECK (status IN ('processing','success','failed')),
		source_dir    TEXT NOT NULL,
		error         TEXT,
		items_created INTEGER,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL,
		PRIMARY KEY (batch_name, artifact_kind)
	);

	CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value INTEGER NOT NULL
	);
	INSERT OR IGNORE INTO counters (name, value) VALUES ('item_sku', 0);
	`
	_, err := s.db.Exec(schema)
	return err
}
