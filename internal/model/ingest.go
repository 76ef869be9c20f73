package model

// Ingestion log status constants. Success is terminal: any later run for
// the same (batch, artifact kind) key is a no-op.
const (
	IngestStatusProcessing = "processing"
	IngestStatusSuccess    = "success"
	IngestStatusFailed     = "failed"
)

// IngestionLogEntry records whether a batch unit has been processed,
// keyed by (BatchName, ArtifactKind).
type IngestionLogEntry struct {
	BatchName    string  `json:"batch_name"`
	ArtifactKind string  `json:"artifact_kind"`
	Status       string  `json:"status"`
	SourceDir    string  `json:"source_dir"`
	Error        *string `json:"error,omitempty"`
	ItemsCreated *int    `json:"items_created,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}
