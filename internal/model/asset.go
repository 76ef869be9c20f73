package model

// AssetRecord describes a stored file in the content-addressed asset store,
// keyed by the SHA-256 digest of its bytes. For a given digest at most one
// file exists on disk; records are never mutated.
type AssetRecord struct {
	Digest        string `json:"digest"`
	FileExtension string `json:"file_extension"`
	RelativePath  string `json:"relative_path"`
	ByteSize      int64  `json:"byte_size"`
	CreatedAt     string `json:"created_at"`
}
