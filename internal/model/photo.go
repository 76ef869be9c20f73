package model

// PendingPhoto is a photo downloaded to local temp storage, waiting in an
// intake session buffer until enough photos arrive to trigger analysis.
type PendingPhoto struct {
	LocalPath        string `json:"local_path"`
	OriginalFilename string `json:"original_filename"`
	ExternalRef      string `json:"external_ref,omitempty"`
	Width            int    `json:"width,omitempty"`
	Height           int    `json:"height,omitempty"`
	ReceivedAt       string `json:"received_at"`
}
