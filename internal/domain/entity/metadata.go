package entity

// VideoMetadata is what the metadata probe reports before any content is
// downloaded. AgeRestricted short-circuits the run without a download.
type VideoMetadata struct {
	Title           string  `json:"title"`
	DurationSeconds float64 `json:"duration_seconds"`
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	Uploader        string  `json:"uploader,omitempty"`
	UploadDate      string  `json:"upload_date,omitempty"`
	ViewCount       int64   `json:"view_count,omitempty"`
	AgeRestricted   bool    `json:"age_restricted,omitempty"`
}
