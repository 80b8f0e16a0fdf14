package domain

import "time"

// ExtractionMetadata describes the source file an extraction came from.
type ExtractionMetadata struct {
	FileType string `json:"file_type"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
	Encoding string `json:"encoding"`
}

// Extraction is the result of turning a source file into normalized text.
type Extraction struct {
	Content  string             `json:"content"`
	Metadata ExtractionMetadata `json:"metadata"`
}

// CacheEntry is one persisted extraction, valid only while the recorded
// stat of the source file still matches the live file.
type CacheEntry struct {
	Content      string             `json:"content"`
	Metadata     ExtractionMetadata `json:"metadata"`
	SourceMTime  int64              `json:"source_mtime"` // unix milliseconds
	SourceSize   int64              `json:"source_size"`
	ExtractedAt  time.Time          `json:"extracted_at"`
	SchemaFormat int                `json:"schema_format"`
}
