package domain

import "time"

// ProcessMode selects how a source document is persisted for review:
// extracted text or rasterized page images.
type ProcessMode string

const (
	ModeText  ProcessMode = "text"
	ModeImage ProcessMode = "image"
)

// DocumentCache is the metadata row for one document prepared for one
// review job. The payload itself (text or page images) lives on disk at
// CachePath and is loaded lazily.
type DocumentCache struct {
	ID              string      `json:"id"`
	ReviewHistoryID string      `json:"review_history_id"`
	DocumentID      string      `json:"document_id"`
	FileName        string      `json:"file_name"`
	ProcessMode     ProcessMode `json:"process_mode"`
	CachePath       string      `json:"cache_path"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// ArtifactPayload is the on-disk representation of a prepared document.
// Exactly one of Text or Pages is populated, matching the process mode.
type ArtifactPayload struct {
	Text  string
	Pages []string // base64-encoded page images, in page order
}

// ChunkResult is one appended partial review outcome: the comment the
// agent produced for one (document, checklist item, chunk) triple.
// TotalChunks is self-declared by whichever chunk reports it.
type ChunkResult struct {
	ID                    string    `json:"id"`
	ReviewDocumentCacheID string    `json:"review_document_cache_id"`
	ReviewChecklistID     string    `json:"review_checklist_id"`
	Comment               string    `json:"comment"`
	TotalChunks           int       `json:"total_chunks"`
	ChunkIndex            int       `json:"chunk_index"`
	IndividualFileName    string    `json:"individual_file_name"`
	CreatedAt             time.Time `json:"created_at"`
}

// AttributedComment is one chunk comment with its source-file provenance.
type AttributedComment struct {
	Comment    string `json:"comment"`
	SourceFile string `json:"source_file"`
}

// ChecklistComments groups the stored chunk comments of one review job by
// checklist item for display.
type ChecklistComments struct {
	ReviewChecklistID string              `json:"review_checklist_id"`
	Comments          []AttributedComment `json:"comments"`
}

// GroupByChecklist aggregates chunk rows by checklist id, preserving the
// order in which checklist ids first appear.
func GroupByChecklist(results []ChunkResult) []ChecklistComments {
	index := make(map[string]int, len(results))
	out := make([]ChecklistComments, 0, len(results))
	for _, r := range results {
		i, ok := index[r.ReviewChecklistID]
		if !ok {
			i = len(out)
			index[r.ReviewChecklistID] = i
			out = append(out, ChecklistComments{ReviewChecklistID: r.ReviewChecklistID})
		}
		out[i].Comments = append(out[i].Comments, AttributedComment{
			Comment:    r.Comment,
			SourceFile: r.IndividualFileName,
		})
	}
	return out
}
