package domain

import "time"

// ReviewJob is one queued request to prepare and review a document for a
// review job. SubmittedAt is stamped at enqueue time so the worker can
// report queue lag; a zero value means the producer did not stamp it.
type ReviewJob struct {
	ReviewHistoryID string      `json:"review_history_id"`
	DocumentID      string      `json:"document_id"`
	FileName        string      `json:"file_name"`
	SourcePath      string      `json:"source_path"`
	ProcessMode     ProcessMode `json:"process_mode"`
	ChecklistIDs    []string    `json:"checklist_ids"`
	SubmittedAt     time.Time   `json:"submitted_at,omitempty"`
}

// ReviewRequest is one unit of work for the external review agent: one
// chunk (or page set) evaluated against one checklist item.
type ReviewRequest struct {
	ChecklistID string   `json:"checklist_id"`
	FileName    string   `json:"file_name"`
	Text        string   `json:"text,omitempty"`
	Pages       []string `json:"pages,omitempty"`
}

// DocumentProgress reports how far one document's chunked review has
// advanced. Complete is count == expected; the ledger never asserts it.
type DocumentProgress struct {
	DocumentID  string `json:"document_id"`
	StoredRows  int    `json:"stored_rows"`
	TotalChunks int    `json:"total_chunks"`
	Complete    bool   `json:"complete"`
}
