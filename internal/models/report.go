package models

import "time"

// MaterializedFile describes a result written to durable storage. The file
// on disk is the single source of truth; this struct is metadata only.
type MaterializedFile struct {
	AbsolutePath  string    `json:"absolute_path"`
	Directory     string    `json:"directory"`
	Filename      string    `json:"filename"`
	SizeBytes     int64     `json:"size_bytes"`
	Width         int       `json:"width,omitempty"`
	Height        int       `json:"height,omitempty"`
	ThumbnailPath string    `json:"thumbnail_path,omitempty"`
	WrittenAt     time.Time `json:"written_at"`
}

// BatchItem is the per-input entry of a batch report, in submission order.
type BatchItem struct {
	Index     int               `json:"index"`
	Reference ImageReference    `json:"reference"`
	Outcome   EditOutcome       `json:"outcome"`
	File      *MaterializedFile `json:"file,omitempty"`
}

// BatchReport is the sole artifact returned to the caller for a batch run.
// It is built incrementally by the scheduler and immutable once all workers
// finish. Succeeded+Failed always equals Total.
type BatchReport struct {
	BatchID         string      `json:"batch_id"`
	Total           int         `json:"total"`
	Succeeded       int         `json:"succeeded"`
	Failed          int         `json:"failed"`
	Items           []BatchItem `json:"items"`
	TotalElapsedMS  int64       `json:"total_elapsed_ms"`
	ConcurrencyUsed int         `json:"concurrency_used"`
}
