// Package asset defines deliverable metadata attached to a task.
package asset

import "time"

// Asset is the metadata of a single uploaded deliverable.
type Asset struct {
	ID          string    `json:"id"`
	TaskID      string    `json:"task_id"`
	UploaderID  string    `json:"uploader_id"`
	Filename    string    `json:"filename"`
	ContentHash string    `json:"content_hash"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
