package models

import "time"

// DocumentStatus tracks a source document through extraction.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentExtracted  DocumentStatus = "extracted"
	DocumentError      DocumentStatus = "error"
)

// SourceDocument is an uploaded ID scan, proof of address or similar file
// that feeds the extraction collaborator.
type SourceDocument struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Slot       string         `json:"slot,omitempty"`
	MIMEType   string         `json:"mimeType"`
	Size       int64          `json:"size"`
	Pages      int            `json:"pages,omitempty"`
	Status     DocumentStatus `json:"status"`
	StoredPath string         `json:"-"`
	UploadedAt time.Time      `json:"uploadedAt"`
}

// FileMetadata describes a file in a storage provider.
type FileMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowStep is a stage of a review session.
type WorkflowStep string

const (
	StepSelectTemplate  WorkflowStep = "select-template"
	StepUploadTemplate  WorkflowStep = "upload-template"
	StepUploadDocuments WorkflowStep = "upload-documents"
	StepReview          WorkflowStep = "review"
	StepExport          WorkflowStep = "export"
)
