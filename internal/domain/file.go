package domain

import "time"

// FileStatus is the ingestion state of an uploaded file
type FileStatus string

const (
	FileProcessing FileStatus = "processing"
	FileCompleted  FileStatus = "completed"
	FileFailed     FileStatus = "failed"
)

// UploadedFile is a tabular data file ingested by the backend
type UploadedFile struct {
	ID               int64         `json:"id"`
	UserID           int64         `json:"user_id"`
	Filename         string        `json:"filename"`
	OriginalFilename string        `json:"original_filename"`
	FilePath         string        `json:"file_path"`
	FileType         string        `json:"file_type"`
	FileSize         int64         `json:"file_size"`
	Status           FileStatus    `json:"status"`
	Metadata         *FileMetadata `json:"metadata,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// FileMetadata describes the columns detected in a file
type FileMetadata struct {
	Columns     []string          `json:"columns"`
	ColumnTypes map[string]string `json:"column_types"`
	RowCount    int               `json:"row_count"`
	SampleData  []map[string]any  `json:"sample_data"`
}

// FileStatusReport is the ingestion progress of one file
type FileStatusReport struct {
	ID           int64      `json:"id"`
	Status       FileStatus `json:"status"`
	Progress     float64    `json:"progress"`
	ErrorMessage string     `json:"error_message,omitempty"`
}
