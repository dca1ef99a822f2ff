package domain

import (
	"time"

	"github.com/google/uuid"
)

// Source is one uploaded media file. It outlives the jobs run against it so
// a reanalysis can reuse the original upload.
type Source struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Path      string    `json:"path"`
	MimeType  string    `json:"mime_type"`
	FileSize  int64     `json:"file_size"`
	CreatedAt time.Time `json:"created_at"`
}

func NewSource(filename, path, mimeType string, fileSize int64) *Source {
	return &Source{
		ID:        uuid.NewString(),
		Filename:  filename,
		Path:      path,
		MimeType:  mimeType,
		FileSize:  fileSize,
		CreatedAt: time.Now().UTC(),
	}
}
