package model

import (
	"time"
)

type Document struct {
	ID               int64     `db:"id" json:"id"`
	InitiativeID     int64     `db:"initiative_id" json:"initiative_id"`
	Filename         string    `db:"filename" json:"filename"`
	OriginalFilename string    `db:"original_filename" json:"original_filename"`
	FilePath         string    `db:"file_path" json:"file_path"` // storage key
	FileSize         int64     `db:"file_size" json:"file_size"`
	MimeType         string    `db:"mime_type" json:"mime_type"`
	UploadedAt       time.Time `db:"uploaded_at" json:"uploaded_at"`
}
