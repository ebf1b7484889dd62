package model

import (
	"time"

	"github.com/google/uuid"
)

type FilePath = string

// FileMetadata is the master's file table entry. Chunks is ordered: the
// file's content is the concatenation of its chunks in this order.
type FileMetadata struct {
	Path      FilePath
	Chunks    []uuid.UUID
	CreatedAt time.Time
}

func NewFileMetadata(path string) FileMetadata {
	return FileMetadata{
		Path:      path,
		Chunks:    []uuid.UUID{},
		CreatedAt: time.Now().UTC(),
	}
}
