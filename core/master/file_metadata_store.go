package master

import (
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/cmap"
)

// FileMetadataStore is the file table: file name to ordered chunk ids.
type FileMetadataStore struct {
	Files cmap.Map[model.FilePath, model.FileMetadata]
}

func NewFileMetadataStore() *FileMetadataStore {
	return &FileMetadataStore{
		Files: cmap.NewMap[model.FilePath, model.FileMetadata](),
	}
}

func (f *FileMetadataStore) Get(filePath model.FilePath) *model.FileMetadata {
	file, exists := f.Files.Get(filePath)
	if !exists {
		return nil
	}

	return file
}

func (f *FileMetadataStore) CheckFileExists(filePath model.FilePath) bool {
	return f.Files.Has(filePath)
}

func (f *FileMetadataStore) AddNewFileMetadata(filePath model.FilePath, metadata model.FileMetadata) {
	f.Files.Set(filePath, metadata)
}

// AppendChunks extends the file's chunk sequence. Callers hold the file's namespace lock.
func (f *FileMetadataStore) AppendChunks(filePath model.FilePath, chunkIDs []uuid.UUID) bool {
	file, exists := f.Files.Get(filePath)
	if !exists {
		return false
	}

	chunks := make([]uuid.UUID, 0, len(file.Chunks)+len(chunkIDs))
	chunks = append(chunks, file.Chunks...)
	file.Chunks = append(chunks, chunkIDs...)
	f.Files.Set(filePath, *file)

	return true
}

func (f *FileMetadataStore) DeleteFile(filePath model.FilePath) (*model.FileMetadata, bool) {
	return f.Files.Pop(filePath)
}

// ListFiles returns file names starting with prefix, sorted.
func (f *FileMetadataStore) ListFiles(prefix string) []model.FilePath {
	files := make([]model.FilePath, 0)
	for _, path := range f.Files.Keys() {
		if strings.HasPrefix(path, prefix) {
			files = append(files, path)
		}
	}

	sort.Strings(files)
	return files
}

func (f *FileMetadataStore) All() []model.FileMetadata {
	files := make([]model.FileMetadata, 0)
	f.Files.Range(func(_ model.FilePath, file model.FileMetadata) bool {
		files = append(files, file)
		return true
	})

	return files
}
