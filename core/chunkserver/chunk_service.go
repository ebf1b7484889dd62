package chunkserver

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	fp "path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/checksum"
	"github.com/pyropy/chunkfs/lib/cmap"
)

const (
	chunkExt = ".chunk"
	tmpInfix = ".tmp-"
)

// ChunkService keeps chunk bytes on local disk, one file per chunk id.
// It knows nothing about files; chunk ids are its only address space.
type ChunkService struct {
	root   string
	Chunks cmap.Map[uuid.UUID, model.Chunk]
}

func NewChunkService(root string) (*ChunkService, error) {
	err := os.MkdirAll(root, 0750)
	if err != nil && !os.IsExist(err) {
		return nil, err
	}

	cs := &ChunkService{
		root:   root,
		Chunks: cmap.NewMap[uuid.UUID, model.Chunk](),
	}

	if err := cs.loadChunks(); err != nil {
		return nil, err
	}

	return cs, nil
}

func GetChunkFilename(id uuid.UUID) string {
	return fmt.Sprintf("%s%s", id, chunkExt)
}

func (cs *ChunkService) GetChunkPath(id uuid.UUID) string {
	return fp.Join(cs.root, GetChunkFilename(id))
}

// loadChunks indexes chunk files left on disk by a previous run.
func (cs *ChunkService) loadChunks() error {
	entries, err := os.ReadDir(cs.root)
	if err != nil {
		return err
	}

	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			continue
		}

		// leftovers of a write interrupted before its rename
		if strings.Contains(name, chunkExt+tmpInfix) {
			if err := os.Remove(fp.Join(cs.root, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			log.Infow("startup", "status", "removed partial chunk write", "file", name)
			continue
		}

		if !strings.HasSuffix(name, chunkExt) {
			continue
		}

		id, err := uuid.Parse(strings.TrimSuffix(name, chunkExt))
		if err != nil {
			log.Warnw("startup", "status", "skipping unknown file in chunk dir", "file", name)
			continue
		}

		data, err := os.ReadFile(fp.Join(cs.root, name))
		if err != nil {
			return err
		}

		cs.Chunks.Set(id, model.Chunk{
			ID:       id,
			Path:     cs.GetChunkPath(id),
			Size:     len(data),
			Checksum: checksum.CalculateCheckSum(data),
		})
	}

	return nil
}

// WriteChunk stores data under id, replacing any previous content.
// The write goes through a temp file and rename so readers never see a torn chunk.
func (cs *ChunkService) WriteChunk(id uuid.UUID, data []byte) (*model.Chunk, error) {
	chunkPath := cs.GetChunkPath(id)

	tmp, err := os.CreateTemp(cs.root, GetChunkFilename(id)+tmpInfix+"*")
	if err != nil {
		return nil, err
	}

	tmpPath := tmp.Name()
	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpPath, chunkPath)
	}
	if err != nil {
		os.Remove(tmpPath)
		return nil, err
	}

	chunk := model.Chunk{
		ID:       id,
		Path:     chunkPath,
		Size:     len(data),
		Checksum: checksum.CalculateCheckSum(data),
	}
	cs.Chunks.Set(id, chunk)

	return &chunk, nil
}

func (cs *ChunkService) ReadChunk(id uuid.UUID) ([]byte, error) {
	data, err := os.ReadFile(cs.GetChunkPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		cs.Chunks.Delete(id)
		return nil, fmt.Errorf("%w: %s", model.ErrChunkNotFound, id)
	}

	if err != nil {
		return nil, err
	}

	return data, nil
}

// DeleteChunk removes the chunk file. Deleting an absent chunk is not an
// error; the returned bool reports whether anything was removed.
func (cs *ChunkService) DeleteChunk(id uuid.UUID) (bool, error) {
	cs.Chunks.Delete(id)

	err := os.Remove(cs.GetChunkPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (cs *ChunkService) GetChunk(id uuid.UUID) (model.Chunk, bool) {
	chunk, exists := cs.Chunks.Get(id)
	if !exists {
		return model.Chunk{}, false
	}

	return *chunk, true
}

func (cs *ChunkService) GetAllChunks() []model.Chunk {
	chunks := make([]model.Chunk, 0)

	cs.Chunks.Range(func(_ uuid.UUID, chunk model.Chunk) bool {
		chunks = append(chunks, chunk)
		return true
	})

	return chunks
}
