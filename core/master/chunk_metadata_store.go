package master

import (
	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/cmap"
)

// ChunkMetadataStore is the replica-location table: chunk id to holding nodes.
type ChunkMetadataStore struct {
	Chunks cmap.Map[uuid.UUID, model.ChunkMetadata]
}

func NewChunkMetadataStore() *ChunkMetadataStore {
	return &ChunkMetadataStore{
		Chunks: cmap.NewMap[uuid.UUID, model.ChunkMetadata](),
	}
}

func NewChunkMetadata(chunkID uuid.UUID, chunkServerIds []model.NodeID) model.ChunkMetadata {
	return model.ChunkMetadata{
		ID:           chunkID,
		ChunkServers: chunkServerIds,
	}
}

// AddNewChunkMetadata records chunk unless its id is already taken and reports whether it did.
func (cs *ChunkMetadataStore) AddNewChunkMetadata(chunk model.ChunkMetadata) bool {
	return cs.Chunks.SetIfAbsent(chunk.ID, chunk)
}

func (cs *ChunkMetadataStore) HasChunk(chunkID uuid.UUID) bool {
	return cs.Chunks.Has(chunkID)
}

func (cs *ChunkMetadataStore) GetChunkHolders(chunkID uuid.UUID) ([]model.NodeID, bool) {
	chunk, chunkExists := cs.Chunks.Get(chunkID)
	if !chunkExists {
		return nil, false
	}

	holders := make([]model.NodeID, len(chunk.ChunkServers))
	copy(holders, chunk.ChunkServers)

	return holders, true
}

func (cs *ChunkMetadataStore) DeleteChunk(chunkID uuid.UUID) bool {
	_, existed := cs.Chunks.Pop(chunkID)
	return existed
}

func (cs *ChunkMetadataStore) All() []model.ChunkMetadata {
	chunks := make([]model.ChunkMetadata, 0)
	cs.Chunks.Range(func(_ uuid.UUID, chunk model.ChunkMetadata) bool {
		chunks = append(chunks, chunk)
		return true
	})

	return chunks
}
