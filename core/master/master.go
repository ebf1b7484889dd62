package master

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/metrics"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/keylock"
	"github.com/pyropy/chunkfs/lib/logger"
	"github.com/pyropy/chunkfs/lib/utils"
)

var log, _ = logger.New("master")

// Master is the metadata authority. It owns the file table and the
// replica-location table and never touches chunk bytes.
type Master struct {
	fileStore            *FileMetadataStore
	chunkMetaStore       *ChunkMetadataStore
	chunkServerMetaStore *ChunkServerMetadataStore

	chunkSize         int
	replicationFactor int

	// namespace serializes mutations per file name.
	namespace *keylock.KeyLock
	// tables is held shared by mutations and exclusively by snapshots.
	tables sync.RWMutex
}

func NewMaster(cfg *Config) *Master {
	return &Master{
		fileStore:            NewFileMetadataStore(),
		chunkMetaStore:       NewChunkMetadataStore(),
		chunkServerMetaStore: NewChunkServerMetadataStore(cfg.Nodes),
		chunkSize:            cfg.Chunks.Size,
		replicationFactor:    cfg.Chunks.ReplicationFactor,
		namespace:            keylock.New(),
	}
}

func (m *Master) ChunkSize() int {
	return m.chunkSize
}

func (m *Master) ReplicationFactor() int {
	return m.replicationFactor
}

func (m *Master) NodeRegistry() model.NodeRegistry {
	return m.chunkServerMetaStore.Registry()
}

func (m *Master) ChunkServers() *ChunkServerMetadataStore {
	return m.chunkServerMetaStore
}

// ChunkCount returns ceil(size / chunk size).
func (m *Master) ChunkCount(size int) (int, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: negative size %d", model.ErrInvalidArgument, size)
	}

	return model.ChunkCount(size, m.chunkSize), nil
}

func (m *Master) Exists(filePath string) bool {
	return m.fileStore.CheckFileExists(filePath)
}

// Allocate registers a new file made of numChunks freshly allocated chunks
// and returns their ids in creation order.
func (m *Master) Allocate(filePath string, numChunks int) ([]uuid.UUID, error) {
	if err := validateAllocation(filePath, numChunks); err != nil {
		return nil, err
	}

	unlock := m.namespace.Lock(filePath)
	defer unlock()

	m.tables.RLock()
	defer m.tables.RUnlock()

	if m.fileStore.CheckFileExists(filePath) {
		return nil, fmt.Errorf("%w: %s", model.ErrFileExists, filePath)
	}

	chunkIDs, err := m.allocateChunks(numChunks)
	if err != nil {
		return nil, err
	}

	fileMetadata := model.NewFileMetadata(filePath)
	fileMetadata.Chunks = chunkIDs
	m.fileStore.AddNewFileMetadata(filePath, fileMetadata)
	m.updateGauges()

	log.Infow("allocate", "file", filePath, "chunks", chunkIDs)
	return chunkIDs, nil
}

// AllocateAppend allocates numChunks chunks at the end of an existing file
// and returns only the new ids.
func (m *Master) AllocateAppend(filePath string, numChunks int) ([]uuid.UUID, error) {
	if err := validateAllocation(filePath, numChunks); err != nil {
		return nil, err
	}

	unlock := m.namespace.Lock(filePath)
	defer unlock()

	m.tables.RLock()
	defer m.tables.RUnlock()

	if !m.fileStore.CheckFileExists(filePath) {
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, filePath)
	}

	chunkIDs, err := m.allocateChunks(numChunks)
	if err != nil {
		return nil, err
	}

	m.fileStore.AppendChunks(filePath, chunkIDs)
	m.updateGauges()

	log.Infow("allocate append", "file", filePath, "chunks", chunkIDs)
	return chunkIDs, nil
}

// allocateChunks picks replicas for every chunk before recording any of
// them, so a failed selection leaves no partial state behind.
func (m *Master) allocateChunks(numChunks int) ([]uuid.UUID, error) {
	if n := len(m.chunkServerMetaStore.registry); n < m.replicationFactor {
		return nil, fmt.Errorf("%w: need %d nodes, registry has %d", model.ErrInsufficientReplicas, m.replicationFactor, n)
	}

	placements := make([][]model.NodeID, 0, numChunks)
	for i := 0; i < numChunks; i++ {
		chunkServers, err := m.chunkServerMetaStore.SelectChunkServers(m.replicationFactor)
		if err != nil {
			return nil, err
		}
		placements = append(placements, chunkServers)
	}

	chunkIDs := make([]uuid.UUID, 0, numChunks)
	for _, chunkServers := range placements {
		for {
			chunk := NewChunkMetadata(uuid.New(), chunkServers)
			if m.chunkMetaStore.AddNewChunkMetadata(chunk) {
				chunkIDs = append(chunkIDs, chunk.ID)
				break
			}

			log.Warnw("allocate", "status", "chunk id collision, regenerating", "chunkID", chunk.ID)
		}
	}

	return chunkIDs, nil
}

func validateAllocation(filePath string, numChunks int) error {
	if filePath == "" {
		return fmt.Errorf("%w: empty file name", model.ErrInvalidArgument)
	}

	if numChunks < 0 {
		return fmt.Errorf("%w: negative chunk count %d", model.ErrInvalidArgument, numChunks)
	}

	return nil
}

func (m *Master) ResolveChunks(filePath string) ([]uuid.UUID, error) {
	file := m.fileStore.Get(filePath)
	if file == nil {
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, filePath)
	}

	return file.Chunks, nil
}

func (m *Master) ResolveReplicas(chunkID uuid.UUID) ([]model.NodeID, error) {
	holders, exists := m.chunkMetaStore.GetChunkHolders(chunkID)
	if !exists {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownChunk, chunkID)
	}

	return holders, nil
}

// DeleteChunk drops a chunk's replica-location entry.
func (m *Master) DeleteChunk(chunkID uuid.UUID) error {
	m.tables.RLock()
	defer m.tables.RUnlock()

	if !m.chunkMetaStore.DeleteChunk(chunkID) {
		return fmt.Errorf("%w: %s", model.ErrUnknownChunk, chunkID)
	}

	m.updateGauges()
	return nil
}

// DeleteFile removes the file registration and the replica-location entry
// of every chunk it owns. It returns the number of chunks the file had.
func (m *Master) DeleteFile(filePath string) (int, error) {
	unlock := m.namespace.Lock(filePath)
	defer unlock()

	m.tables.RLock()
	defer m.tables.RUnlock()

	file, existed := m.fileStore.DeleteFile(filePath)
	if !existed {
		return 0, fmt.Errorf("%w: %s", model.ErrFileNotFound, filePath)
	}

	for _, chunkID := range file.Chunks {
		m.chunkMetaStore.DeleteChunk(chunkID)
	}

	m.updateGauges()
	log.Infow("delete", "file", filePath, "chunks", len(file.Chunks))
	return len(file.Chunks), nil
}

func (m *Master) ListFiles(prefix string) []string {
	return m.fileStore.ListFiles(prefix)
}

// Snapshot returns a point-in-time copy of both tables.
func (m *Master) Snapshot() *Snapshot {
	m.tables.Lock()
	defer m.tables.Unlock()

	return &Snapshot{
		Files:  m.fileStore.All(),
		Chunks: m.chunkMetaStore.All(),
	}
}

// Restore replaces both tables with the snapshot contents.
func (m *Master) Restore(snap *Snapshot) {
	m.tables.Lock()
	defer m.tables.Unlock()

	m.fileStore.Files.Clear()
	m.chunkMetaStore.Chunks.Clear()

	for _, chunk := range snap.Chunks {
		m.chunkMetaStore.AddNewChunkMetadata(chunk)
	}

	for _, file := range snap.Files {
		for _, chunkID := range file.Chunks {
			if !m.chunkMetaStore.HasChunk(chunkID) {
				log.Warnw("restore", "status", "file references chunk without replica entry", "file", file.Path, "chunkID", chunkID)
			}
		}
		m.fileStore.AddNewFileMetadata(file.Path, file)
	}

	m.updateGauges()
}

// CheckReplicaSets reports chunks whose replica set is smaller than the
// replication factor or names nodes that are not in the registry.
func (m *Master) CheckReplicaSets() []uuid.UUID {
	registry := m.chunkServerMetaStore.registry
	degraded := make([]uuid.UUID, 0)

	m.chunkMetaStore.Chunks.Range(func(id uuid.UUID, chunk model.ChunkMetadata) bool {
		ok := len(chunk.ChunkServers) >= m.replicationFactor && utils.Distinct(chunk.ChunkServers)
		for _, nodeID := range chunk.ChunkServers {
			if _, known := registry[nodeID]; !known {
				ok = false
			}
		}

		if !ok {
			degraded = append(degraded, id)
		}
		return true
	})

	return degraded
}

func (m *Master) updateGauges() {
	metrics.MasterFiles.Set(float64(m.fileStore.Files.Len()))
	metrics.MasterChunks.Set(float64(m.chunkMetaStore.Chunks.Len()))
}
