package master

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/cmap"
)

var (
	FailedHealthChecksThreshold = 3
)

type NodeState string

const (
	NodeUnknown NodeState = "unknown"
	NodeUp      NodeState = "up"
	NodeSuspect NodeState = "suspect"
	NodeDown    NodeState = "down"
)

type ChunkServerMetadata struct {
	ID                 model.NodeID
	Address            string
	State              NodeState
	FailedHealthChecks int
	LastProbe          time.Time
	LastHealthReport   time.Time
	NumChunks          int
	DiskUsedPercent    float64
}

// ChunkServerMetadataStore holds the static node registry together with the
// last liveness observation for every node.
type ChunkServerMetadataStore struct {
	registry     model.NodeRegistry
	ChunkServers cmap.Map[model.NodeID, ChunkServerMetadata]
}

func NewChunkServerMetadataStore(registry model.NodeRegistry) *ChunkServerMetadataStore {
	store := &ChunkServerMetadataStore{
		registry:     registry,
		ChunkServers: cmap.NewMap[model.NodeID, ChunkServerMetadata](),
	}

	for id, addr := range registry {
		store.ChunkServers.Set(id, ChunkServerMetadata{ID: id, Address: addr, State: NodeUnknown})
	}

	return store
}

func (m *ChunkServerMetadataStore) Registry() model.NodeRegistry {
	registry := make(model.NodeRegistry, len(m.registry))
	for id, addr := range m.registry {
		registry[id] = addr
	}

	return registry
}

// SelectChunkServers picks num distinct nodes uniformly at random from the
// whole registry. Liveness is not consulted.
func (m *ChunkServerMetadataStore) SelectChunkServers(num int) ([]model.NodeID, error) {
	ids := m.registry.IDs()
	if len(ids) < num {
		return nil, fmt.Errorf("%w: need %d nodes, registry has %d", model.ErrInsufficientReplicas, num, len(ids))
	}

	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})

	return ids[:num], nil
}

func (m *ChunkServerMetadataStore) GetChunkServerMetadata(chunkServerID model.NodeID) *ChunkServerMetadata {
	chunkServerMetadata, exists := m.ChunkServers.Get(chunkServerID)
	if !exists {
		return nil
	}

	return chunkServerMetadata
}

func (m *ChunkServerMetadataStore) GetAllChunkServers() []ChunkServerMetadata {
	chunkServers := make([]ChunkServerMetadata, 0, len(m.registry))
	for _, id := range m.registry.IDs() {
		if cs := m.GetChunkServerMetadata(id); cs != nil {
			chunkServers = append(chunkServers, *cs)
		}
	}

	return chunkServers
}

func (m *ChunkServerMetadataStore) MarkHealthy(chunkServerID model.NodeID, numChunks int, diskUsedPercent float64) *ChunkServerMetadata {
	chunkServer, exists := m.ChunkServers.Get(chunkServerID)
	if !exists {
		return nil
	}

	now := time.Now()
	chunkServer.State = NodeUp
	chunkServer.FailedHealthChecks = 0
	chunkServer.LastProbe = now
	chunkServer.LastHealthReport = now
	chunkServer.NumChunks = numChunks
	chunkServer.DiskUsedPercent = diskUsedPercent
	m.ChunkServers.Set(chunkServerID, *chunkServer)

	return chunkServer
}

func (m *ChunkServerMetadataStore) MarkUnhealthy(chunkServerID model.NodeID) *ChunkServerMetadata {
	chunkServer, exists := m.ChunkServers.Get(chunkServerID)
	if !exists {
		return nil
	}

	chunkServer.State = NodeSuspect
	chunkServer.FailedHealthChecks += 1
	chunkServer.LastProbe = time.Now()
	if chunkServer.FailedHealthChecks >= FailedHealthChecksThreshold {
		chunkServer.State = NodeDown
	}
	m.ChunkServers.Set(chunkServerID, *chunkServer)

	return chunkServer
}

// IsReachable reports whether the node has not been declared down.
func (m *ChunkServerMetadataStore) IsReachable(chunkServerID model.NodeID) bool {
	chunkServer := m.GetChunkServerMetadata(chunkServerID)
	return chunkServer != nil && chunkServer.State != NodeDown
}
