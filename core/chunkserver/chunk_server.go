package chunkserver

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/metrics"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/cache"
	"github.com/pyropy/chunkfs/lib/checksum"
	"github.com/pyropy/chunkfs/lib/keylock"
	"github.com/pyropy/chunkfs/lib/logger"
)

var log, _ = logger.New("chunkserver")

type ChunkServer struct {
	*ChunkService
	*HealthMonitorService

	Cfg *Config
	LRU *cache.LRU[uuid.UUID, []byte]

	// chunkLocks orders disk access and cache fills per chunk id.
	chunkLocks *keylock.KeyLock
}

func NewChunkServer(cfg *Config) (*ChunkServer, error) {
	chunkService, err := NewChunkService(cfg.Chunks.Path)
	if err != nil {
		return nil, err
	}

	return &ChunkServer{
		Cfg:                  cfg,
		ChunkService:         chunkService,
		LRU:                  cache.NewLRU[uuid.UUID, []byte](cfg.Cache.Size),
		HealthMonitorService: NewHealthReportService(chunkService, cfg.Chunks.Path),
		chunkLocks:           keylock.New(),
	}, nil
}

// WriteChunk verifies the transferred bytes against inChecksum and stores them.
func (c *ChunkServer) WriteChunk(chunkID uuid.UUID, data []byte, inChecksum int) (int, error) {
	if !checksum.Verify(data, inChecksum) {
		metrics.ChunkStoreOpsTotal.WithLabelValues("write", "checksum").Inc()
		return 0, fmt.Errorf("%w: chunk %s", model.ErrChecksumMismatch, chunkID)
	}

	unlock := c.chunkLocks.Lock(chunkID.String())
	chunk, err := c.ChunkService.WriteChunk(chunkID, data)
	c.LRU.Remove(chunkID)
	unlock()

	metrics.ChunkStoreOpsTotal.WithLabelValues("write", metrics.Status(err)).Inc()
	if err != nil {
		return 0, err
	}

	metrics.ChunkStoreBytesTotal.WithLabelValues("write").Add(float64(chunk.Size))
	return chunk.Size, nil
}

// ReadChunk returns the chunk bytes and their checksum, serving hot chunks from the LRU.
func (c *ChunkServer) ReadChunk(chunkID uuid.UUID) ([]byte, int, error) {
	if data, cached := c.LRU.Get(chunkID); cached {
		metrics.ChunkStoreOpsTotal.WithLabelValues("read", "cached").Inc()
		return data, checksum.CalculateCheckSum(data), nil
	}

	unlock := c.chunkLocks.Lock(chunkID.String())
	defer unlock()

	if data, cached := c.LRU.Get(chunkID); cached {
		metrics.ChunkStoreOpsTotal.WithLabelValues("read", "cached").Inc()
		return data, checksum.CalculateCheckSum(data), nil
	}

	data, err := c.ChunkService.ReadChunk(chunkID)
	metrics.ChunkStoreOpsTotal.WithLabelValues("read", metrics.Status(err)).Inc()
	if err != nil {
		return nil, 0, err
	}

	c.LRU.Put(chunkID, data)
	metrics.ChunkStoreBytesTotal.WithLabelValues("read").Add(float64(len(data)))

	return data, checksum.CalculateCheckSum(data), nil
}

func (c *ChunkServer) DeleteChunk(chunkID uuid.UUID) (bool, error) {
	unlock := c.chunkLocks.Lock(chunkID.String())
	deleted, err := c.ChunkService.DeleteChunk(chunkID)
	c.LRU.Remove(chunkID)
	unlock()

	metrics.ChunkStoreOpsTotal.WithLabelValues("delete", metrics.Status(err)).Inc()

	return deleted, err
}

func (c *ChunkServer) Health(ctx context.Context) HealthReport {
	return c.HealthMonitorService.Report(ctx)
}
