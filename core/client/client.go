package client

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/metrics"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/logger"
	"github.com/pyropy/chunkfs/rpc/master"
)

var log, _ = logger.New("client")

// Client turns whole-file operations into master and chunkserver calls.
// It keeps no file metadata of its own between operations.
type Client struct {
	Master *MasterClient

	chunkSize int
	nodes     map[model.NodeID]*NodeClient
}

// NewClient asks the master for the chunk size and node registry and
// prepares one NodeClient per registered node.
func NewClient(ctx context.Context, cfg *Config) (*Client, error) {
	mc := NewMasterClient(cfg.Master.Addr, cfg.Call.Timeout)

	chunkSize, err := mc.ChunkSize(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching chunk size: %w", err)
	}

	registry, err := mc.NodeRegistry(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching node registry: %w", err)
	}

	nodes := make(map[model.NodeID]*NodeClient, len(registry))
	for _, node := range registry {
		nodes[node.ID] = NewNodeClient(node, cfg)
	}

	log.Debugw("client", "status", "connected", "master", cfg.Master.Addr, "chunkSize", chunkSize, "nodes", len(nodes))

	return &Client{
		Master:    mc,
		chunkSize: chunkSize,
		nodes:     nodes,
	}, nil
}

func (c *Client) ChunkSize() int {
	return c.chunkSize
}

// Create stores data as a new file. Replica failures do not fail the call;
// they are listed in the returned report.
func (c *Client) Create(ctx context.Context, path string, data []byte) (*WriteReport, error) {
	exists, err := c.Master.Exists(ctx, path)
	if err != nil {
		return nil, err
	}

	if exists {
		return nil, fmt.Errorf("%w: %s", model.ErrFileExists, path)
	}

	chunkIDs, err := c.Master.Allocate(ctx, path, model.ChunkCount(len(data), c.chunkSize))
	if err != nil {
		return nil, err
	}

	return c.writeChunks(ctx, path, chunkIDs, data)
}

// Append adds data at the end of an existing file.
func (c *Client) Append(ctx context.Context, path string, data []byte) (*WriteReport, error) {
	exists, err := c.Master.Exists(ctx, path)
	if err != nil {
		return nil, err
	}

	if !exists {
		return nil, fmt.Errorf("%w: %s", model.ErrFileNotFound, path)
	}

	chunkIDs, err := c.Master.AllocateAppend(ctx, path, model.ChunkCount(len(data), c.chunkSize))
	if err != nil {
		return nil, err
	}

	return c.writeChunks(ctx, path, chunkIDs, data)
}

func (c *Client) writeChunks(ctx context.Context, path string, chunkIDs []uuid.UUID, data []byte) (*WriteReport, error) {
	report := newWriteReport(path)
	slices := model.SplitChunks(data, c.chunkSize)

	if len(slices) != len(chunkIDs) {
		return report, fmt.Errorf("%w: master allocated %d chunks for %d slices", model.ErrInvalidArgument, len(chunkIDs), len(slices))
	}

	for i, chunkID := range chunkIDs {
		holders, err := c.Master.ResolveReplicas(ctx, chunkID)
		if err != nil {
			return report, err
		}

		report.Chunks = append(report.Chunks, chunkID)
		c.forEachReplica(ctx, "write", chunkID, holders, report, func(nc *NodeClient) error {
			return nc.WriteChunk(ctx, chunkID, slices[i])
		})
	}

	if lost := report.Lost(); len(lost) > 0 {
		log.Errorw("write", "file", path, "status", "chunks stored on no replica", "chunks", lost)
	} else if under := report.UnderReplicated(); len(under) > 0 {
		log.Warnw("write", "file", path, "status", "chunks under-replicated", "chunks", under)
	}

	return report, nil
}

// forEachReplica runs op against every holder concurrently and records
// each outcome in report.
func (c *Client) forEachReplica(ctx context.Context, operation string, chunkID uuid.UUID, holders []model.NodeID, report *WriteReport, op func(*NodeClient) error) {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)

	for _, nodeID := range holders {
		wg.Add(1)
		go func(nodeID model.NodeID) {
			defer wg.Done()

			err := c.onNode(nodeID, op)
			if err != nil {
				metrics.ReplicaFailuresTotal.WithLabelValues(operation, nodeID).Inc()
				log.Warnw(operation, "chunkID", chunkID, "node", nodeID, "error", err)
			}

			mu.Lock()
			report.record(chunkID, nodeID, err)
			mu.Unlock()
		}(nodeID)
	}

	wg.Wait()
}

func (c *Client) onNode(nodeID model.NodeID, op func(*NodeClient) error) error {
	nc, ok := c.nodes[nodeID]
	if !ok {
		return fmt.Errorf("%w: node %s is not in the registry", model.ErrNodeUnreachable, nodeID)
	}

	if !nc.IsAvailable() {
		return fmt.Errorf("%w: node %s: circuit open", model.ErrNodeUnreachable, nodeID)
	}

	return op(nc)
}

// Read returns the file's bytes. Each chunk is fetched from the first
// replica that returns verified bytes. Chunks no replica could serve are
// skipped; the bytes that were retrieved come back together with a
// *PartialReadError naming them.
func (c *Client) Read(ctx context.Context, path string) ([]byte, error) {
	chunkIDs, err := c.Master.ResolveChunks(ctx, path)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(chunkIDs)*c.chunkSize)
	missing := make([]uuid.UUID, 0)

	for _, chunkID := range chunkIDs {
		holders, err := c.Master.ResolveReplicas(ctx, chunkID)
		if err != nil {
			return nil, err
		}

		chunk, err := c.readChunk(ctx, chunkID, holders)
		if err != nil {
			metrics.MissingChunksTotal.Inc()
			log.Errorw("read", "file", path, "chunkID", chunkID, "status", "no replica could serve chunk", "error", err)
			missing = append(missing, chunkID)
			continue
		}

		data = append(data, chunk...)
	}

	if len(missing) > 0 {
		return data, &PartialReadError{File: path, Missing: missing}
	}

	return data, nil
}

func (c *Client) readChunk(ctx context.Context, chunkID uuid.UUID, holders []model.NodeID) ([]byte, error) {
	var errs []error
	for _, nodeID := range holders {
		var data []byte
		err := c.onNode(nodeID, func(nc *NodeClient) error {
			var err error
			data, err = nc.ReadChunk(ctx, chunkID)
			return err
		})
		if err == nil {
			return data, nil
		}

		metrics.ReplicaFailuresTotal.WithLabelValues("read", nodeID).Inc()
		log.Debugw("read", "chunkID", chunkID, "node", nodeID, "error", err)
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil, fmt.Errorf("%w: chunk %s has no replicas", model.ErrChunkNotFound, chunkID)
	}

	return nil, errors.Join(errs...)
}

// Delete removes the file's bytes from every replica, then its chunk
// entries and finally the file itself from the master.
func (c *Client) Delete(ctx context.Context, path string) (*WriteReport, error) {
	chunkIDs, err := c.Master.ResolveChunks(ctx, path)
	if err != nil {
		return nil, err
	}

	report := newWriteReport(path)
	for _, chunkID := range chunkIDs {
		holders, err := c.Master.ResolveReplicas(ctx, chunkID)
		if err != nil {
			return report, err
		}

		report.Chunks = append(report.Chunks, chunkID)
		c.forEachReplica(ctx, "delete", chunkID, holders, report, func(nc *NodeClient) error {
			return nc.DeleteChunk(ctx, chunkID)
		})

		if err := c.Master.DeleteChunk(ctx, chunkID); err != nil && !errors.Is(err, model.ErrUnknownChunk) {
			return report, err
		}
	}

	if _, err := c.Master.DeleteFile(ctx, path); err != nil {
		return report, err
	}

	if !report.Complete() {
		log.Warnw("delete", "file", path, "status", "some replicas kept their bytes", "failures", len(report.Failures))
	}

	return report, nil
}

// List returns the registered file names starting with prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	return c.Master.ListFiles(ctx, prefix)
}

// Nodes returns the master's liveness view of every node.
func (c *Client) Nodes(ctx context.Context) ([]master.NodeHealth, error) {
	return c.Master.NodeStatus(ctx)
}
