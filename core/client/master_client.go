package client

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/rpc/master"
	"github.com/pyropy/chunkfs/rpc/transport"
)

// MasterClient calls MasterAPI. Every call dials, runs under the call
// timeout and returns master errors with their model sentinel intact.
type MasterClient struct {
	addr    string
	timeout time.Duration
}

func NewMasterClient(addr string, timeout time.Duration) *MasterClient {
	return &MasterClient{
		addr:    addr,
		timeout: timeout,
	}
}

func (m *MasterClient) call(ctx context.Context, method string, args any, reply any) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	return transport.Call(ctx, m.addr, "MasterAPI."+method, args, reply)
}

func (m *MasterClient) ChunkSize(ctx context.Context) (int, error) {
	var reply master.ChunkSizeReply
	err := m.call(ctx, "ChunkSize", &master.ChunkSizeArgs{Caller: "client"}, &reply)
	return reply.ChunkSize, err
}

func (m *MasterClient) NodeRegistry(ctx context.Context) ([]model.Node, error) {
	var reply master.NodeRegistryReply
	err := m.call(ctx, "NodeRegistry", &master.NodeRegistryArgs{Caller: "client"}, &reply)
	return reply.Nodes, err
}

func (m *MasterClient) NodeStatus(ctx context.Context) ([]master.NodeHealth, error) {
	var reply master.NodeStatusReply
	err := m.call(ctx, "NodeStatus", &master.NodeStatusArgs{Caller: "client"}, &reply)
	return reply.Nodes, err
}

func (m *MasterClient) Exists(ctx context.Context, path string) (bool, error) {
	var reply master.ExistsReply
	err := m.call(ctx, "Exists", &master.ExistsArgs{Path: path}, &reply)
	return reply.Exists, err
}

func (m *MasterClient) Allocate(ctx context.Context, path string, numChunks int) ([]uuid.UUID, error) {
	var reply master.AllocateReply
	err := m.call(ctx, "Allocate", &master.AllocateArgs{Path: path, NumChunks: numChunks}, &reply)
	return reply.Chunks, err
}

func (m *MasterClient) AllocateAppend(ctx context.Context, path string, numChunks int) ([]uuid.UUID, error) {
	var reply master.AllocateReply
	err := m.call(ctx, "AllocateAppend", &master.AllocateArgs{Path: path, NumChunks: numChunks}, &reply)
	return reply.Chunks, err
}

func (m *MasterClient) ResolveChunks(ctx context.Context, path string) ([]uuid.UUID, error) {
	var reply master.ResolveChunksReply
	err := m.call(ctx, "ResolveChunks", &master.ResolveChunksArgs{Path: path}, &reply)
	return reply.Chunks, err
}

func (m *MasterClient) ResolveReplicas(ctx context.Context, chunkID uuid.UUID) ([]model.NodeID, error) {
	var reply master.ResolveReplicasReply
	err := m.call(ctx, "ResolveReplicas", &master.ResolveReplicasArgs{ChunkID: chunkID}, &reply)
	return reply.ChunkServers, err
}

func (m *MasterClient) DeleteChunk(ctx context.Context, chunkID uuid.UUID) error {
	var reply master.DeleteChunkReply
	return m.call(ctx, "DeleteChunk", &master.DeleteChunkArgs{ChunkID: chunkID}, &reply)
}

func (m *MasterClient) DeleteFile(ctx context.Context, path string) (int, error) {
	var reply master.DeleteFileReply
	err := m.call(ctx, "DeleteFile", &master.DeleteFileArgs{Path: path}, &reply)
	return reply.NumChunks, err
}

func (m *MasterClient) ListFiles(ctx context.Context, prefix string) ([]string, error) {
	var reply master.ListFilesReply
	err := m.call(ctx, "ListFiles", &master.ListFilesArgs{Prefix: prefix}, &reply)
	return reply.Files, err
}
