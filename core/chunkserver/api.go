package chunkserver

import (
	"context"

	rpc "github.com/pyropy/chunkfs/rpc/chunkserver"
)

const ServiceName = rpc.ServiceName

type ChunkServerAPI struct {
	server *ChunkServer
}

func NewChunkServerAPI(chunkServer *ChunkServer) *ChunkServerAPI {
	return &ChunkServerAPI{
		server: chunkServer,
	}
}

// WriteChunk ...
func (a *ChunkServerAPI) WriteChunk(args *rpc.WriteChunkArgs, reply *rpc.WriteChunkReply) error {
	log.Infow("rpc", "event", "ChunkServerAPI.WriteChunk", "chunkID", args.ChunkID, "size", len(args.Data))

	bytesWritten, err := a.server.WriteChunk(args.ChunkID, args.Data, args.CheckSum)
	if err != nil {
		log.Errorw("rpc", "event", "ChunkServerAPI.WriteChunk", "chunkID", args.ChunkID, "err", err)
		return err
	}

	reply.BytesWritten = bytesWritten
	return nil
}

// ReadChunk ...
func (a *ChunkServerAPI) ReadChunk(args *rpc.ReadChunkArgs, reply *rpc.ReadChunkReply) error {
	log.Infow("rpc", "event", "ChunkServerAPI.ReadChunk", "chunkID", args.ChunkID)

	data, sum, err := a.server.ReadChunk(args.ChunkID)
	if err != nil {
		return err
	}

	reply.Data = data
	reply.CheckSum = sum
	return nil
}

// DeleteChunk ...
func (a *ChunkServerAPI) DeleteChunk(args *rpc.DeleteChunkArgs, reply *rpc.DeleteChunkReply) error {
	log.Infow("rpc", "event", "ChunkServerAPI.DeleteChunk", "chunkID", args.ChunkID)

	deleted, err := a.server.DeleteChunk(args.ChunkID)
	if err != nil {
		return err
	}

	reply.Deleted = deleted
	return nil
}

// HealthCheck ...
func (a *ChunkServerAPI) HealthCheck(args *rpc.HealthCheckArgs, reply *rpc.HealthCheckReply) error {
	log.Debugw("rpc", "event", "ChunkServerAPI.HealthCheck", "caller", args.Caller)

	report := a.server.Health(context.Background())
	reply.Status = report.Status
	reply.NumChunks = report.NumChunks
	reply.DiskUsedPercent = report.DiskUsedPercent

	return nil
}
