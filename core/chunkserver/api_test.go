package chunkserver

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/lib/checksum"
	rpc "github.com/pyropy/chunkfs/rpc/chunkserver"
	"github.com/pyropy/chunkfs/rpc/transport"
)

func TestChunkServerAPIOverRPC(t *testing.T) {
	mux, err := transport.NewHandler(ServiceName, NewChunkServerAPI(newTestChunkServer(t)))
	if err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(mux)
	defer srv.Close()

	addr := srv.Listener.Addr().String()
	ctx := context.Background()
	id := uuid.New()
	data := []byte("over the wire")

	var writeReply rpc.WriteChunkReply
	err = transport.Call(ctx, addr, "ChunkServerAPI.WriteChunk", &rpc.WriteChunkArgs{
		ChunkID:  id,
		Data:     data,
		CheckSum: checksum.CalculateCheckSum(data),
	}, &writeReply)
	if err != nil {
		t.Fatal(err)
	}

	var readReply rpc.ReadChunkReply
	if err := transport.Call(ctx, addr, "ChunkServerAPI.ReadChunk", &rpc.ReadChunkArgs{ChunkID: id}, &readReply); err != nil {
		t.Fatal(err)
	}

	if string(readReply.Data) != string(data) {
		t.Fatalf("read %q", readReply.Data)
	}

	var deleteReply rpc.DeleteChunkReply
	if err := transport.Call(ctx, addr, "ChunkServerAPI.DeleteChunk", &rpc.DeleteChunkArgs{ChunkID: id}, &deleteReply); err != nil {
		t.Fatal(err)
	}

	err = transport.Call(ctx, addr, "ChunkServerAPI.ReadChunk", &rpc.ReadChunkArgs{ChunkID: id}, &rpc.ReadChunkReply{})
	if !errors.Is(err, model.ErrChunkNotFound) {
		t.Fatalf("err = %v, want ErrChunkNotFound", err)
	}

	var health rpc.HealthCheckReply
	if err := transport.Call(ctx, addr, "ChunkServerAPI.HealthCheck", &rpc.HealthCheckArgs{Caller: "test"}, &health); err != nil {
		t.Fatal(err)
	}

	if health.Status != 200 {
		t.Fatalf("health status = %d", health.Status)
	}
}
