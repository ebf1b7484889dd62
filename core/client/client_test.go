package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/pyropy/chunkfs/core/chunkserver"
	masterCore "github.com/pyropy/chunkfs/core/master"
	"github.com/pyropy/chunkfs/core/model"
	"github.com/pyropy/chunkfs/rpc/transport"
)

type testCluster struct {
	master  *masterCore.Master
	servers map[model.NodeID]*httptest.Server
	stores  map[model.NodeID]*chunkserver.ChunkServer
	client  *Client
}

func newTestCluster(t *testing.T) *testCluster {
	t.Helper()

	tc := &testCluster{
		servers: map[model.NodeID]*httptest.Server{},
		stores:  map[model.NodeID]*chunkserver.ChunkServer{},
	}
	registry := model.NodeRegistry{}

	for i := 0; i < 3; i++ {
		id := fmt.Sprint(i)

		csCfg := &chunkserver.Config{}
		csCfg.Chunks.Path = t.TempDir()
		csCfg.Cache.Size = 16

		cs, err := chunkserver.NewChunkServer(csCfg)
		if err != nil {
			t.Fatal(err)
		}

		mux, err := transport.NewHandler(chunkserver.ServiceName, chunkserver.NewChunkServerAPI(cs))
		if err != nil {
			t.Fatal(err)
		}

		srv := httptest.NewServer(mux)
		t.Cleanup(srv.Close)

		tc.servers[id] = srv
		tc.stores[id] = cs
		registry[id] = srv.Listener.Addr().String()
	}

	mCfg := &masterCore.Config{}
	mCfg.Chunks.Size = 8
	mCfg.Chunks.ReplicationFactor = 2
	mCfg.Nodes = registry
	tc.master = masterCore.NewMaster(mCfg)

	mux, err := transport.NewHandler(masterCore.ServiceName, masterCore.NewMasterAPI(tc.master))
	if err != nil {
		t.Fatal(err)
	}

	masterSrv := httptest.NewServer(mux)
	t.Cleanup(masterSrv.Close)

	cfg := &Config{}
	cfg.Master.Addr = masterSrv.Listener.Addr().String()
	cfg.Call.Timeout = 2 * time.Second
	cfg.Write.Retries = 0
	cfg.Breaker.Failures = 3
	cfg.Breaker.Timeout = time.Minute

	tc.client, err = NewClient(context.Background(), cfg)
	if err != nil {
		t.Fatal(err)
	}

	return tc
}

func TestCreateReadRoundTrip(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()
	source := []byte("ABCDEFGHIJKLMNOPQRSTUVWXYZ")

	if tc.client.ChunkSize() != 8 {
		t.Fatalf("chunk size = %d", tc.client.ChunkSize())
	}

	for _, n := range []int{0, 5, 8, 9, 17} {
		name := fmt.Sprintf("/file-%d", n)
		data := source[:n]

		report, err := tc.client.Create(ctx, name, data)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}

		if !report.Complete() {
			t.Fatalf("create %s: failures %v", name, report.Failures)
		}

		chunks, err := tc.master.ResolveChunks(name)
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != model.ChunkCount(n, 8) {
			t.Fatalf("%s has %d chunks, want %d", name, len(chunks), model.ChunkCount(n, 8))
		}

		got, err := tc.client.Read(ctx, name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}

		if !bytes.Equal(got, data) {
			t.Fatalf("read %s = %q, want %q", name, got, data)
		}
	}
}

func TestCreateExistingFile(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	if _, err := tc.client.Create(ctx, "/a", []byte("one")); err != nil {
		t.Fatal(err)
	}

	if _, err := tc.client.Create(ctx, "/a", []byte("two")); !errors.Is(err, model.ErrFileExists) {
		t.Fatalf("err = %v, want ErrFileExists", err)
	}
}

func TestMissingFile(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	if _, err := tc.client.Read(ctx, "/missing"); !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("read err = %v, want ErrFileNotFound", err)
	}

	if _, err := tc.client.Append(ctx, "/missing", []byte("x")); !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("append err = %v, want ErrFileNotFound", err)
	}

	if _, err := tc.client.Delete(ctx, "/missing"); !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("delete err = %v, want ErrFileNotFound", err)
	}
}

func TestAppend(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	if _, err := tc.client.Create(ctx, "/log", []byte("ABCDEFGH")); err != nil {
		t.Fatal(err)
	}

	if _, err := tc.client.Append(ctx, "/log", []byte("IJ")); err != nil {
		t.Fatal(err)
	}

	got, err := tc.client.Read(ctx, "/log")
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "ABCDEFGHIJ" {
		t.Fatalf("read %q", got)
	}

	chunks, err := tc.master.ResolveChunks("/log")
	if err != nil {
		t.Fatal(err)
	}
	if len(chunks) != 2 {
		t.Fatalf("file has %d chunks, want 2", len(chunks))
	}
}

func TestReadSurvivesOneNodeDown(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()
	data := []byte("the quick brown fox jumps")

	if _, err := tc.client.Create(ctx, "/fox", data); err != nil {
		t.Fatal(err)
	}

	tc.servers["1"].Close()

	got, err := tc.client.Read(ctx, "/fox")
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(got, data) {
		t.Fatalf("read %q, want %q", got, data)
	}

	report, err := tc.client.Create(ctx, "/fox2", data)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.Lost()) != 0 {
		t.Fatalf("chunks lost with one node down: %v", report.Lost())
	}

	for _, f := range report.Failures {
		if f.NodeID != "1" || !errors.Is(f.Err, model.ErrNodeUnreachable) {
			t.Fatalf("unexpected failure %+v", f)
		}
	}

	if len(report.UnderReplicated()) != len(report.Failures) {
		t.Fatalf("under-replicated %v, failures %v", report.UnderReplicated(), report.Failures)
	}
}

func TestReadReportsMissingChunks(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	if _, err := tc.client.Create(ctx, "/gone", []byte("0123456789abcdefg")); err != nil {
		t.Fatal(err)
	}

	for _, srv := range tc.servers {
		srv.Close()
	}

	got, err := tc.client.Read(ctx, "/gone")

	var partial *PartialReadError
	if !errors.As(err, &partial) {
		t.Fatalf("err = %v, want *PartialReadError", err)
	}

	if len(partial.Missing) != 3 || len(got) != 0 {
		t.Fatalf("missing %v, got %q", partial.Missing, got)
	}
}

func TestDeleteRemovesEverything(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	created, err := tc.client.Create(ctx, "/doomed", []byte("0123456789abcdefg"))
	if err != nil {
		t.Fatal(err)
	}

	report, err := tc.client.Delete(ctx, "/doomed")
	if err != nil {
		t.Fatal(err)
	}

	if !report.Complete() || len(report.Chunks) != 3 {
		t.Fatalf("delete report %+v", report)
	}

	if _, err := tc.client.Read(ctx, "/doomed"); !errors.Is(err, model.ErrFileNotFound) {
		t.Fatalf("err = %v, want ErrFileNotFound", err)
	}

	for _, id := range created.Chunks {
		if _, err := tc.master.ResolveReplicas(id); !errors.Is(err, model.ErrUnknownChunk) {
			t.Fatalf("chunk %s still resolvable: %v", id, err)
		}
	}

	for id, cs := range tc.stores {
		if chunks := cs.GetAllChunks(); len(chunks) != 0 {
			t.Fatalf("node %s still holds %d chunks", id, len(chunks))
		}
	}
}

func TestConcurrentCreateSameName(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	const writers = 8
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		winner = -1
		errs   []error
	)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			_, err := tc.client.Create(ctx, "/race", []byte(fmt.Sprintf("writer-%d", i)))

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				if winner != -1 {
					t.Errorf("writers %d and %d both created the file", winner, i)
				}
				winner = i
				return
			}
			errs = append(errs, err)
		}(i)
	}

	wg.Wait()

	if winner == -1 {
		t.Fatal("no writer succeeded")
	}

	for _, err := range errs {
		if !errors.Is(err, model.ErrFileExists) {
			t.Fatalf("err = %v, want ErrFileExists", err)
		}
	}

	got, err := tc.client.Read(ctx, "/race")
	if err != nil {
		t.Fatal(err)
	}

	if want := fmt.Sprintf("writer-%d", winner); string(got) != want {
		t.Fatalf("read %q, want %q", got, want)
	}
}

func TestListAndNodes(t *testing.T) {
	tc := newTestCluster(t)
	ctx := context.Background()

	for _, name := range []string{"/b/2", "/a/1", "/b/1"} {
		if _, err := tc.client.Create(ctx, name, []byte(name)); err != nil {
			t.Fatal(err)
		}
	}

	files, err := tc.client.List(ctx, "/b/")
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 || files[0] != "/b/1" || files[1] != "/b/2" {
		t.Fatalf("List = %v", files)
	}

	nodes, err := tc.client.Nodes(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if len(nodes) != 3 {
		t.Fatalf("Nodes = %v", nodes)
	}
}
