package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	masterCore "github.com/pyropy/chunkfs/core/master"
	"github.com/pyropy/chunkfs/lib/logger"
	"github.com/pyropy/chunkfs/rpc/transport"
)

var log, _ = logger.New("master")

func main() {
	if err := run(); err != nil {
		log.Fatalw("startup", "ERROR", err)
	}
}

func run() error {
	cfg, err := masterCore.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "config error")
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	master := masterCore.NewMaster(cfg)

	snapshots, err := masterCore.OpenSnapshotStore(cfg.Snapshot.Path)
	if err != nil {
		return err
	}
	defer snapshots.Close()

	snap, err := snapshots.Load(ctx)
	if err != nil {
		log.Errorw("startup", "error", "loading snapshot failed", "path", cfg.Snapshot.Path)
		return err
	}

	if snap != nil {
		master.Restore(snap)
		log.Infow("startup", "status", "snapshot restored", "takenAt", snap.TakenAt, "files", len(snap.Files), "chunks", len(snap.Chunks))
		if degraded := master.CheckReplicaSets(); len(degraded) > 0 {
			log.Warnw("startup", "status", "chunks with degraded replica sets", "chunks", degraded)
		}
	}

	mux, err := transport.NewHandler(masterCore.ServiceName, masterCore.NewMasterAPI(master))
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorw("startup", "error", "net listen failed")
		return err
	}

	log.Infow("startup", "status", "master rpc server started", "address", l.Addr().String(), "nodes", cfg.Nodes.String())
	defer log.Infow("shutdown", "status", "master rpc server stopped", "address", l.Addr().String())

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- http.Serve(l, mux)
	}()

	log.Infow("startup", "status", "starting liveness monitor", "interval", cfg.Probe.Interval)
	monitor := masterCore.NewLivenessMonitor(master.ChunkServers(), masterCore.RPCProber{}, cfg.Probe.Interval, cfg.Probe.Timeout)
	go func() {
		if err := monitor.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Errorw("liveness", "error", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-shutdown:
		log.Infow("shutdown", "status", "master rpc server stopping", "address", l.Addr().String())
	}

	cancel()
	l.Close()

	return snapshots.Save(context.Background(), master.Snapshot())
}
