package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pyropy/chunkfs/core/chunkserver"
	"github.com/pyropy/chunkfs/lib/logger"
	"github.com/pyropy/chunkfs/rpc/transport"
)

var log, _ = logger.New("chunk-server-rpc")

func main() {
	if err := run(); err != nil {
		log.Fatalw("startup", "ERROR", err)
	}
}

func run() error {
	cfg, err := chunkserver.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "config error")
		return err
	}

	chunkServer, err := chunkserver.NewChunkServer(cfg)
	if err != nil {
		log.Errorw("startup", "error", "opening chunk store failed", "path", cfg.Chunks.Path)
		return err
	}

	mux, err := transport.NewHandler(chunkserver.ServiceName, chunkserver.NewChunkServerAPI(chunkServer))
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	l, err := net.Listen("tcp", addr)
	if err != nil {
		log.Errorw("startup", "error", "net listen failed")
		return err
	}

	listenAddr := l.Addr().String()

	log.Infow("startup", "status", "chunkserver rpc server started", "address", listenAddr, "chunks", len(chunkServer.GetAllChunks()))
	defer log.Infow("shutdown", "status", "chunkserver rpc server stopped", "address", listenAddr)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- http.Serve(l, mux)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-shutdown:
		log.Infow("shutdown", "status", "chunkserver rpc server stopping", "address", listenAddr)
	}

	return l.Close()
}
