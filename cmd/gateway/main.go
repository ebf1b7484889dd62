package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pyropy/chunkfs/core/client"
	"github.com/pyropy/chunkfs/core/gateway"
	"github.com/pyropy/chunkfs/lib/logger"
)

var log, _ = logger.New("gateway")

func main() {
	if err := run(); err != nil {
		log.Fatalw("startup", "ERROR", err)
	}
}

func run() error {
	cfg, err := gateway.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "config error")
		return err
	}

	clientCfg, err := client.GetConfig()
	if err != nil {
		log.Errorw("startup", "error", "client config error")
		return err
	}

	c, err := client.NewClient(context.Background(), clientCfg)
	if err != nil {
		log.Errorw("startup", "error", "master unreachable", "master", clientCfg.Master.Addr)
		return err
	}

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: gateway.NewServer(c).Handler(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Infow("startup", "status", "gateway started", "address", cfg.Addr, "master", clientCfg.Master.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case <-shutdown:
		log.Infow("shutdown", "status", "gateway stopping")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			srv.Close()
			return fmt.Errorf("could not stop gateway gracefully: %w", err)
		}
	}

	return nil
}
