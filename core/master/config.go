package master

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pyropy/chunkfs/core/model"
)

type Config struct {
	Server struct {
		Host string `envconfig:"MASTER_HOST" default:""`
		Port int    `envconfig:"MASTER_PORT" default:"4531"`
	}
	Chunks struct {
		Size              int `envconfig:"CHUNK_SIZE" default:"8"`
		ReplicationFactor int `envconfig:"REPLICATION_FACTOR" default:"2"`
	}
	Nodes model.NodeRegistry `envconfig:"NODES" default:"0=localhost:8010,1=localhost:8020,2=localhost:8030"`
	Probe struct {
		Interval time.Duration `envconfig:"PROBE_INTERVAL" default:"5s"`
		Timeout  time.Duration `envconfig:"PROBE_TIMEOUT" default:"2s"`
	}
	Snapshot struct {
		Path string `envconfig:"SNAPSHOT_PATH" default:"gfs.img"`
	}
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Chunks.Size <= 0:
		return fmt.Errorf("%w: chunk size must be positive, got %d", model.ErrInvalidArgument, c.Chunks.Size)
	case c.Chunks.ReplicationFactor <= 0:
		return fmt.Errorf("%w: replication factor must be positive, got %d", model.ErrInvalidArgument, c.Chunks.ReplicationFactor)
	case c.Chunks.ReplicationFactor > len(c.Nodes):
		return fmt.Errorf("%w: replication factor %d exceeds %d registered nodes", model.ErrInsufficientReplicas, c.Chunks.ReplicationFactor, len(c.Nodes))
	case c.Probe.Interval <= 0:
		return fmt.Errorf("%w: probe interval must be positive", model.ErrInvalidArgument)
	}

	return nil
}
