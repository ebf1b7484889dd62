package client

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Master struct {
		Addr string `envconfig:"MASTER_ADDR" default:"localhost:4531"`
	}
	Call struct {
		Timeout time.Duration `envconfig:"CALL_TIMEOUT" default:"5s"`
	}
	Write struct {
		Retries uint64 `envconfig:"WRITE_RETRIES" default:"2"`
	}
	Breaker struct {
		Failures uint32        `envconfig:"BREAKER_FAILURES" default:"3"`
		Timeout  time.Duration `envconfig:"BREAKER_TIMEOUT" default:"10s"`
	}
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
