package gateway

import (
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Addr string `envconfig:"GATEWAY_ADDR" default:":8080"`
}

func GetConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
