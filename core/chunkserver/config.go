package chunkserver

import "github.com/kelseyhightower/envconfig"

type Config struct {
	Server struct {
		Host string `envconfig:"SERVER_HOST" default:"localhost"`
		Port int    `envconfig:"SERVER_PORT" default:"8010"`
	}
	Chunks struct {
		Path string `envconfig:"CHUNK_PATH" default:"chunks"`
	}
	Cache struct {
		Size int `envconfig:"CACHE_SIZE" default:"100"`
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
