// Package config provides runtime configuration values for the server.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds configuration knobs for the HTTP server and storage.
type Config struct {
	HTTPAddr          string
	StoreDriver       string // "sqlite" or "file"
	DataPath          string
	LowStockThreshold int
	ShutdownTimeout   time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := getenv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvs(key string, defSec int) time.Duration {
	sec := atoienv(key, defSec)
	return time.Duration(sec) * time.Second
}

// Load collects configuration from environment with defaults.
func Load() Config {
	return Config{
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		StoreDriver:       getenv("STORE_DRIVER", "sqlite"),
		DataPath:          getenv("DATA_PATH", "data"),
		LowStockThreshold: atoienv("LOW_STOCK_THRESHOLD", 10),
		ShutdownTimeout:   durenvs("SHUTDOWN_TIMEOUT", 5),
	}
}
