package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the binaries read from the environment. Flags
// override these values.
type Config struct {
	Addr        string
	MetricsAddr string
	MaxClients  int

	Host     string
	Port     string
	Username string
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

// Load reads the environment after merging an optional .env file. A
// missing .env is not an error.
func Load() Config {
	_ = godotenv.Load()

	maxClients, err := strconv.Atoi(getenv("CHAT_MAX_CLIENTS", "50"))
	if err != nil || maxClients <= 0 {
		maxClients = 50
	}
	return Config{
		Addr:        getenv("CHAT_ADDR", ":5000"),
		MetricsAddr: getenv("CHAT_METRICS_ADDR", ":9090"),
		MaxClients:  maxClients,
		Host:        getenv("CHAT_HOST", "localhost"),
		Port:        getenv("CHAT_PORT", "5000"),
		Username:    getenv("CHAT_USERNAME", ""),
	}
}

// ParsePort validates a user-supplied port string.
func ParsePort(s string) (int, error) {
	p, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("port %q is not a number", s)
	}
	if p <= 0 || p > 65535 {
		return 0, fmt.Errorf("port %d out of range", p)
	}
	return p, nil
}
