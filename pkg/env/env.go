// Package env consolidates environment-variable reading for poolctl,
// generalising the teacher's PROVIDER_N_* prefixed-index convention
// (pkg/env/env.go in the original) from Usenet providers to pool
// endpoints.
package env

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// LogLevelVar is read by LogLevel; config.Load falls back to it only
	// when the merged viper configuration leaves the log level empty.
	LogLevelVar = "LOG_LEVEL"

	// EndpointPrefix namespaces prefixed-index endpoint variables:
	// POOL_1_ADDR, POOL_1_MAXSIZE, POOL_2_ADDR, ...
	EndpointPrefix = "POOL_"

	maxIndexedEndpoints = 10
)

// LogLevel returns LOG_LEVEL with a default of "info". config.Load uses it
// as the fallback when no log level is configured through viper.
func LogLevel() string {
	return getEnv(LogLevelVar, "info")
}

// Endpoint mirrors config.Endpoint so this package has no dependency on
// the config package (matching the teacher's Provider/Indexer split).
type Endpoint struct {
	Name     string
	Addr     string
	Password string
	DB       int
	MaxSize  int
	Timeout  int // seconds
	Check    int // seconds
}

// ReadEndpointsFromEnv reads POOL_1_*..POOL_10_* and returns every index
// whose ADDR was set.
func ReadEndpointsFromEnv() []Endpoint {
	var list []Endpoint
	for i := 1; i <= maxIndexedEndpoints; i++ {
		prefix := fmt.Sprintf("%s%d_", EndpointPrefix, i)
		addr := os.Getenv(prefix + "ADDR")
		if addr == "" {
			continue
		}
		list = append(list, Endpoint{
			Name:     getEnv(prefix+"NAME", fmt.Sprintf("endpoint-%d", i)),
			Addr:     addr,
			Password: os.Getenv(prefix + "PASSWORD"),
			DB:       getEnvInt(prefix+"DB", 0),
			MaxSize:  getEnvInt(prefix+"MAXSIZE", 20),
			Timeout:  getEnvInt(prefix+"TIMEOUT", 5),
			Check:    getEnvInt(prefix+"CHECK", 0),
		})
	}
	return list
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}

