// Package config loads pipeline configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	LogLevel   string
	LogConsole bool

	// CacheBackend selects the collection cache store: fs, memory, or redis.
	CacheBackend string
	CacheDir     string
	RedisAddr    string
	LRUSize      int

	// MetricsAddr enables the scrape endpoint when non-empty.
	MetricsAddr string

	// Input data sources for the analyses.
	StationsCSV   string
	CatchmentsShp string
	CatchmentsCRS string
	BECGeoPackage string
	BECLayers     []string

	// TargetCRS is the metric CRS everything is analyzed in.
	TargetCRS string
	// BufferMeters is the catchment buffer distance of the proximity search.
	BufferMeters float64

	OutputDir   string
	LoadTimeout time.Duration
}

func FromEnv() Config {
	return Config{
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),

		CacheBackend: getenv("CACHE_BACKEND", "fs"),
		CacheDir:     getenv("CACHE_DIR", "data/cache"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		LRUSize:      getint("CACHE_LRU_SIZE", 16),

		MetricsAddr: getenv("METRICS_ADDR", ""),

		StationsCSV:   getenv("STATIONS_CSV", "data/station-inventory.csv"),
		CatchmentsShp: getenv("CATCHMENTS_SHP", "data/catchments/catchments.shp"),
		CatchmentsCRS: getenv("CATCHMENTS_CRS", ""),
		BECGeoPackage: getenv("BEC_GPKG", "data/bec.gpkg"),
		BECLayers:     getlist("BEC_LAYERS", "bec_zones"),

		TargetCRS:    getenv("TARGET_CRS", "EPSG:3005"),
		BufferMeters: getfloat("BUFFER_METERS", 5000),

		OutputDir:   getenv("OUTPUT_DIR", "out"),
		LoadTimeout: getduration("LOAD_TIMEOUT", 5*time.Minute),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if x, err := strconv.ParseFloat(v, 64); err == nil {
			return x
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		return strings.EqualFold(v, "true") || v == "1"
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getlist(k, def string) []string {
	v := os.Getenv(k)
	if v == "" {
		v = def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
