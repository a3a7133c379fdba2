package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are skipped; variables already set are not overridden.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides cfg with the environment variables understood by the service.
// getenv is usually os.Getenv. Malformed numeric values are reported, not ignored.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}
	setString(&cfg.Server.Host, "HOST")
	setString(&cfg.Lexical.URL, "MEILI_URL")
	setString(&cfg.Lexical.APIKey, "MEILI_MASTER_KEY")
	setString(&cfg.Lexical.Index, "MEILI_INDEX")
	setString(&cfg.Vector.URL, "QDRANT_URL")
	setString(&cfg.Vector.Collection, "QDRANT_COLLECTION")
	setString(&cfg.Embedding.URL, "EMBEDDING_URL")
	setString(&cfg.Embedding.Model, "EMBEDDING_MODEL")
	setString(&cfg.Storage.SeedPath, "SEED_PATH")

	if v := getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		cfg.Server.CORSOrigins = origins
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"PORT", &cfg.Server.Port},
		{"EMBEDDING_DIM", &cfg.Embedding.Dimensions},
		{"LIMIT", &cfg.Search.DefaultLimit},
		{"RESULTS_LIMIT_MAX", &cfg.Search.MaxLimit},
	}
	for _, it := range ints {
		v := getenv(it.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", it.key, v, err)
		}
		*it.dst = n
	}

	for _, k := range []string{"ALPHA_DEFAULT", "ALPHA"} {
		v := getenv(k)
		if v == "" {
			continue
		}
		a, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", k, v, err)
		}
		cfg.Search.DefaultAlpha = &a
		break
	}
	return nil
}
