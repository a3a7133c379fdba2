package config

import "time"

const defaultAlpha = 0.6

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.CORSOrigins == nil {
		cfg.Server.CORSOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Lexical.Backend == "" {
		cfg.Lexical.Backend = LexicalMeili
	}
	if cfg.Lexical.URL == "" {
		cfg.Lexical.URL = "http://localhost:7700"
	}
	if cfg.Lexical.APIKey == "" {
		cfg.Lexical.APIKey = "master"
	}
	if cfg.Lexical.Index == "" {
		cfg.Lexical.Index = "docs"
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = VectorQdrant
	}
	if cfg.Vector.URL == "" {
		cfg.Vector.URL = "http://localhost:6333"
	}
	if cfg.Vector.Collection == "" {
		cfg.Vector.Collection = "docs_vec"
	}
	if cfg.Embedding.Backend == "" {
		cfg.Embedding.Backend = EmbedderHTTP
	}
	if cfg.Embedding.URL == "" {
		cfg.Embedding.URL = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "all-minilm"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Search.DefaultAlpha == nil {
		a := defaultAlpha
		cfg.Search.DefaultAlpha = &a
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 50
	}
	if cfg.Search.FetchLimit == 0 {
		cfg.Search.FetchLimit = 50
	}
	if cfg.Search.BackendTimeout == 0 {
		cfg.Search.BackendTimeout = 15 * time.Second
	}
}
