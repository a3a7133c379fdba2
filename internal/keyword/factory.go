package keyword

import (
	"fmt"
	"net/http"

	"github.com/hyperjump/hybridsearch/internal/config"
)

// NewLexicalEngine creates the lexical engine selected by cfg.Backend.
func NewLexicalEngine(cfg *config.LexicalConfig, httpClient *http.Client) (LexicalEngine, error) {
	switch cfg.Backend {
	case config.LexicalMeili, "":
		return NewMeiliClient(cfg.URL, cfg.APIKey, cfg.Index, httpClient), nil
	case config.LexicalBleve:
		if cfg.BleveIndexPath == "" {
			return nil, fmt.Errorf("lexical.bleve_index_path is required for the bleve backend")
		}
		return NewBleveIndex(cfg.BleveIndexPath)
	default:
		return nil, fmt.Errorf("unknown lexical backend: %s (supported: meili, bleve)", cfg.Backend)
	}
}
