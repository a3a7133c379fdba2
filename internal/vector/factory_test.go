package vector

import (
	"testing"

	"github.com/hyperjump/hybridsearch/internal/config"
)

func TestNewVectorEngine_Memory(t *testing.T) {
	eng, err := NewVectorEngine(&config.VectorConfig{Backend: "memory"}, 3, nil)
	if err != nil {
		t.Fatalf("NewVectorEngine(memory): %v", err)
	}
	defer eng.Close()
	if _, ok := eng.(*MemoryIndex); !ok {
		t.Fatalf("expected *MemoryIndex, got %T", eng)
	}
}

func TestNewVectorEngine_QdrantDefault(t *testing.T) {
	eng, err := NewVectorEngine(&config.VectorConfig{URL: "http://localhost:6333", Collection: "docs_vec"}, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := eng.(*QdrantClient); !ok {
		t.Errorf("empty backend should default to qdrant, got %T", eng)
	}
}

func TestNewVectorEngine_None(t *testing.T) {
	eng, err := NewVectorEngine(&config.VectorConfig{Backend: "none"}, 3, nil)
	if err != nil || eng != nil {
		t.Errorf("none backend: got %v, %v", eng, err)
	}
}

func TestNewVectorEngine_Unknown(t *testing.T) {
	if _, err := NewVectorEngine(&config.VectorConfig{Backend: "faiss"}, 3, nil); err == nil {
		t.Error("expected error for unknown backend")
	}
}
