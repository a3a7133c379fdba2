package vector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantClient_Search(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs_vec/points/search", r.URL.Path)
		var req qdrantSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 50, req.Limit)
		assert.True(t, req.WithPayload)
		assert.Len(t, req.Vector, 2)
		_, _ = w.Write([]byte(`{"status":"ok","result":[
			{"id":7,"score":0.91,"payload":{"id":"doc-b","title":"B","url_or_path":"/b","source_type":"web"}},
			{"id":"8f7f2a4e-1111-2222-3333-444455556666","score":0.5,"payload":{"title":"C"}},
			{"id":3,"score":0.2,"payload":{}}
		]}`))
	}))
	defer srv.Close()

	c := NewQdrantClient(srv.URL, "docs_vec", nil)
	defer c.Close()
	res, err := c.Search(context.Background(), []float32{0.1, 0.2}, 50)
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, "doc-b", res[0].ID, "payload id wins over point id")
	assert.Equal(t, 0.91, res[0].RawScore)
	assert.Equal(t, "web", res[0].SourceType)
	assert.Equal(t, "8f7f2a4e-1111-2222-3333-444455556666", res[1].ID)
	assert.Equal(t, "3", res[2].ID)
}

func TestQdrantClient_Failures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	_, err := NewQdrantClient(srv.URL, "missing", nil).Search(context.Background(), []float32{1}, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
	srv.Close()

	_, err = NewQdrantClient(srv.URL, "missing", nil).Search(context.Background(), []float32{1}, 5)
	assert.ErrorIs(t, err, ErrUnavailable)
}
