package search

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/models"
)

type fakeES struct {
	mu   sync.Mutex
	docs map[string]map[string]any
}

func (f *fakeES) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")

	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	switch {
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodPut:
		var doc map[string]any
		_ = json.NewDecoder(r.Body).Decode(&doc)
		f.docs[parts[2]] = doc
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"result":"created"}`)
	case len(parts) == 3 && parts[1] == "_doc" && r.Method == http.MethodDelete:
		if _, ok := f.docs[parts[2]]; !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"result":"not_found"}`)
			return
		}
		delete(f.docs, parts[2])
		_, _ = io.WriteString(w, `{"result":"deleted"}`)
	case len(parts) == 2 && parts[1] == "_search":
		var req struct {
			Query struct {
				MultiMatch struct {
					Query string `json:"query"`
				} `json:"multi_match"`
			} `json:"query"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		type hit struct {
			ID string `json:"_id"`
		}
		hits := []hit{}
		for id, doc := range f.docs {
			if strings.Contains(strings.ToLower(doc["title"].(string)), strings.ToLower(req.Query.MultiMatch.Query)) {
				hits = append(hits, hit{ID: id})
			}
		}
		out := map[string]any{"hits": map[string]any{"total": map[string]any{"value": len(hits)}, "hits": hits}}
		_ = json.NewEncoder(w).Encode(out)
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":"unexpected"}`)
	}
}

func newTestIndex(t *testing.T) (*ProductIndex, *fakeES) {
	t.Helper()
	fake := &fakeES{docs: map[string]map[string]any{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewProductIndex(es, ""), fake
}

func TestProductIndex_IndexSearchDelete(t *testing.T) {
	idx, fake := newTestIndex(t)
	ctx := context.Background()

	lamp := &models.Product{ID: uuid.New(), Title: "Desk Lamp", Code: "L1", Price: decimal.RequireFromString("19.99")}
	chair := &models.Product{ID: uuid.New(), Title: "Chair", Code: "C1", Price: decimal.NewFromInt(50)}
	require.NoError(t, idx.IndexProduct(ctx, lamp))
	require.NoError(t, idx.IndexProduct(ctx, chair))
	assert.Len(t, fake.docs, 2)
	assert.InDelta(t, 19.99, fake.docs[lamp.ID.String()]["price"], 0.001)

	total, ids, err := idx.Search(ctx, "lamp", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, []uuid.UUID{lamp.ID}, ids)

	require.NoError(t, idx.DeleteProduct(ctx, lamp.ID))
	require.NoError(t, idx.DeleteProduct(ctx, lamp.ID))
	assert.Len(t, fake.docs, 1)
}
