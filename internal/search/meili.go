package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxTrees = "treeplant_trees"

// Meili implements Searcher via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili connects to Meilisearch and configures the species index. An
// unreachable server is not an error: the health loop keeps probing.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop(10 * time.Second)
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: idxTrees, PrimaryKey: "id"}); err != nil {
		m.logger.Debug("create index (may already exist)", zap.String("index", idxTrees), zap.Error(err))
	}
	index := m.client.Index(idxTrees)

	filterable := []interface{}{"inventory"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.String("index", idxTrees), zap.Error(err))
	}
	searchable := []string{"common_name", "scientific_name"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.String("index", idxTrees), zap.Error(err))
	}
}

func (m *Meili) healthLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Swap(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) Search(_ context.Context, q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	request := &meili.SearchRequest{
		Limit:                 int64(q.limit()),
		AttributesToHighlight: []string{"common_name"},
		HighlightPreTag:       "<mark>",
		HighlightPostTag:      "</mark>",
	}
	if q.InStockOnly {
		request.Filter = "inventory > 0"
	}

	resp, err := m.client.Index(idxTrees).Search(q.Text, request)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, hitToResult(hit))
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func hitToResult(hit meili.Hit) Result {
	r := Result{
		CommonName:     decodeString(hit, "common_name"),
		ScientificName: decodeString(hit, "scientific_name"),
	}
	decodeInto(hit, "id", &r.ID)
	decodeInto(hit, "inventory", &r.Inventory)
	if formatted := decodeFormattedString(hit, "common_name"); strings.Contains(formatted, "<mark>") {
		r.Highlight = formatted
	}
	return r
}

func decodeInto(hit meili.Hit, key string, target any) {
	if raw, ok := hit[key]; ok {
		_ = json.Unmarshal(raw, target)
	}
}

func decodeString(hit meili.Hit, key string) string {
	var s string
	decodeInto(hit, key, &s)
	return s
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]any
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	value, _ := formatted[key].(string)
	return strings.TrimSpace(value)
}

// IndexTrees adds or replaces species documents.
func (m *Meili) IndexTrees(trees []TreeRecord) error {
	if len(trees) == 0 {
		return nil
	}
	_, err := m.client.Index(idxTrees).AddDocuments(trees, nil)
	return err
}

func (m *Meili) DeleteTree(id int64) error {
	_, err := m.client.Index(idxTrees).DeleteDocument(fmt.Sprint(id), nil)
	return err
}
