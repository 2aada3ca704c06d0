package search

import "context"

// Result is one species hit.
type Result struct {
	ID             int64  `json:"id"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	Inventory      int    `json:"inventory"`
	// Highlight marks the matched text with <mark> when the engine provides it.
	Highlight string `json:"highlight,omitempty"`
}

type Query struct {
	Text        string
	InStockOnly bool
	Limit       int
}

// Response is the envelope returned by the species search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Source  string   `json:"source"`
}

// TreeRecord is the data indexed per species.
type TreeRecord struct {
	ID             int64  `json:"id"`
	CommonName     string `json:"common_name"`
	ScientificName string `json:"scientific_name"`
	Inventory      int    `json:"inventory"`
}

type Searcher interface {
	Search(ctx context.Context, q Query) ([]Result, int, error)
	Healthy() bool
}

const defaultLimit = 20

func (q Query) limit() int {
	if q.Limit <= 0 || q.Limit > 100 {
		return defaultLimit
	}
	return q.Limit
}
