package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS searches the trees table directly. It backs species search whenever
// Meilisearch is unreachable.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true; without Postgres the API is down anyway.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search matches name substrings and full-text tokens, best match first.
func (p *PgFTS) Search(ctx context.Context, q Query) ([]Result, int, error) {
	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, 0, nil
	}

	where := `
		(common_name ILIKE '%' || $1 || '%'
		 OR scientific_name ILIKE '%' || $1 || '%'
		 OR to_tsvector('simple', common_name || ' ' || scientific_name) @@ plainto_tsquery('simple', $1))`
	if q.InStockOnly {
		where += " AND inventory > 0"
	}

	var total int
	if err := p.db.QueryRowContext(ctx, `SELECT count(*) FROM trees WHERE `+where, text).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, common_name, scientific_name, inventory
		FROM trees
		WHERE %s
		ORDER BY (common_name ILIKE $1 || '%%') DESC,
		         ts_rank(to_tsvector('simple', common_name || ' ' || scientific_name), plainto_tsquery('simple', $1)) DESC,
		         common_name
		LIMIT %d`, where, q.limit()), text)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.CommonName, &r.ScientificName, &r.Inventory); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}

// LoadAllRecords returns every species for a full reindex.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]TreeRecord, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, common_name, scientific_name, inventory FROM trees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("load trees: %w", err)
	}
	defer rows.Close()

	records := make([]TreeRecord, 0)
	for rows.Next() {
		var r TreeRecord
		if err := rows.Scan(&r.ID, &r.CommonName, &r.ScientificName, &r.Inventory); err != nil {
			return nil, fmt.Errorf("scan tree: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trees: %w", err)
	}
	return records, nil
}
