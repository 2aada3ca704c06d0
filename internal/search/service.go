package search

import (
	"context"

	"go.uber.org/zap"
)

// Index is a search engine that can also accept documents.
type Index interface {
	Searcher
	IndexTrees(trees []TreeRecord) error
}

type recordLoader interface {
	LoadAllRecords(ctx context.Context) ([]TreeRecord, error)
}

// Service tries the index first and falls back to Postgres.
type Service struct {
	index    Index
	fallback Searcher
	loader   recordLoader
	logger   *zap.Logger
}

// NewService wires the search facade. index may be nil when Meilisearch is
// not configured.
func NewService(index Index, pgfts *PgFTS, logger *zap.Logger) *Service {
	s := &Service{index: index, logger: logger}
	if pgfts != nil {
		s.fallback = pgfts
		s.loader = pgfts
	}
	return s
}

func (s *Service) Search(ctx context.Context, q Query) Response {
	if s.index != nil && s.index.Healthy() {
		results, total, err := s.index.Search(ctx, q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "meilisearch"}
		}
		s.logger.Warn("meilisearch error, falling back to postgres", zap.Error(err))
	}

	if s.fallback == nil {
		return Response{Results: []Result{}, Query: q.Text, Source: "none"}
	}
	results, total, err := s.fallback.Search(ctx, q)
	if err != nil {
		s.logger.Error("postgres search failed", zap.Error(err))
		return Response{Results: []Result{}, Query: q.Text, Source: "postgres"}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text, Source: "postgres"}
}

// IndexTree pushes one species to the index without blocking the caller.
func (s *Service) IndexTree(tree TreeRecord) {
	if s.index == nil || !s.index.Healthy() {
		return
	}
	go func() {
		if err := s.index.IndexTrees([]TreeRecord{tree}); err != nil {
			s.logger.Warn("index tree", zap.Int64("tree_id", tree.ID), zap.Error(err))
		}
	}()
}

// ReindexAllFromPG loads every species from Postgres and indexes it.
func (s *Service) ReindexAllFromPG(ctx context.Context) {
	if s.index == nil || !s.index.Healthy() || s.loader == nil {
		return
	}
	records, err := s.loader.LoadAllRecords(ctx)
	if err != nil {
		s.logger.Warn("reindex load failed", zap.Error(err))
		return
	}
	if err := s.index.IndexTrees(records); err != nil {
		s.logger.Warn("reindex trees", zap.Error(err))
		return
	}
	s.logger.Info("reindexed trees", zap.Int("count", len(records)))
}

func nonNil(r []Result) []Result {
	if r == nil {
		return []Result{}
	}
	return r
}
