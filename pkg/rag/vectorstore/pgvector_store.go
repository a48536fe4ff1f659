// Package vectorstore stores and searches embedded context documents in
// Postgres with pgvector.
package vectorstore

import (
	"context"
	"fmt"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/repository/specification"
	"ai-agent-be/internal/repository/unitofwork"
	"ai-agent-be/pkg/embedding"
	"ai-agent-be/pkg/rag/retriever"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const embedConcurrency = 4

type PgVectorStore struct {
	uowFactory unitofwork.RepositoryFactory
	embedder   embedding.Embedder
}

var _ retriever.Searcher = (*PgVectorStore)(nil)

func NewPgVectorStore(uowFactory unitofwork.RepositoryFactory, embedder embedding.Embedder) *PgVectorStore {
	return &PgVectorStore{uowFactory: uowFactory, embedder: embedder}
}

func (s *PgVectorStore) SimilaritySearch(ctx context.Context, query string, filter retriever.Filter, topK int) ([]retriever.Fragment, error) {
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	scored, err := uow.ContextDocumentRepository().SearchSimilar(ctx, vector, topK,
		specification.ContextScope(filter.SubjectId, filter.Tag, "")...)
	if err != nil {
		return nil, err
	}

	fragments := make([]retriever.Fragment, len(scored))
	for i, sd := range scored {
		fragments[i] = retriever.Fragment{Text: sd.Document.Content, SourceId: sd.Document.Source}
	}
	return fragments, nil
}

// UpsertDocuments replaces every chunk previously stored for source under
// (subjectId, tag) with chunks. Embedding happens before the transaction so a
// failing embedder leaves the old rows untouched.
func (s *PgVectorStore) UpsertDocuments(ctx context.Context, subjectId, tag, source string, chunks []string) (int, error) {
	docs := make([]*entity.ContextDocument, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)
	for i, chunk := range chunks {
		g.Go(func() error {
			vector, err := s.embedder.Embed(gctx, chunk)
			if err != nil {
				return fmt.Errorf("embed %s chunk %d: %w", source, i, err)
			}
			docs[i] = &entity.ContextDocument{
				Id:         uuid.New(),
				SubjectId:  subjectId,
				ContextTag: tag,
				Source:     source,
				ChunkIndex: i,
				Content:    chunk,
				Embedding:  vector,
				Metadata: map[string]interface{}{
					"context": tag,
					"userId":  subjectId,
					"source":  source,
					"chunk":   i,
				},
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return 0, err
	}
	defer uow.Rollback()

	repo := uow.ContextDocumentRepository()
	if _, err := repo.Delete(ctx, specification.ContextScope(subjectId, tag, source)...); err != nil {
		return 0, fmt.Errorf("delete previous %s: %w", source, err)
	}
	if err := repo.CreateBulk(ctx, docs); err != nil {
		return 0, fmt.Errorf("insert %s: %w", source, err)
	}
	if err := uow.Commit(); err != nil {
		return 0, err
	}
	return len(docs), nil
}

func (s *PgVectorStore) CountByFilter(ctx context.Context, filter retriever.Filter) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ContextDocumentRepository().Count(ctx, specification.ContextScope(filter.SubjectId, filter.Tag, "")...)
}

func (s *PgVectorStore) DeleteByFilter(ctx context.Context, filter retriever.Filter) (int64, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.ContextDocumentRepository().Delete(ctx, specification.ContextScope(filter.SubjectId, filter.Tag, "")...)
}
