package contract

import (
	"context"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/repository/specification"
)

type ContextDocumentRepository interface {
	CreateBulk(ctx context.Context, documents []*entity.ContextDocument) error
	Delete(ctx context.Context, specs ...specification.Specification) (int64, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
	// SearchSimilar orders by cosine distance, nearest first.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, specs ...specification.Specification) ([]*entity.ScoredDocument, error)
}
