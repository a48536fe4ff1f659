package implementation

import (
	"context"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/mapper"
	"ai-agent-be/internal/model"
	"ai-agent-be/internal/repository/contract"
	"ai-agent-be/internal/repository/specification"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ContextDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ContextDocumentMapper
}

func NewContextDocumentRepository(db *gorm.DB) contract.ContextDocumentRepository {
	return &ContextDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewContextDocumentMapper(),
	}
}

func (r *ContextDocumentRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *ContextDocumentRepositoryImpl) CreateBulk(ctx context.Context, documents []*entity.ContextDocument) error {
	if len(documents) == 0 {
		return nil
	}
	models := make([]*model.ContextDocument, len(documents))
	for i, d := range documents {
		models[i] = r.mapper.ToModel(d)
	}
	if err := r.db.WithContext(ctx).CreateInBatches(models, 100).Error; err != nil {
		return err
	}
	for i, m := range models {
		*documents[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *ContextDocumentRepositoryImpl) Delete(ctx context.Context, specs ...specification.Specification) (int64, error) {
	res := r.applySpecifications(r.db.WithContext(ctx), specs...).Delete(&model.ContextDocument{})
	return res.RowsAffected, res.Error
}

func (r *ContextDocumentRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	err := r.applySpecifications(r.db.WithContext(ctx), specs...).Model(&model.ContextDocument{}).Count(&count).Error
	return count, err
}

func (r *ContextDocumentRepositoryImpl) SearchSimilar(ctx context.Context, embedding []float32, limit int, specs ...specification.Specification) ([]*entity.ScoredDocument, error) {
	if limit <= 0 {
		limit = 5
	}

	type result struct {
		model.ContextDocument
		Distance float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)
	query := r.db.WithContext(ctx).
		Table(model.ContextDocument{}.TableName()).
		Select("context_documents.*, embedding_value <=> ? AS distance", queryVector)
	err := r.applySpecifications(query, specs...).
		Order("distance ASC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredDocument, len(results))
	for i := range results {
		scored[i] = &entity.ScoredDocument{
			Document: r.mapper.ToEntity(&results[i].ContextDocument),
			Distance: results[i].Distance,
		}
	}
	return scored, nil
}
