package mapper

import (
	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type ContextDocumentMapper struct{}

func NewContextDocumentMapper() *ContextDocumentMapper {
	return &ContextDocumentMapper{}
}

func (m *ContextDocumentMapper) ToEntity(d *model.ContextDocument) *entity.ContextDocument {
	if d == nil {
		return nil
	}
	return &entity.ContextDocument{
		Id:         d.Id,
		SubjectId:  d.SubjectId,
		ContextTag: d.ContextTag,
		Source:     d.Source,
		ChunkIndex: d.ChunkIndex,
		Content:    d.Content,
		Embedding:  d.EmbeddingValue.Slice(),
		Metadata:   map[string]interface{}(d.Metadata),
		CreatedAt:  d.CreatedAt,
	}
}

func (m *ContextDocumentMapper) ToModel(e *entity.ContextDocument) *model.ContextDocument {
	if e == nil {
		return nil
	}
	return &model.ContextDocument{
		Id:             e.Id,
		SubjectId:      e.SubjectId,
		ContextTag:     e.ContextTag,
		Source:         e.Source,
		ChunkIndex:     e.ChunkIndex,
		Content:        e.Content,
		EmbeddingValue: pgvector.NewVector(e.Embedding),
		Metadata:       datatypes.JSONMap(e.Metadata),
		CreatedAt:      e.CreatedAt,
	}
}
