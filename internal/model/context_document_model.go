package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// ContextDocument has no soft delete: re-uploading a source replaces its rows.
type ContextDocument struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SubjectId      string            `gorm:"type:varchar(128);not null;index:idx_context_documents_scope,priority:1"`
	ContextTag     string            `gorm:"type:varchar(64);not null;index:idx_context_documents_scope,priority:2"`
	Source         string            `gorm:"type:varchar(255);not null;index:idx_context_documents_scope,priority:3"`
	ChunkIndex     int               `gorm:"default:0"`
	Content        string            `gorm:"type:text"`
	EmbeddingValue pgvector.Vector   `gorm:"type:vector(768)"` // nomic-embed-text
	Metadata       datatypes.JSONMap `gorm:"type:jsonb"`
	CreatedAt      time.Time         `gorm:"autoCreateTime"`
}

func (ContextDocument) TableName() string {
	return "context_documents"
}
