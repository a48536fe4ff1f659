package entity

import (
	"time"

	"github.com/google/uuid"
)

// ContextDocument is one embedded chunk of user supplied knowledge.
type ContextDocument struct {
	Id         uuid.UUID
	SubjectId  string
	ContextTag string
	Source     string
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   map[string]interface{}
	CreatedAt  time.Time
}

// ScoredDocument pairs a document with its cosine distance to the query.
type ScoredDocument struct {
	Document *ContextDocument
	Distance float64
}
