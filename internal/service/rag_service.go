package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/internal/repository/contract"
	"ai-agent-be/pkg/rag/retriever"
	"ai-agent-be/pkg/utils"
)

const TagLimitCode = "CONTEXT_TAG_LIMIT"

var (
	ErrInvalidTag   = errors.New("context tag is required and must not contain '/'")
	ErrNoFiles      = errors.New("at least one file is required")
	ErrFileTooLarge = errors.New("file exceeds the upload size limit")
	ErrNotText      = errors.New("file is not valid UTF-8 text")
	ErrTooManyFiles = errors.New("too many files in one upload")

	ErrContextNotFound = errors.New("context tag not found")
)

// ContextFile is one uploaded document.
type ContextFile struct {
	Name    string
	Content []byte
}

// ContextStore writes and removes tagged documents in the vector store.
type ContextStore interface {
	UpsertDocuments(ctx context.Context, subjectId, tag, source string, chunks []string) (int, error)
	DeleteByFilter(ctx context.Context, filter retriever.Filter) (int64, error)
	CountByFilter(ctx context.Context, filter retriever.Filter) (int64, error)
}

type RagOptions struct {
	TagLimit       int
	MaxUploadBytes int64
	MaxUploadFiles int
	ChunkSize      int
	ChunkOverlap   int
}

type IRagService interface {
	TagLimit() int
	ListContextTags(ctx context.Context, subjectId string) ([]string, error)
	ContextSummary(ctx context.Context, subjectId, tag string) (*dto.ContextSummaryResponse, error)
	UploadContext(ctx context.Context, subjectId, tag string, files []ContextFile) (*dto.UploadContextResponse, error)
	DeleteContext(ctx context.Context, subjectId, tag string) error
}

type ragService struct {
	tags   contract.TagIndex
	store  ContextStore
	logger logger.ILogger
	opts   RagOptions
}

func NewRagService(tags contract.TagIndex, store ContextStore, log logger.ILogger, opts RagOptions) IRagService {
	return &ragService{tags: tags, store: store, logger: log, opts: opts}
}

func (s *ragService) TagLimit() int { return s.opts.TagLimit }

func (s *ragService) ListContextTags(ctx context.Context, subjectId string) ([]string, error) {
	tags, err := s.tags.List(ctx, subjectId)
	if err != nil {
		return nil, fmt.Errorf("list context tags: %w", err)
	}
	sort.Strings(tags)
	return tags, nil
}

// ContextSummary reports how many chunks are stored under one of the
// subject's tags.
func (s *ragService) ContextSummary(ctx context.Context, subjectId, tag string) (*dto.ContextSummaryResponse, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, ErrInvalidTag
	}
	tags, err := s.tags.List(ctx, subjectId)
	if err != nil {
		return nil, fmt.Errorf("list context tags: %w", err)
	}
	if !slices.Contains(tags, tag) {
		return nil, ErrContextNotFound
	}

	chunks, err := s.store.CountByFilter(ctx, retriever.Filter{SubjectId: subjectId, Tag: tag})
	if err != nil {
		return nil, fmt.Errorf("count context documents: %w", err)
	}
	return &dto.ContextSummaryResponse{RagTag: tag, Chunks: chunks}, nil
}

// UploadContext stores files under tag. The tag is reserved before anything
// reaches the vector store, so a subject already at the cap gets a
// LimitExceededError and nothing is written.
func (s *ragService) UploadContext(ctx context.Context, subjectId, tag string, files []ContextFile) (*dto.UploadContextResponse, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" || strings.Contains(tag, "/") {
		return nil, ErrInvalidTag
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	if s.opts.MaxUploadFiles > 0 && len(files) > s.opts.MaxUploadFiles {
		return nil, fmt.Errorf("%w: at most %d", ErrTooManyFiles, s.opts.MaxUploadFiles)
	}
	for _, f := range files {
		if s.opts.MaxUploadBytes > 0 && int64(len(f.Content)) > s.opts.MaxUploadBytes {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, f.Name)
		}
		if !utf8.Valid(f.Content) {
			return nil, fmt.Errorf("%w: %s", ErrNotText, f.Name)
		}
	}

	added, err := s.tags.Add(ctx, subjectId, tag, s.opts.TagLimit)
	if errors.Is(err, contract.ErrTagLimitReached) {
		return nil, &dto.LimitExceededError{Code: TagLimitCode, Limit: s.opts.TagLimit, Used: s.opts.TagLimit}
	}
	if err != nil {
		return nil, fmt.Errorf("reserve context tag: %w", err)
	}

	res := &dto.UploadContextResponse{RagTag: tag}
	for _, f := range files {
		chunks := utils.SplitText(string(f.Content), s.opts.ChunkSize, s.opts.ChunkOverlap)
		n, err := s.store.UpsertDocuments(ctx, subjectId, tag, f.Name, chunks)
		if err != nil {
			if added && len(res.Documents) == 0 {
				s.releaseTag(subjectId, tag)
			}
			return nil, fmt.Errorf("store %s: %w", f.Name, err)
		}
		res.Documents = append(res.Documents, f.Name)
		res.Chunks += n
	}

	s.logger.Info("RAG", "Context uploaded", map[string]interface{}{
		"subject":   subjectId,
		"tag":       tag,
		"documents": len(res.Documents),
		"chunks":    res.Chunks,
	})
	return res, nil
}

// releaseTag undoes a reservation that never got any documents. It runs on a
// fresh context because the request context may already be cancelled.
func (s *ragService) releaseTag(subjectId, tag string) {
	if err := s.tags.Remove(context.Background(), subjectId, tag); err != nil {
		s.logger.Error("RAG", "Failed to release context tag", map[string]interface{}{
			"subject": subjectId,
			"tag":     tag,
			"error":   err.Error(),
		})
	}
}

func (s *ragService) DeleteContext(ctx context.Context, subjectId, tag string) error {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ErrInvalidTag
	}
	removed, err := s.store.DeleteByFilter(ctx, retriever.Filter{SubjectId: subjectId, Tag: tag})
	if err != nil {
		return fmt.Errorf("delete context documents: %w", err)
	}
	if err := s.tags.Remove(ctx, subjectId, tag); err != nil {
		return fmt.Errorf("remove context tag: %w", err)
	}
	s.logger.Info("RAG", "Context deleted", map[string]interface{}{
		"subject": subjectId,
		"tag":     tag,
		"chunks":  removed,
	})
	return nil
}
