// Package retriever turns a conversation into grounding context via
// similarity search.
package retriever

import (
	"context"
	"fmt"
	"strings"

	"ai-agent-be/pkg/llm"
)

const (
	TopK           = 5
	QueryDelimiter = ". "
)

type Filter struct {
	SubjectId string
	Tag       string
}

type Fragment struct {
	Text     string
	SourceId string
}

// Searcher is the vector store contract. Results come back best match first
// and only ever match the filter exactly.
type Searcher interface {
	SimilaritySearch(ctx context.Context, query string, filter Filter, topK int) ([]Fragment, error)
}

type Context struct {
	Fragments []Fragment
}

func (c Context) IsEmpty() bool { return len(c.Fragments) == 0 }

// Text concatenates fragments in rank order without a separator.
func (c Context) Text() string {
	var sb strings.Builder
	for _, f := range c.Fragments {
		sb.WriteString(f.Text)
	}
	return sb.String()
}

type Retriever struct {
	searcher Searcher
}

func New(searcher Searcher) *Retriever {
	return &Retriever{searcher: searcher}
}

// BuildQuery joins every message text, in order, into one search query.
func BuildQuery(history []llm.Message) string {
	texts := make([]string, len(history))
	for i, m := range history {
		texts[i] = m.Content
	}
	return strings.Join(texts, QueryDelimiter)
}

// Retrieve searches the subject's documents under filter.Tag. Without a tag
// there is nothing to search and the context is empty.
func (r *Retriever) Retrieve(ctx context.Context, history []llm.Message, filter Filter) (Context, error) {
	if filter.Tag == "" || r.searcher == nil {
		return Context{}, nil
	}

	fragments, err := r.searcher.SimilaritySearch(ctx, BuildQuery(history), filter, TopK)
	if err != nil {
		return Context{}, fmt.Errorf("similarity search: %w", err)
	}
	if len(fragments) > TopK {
		fragments = fragments[:TopK]
	}
	return Context{Fragments: fragments}, nil
}
