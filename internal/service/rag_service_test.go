package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ai-agent-be/internal/dto"
	"ai-agent-be/internal/pkg/logger"
	"ai-agent-be/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRagFixture() (IRagService, *memory.TagIndex, *fakeContextStore) {
	tags := memory.NewTagIndex()
	store := &fakeContextStore{}
	svc := NewRagService(tags, store, logger.NewNopLogger(), RagOptions{
		TagLimit:       5,
		MaxUploadBytes: 64,
		MaxUploadFiles: 3,
		ChunkSize:      20,
		ChunkOverlap:   5,
	})
	return svc, tags, store
}

func textFile(name, content string) []ContextFile {
	return []ContextFile{{Name: name, Content: []byte(content)}}
}

func TestUploadContext_SixthTagRejectedBeforeUpsert(t *testing.T) {
	svc, _, store := newRagFixture()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := svc.UploadContext(ctx, "subject-1", fmt.Sprintf("tag-%d", i), textFile("a.md", "some text"))
		require.NoError(t, err)
	}
	require.Len(t, store.upserts, 5)

	_, err := svc.UploadContext(ctx, "subject-1", "tag-6", textFile("b.md", "more text"))

	var limitErr *dto.LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, TagLimitCode, limitErr.Code)
	assert.Equal(t, 5, limitErr.Limit)
	assert.Len(t, store.upserts, 5, "no document reaches the vector store")

	tags, err := svc.ListContextTags(ctx, "subject-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"tag-0", "tag-1", "tag-2", "tag-3", "tag-4"}, tags)
}

func TestUploadContext_ExistingTagDoesNotCountAgainstCap(t *testing.T) {
	svc, _, store := newRagFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.UploadContext(ctx, "subject-1", fmt.Sprintf("tag-%d", i), textFile("a.md", "text"))
		require.NoError(t, err)
	}

	res, err := svc.UploadContext(ctx, "subject-1", "tag-0", textFile("b.md", "text"))
	require.NoError(t, err)
	assert.Equal(t, []string{"b.md"}, res.Documents)
	assert.Len(t, store.upserts, 6)
}

func TestUploadContext_ConcurrentUploadsRespectCap(t *testing.T) {
	svc, tags, _ := newRagFixture()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = svc.UploadContext(context.Background(), "subject-1", fmt.Sprintf("tag-%d", i), textFile("a.md", "text"))
		}(i)
	}
	wg.Wait()

	list, err := tags.List(context.Background(), "subject-1")
	require.NoError(t, err)
	assert.Len(t, list, 5)
}

func TestUploadContext_SplitsIntoChunks(t *testing.T) {
	svc, _, _ := newRagFixture()

	res, err := svc.UploadContext(context.Background(), "subject-1", "docs", textFile("notes.md", "alpha beta gamma delta epsilon zeta eta theta"))
	require.NoError(t, err)
	assert.Equal(t, "docs", res.RagTag)
	assert.Greater(t, res.Chunks, 1)
}

func TestUploadContext_FailedUpsertReleasesNewTag(t *testing.T) {
	svc, tags, store := newRagFixture()
	store.upsertErr = errStore

	_, err := svc.UploadContext(context.Background(), "subject-1", "docs", textFile("a.md", "text"))
	assert.ErrorIs(t, err, errStore)

	list, _ := tags.List(context.Background(), "subject-1")
	assert.Empty(t, list)
}

func TestUploadContext_FailedUpsertKeepsExistingTag(t *testing.T) {
	svc, tags, store := newRagFixture()
	_, err := svc.UploadContext(context.Background(), "subject-1", "docs", textFile("a.md", "text"))
	require.NoError(t, err)

	store.upsertErr = errStore
	_, err = svc.UploadContext(context.Background(), "subject-1", "docs", textFile("b.md", "text"))
	assert.Error(t, err)

	list, _ := tags.List(context.Background(), "subject-1")
	assert.Equal(t, []string{"docs"}, list)
}

func TestUploadContext_Validation(t *testing.T) {
	tests := []struct {
		name    string
		tag     string
		files   []ContextFile
		wantErr error
	}{
		{name: "empty tag", tag: "  ", files: textFile("a.md", "x"), wantErr: ErrInvalidTag},
		{name: "slash in tag", tag: "a/b", files: textFile("a.md", "x"), wantErr: ErrInvalidTag},
		{name: "no files", tag: "docs", wantErr: ErrNoFiles},
		{name: "too large", tag: "docs", files: textFile("big.md", strings.Repeat("x", 65)), wantErr: ErrFileTooLarge},
		{name: "binary", tag: "docs", files: []ContextFile{{Name: "a.bin", Content: []byte{0xff, 0xfe}}}, wantErr: ErrNotText},
		{name: "too many files", tag: "docs", files: []ContextFile{
			{Name: "a.md", Content: []byte("a")},
			{Name: "b.md", Content: []byte("b")},
			{Name: "c.md", Content: []byte("c")},
			{Name: "d.md", Content: []byte("d")},
		}, wantErr: ErrTooManyFiles},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, tags, store := newRagFixture()
			_, err := svc.UploadContext(context.Background(), "subject-1", tt.tag, tt.files)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.upserts)
			list, _ := tags.List(context.Background(), "subject-1")
			assert.Empty(t, list)
		})
	}
}

func TestDeleteContext_FreesTagSlot(t *testing.T) {
	svc, _, store := newRagFixture()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := svc.UploadContext(ctx, "subject-1", fmt.Sprintf("tag-%d", i), textFile("a.md", "text"))
		require.NoError(t, err)
	}

	require.NoError(t, svc.DeleteContext(ctx, "subject-1", "tag-2"))
	assert.Equal(t, 1, store.deleteCalls)

	_, err := svc.UploadContext(ctx, "subject-1", "tag-new", textFile("a.md", "text"))
	assert.NoError(t, err)
}

func TestUploadContext_SeveralFilesUnderCap(t *testing.T) {
	svc, _, store := newRagFixture()
	files := []ContextFile{
		{Name: "a.md", Content: []byte(strings.Repeat("a", 60))},
		{Name: "b.md", Content: []byte(strings.Repeat("b", 60))},
		{Name: "c.md", Content: []byte(strings.Repeat("c", 60))},
	}

	res, err := svc.UploadContext(context.Background(), "subject-1", "docs", files)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "b.md", "c.md"}, res.Documents)
	assert.Len(t, store.upserts, 3)
}

func TestContextSummary_CountsOwnedTag(t *testing.T) {
	svc, _, store := newRagFixture()
	ctx := context.Background()
	_, err := svc.UploadContext(ctx, "subject-1", "docs", textFile("a.md", "text"))
	require.NoError(t, err)

	res, err := svc.ContextSummary(ctx, "subject-1", " docs ")
	require.NoError(t, err)
	assert.Equal(t, "docs", res.RagTag)
	assert.Equal(t, int64(7), res.Chunks)
	require.Len(t, store.counted, 1)
	assert.Equal(t, "subject-1", store.counted[0].SubjectId)
	assert.Equal(t, "docs", store.counted[0].Tag)
}

func TestContextSummary_UnknownTag(t *testing.T) {
	svc, _, store := newRagFixture()
	ctx := context.Background()
	_, err := svc.UploadContext(ctx, "subject-1", "docs", textFile("a.md", "text"))
	require.NoError(t, err)

	_, err = svc.ContextSummary(ctx, "subject-2", "docs")
	assert.ErrorIs(t, err, ErrContextNotFound)

	_, err = svc.ContextSummary(ctx, "subject-1", "")
	assert.ErrorIs(t, err, ErrInvalidTag)
	assert.Empty(t, store.counted)
}
