package integration

import (
	"context"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"ai-agent-be/internal/entity"
	"ai-agent-be/internal/model"
	"ai-agent-be/internal/repository/unitofwork"
	"ai-agent-be/internal/service"
	"ai-agent-be/pkg/database"
	"ai-agent-be/pkg/rag/retriever"
	"ai-agent-be/pkg/rag/vectorstore"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err, "Failed to connect to DB")
	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS vector;`).Error)
	require.NoError(t, db.AutoMigrate(&model.Account{}, &model.ContextDocument{}))
	return db
}

func TestAccountQuota_ConcurrentDecrementNeverOverspends(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	repo := unitofwork.NewRepositoryFactory(db).NewUnitOfWork(ctx).AccountRepository()

	subject := "it-" + uuid.NewString()
	t.Cleanup(func() { db.Where("subject_id = ?", subject).Delete(&model.Account{}) })

	account, err := repo.FindOrCreate(ctx, &entity.Account{
		SubjectId:      subject,
		QuotaTotal:     10,
		QuotaRemaining: 10,
		Status:         entity.AccountStatusActive,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, account.QuotaRemaining)

	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.TryDecrementQuota(ctx, subject, 1)
			assert.NoError(t, err)
			if ok {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 10, granted.Load())
	after, err := repo.FindBySubject(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, 0, after.QuotaRemaining)

	// A second FindOrCreate must not reset the quota.
	again, err := repo.FindOrCreate(ctx, &entity.Account{SubjectId: subject, QuotaTotal: 10, QuotaRemaining: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, again.QuotaRemaining)
}

func TestAccountService_AdjustQuotaAndStatus(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	svc := service.NewAccountService(unitofwork.NewRepositoryFactory(db), 10, nil)

	subject := "it-" + uuid.NewString()
	t.Cleanup(func() { db.Where("subject_id = ?", subject).Delete(&model.Account{}) })

	adjusted, err := svc.AdjustQuota(ctx, subject, 15)
	require.NoError(t, err)
	assert.Equal(t, 25, adjusted.QuotaTotal)
	assert.Equal(t, 25, adjusted.QuotaRemaining)

	disabled, err := svc.UpdateStatus(ctx, subject, "disabled")
	require.NoError(t, err)
	assert.Equal(t, "disabled", disabled.Status)

	quota, err := svc.GetQuota(ctx, subject)
	require.NoError(t, err)
	assert.Equal(t, "disabled", quota.Status)
	assert.Equal(t, 25, quota.QuotaRemaining)
}

type constantEmbedder struct{}

func (constantEmbedder) Dimensions() int { return 768 }

func (constantEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	v := make([]float32, 768)
	v[len(text)%768] = 1
	return v, nil
}

func TestPgVectorStore_UpsertSearchDelete(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	store := vectorstore.NewPgVectorStore(unitofwork.NewRepositoryFactory(db), constantEmbedder{})

	subject := "it-" + uuid.NewString()
	t.Cleanup(func() { db.Where("subject_id = ?", subject).Delete(&model.ContextDocument{}) })

	n, err := store.UpsertDocuments(ctx, subject, "docs", "a.md", []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Re-uploading the same source replaces it.
	n, err = store.UpsertDocuments(ctx, subject, "docs", "a.md", []string{"only"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.UpsertDocuments(ctx, subject, "other", "b.md", []string{"elsewhere"})
	require.NoError(t, err)

	fragments, err := store.SimilaritySearch(ctx, "only", retriever.Filter{SubjectId: subject, Tag: "docs"}, retriever.TopK)
	require.NoError(t, err)
	require.Len(t, fragments, 1)
	assert.Equal(t, "only", fragments[0].Text)

	count, err := store.CountByFilter(ctx, retriever.Filter{SubjectId: subject, Tag: "docs"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	removed, err := store.DeleteByFilter(ctx, retriever.Filter{SubjectId: subject, Tag: "docs"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}
