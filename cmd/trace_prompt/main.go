package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"ai-agent-be/internal/config"
	"ai-agent-be/internal/repository/unitofwork"
	"ai-agent-be/pkg/database"
	"ai-agent-be/pkg/embedding"
	"ai-agent-be/pkg/llm"
	"ai-agent-be/pkg/rag/prompt"
	"ai-agent-be/pkg/rag/retriever"
	"ai-agent-be/pkg/rag/vectorstore"

	"github.com/fatih/color"
)

// Prints what retrieval finds for a question and the exact prompt the
// answer model would receive. No model is called and no quota is spent.
func main() {
	subject := flag.String("subject", "", "subject id owning the documents")
	tag := flag.String("tag", "", "context tag (empty skips retrieval)")
	question := flag.String("q", "", "user question")
	flag.Parse()

	if *subject == "" || *question == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		color.Red("Unable to connect to DB: %v", err)
		os.Exit(1)
	}

	embedder := embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.EmbeddingModel, cfg.Ai.EmbeddingDims)
	store := vectorstore.NewPgVectorStore(unitofwork.NewRepositoryFactory(db), embedder)
	history := []llm.Message{{Role: llm.RoleUser, Content: *question}}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	color.Cyan("🔎 Query: %q", retriever.BuildQuery(history))
	started := time.Now()
	grounding, err := retriever.New(store).Retrieve(ctx, history, retriever.Filter{SubjectId: *subject, Tag: *tag})
	if err != nil {
		color.Red("Retrieval failed: %v", err)
		os.Exit(1)
	}
	color.Green("Retrieved %d fragments in %s", len(grounding.Fragments), time.Since(started).Round(time.Millisecond))
	for i, f := range grounding.Fragments {
		color.Yellow("  [%d] %s", i+1, f.SourceId)
		fmt.Println("     " + f.Text)
	}

	color.Cyan("\n📝 Assembled prompt")
	for _, m := range prompt.AnswerPrompt(history, grounding) {
		color.Magenta("--- %s ---", m.Role)
		fmt.Println(m.Content)
	}
}
