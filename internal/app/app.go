// Package app wires configuration, storage, AI clients and the pipeline
// components into a running application.
package app

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pensieve-cli/pensieve/db"
	"github.com/pensieve-cli/pensieve/internal/ai"
	"github.com/pensieve-cli/pensieve/internal/chunk"
	"github.com/pensieve-cli/pensieve/internal/config"
	"github.com/pensieve-cli/pensieve/internal/knowledge"
	"github.com/pensieve-cli/pensieve/internal/log"
	"github.com/pensieve-cli/pensieve/internal/rag"
	"github.com/pensieve-cli/pensieve/internal/source"
	"github.com/pensieve-cli/pensieve/internal/store"
	"github.com/pensieve-cli/pensieve/internal/syncer"
)

// osascriptTimeout bounds one AppleScript invocation. Listing thousands of
// notes can legitimately take a while.
const osascriptTimeout = 2 * time.Minute

// App holds every constructed component. Components are wired once at
// startup; commands pick what they need.
type App struct {
	Config    *config.Config
	Logger    log.Logger
	Pool      *pgxpool.Pool
	Knowledge *knowledge.Store
	Store     *store.Store
	Embedder  knowledge.Embedder
	Completer ai.Completer
	Syncer    *syncer.Coordinator
	Retriever *rag.Retriever
	Profiler  *rag.StyleProfiler
}

// Setup runs migrations, connects the pool, initializes the Gemini client
// and constructs the full pipeline. Call Close when done.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))

	embedder := knowledge.NewGeminiEmbedder(g, cfg.EmbedderModel, logger)
	completer := ai.NewGeminiCompleter(g, cfg.ModelName, ai.SystemPrompt(), logger)

	knowledgeStore := knowledge.NewStore(pool, logger)
	relStore := store.New(pool, logger)
	chunker := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)

	coordinator := syncer.New(
		buildSources(cfg, logger),
		chunker,
		embedder,
		knowledgeStore,
		relStore,
		relStore,
		time.Duration(cfg.AutoSyncHours)*time.Hour,
		logger,
	)

	retriever := rag.NewRetriever(
		embedder,
		knowledgeStore,
		relStore,
		cfg.ProfileTitle,
		cfg.StyleTitle,
		cfg.TopK,
		logger,
	)

	profiler := rag.NewStyleProfiler(
		knowledgeStore,
		embedder,
		completer,
		chunker,
		cfg.StyleTitle,
		logger,
	)

	return &App{
		Config:    cfg,
		Logger:    logger,
		Pool:      pool,
		Knowledge: knowledgeStore,
		Store:     relStore,
		Embedder:  embedder,
		Completer: completer,
		Syncer:    coordinator,
		Retriever: retriever,
		Profiler:  profiler,
	}, nil
}

// Close releases held resources.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}

// buildSources assembles the configured document sources. The Notes
// connector only works where osascript exists.
func buildSources(cfg *config.Config, logger log.Logger) []source.Source {
	var sources []source.Source

	if cfg.NotesEnabled && runtime.GOOS == "darwin" {
		runner := &source.ExecRunner{Timeout: osascriptTimeout}
		sources = append(sources, source.NewNotes(runner, logger))
	}
	if len(cfg.MarkdownDirs) > 0 {
		sources = append(sources, source.NewMarkdownTree(cfg.MarkdownDirs, logger))
	}
	if cfg.ProjectsDir != "" {
		sources = append(sources, source.NewProjectDocs(cfg.ProjectsDir, logger))
	}

	if len(sources) == 0 {
		logger.Warn("no document sources configured")
	}
	return sources
}
