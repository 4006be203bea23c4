// Command medrag answers clinical questions from a corpus of transplant
// guidelines with retrieval-augmented generation.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/medrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/medrag/internal/adapters/driven/artifacts"
	"github.com/custodia-labs/medrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/medrag/internal/adapters/driven/corpus/filesystem"
	"github.com/custodia-labs/medrag/internal/adapters/driven/evalset/yaml"
	"github.com/custodia-labs/medrag/internal/adapters/driven/export/html"
	"github.com/custodia-labs/medrag/internal/adapters/driven/search/bm25"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/medrag/internal/adapters/driving/cli"
	"github.com/custodia-labs/medrag/internal/core/domain"
	"github.com/custodia-labs/medrag/internal/core/ports/driven"
	"github.com/custodia-labs/medrag/internal/core/services"
	"github.com/custodia-labs/medrag/internal/logger"
	"github.com/custodia-labs/medrag/internal/normalisers/markdown"
	"github.com/custodia-labs/medrag/internal/postprocessors"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	cli.SetVersion(version)
	cli.SetBootstrapper(bootstrap)

	err := cli.Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

// stores are the persistence adapters for one run.
type stores struct {
	vectors driven.VectorStore
	builds  driven.BuildStore
	queries driven.QueryLog
	close   func()
}

// bootstrap wires as much of the application as the command requires.
//
//nolint:gocyclo // linear wiring of every adapter
func bootstrap(ctx context.Context, opts cli.BootstrapOptions) (*cli.Services, error) {
	configDir, err := resolveConfigDir(opts.ConfigDir)
	if err != nil {
		return nil, err
	}

	configStore, err := file.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewConfigValidator())

	svc := &cli.Services{Settings: settingsService}
	if opts.Require <= cli.RequireSettings {
		return svc, nil
	}

	settings, err := settingsService.Load()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	if settings.Paths.DataDir == "" {
		settings.Paths.DataDir = filepath.Join(configDir, "data")
	}

	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	svc.Close = closeAll

	st, err := openStores(settings, opts.Ephemeral)
	if err != nil {
		return nil, err
	}
	closers = append(closers, st.close)

	answerCfg := services.AnswerConfigFromSettings(settings)
	if opts.Require == cli.RequireStorage {
		answer := services.NewAnswerService(nil, nil, nil, answerCfg)
		answer.SetQueryLog(st.queries)
		svc.Answer = answer
		return svc, nil
	}

	models, err := ai.Init(ctx, settings, ai.Options{RequireLLM: opts.Require == cli.RequireAnswer})
	if err != nil {
		closeAll()
		return nil, err
	}
	closers = append(closers, models.Close)

	collection := settings.Index.Collection
	retriever := services.NewRetrieverService(models.EmbeddingService, st.vectors, bm25.New(), collection, settings.Retrieval)
	scorer := services.NewConfidenceScorer(settings.Scoring.ConfidenceThreshold)

	answer := services.NewAnswerService(retriever, scorer, models.LLMService, answerCfg)
	answer.SetVectorStore(st.vectors, collection)
	answer.SetQueryLog(st.queries)
	prompts, err := file.NewPromptStore(filepath.Join(configDir, "prompts"))
	if err != nil {
		logger.Warn("Using built-in prompts: %v", err)
	} else {
		answer.SetPromptStore(prompts)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking)
	if err != nil {
		closeAll()
		return nil, err
	}
	index := services.NewIndexService(
		filesystem.NewLoader(settings.Paths.CorpusDir),
		markdown.New(),
		pipeline,
		models.EmbeddingService,
		st.vectors,
		services.IndexConfigFromSettings(settings),
	)
	index.SetBuildStore(st.builds)
	index.SetRetriever(retriever)
	if settings.Paths.ArtifactsDir != "" {
		index.SetArtifactWriter(artifacts.NewWriter(settings.Paths.ArtifactsDir))
	}

	watcher := filesystem.NewWatcher(settings.Paths.CorpusDir)
	closers = append(closers, func() {
		if err := watcher.Close(); err != nil {
			logger.Debug("Closing watcher: %v", err)
		}
	})

	svc.Retriever = retriever
	svc.Scorer = scorer
	svc.Answer = answer
	svc.Index = index
	svc.Eval = services.NewEvaluationService(retriever)
	svc.EvalSets = yaml.NewLoader()
	svc.Exporter = html.New()
	svc.Watcher = watcher
	return svc, nil
}

// openStores opens the SQLite store in the data directory, or in-memory
// stores when ephemeral.
func openStores(settings *domain.AppSettings, ephemeral bool) (*stores, error) {
	if ephemeral {
		logger.Debug("Using in-memory stores")
		return &stores{
			vectors: memory.NewVectorStore(),
			builds:  memory.NewBuildStore(),
			queries: memory.NewQueryLog(),
			close:   func() {},
		}, nil
	}

	db, err := sqlite.NewStore(settings.Paths.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	logger.Debug("Using store %s", db.Path())
	return &stores{
		vectors: db.VectorStore(),
		builds:  db.BuildStore(),
		queries: db.QueryLog(),
		close: func() {
			if err := db.Close(); err != nil {
				logger.Warn("Closing store: %v", err)
			}
		},
	}, nil
}

func resolveConfigDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".medrag"), nil
}
