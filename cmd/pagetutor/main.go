package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/csheth/pagetutor/internal/blob"
	"github.com/csheth/pagetutor/internal/config"
	"github.com/csheth/pagetutor/internal/document"
	"github.com/csheth/pagetutor/internal/history"
	"github.com/csheth/pagetutor/internal/llm"
	"github.com/csheth/pagetutor/internal/logging"
	"github.com/csheth/pagetutor/internal/preferences"
	"github.com/csheth/pagetutor/internal/render"
	"github.com/csheth/pagetutor/internal/session"
	"github.com/csheth/pagetutor/internal/storage"
	"github.com/csheth/pagetutor/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "path to config.yml (default: user config dir)")
	noAltScreen := flag.Bool("no-alt-screen", false, "disable the alternate screen buffer")
	llmModel := flag.String("llm-model", "", "override the configured model")
	llmEndpoint := flag.String("llm-endpoint", "", "custom backend endpoint (eg. http://localhost:11434)")
	openPath := flag.String("open", "", "PDF file or URL to open at startup")
	flag.Parse()

	if err := run(*configPath, *noAltScreen, *llmModel, *llmEndpoint, *openPath); err != nil {
		fmt.Println("pagetutor:", err)
		os.Exit(1)
	}
}

func run(configPath string, noAltScreen bool, llmModel, llmEndpoint, openPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if llmEndpoint != "" {
		cfg.LLM.Endpoint = llmEndpoint
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	records, err := storage.Open(ctx, cfg.Storage, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer func() { _ = records.Close() }()

	blobs, err := openBlobStore(cfg)
	if err != nil {
		return fmt.Errorf("open document store: %w", err)
	}
	fetcher, err := blob.NewFetcher(cfg.Blob.FetchDir, nil)
	if err != nil {
		return fmt.Errorf("prepare download cache: %w", err)
	}

	backend, err := llm.NewFromEnv(cfg.LLMOptions())
	if err != nil {
		return fmt.Errorf("configure backend: %w", err)
	}

	renders, err := render.NewCache(render.NewPopplerEngine(cfg.Render.Command), cfg.Render.CacheEntries, logger.Named("render"))
	if err != nil {
		return err
	}
	ingestor := document.NewIngestor(blobs, logger.Named("document"))
	hist := history.New(records, ingestor,
		history.WithCapacity(cfg.History.Capacity),
		history.WithFetcher(fetcher),
		history.WithLogger(logger.Named("history")),
	)

	ws := session.New(session.Deps{
		Ingestor: ingestor,
		Renders:  renders,
		History:  hist,
		Prefs:    preferences.New(records, backend, logger.Named("preferences")),
		Backend:  backend,
		Fetcher:  fetcher,
		Logger:   logger.Named("session"),
	},
		session.WithScales(cfg.Render.ViewerScale, cfg.Render.ThumbnailScale),
		session.WithChatTimeout(cfg.LLM.Timeout),
	)
	if err := ws.Bootstrap(ctx); err != nil {
		return err
	}
	logger.Info("pagetutor started",
		zap.String("provider", string(backend.Provider())),
		zap.String("storage", string(cfg.Storage.Driver)),
		zap.String("blob", cfg.Blob.Driver),
	)

	opts := []tea.ProgramOption{}
	if !noAltScreen {
		opts = append(opts, tea.WithAltScreen())
	}
	program := tea.NewProgram(
		tui.New(tui.Config{
			Workspace:   ws,
			Logger:      logger.Named("tui"),
			InitialPath: openPath,
		}),
		opts...,
	)
	_, runErr := program.Run()

	// Keep the open document in history across restarts.
	if ws.Document() != nil {
		if err := ws.Close(ctx); err != nil {
			logger.Warn("snapshot on exit failed", zap.Error(err))
		}
	}
	if runErr != nil {
		return fmt.Errorf("program error: %w", runErr)
	}
	return nil
}

func openBlobStore(cfg *config.Config) (blob.Store, error) {
	if cfg.Blob.Driver == "s3" {
		return blob.NewS3Store(cfg.Blob.S3, filepath.Join(cfg.DataDir, "scratch"))
	}
	return blob.NewDiskStore(cfg.Blob.Dir)
}
