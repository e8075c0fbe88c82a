// Copyright 2025 The Code Chatter Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/89jobrien/code-chatter/ai"
	"github.com/89jobrien/code-chatter/ai/openai"
	"github.com/89jobrien/code-chatter/ingest"
	badgerstore "github.com/89jobrien/code-chatter/storage/badger"
)

func main() {
	app := &cli.App{
		Name:  "codechatter",
		Usage: "Document ingestion and code question-answering backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API server",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8000",
					},
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "scratch-root",
						Usage: "Base directory for scratch space (defaults next to the database)",
					},
					&cli.StringFlag{
						Name:  "ai-host",
						Usage: "OpenAI-compatible service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "chat-model",
						Usage:    "Chat model name for query answering",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "max-concurrent-tasks",
						Usage: "Number of background tasks allowed to run at once",
						Value: 3,
					},
					&cli.IntFlag{
						Name:  "max-concurrent-files",
						Usage: "Number of files one batch processes at once",
						Value: 5,
					},
					&cli.IntFlag{
						Name:  "max-file-size-mb",
						Usage: "Per-file size ceiling in megabytes",
						Value: 100,
					},
					&cli.DurationFlag{
						Name:  "task-retention",
						Usage: "How long finished task records are kept",
						Value: time.Hour,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func serveCommand(c *cli.Context) error {
	cfg := ingest.DefaultConfig()
	cfg.DBPath = c.String("db")
	if root := c.String("scratch-root"); root != "" {
		cfg.ScratchRoot = root
	} else {
		cfg.ScratchRoot = cfg.DBPath + "-scratch"
	}
	cfg.MaxConcurrentTasks = c.Int("max-concurrent-tasks")
	cfg.MaxConcurrentFiles = c.Int("max-concurrent-files")
	cfg.MaxFileSizeMB = c.Int("max-file-size-mb")
	cfg.TaskRetention = c.Duration("task-retention")
	if err := cfg.Validate(); err != nil {
		return err
	}

	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("ai-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithChatModel(c.String("chat-model")),
	)
	provider, err := openai.NewProvider(aiConfig)
	if err != nil {
		return fmt.Errorf("creating AI provider: %w", err)
	}
	defer provider.Close()

	backend, err := badgerstore.OpenBackend(cfg.DBPath, false)
	if err != nil {
		return fmt.Errorf("opening database at %s: %w", cfg.DBPath, err)
	}
	defer backend.Close()

	repository, err := badgerstore.NewChunkRepository(backend)
	if err != nil {
		return err
	}
	defer repository.Close()

	service, err := ingest.NewService(cfg, repository, provider)
	if err != nil {
		return err
	}
	defer service.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Reclaim expired task records on the retention cadence.
	go func() {
		ticker := time.NewTicker(cfg.TaskRetention)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				service.Sweep()
			}
		}
	}()

	server := &http.Server{
		Addr:              c.String("addr"),
		Handler:           newServer(service).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
