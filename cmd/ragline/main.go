// Copyright 2025 Poiesic Systems
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
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/poiesic/ragline"
	"github.com/poiesic/ragline/config"
	"github.com/poiesic/ragline/ingestion"
	"github.com/poiesic/ragline/server"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ragline",
		Usage: "Web knowledge ingestion and grounded retrieval",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
				Value:   "ragline.yaml",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Dotenv file loaded before reading the environment",
				Value: ".env",
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Acquire web content and ingest it into the index",
				Action: ingestCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum documents to acquire (0 uses the configured limit)",
					},
					&cli.BoolFlag{
						Name:  "clear-old",
						Usage: "Delete every record in the index before writing",
					},
					&cli.IntFlag{
						Name:  "chunk-max-length",
						Usage: "Maximum chunk length in characters (0 uses the configured value)",
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Records embedded and written per batch (0 uses the configured value)",
					},
					&cli.IntFlag{
						Name:  "concurrency",
						Usage: "Batches processed in parallel (0 uses the configured value)",
					},
				},
			},
			{
				Name:   "seed",
				Usage:  "Load the bundled seed corpus into the index",
				Action: seedCommand,
			},
			{
				Name:      "search",
				Usage:     "Retrieve passages for a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"k"},
						Usage:   "Maximum passages to return",
						Value:   5,
					},
				},
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the knowledge base",
				ArgsUsage: "<question>",
				Action:    askCommand,
			},
			{
				Name:   "clear",
				Usage:  "Delete every record in the index",
				Action: clearCommand,
			},
			{
				Name:   "reembed",
				Usage:  "Recompute every vector with the configured embedding model",
				Action: reembedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "target",
						Usage: "Write vectors to this index instead of rewriting in place",
					},
				},
			},
			{
				Name:   "serve",
				Usage:  "Serve the knowledge base over HTTP",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (empty uses the configured address)",
					},
				},
			},
		},
	}
}

// setup configures logging and loads the dotenv file.
func setup(c *cli.Context) error {
	if err := setupLogger(c); err != nil {
		return err
	}
	if path := c.String("env-file"); path != "" {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

func open(cfg *config.Config) (*ragline.Knowledge, error) {
	k, err := ragline.Open(cfg, ragline.WithLogger(slog.Default()), ragline.WithProgress(os.Stderr))
	if err != nil {
		return nil, fmt.Errorf("failed to open knowledge base: %w", err)
	}
	return k, nil
}

func ingestCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if n := c.Int("concurrency"); n > 0 {
		cfg.Ingest.Concurrency = n
	}
	if c.Int("limit") < 0 || c.Int("chunk-max-length") < 0 || c.Int("batch-size") < 0 {
		return fmt.Errorf("limit, chunk-max-length and batch-size must not be negative")
	}

	k, err := open(cfg)
	if err != nil {
		return err
	}
	defer k.Close()

	stats, err := k.Refresh(c.Context, c.Int("limit"), &ingestion.IngestOptions{
		ChunkMaxLength: c.Int("chunk-max-length"),
		BatchSize:      c.Int("batch-size"),
		ClearOld:       c.Bool("clear-old"),
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	fmt.Printf("Documents: %d\nChunks: %d\nUpserted: %d\n", stats.Docs, stats.Chunks, stats.Upserted)
	return nil
}

func seedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	k, err := open(cfg)
	if err != nil {
		return err
	}
	defer k.Close()

	n, err := k.Seed(c.Context)
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}
	fmt.Printf("Seeded %d entries\n", n)
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("query is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	k, err := open(cfg)
	if err != nil {
		return err
	}
	defer k.Close()

	passages, err := k.Search(c.Context, query, c.Int("limit"))
	if err != nil {
		return err
	}
	fmt.Printf("Found %d passages\n", len(passages))
	for i, p := range passages {
		fmt.Printf("%d: [%0.3f] %s\n   %s\n", i, p.Score, p.Source, p.Text)
	}
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if strings.TrimSpace(question) == "" {
		return fmt.Errorf("question is required")
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	k, err := open(cfg)
	if err != nil {
		return err
	}
	defer k.Close()

	resp := k.Ask(c.Context, question, nil)
	fmt.Println(resp.Text)
	if len(resp.Contexts) > 0 {
		fmt.Printf("\n(%d supporting passages)\n", len(resp.Contexts))
	}
	return nil
}

func clearCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	k, err := open(cfg)
	if err != nil {
		return err
	}
	defer k.Close()

	return k.Clear(c.Context)
}

func reembedCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	k, err := open(cfg)
	if err != nil {
		return err
	}
	defer k.Close()

	n, err := k.Reembed(c.Context, c.String("target"))
	if err != nil {
		return fmt.Errorf("reembedding failed: %w", err)
	}
	fmt.Printf("Reembedded %d records\n", n)
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	addr := c.String("addr")
	if addr == "" {
		addr = cfg.Server.Addr
	}

	k, err := ragline.Open(cfg, ragline.WithLogger(slog.Default()))
	if err != nil {
		return fmt.Errorf("failed to open knowledge base: %w", err)
	}
	defer k.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := server.New(k,
		server.WithLogger(slog.Default()),
		server.WithSupportContact(cfg.Assistant.SupportContact))
	slog.Info("serving knowledge base", "addr", addr, "index", cfg.Store.Index)
	return server.ListenAndServe(ctx, addr, handler, cfg.Server.ShutdownTimeout)
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
