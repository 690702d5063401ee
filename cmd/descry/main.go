package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"descry/pkg/cache"
	"descry/pkg/config"
	"descry/pkg/db"
	"descry/pkg/engine"
	"descry/pkg/engine/gemini"
	"descry/pkg/engine/lexicon"
	"descry/pkg/logging"
	"descry/pkg/orchestrator"
	"descry/pkg/store"
	"descry/pkg/version"
)

var (
	initConfig = flag.Bool("init-config", false, "Generate default config file and exit")
	configPath = flag.String("config", "configs/descry.yaml", "Path to config file")
	chapterArg = flag.String("chapter", "", "Path to chapter text file (default: stdin)")
	chapterID  = flag.String("chapter-id", "chapter", "Chapter identifier for logging")
	mode       = flag.String("mode", "", "Processing mode override (single|parallel|sequential|ensemble|adaptive)")
	status     = flag.Bool("status", false, "Print engine status and exit")
)

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated:", *configPath)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Optional .env for the Gemini API key.
	_ = godotenv.Load()

	appCfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	slog.Info("Descry started", "version", version.Version, "config", *configPath)

	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	st := store.NewSQLiteStore(dbConn)
	defer st.Close()

	registry := engine.NewRegistry()
	registry.Register(lexicon.New())

	gem, err := gemini.New(os.Getenv("GEMINI_API_KEY"), appCfg.Engines["gemini"].Params["model"])
	if err != nil {
		return fmt.Errorf("failed to initialize gemini engine: %w", err)
	}
	registry.Register(gem)

	provider := config.NewProvider(appCfg, st)
	orch := orchestrator.New(registry, provider, st)
	if appCfg.Orchestrator.CacheResults {
		orch.SetCache(cache.NewSQLiteCache(dbConn))
	}
	if err := orch.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize orchestrator: %w", err)
	}

	if *status {
		return printJSON(orch.Status(ctx))
	}

	text, err := readChapter(*chapterArg)
	if err != nil {
		return err
	}

	res, err := orch.Extract(ctx, text, *chapterID, *mode)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}
	return printJSON(res)
}

func readChapter(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read chapter file: %w", err)
	}
	return string(data), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
