// Command townsim runs the Tiny Town agent simulation.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/talgya/tiny-town/internal/api"
	"github.com/talgya/tiny-town/internal/config"
	"github.com/talgya/tiny-town/internal/llm"
	"github.com/talgya/tiny-town/internal/persistence"
	"github.com/talgya/tiny-town/internal/scenario"
	"github.com/talgya/tiny-town/internal/sim"
)

func main() {
	// .env is optional; real environments set variables directly.
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Tiny Town — turn-based agent simulation")

	// ── Scenario ──────────────────────────────────────────────────────
	sc, err := scenario.Load(cfg.ScenarioPath)
	if err != nil {
		slog.Error("failed to load scenario", "error", err)
		os.Exit(1)
	}
	slog.Info("scenario loaded", "name", sc.Name,
		"locations", len(sc.Locations), "characters", len(sc.Characters))

	// ── Database ──────────────────────────────────────────────────────
	os.MkdirAll(filepath.Dir(cfg.DBPath), 0755)
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	// ── LLM Client ────────────────────────────────────────────────────
	provider, err := llm.NewProvider(llm.ProviderConfig{
		Name:    cfg.Provider,
		APIKey:  providerKey(cfg),
		Model:   providerModel(cfg),
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		slog.Error("failed to build llm provider", "error", err)
		os.Exit(1)
	}

	var gen llm.Completer
	if client := llm.NewClient(provider, cfg.LLMCallsPerMin); client != nil {
		gen = client
		slog.Info("LLM client enabled", "provider", provider.Name())
	} else {
		slog.Warn("no API key configured — characters run on scripted behavior only")
	}

	// ── World ─────────────────────────────────────────────────────────
	world := sim.NewWorld(sc, cfg.Seed, cfg.MinutesPerTurn, gen)

	world.Mu.Lock()
	loaded, err := db.LoadWorldState(world)
	if err != nil {
		world.Mu.Unlock()
		slog.Error("failed to load world state", "error", err)
		os.Exit(1)
	}
	if !loaded {
		slog.Info("no saved state found, starting fresh", "sim_time", sim.SimTime(world.Tick))
		if err := db.SaveWorldState(world); err != nil {
			slog.Error("initial save failed", "error", err)
		}
	}
	world.Mu.Unlock()

	// ── Engine ────────────────────────────────────────────────────────
	eng := sim.NewEngine(world)
	eng.Interval = time.Duration(cfg.TurnSeconds) * time.Second

	// Auto-save at midnight, when the nightly pass has just run.
	var lastSavedDay int
	eng.OnTurn = func(tick uint64) {
		day := sim.SituationAt(tick).Day
		if day == lastSavedDay {
			return
		}
		lastSavedDay = day

		world.Mu.Lock()
		err := db.SaveWorldState(world)
		world.Mu.Unlock()
		if err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}
	lastSavedDay = sim.SituationAt(world.Tick).Day

	// ── HTTP API ──────────────────────────────────────────────────────
	if cfg.AdminKey == "" {
		slog.Warn("TOWNSIM_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}

	apiServer := &api.Server{
		World:    world,
		Eng:      eng,
		DB:       db,
		Port:     cfg.Port,
		AdminKey: cfg.AdminKey,
	}
	apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		eng.Stop()
	}()

	fmt.Printf("\n%s is awake: %d townspeople across %d places.\n",
		sc.Name, len(sc.Characters), len(sc.Locations))
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.Port)
	if loaded {
		fmt.Printf("Resuming from %s\n", sim.SimTime(world.Tick))
	}
	fmt.Println("Starting simulation... (Ctrl+C to stop)")

	eng.Run()

	// Final save on shutdown.
	slog.Info("final save...")
	world.Mu.Lock()
	err = db.SaveWorldState(world)
	world.Mu.Unlock()
	if err != nil {
		slog.Error("final save failed", "error", err)
	}

	fmt.Println("Simulation stopped. Town state saved.")
}

func providerKey(cfg *config.Config) string {
	if cfg.Provider == "openai" {
		return cfg.OpenAIKey
	}
	return cfg.AnthropicKey
}

func providerModel(cfg *config.Config) string {
	if cfg.Provider == "openai" {
		return cfg.OpenAIModel
	}
	return cfg.AnthropicModel
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
