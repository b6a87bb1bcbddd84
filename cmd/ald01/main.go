// Command ald01 runs one reasoning session from the command line: it wires
// the provider registry, failover dispatcher, tool registry, event bus, and
// memory store from config, routes the query, and prints the final answer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"ald-01/internal/adapter/memory"
	"ald-01/internal/adapter/provider"
	"ald-01/internal/adapter/tool"
	"ald-01/internal/domain"
	"ald-01/internal/infra/config"
	"ald-01/internal/infra/logger"
	"ald-01/internal/infra/tracer"
	"ald-01/internal/usecase"
	"ald-01/internal/usecase/eventbus"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "ald01.yaml", "path to the YAML config file")
		queryFlag  = flag.String("query", "", "query to run (falls back to positional args)")
		agent      = flag.String("agent", "", "force a specific agent profile, skipping intent routing")
		level      = flag.Int("level", 0, "override the configured brain-power level (1-10)")
		stream     = flag.Bool("stream-events", false, "print progress events while the session runs")
	)
	flag.Parse()

	query := strings.TrimSpace(*queryFlag)
	if query == "" {
		query = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if query == "" {
		return fmt.Errorf("no query given; use -query or positional arguments")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *level != 0 {
		cfg.Brain.Power = *level
	}

	log, closeLog, err := logger.New(cfg.Logger)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		return err
	}
	defer shutdownTracer(context.Background())

	registry, dispatcher, err := buildProviders(cfg, log)
	if err != nil {
		return err
	}
	go registry.ProbeLoop(ctx, cfg.LLM.Health.ProbeInterval)

	tools, err := buildTools(cfg.Tools, log)
	if err != nil {
		return err
	}

	store, err := buildMemory(cfg.Memory, log)
	if err != nil {
		return err
	}
	defer store.Close()

	bus := eventbus.New(0, log)
	defer bus.Close()

	router := usecase.NewIntentRouter(usecase.DefaultProfiles(), cfg.Router.Threshold, log)
	controller := usecase.NewController(
		dispatcher,
		router,
		tools,
		bus,
		store,
		usecase.NewContextBuilder(log),
		usecase.PresetForLevel(cfg.Brain.Power),
		usecase.Options{
			SessionTimeout: cfg.Session.Timeout,
			MaxToolCalls:   cfg.Tools.MaxCallsPerSession,
			ForceAgent:     *agent,
		},
		log,
	)

	session := usecase.NewReasoningSession(query)

	var wg sync.WaitGroup
	if *stream {
		events, cancelSub := bus.Subscribe(session.ID())
		defer cancelSub()
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range events {
				printEvent(ev)
			}
		}()
	}

	result, err := controller.RunSession(ctx, session)
	wg.Wait()
	if err != nil {
		return err
	}

	fmt.Printf("\n%s\n", result.Answer)
	log.Info("session finished",
		"session", result.SessionID,
		"agent", result.Agent,
		"strategy", string(result.Strategy),
		"steps", len(result.Steps),
		"duration", result.Duration,
	)
	return nil
}

// buildProviders registers every enabled provider, wrapped in a circuit
// breaker, and returns the registry plus the failover dispatcher.
func buildProviders(cfg *config.Config, log *slog.Logger) (*provider.Registry, *provider.Dispatcher, error) {
	registry := provider.NewRegistry(cfg.LLM.Health, log)
	dispatcher := provider.NewDispatcher(registry, cfg.LLM.AttemptTimeout, log)

	registered := 0
	for _, pc := range cfg.LLM.Providers {
		if pc.Disabled {
			log.Info("provider disabled, skipping", "provider", pc.Name)
			continue
		}

		var base domain.Provider
		switch pc.Type {
		case "ollama":
			base = provider.NewOllamaProvider(pc, log)
		default:
			base = provider.NewOpenAIProvider(pc, log)
		}

		wrapped := provider.NewCircuitBreakerProvider(base, cfg.LLM.CircuitBreaker, log)
		desc := domain.ProviderDescriptor{
			Name:     pc.Name,
			BaseURL:  pc.BaseURL,
			Model:    pc.Model,
			Priority: pc.Priority,
		}
		if err := registry.Register(desc, wrapped); err != nil {
			return nil, nil, err
		}
		dispatcher.SetRateLimit(pc.Name, pc.RateLimit, pc.RateBurst)
		registered++
	}

	if registered == 0 {
		return nil, nil, fmt.Errorf("no enabled providers configured")
	}
	return registry, dispatcher, nil
}

func buildTools(cfg config.ToolsConfig, log *slog.Logger) (*tool.Registry, error) {
	registry := tool.NewRegistry(log)

	readFile, err := tool.NewReadFileTool(cfg.SandboxRoot)
	if err != nil {
		return nil, err
	}

	for _, t := range []domain.Tool{
		readFile,
		tool.NewHTTPGetTool(cfg.HTTPTimeout, cfg.HTTPMaxBody),
		tool.NewShellTool(cfg.AllowedCommands, cfg.ShellTimeout, log),
	} {
		if err := registry.Register(t); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

func buildMemory(cfg config.MemoryConfig, log *slog.Logger) (domain.MemoryStore, error) {
	switch cfg.Provider {
	case "noop":
		return memory.NewNoopStore(), nil
	default:
		return memory.NewSQLiteStore(cfg.Path, log)
	}
}

func printEvent(ev domain.ProgressEvent) {
	var parts []string
	for k, v := range ev.Payload {
		if k == "answer" {
			continue
		}
		parts = append(parts, k+"="+v)
	}
	gap := ""
	if ev.Gap {
		gap = " (events dropped)"
	}
	fmt.Printf("[%3d] %-16s %s%s\n", ev.Seq, ev.Kind, strings.Join(parts, " "), gap)
}
