package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"codesmith/internal/agent"
	"codesmith/internal/gateway"
	"codesmith/internal/governance"
	"codesmith/internal/observability"
	"codesmith/internal/store"
	"codesmith/internal/tools"
	"codesmith/pkg/config"
)

func main() {
	// .env is optional; a missing file just means the key comes from the
	// real environment.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatal(err)
	}

	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		log.Fatal("No enabled provider found in config")
	}
	if pCfg.APIKey == "" {
		log.Fatal("Provider API key is not set. Put OPENROUTER_API_KEY in the environment or a .env file.")
	}

	observability.PrintBanner("v0.1.0", pCfg.Model)
	logger := observability.NewLogger(cfg.App.LogDir)

	// Tools
	registry := tools.NewRegistry()
	registry.Register(tools.NewFilesystemTool(cfg.App.Workspace))
	registry.Register(tools.NewShellTool(cfg.App.Workspace, time.Duration(cfg.App.ShellTimeoutSecs)*time.Second))
	registry.Register(tools.NewWebFetchTool())

	searchTool, err := tools.NewSearchTool()
	if err != nil {
		log.Printf("Warning: failed to initialize search tool: %v", err)
	} else {
		registry.Register(searchTool)
	}

	// Security validation of action steps.
	deniedPatterns := cfg.Policy.DeniedPatterns
	if len(deniedPatterns) == 0 {
		deniedPatterns = governance.DefaultDeniedPatterns()
	}
	policy, err := governance.NewPolicyEngineFromRules(cfg.Policy.DeniedTools, deniedPatterns)
	if err != nil {
		log.Fatal(err)
	}

	history, err := store.NewHistoryStore(cfg.Memory.Path)
	if err != nil {
		log.Fatal(err)
	}
	defer history.Close()

	// LLM provider
	var model llms.Model
	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		model, err = openai.New(opts...)
	default:
		log.Fatalf("Provider %s not yet implemented", pName)
	}
	if err != nil {
		log.Fatal(err)
	}

	planner := agent.NewPlanner(model, pCfg.Model, cfg.App.LLMCallsPerMinute)
	prompts := agent.NewPromptManager(cfg.App.PromptsDir)

	brain := agent.NewStepBrain(planner, registry, policy, history, logger, prompts)
	brain.MaxIterations = cfg.App.MaxIterations
	brain.MaxToolOutput = cfg.App.MaxToolOutput

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	console := gateway.NewConsole(brain, uuid.NewString(), os.Stdin, os.Stdout)
	registry.Register(tools.NewAskUserTool(console))

	if err := console.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
