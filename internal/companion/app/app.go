package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/pmarkelov/teplo/internal/companion/llm"
	"github.com/pmarkelov/teplo/internal/companion/reminder"
	"github.com/pmarkelov/teplo/internal/companion/script"
	"github.com/pmarkelov/teplo/internal/companion/store"
	"github.com/pmarkelov/teplo/internal/companion/telegram"
	"github.com/pmarkelov/teplo/internal/companion/triggers"
)

// Config holds the full application configuration.
type Config struct {
	// DatabasePath is the SQLite file location.
	DatabasePath string
	// Telegram configures the transport, including the single allowed chat.
	Telegram telegram.Config
	// LLM configures the completion backend.
	LLM llm.OpenAIConfig
	// SystemPrompt overrides the built-in companion persona when non-empty.
	SystemPrompt string
	// MaxTokens caps completion length. 0 = backend default.
	MaxTokens int
	// PlaybookPath points at an optional YAML playbook overriding the
	// built-in scripts and keyword lists. A missing or invalid file leaves
	// the defaults in place.
	PlaybookPath string
	// Reminder tunes the affirmation scheduler. ChatID is filled in from
	// Telegram.AllowedChatID.
	Reminder reminder.Config
}

// App is the assembled companion.
type App struct {
	config    *Config
	store     *store.Store
	playbook  *script.Loader
	client    *telegram.Client
	orch      *Orchestrator
	scheduler *reminder.Scheduler
}

// New assembles the application. Only storage and transport initialization
// failures are fatal here.
func New(config *Config) (*App, error) {
	st, err := store.New(config.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	playbook := script.NewLoader()
	if config.PlaybookPath != "" {
		if err := playbook.LoadFile(config.PlaybookPath); err != nil {
			slog.Warn("could not load playbook; using built-in scripts",
				"path", config.PlaybookPath, "err", err)
		}
	}

	provider := llm.NewOpenAI(config.LLM)

	a := &App{
		config:   config,
		store:    st,
		playbook: playbook,
	}

	orch := NewOrchestrator(st, provider, nil, playbook,
		config.SystemPrompt, config.LLM.Model, config.MaxTokens)

	client, err := telegram.New(config.Telegram, telegram.Handlers{
		OnText:           orch.HandleText,
		OnCommand:        orch.HandleCommand,
		OnCallback:       orch.HandleCallback,
		UnauthorizedText: orch.UnauthorizedText,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create telegram client: %w", err)
	}
	orch.transport = client

	remCfg := config.Reminder
	remCfg.ChatID = config.Telegram.AllowedChatID
	a.scheduler = reminder.New(remCfg, st, triggers.NewScanner(st), client, playbook)

	a.client = client
	a.orch = orch
	return a, nil
}

// Run starts the scheduler and the transport loop and blocks until SIGINT or
// SIGTERM. Both loops are drained before returning so Stop can close the
// store with nothing in flight.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.scheduler.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		a.client.Start(ctx)
	}()

	slog.Info("companion running",
		"chat_id", a.config.Telegram.AllowedChatID,
		"db", a.config.DatabasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("shutting down", "signal", sig.String())

	cancel()
	wg.Wait()
	return nil
}

// Stop releases resources. Safe to call after Run returns.
func (a *App) Stop() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			slog.Error("could not close store", "err", err)
		}
	}
}
