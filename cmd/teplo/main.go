// Command teplo runs the supportive chat companion: a single-chat Telegram
// bot with a rolling conversation memory, an LLM backend, and layered
// emotional-safety scripts.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/pmarkelov/teplo/common/environment"
	"github.com/pmarkelov/teplo/common/version"
	"github.com/pmarkelov/teplo/internal/companion/app"
	"github.com/pmarkelov/teplo/internal/companion/llm"
	"github.com/pmarkelov/teplo/internal/companion/observability"
	"github.com/pmarkelov/teplo/internal/companion/reminder"
	"github.com/pmarkelov/teplo/internal/companion/telegram"
)

func main() {
	// A .env file is a convenience for local runs; absence is fine.
	_ = godotenv.Load()

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "json"),
	)

	fmt.Printf("teplo %s\n", version.Info())

	config, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	companion, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize companion: %v\n", err)
		os.Exit(1)
	}
	defer companion.Stop()

	if err := companion.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running companion: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig assembles the application config from environment variables.
func loadConfig() (*app.Config, error) {
	token, err := environment.RequiredString("TELEGRAM_BOT_TOKEN")
	if err != nil {
		return nil, err
	}
	chatID := environment.Int64Or("ALLOWED_CHAT_ID", 0)
	if chatID == 0 {
		return nil, fmt.Errorf("ALLOWED_CHAT_ID is required")
	}
	apiKey, err := environment.RequiredString("LLM_API_KEY")
	if err != nil {
		return nil, err
	}

	return &app.Config{
		DatabasePath: environment.StringOr("TEPLO_DB_PATH", "./teplo.db"),
		Telegram: telegram.Config{
			Token:         token,
			AllowedChatID: chatID,
		},
		LLM: llm.OpenAIConfig{
			APIKey:  apiKey,
			BaseURL: environment.StringOr("LLM_BASE_URL", ""),
			Model:   environment.StringOr("LLM_MODEL", "deepseek-chat"),
			Timeout: environment.DurationOr("LLM_TIMEOUT", 25*time.Second),
		},
		SystemPrompt: environment.StringOr("SYSTEM_PROMPT", ""),
		MaxTokens:    environment.IntOr("MAX_TOKENS", 0),
		PlaybookPath: environment.StringOr("PLAYBOOK_FILE", ""),
		Reminder: reminder.Config{
			MinInterval:  environment.DurationOr("REMINDER_MIN_INTERVAL", 48*time.Hour),
			PollInterval: environment.DurationOr("REMINDER_POLL_INTERVAL", time.Hour),
		},
	}, nil
}
