package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmarkelov/teplo/internal/companion/observability"
	"github.com/pmarkelov/teplo/internal/companion/telegram"
)

// Inline-keyboard layouts. Callback data is "<prefix>_<key>" where the key
// indexes the playbook's response maps.
var (
	nowChoices = []telegram.Choice{
		{Label: "Anxious", Data: "now_anxious"},
		{Label: "Lonely", Data: "now_lonely"},
		{Label: "Angry", Data: "now_angry"},
		{Label: "I want to hear about love", Data: "now_love"},
	}
	moodChoices = []telegram.Choice{
		{Label: "👍 Good", Data: "mood_good"},
		{Label: "😐 Okay", Data: "mood_okay"},
		{Label: "👎 Bad", Data: "mood_bad"},
	}
)

// HandleCommand answers a slash command with a script, optionally with an
// inline keyboard. An empty reply means the command is silently ignored.
func (o *Orchestrator) HandleCommand(ctx context.Context, chatID int64, command string) (string, []telegram.Choice) {
	pb := o.playbook.Playbook()

	switch command {
	case "/start":
		return pb.Scripts.Greeting, nil
	case "/help":
		return pb.Scripts.Help, nil
	case "/now":
		return pb.Scripts.NowPrompt, nowChoices
	case "/mood":
		return pb.Scripts.MoodPrompt, moodChoices
	case "/emergency":
		return pb.Scripts.Emergency, nil
	case "/clear":
		if err := o.store.ClearMessages(ctx, chatID); err != nil {
			observability.WithTrace(ctx).Error("could not clear history", "err", err)
			return pb.Scripts.Fallback, nil
		}
		return pb.Scripts.Cleared, nil
	}
	return "", nil
}

// HandleCallback resolves an inline-keyboard press into the text the prompt
// message is edited into. Unknown data yields an empty reply.
func (o *Orchestrator) HandleCallback(_ context.Context, _ int64, data string) string {
	pb := o.playbook.Playbook()

	prefix, key, ok := strings.Cut(data, "_")
	if !ok {
		return ""
	}
	switch prefix {
	case "now":
		return pb.Scripts.Now[key]
	case "mood":
		label := choiceLabel(moodChoices, data)
		text := pb.Scripts.Mood[key]
		if text == "" {
			return ""
		}
		return fmt.Sprintf("You chose: %s\n\n%s", label, text)
	}
	return ""
}

func choiceLabel(choices []telegram.Choice, data string) string {
	for _, c := range choices {
		if c.Data == data {
			return c.Label
		}
	}
	return data
}

// UnauthorizedText is what strangers get when they try /start.
func (o *Orchestrator) UnauthorizedText() string {
	return o.playbook.Playbook().Scripts.Unauthorized
}
