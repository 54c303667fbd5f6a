// Package app wires the companion together: the conversation orchestrator,
// the command handlers, and the application lifecycle.
package app

import (
	"context"
	"time"

	"github.com/pmarkelov/teplo/common/trace"
	"github.com/pmarkelov/teplo/internal/companion/llm"
	"github.com/pmarkelov/teplo/internal/companion/observability"
	"github.com/pmarkelov/teplo/internal/companion/script"
	"github.com/pmarkelov/teplo/internal/companion/store"
	"github.com/pmarkelov/teplo/internal/companion/triggers"
)

// boundaryIntervalDays is how many calendar days elapse between recurrences
// of the "I am not a therapist" reminder.
const boundaryIntervalDays = 30

// defaultSystemPrompt frames every completion call. Overridable via config
// so the companion's voice can be tuned without a rebuild.
const defaultSystemPrompt = "You are a warm, supportive companion. You listen " +
	"without judgment, answer briefly and gently, and never give medical " +
	"advice. When the conversation touches on self-harm or crisis, you " +
	"encourage reaching out to real people and professional help."

// Transport is the outbound side of the chat connection.
type Transport interface {
	Deliver(ctx context.Context, chatID int64, text string) error
	NotifyTyping(ctx context.Context, chatID int64)
}

// Orchestrator runs the layered per-message pipeline: usage accounting,
// safety scripts, persistence, then the completion backend.
type Orchestrator struct {
	store     *store.Store
	provider  llm.Provider
	transport Transport
	playbook  *script.Loader

	systemPrompt string
	model        string
	maxTokens    int
}

// NewOrchestrator builds the pipeline. systemPrompt and model may be empty
// to take the defaults.
func NewOrchestrator(st *store.Store, provider llm.Provider, transport Transport, playbook *script.Loader, systemPrompt, model string, maxTokens int) *Orchestrator {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Orchestrator{
		store:        st,
		provider:     provider,
		transport:    transport,
		playbook:     playbook,
		systemPrompt: systemPrompt,
		model:        model,
		maxTokens:    maxTokens,
	}
}

// HandleText processes one inbound message. The safety layers run first and
// independently; each one that matches sends its script, then processing
// continues. Only storage write failures abort the pipeline.
func (o *Orchestrator) HandleText(ctx context.Context, chatID int64, text string, at time.Time) {
	ctx = trace.WithID(ctx, trace.NewID())
	log := observability.WithTrace(ctx)
	pb := o.playbook.Playbook()

	// Daily usage accounting; exactly the sixth message of a day earns the
	// dependency warning, once.
	count, err := o.store.RecordActivity(ctx, chatID, at)
	if err != nil {
		log.Error("could not record activity", "err", err)
	} else if count == 6 {
		o.send(ctx, chatID, pb.Scripts.DependencyWarning)
	}

	history, err := o.store.RecentMessages(ctx, chatID, store.RetentionCap)
	if err != nil {
		log.Error("could not read history; proceeding with empty context", "err", err)
		history = nil
	}

	if len(history) == 0 {
		// First contact: greet, and start the boundary clock so the
		// reminder does not fire on day one.
		o.send(ctx, chatID, pb.Scripts.Greeting)
		if err := o.store.MarkBoundarySent(ctx, chatID, at); err != nil {
			log.Error("could not mark boundary reminder", "err", err)
		}
	} else if o.boundaryDue(ctx, chatID, at) {
		o.send(ctx, chatID, pb.Scripts.Boundary)
		if err := o.store.MarkBoundarySent(ctx, chatID, at); err != nil {
			log.Error("could not mark boundary reminder", "err", err)
		}
	}

	if triggers.ContainsAny(text, pb.AnxietyWords) {
		o.send(ctx, chatID, pb.Scripts.Grounding)
	}
	if triggers.ContainsAny(text, pb.TriggerWords) {
		o.send(ctx, chatID, pb.Scripts.Empathy)
	}

	if err := o.store.AppendMessage(ctx, chatID, store.RoleUser, text, at); err != nil {
		log.Error("could not persist inbound message", "err", err)
		o.send(ctx, chatID, pb.Scripts.Fallback)
		return
	}

	o.transport.NotifyTyping(ctx, chatID)

	window, err := o.store.RecentMessages(ctx, chatID, store.RetentionCap)
	if err != nil {
		log.Error("could not read context window", "err", err)
		window = []store.ChatMessage{{Role: store.RoleUser, Content: text}}
	}

	resp, err := o.provider.Complete(ctx, llm.CompletionRequest{
		Model:     o.model,
		Messages:  o.buildContext(window),
		MaxTokens: o.maxTokens,
	})
	if err != nil {
		log.Error("completion failed; sending fallback", "err", err)
		o.send(ctx, chatID, pb.Scripts.Fallback)
		return
	}
	if resp.Content == "" {
		log.Error("completion returned empty content; sending fallback")
		o.send(ctx, chatID, pb.Scripts.Fallback)
		return
	}

	log.Info("completion ok",
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	// The reply reuses the turn's timestamp; the insertion id keeps it
	// ordered after the user message it answers.
	if err := o.store.AppendMessage(ctx, chatID, store.RoleAssistant, resp.Content, at); err != nil {
		log.Error("could not persist assistant reply", "err", err)
	}
	o.send(ctx, chatID, resp.Content)
}

// boundaryDue reports whether the recurring boundary reminder should go out.
// A missing mark with existing history counts as due: the stats row predates
// the reminder ledger.
func (o *Orchestrator) boundaryDue(ctx context.Context, chatID int64, now time.Time) bool {
	stats, err := o.store.Stats(ctx, chatID)
	if err != nil {
		observability.WithTrace(ctx).Error("could not read stats for boundary check", "err", err)
		return false
	}
	if stats.LastBoundaryDate.IsZero() {
		return true
	}
	// The mark is a calendar date, so the recurrence counts whole calendar
	// days in the message's own timezone, not elapsed hours. Reducing both
	// sides to UTC midnights makes the subtraction an exact day count.
	nowDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	days := int(nowDay.Sub(stats.LastBoundaryDate).Hours() / 24)
	return days >= boundaryIntervalDays
}

// buildContext prepends the system prompt to the rolling window.
func (o *Orchestrator) buildContext(window []store.ChatMessage) []llm.Message {
	msgs := make([]llm.Message, 0, len(window)+1)
	msgs = append(msgs, llm.Message{Role: llm.RoleSystem, Content: o.systemPrompt})
	for _, m := range window {
		msgs = append(msgs, llm.Message{Role: llm.Role(m.Role), Content: m.Content})
	}
	return msgs
}

// send delivers a script or reply; failures are logged and dropped so one
// broken delivery never stops the remaining layers.
func (o *Orchestrator) send(ctx context.Context, chatID int64, text string) {
	if err := o.transport.Deliver(ctx, chatID, text); err != nil {
		observability.WithTrace(ctx).Error("could not deliver message", "err", err)
	}
}
