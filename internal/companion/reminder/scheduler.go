// Package reminder implements the recurring affirmation scheduler: a
// long-lived loop that keeps at least 48 hours between affirmations, picks a
// randomized delivery time inside a daytime window, and escalates the wording
// when recent history shows distress.
//
// Clock injection: the Scheduler accepts a clock interface so tests can
// advance time precisely without wall-clock sleeps, and the "compute next
// target instant" step is a pure function.
package reminder

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/pmarkelov/teplo/internal/companion/script"
)

// Clock abstracts time.Now and time.After so tests can substitute a
// controlled fake that advances on demand.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// realClock delegates to the standard library.
type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Ledger is the slice of the stats store the scheduler needs: when the last
// affirmation went out, and recording a new send.
type Ledger interface {
	LastAffirmationAt(ctx context.Context, chatID int64) (time.Time, error)
	MarkAffirmationSent(ctx context.Context, chatID int64, at time.Time) error
}

// HistoryChecker reports whether recent user messages contain escalation
// keywords. Satisfied by *triggers.Scanner via a small adapter in app.
type HistoryChecker interface {
	RecentHistoryHasTrigger(ctx context.Context, chatID int64, within time.Duration, words []string) (bool, error)
}

// Deliverer sends a single message to the chat.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, text string) error
}

// Config tunes the scheduler. Zero values take the defaults documented on
// each field.
type Config struct {
	// ChatID is the single monitored conversation.
	ChatID int64
	// MinInterval is the minimum spacing between affirmations. Default 48h.
	MinInterval time.Duration
	// PollInterval is how long to wait before re-evaluating while inside the
	// MinInterval gate. Coarse on purpose: an affirmation recorded by another
	// process is picked up within this granularity. Default 1h.
	PollInterval time.Duration
	// WindowStartHour / WindowEndHour bound the local-time delivery window
	// [start:00, end:00). Defaults 11 and 19.
	WindowStartHour int
	WindowEndHour   int
	// Lookback is how far back the escalation scan reaches. Default 24h.
	Lookback time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinInterval <= 0 {
		c.MinInterval = 48 * time.Hour
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Hour
	}
	if c.WindowStartHour == 0 && c.WindowEndHour == 0 {
		c.WindowStartHour = 11
		c.WindowEndHour = 19
	}
	if c.Lookback <= 0 {
		c.Lookback = 24 * time.Hour
	}
	return c
}

// Scheduler runs the affirmation loop for the monitored chat.
type Scheduler struct {
	cfg      Config
	ledger   Ledger
	history  HistoryChecker
	sender   Deliverer
	playbook *script.Loader
	clk      Clock
	rng      *rand.Rand
}

// New returns a Scheduler on the real clock.
func New(cfg Config, ledger Ledger, history HistoryChecker, sender Deliverer, playbook *script.Loader) *Scheduler {
	return NewWithClock(cfg, ledger, history, sender, playbook, realClock{},
		rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithClock is like New but injects the clock and randomness source.
// Intended for tests.
func NewWithClock(cfg Config, ledger Ledger, history HistoryChecker, sender Deliverer, playbook *script.Loader, clk Clock, rng *rand.Rand) *Scheduler {
	return &Scheduler{
		cfg:      cfg.withDefaults(),
		ledger:   ledger,
		history:  history,
		sender:   sender,
		playbook: playbook,
		clk:      clk,
		rng:      rng,
	}
}

// NextTarget returns the next randomized delivery instant: a uniformly random
// hour in [startHour, endHour) and minute in [0, 60) on now's calendar day,
// rolled to the same time tomorrow when that instant has already passed.
// Pure function of its inputs.
func NextTarget(now time.Time, rng *rand.Rand, startHour, endHour int) time.Time {
	hour := startHour + rng.Intn(endHour-startHour)
	minute := rng.Intn(60)

	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// Run executes the scheduler loop until ctx is cancelled. The sleep between
// iterations is a single cancellable select; no state is written while
// sleeping, so shutdown mid-sleep cannot corrupt the ledger.
func (s *Scheduler) Run(ctx context.Context) {
	slog.Info("affirmation scheduler started",
		"chat_id", s.cfg.ChatID,
		"min_interval", s.cfg.MinInterval,
		"window", slog.GroupValue(
			slog.Int("start_hour", s.cfg.WindowStartHour),
			slog.Int("end_hour", s.cfg.WindowEndHour),
		))

	for {
		if ctx.Err() != nil {
			slog.Info("affirmation scheduler stopped")
			return
		}

		if !s.eligible(ctx) {
			if !s.sleep(ctx, s.cfg.PollInterval) {
				return
			}
			continue
		}

		target := NextTarget(s.clk.Now(), s.rng, s.cfg.WindowStartHour, s.cfg.WindowEndHour)
		slog.Info("next affirmation scheduled", "target", target)

		if !s.sleep(ctx, target.Sub(s.clk.Now())) {
			return
		}

		// Re-check after the long sleep: another process may have sent and
		// marked in the meantime.
		if !s.eligible(ctx) {
			continue
		}

		s.fire(ctx)
	}
}

// eligible reports whether at least MinInterval has passed since the last
// recorded affirmation. A ledger read failure counts as eligible so a broken
// read degrades to one extra send rather than permanent silence.
func (s *Scheduler) eligible(ctx context.Context) bool {
	last, err := s.ledger.LastAffirmationAt(ctx, s.cfg.ChatID)
	if err != nil {
		slog.Warn("could not read affirmation ledger; assuming eligible", "err", err)
		return true
	}
	if last.IsZero() {
		return true
	}
	return s.clk.Now().Sub(last) >= s.cfg.MinInterval
}

// fire chooses the wording, delivers, and marks the ledger only after the
// send succeeded. "Sent but unmarked" is the preferred failure mode: it risks
// one extra affirmation, never silence.
func (s *Scheduler) fire(ctx context.Context) {
	pb := s.playbook.Playbook()

	escalated, err := s.history.RecentHistoryHasTrigger(ctx, s.cfg.ChatID, s.cfg.Lookback, pb.EscalationWords)
	if err != nil {
		slog.Warn("escalation scan failed; using plain affirmation", "err", err)
		escalated = false
	}

	text := pb.Scripts.Affirmation
	if escalated {
		text = pb.Scripts.AffirmationEscalated
	}

	if err := s.sender.Deliver(ctx, s.cfg.ChatID, text); err != nil {
		slog.Error("affirmation delivery failed; will retry next cycle", "err", err)
		return
	}
	if err := s.ledger.MarkAffirmationSent(ctx, s.cfg.ChatID, s.clk.Now()); err != nil {
		slog.Error("could not mark affirmation sent", "err", err)
		return
	}
	slog.Info("affirmation sent", "escalated", escalated)
}

// sleep waits for d (or returns immediately for non-positive d) and reports
// false when ctx was cancelled while waiting.
func (s *Scheduler) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		slog.Info("affirmation scheduler stopped")
		return false
	case <-s.clk.After(d):
		return true
	}
}
