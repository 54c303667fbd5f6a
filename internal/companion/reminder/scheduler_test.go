package reminder_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/pmarkelov/teplo/internal/companion/reminder"
	"github.com/pmarkelov/teplo/internal/companion/script"
)

// --- NextTarget ---

func TestNextTarget_WithinWindow(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.Local)

	for i := 0; i < 500; i++ {
		target := reminder.NextTarget(now, rng, 11, 19)
		if target.Hour() < 11 || target.Hour() >= 19 {
			t.Fatalf("target hour %d outside [11, 19)", target.Hour())
		}
		if !target.After(now) {
			t.Fatalf("target %v not after now %v", target, now)
		}
		if target.Day() != now.Day() {
			t.Fatalf("morning call should schedule today, got %v", target)
		}
	}
}

func TestNextTarget_RollsToTomorrow(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	now := time.Date(2026, 3, 10, 22, 30, 0, 0, time.Local)

	for i := 0; i < 100; i++ {
		target := reminder.NextTarget(now, rng, 11, 19)
		if !target.After(now) {
			t.Fatalf("target %v not after now %v", target, now)
		}
		if target.Day() != 11 {
			t.Fatalf("late-evening call should schedule tomorrow, got %v", target)
		}
	}
}

// --- fakes ---

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
	// waited receives the duration of every After call, so tests know the
	// scheduler has gone to sleep before advancing time.
	waited chan time.Duration
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now, waited: make(chan time.Duration, 16)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	ch := make(chan time.Time, 1)
	c.waiters = append(c.waiters, fakeWaiter{at: c.now.Add(d), ch: ch})
	c.mu.Unlock()
	c.waited <- d
	return ch
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	var rest []fakeWaiter
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
		} else {
			rest = append(rest, w)
		}
	}
	c.waiters = rest
}

type fakeLedger struct {
	mu     sync.Mutex
	last   time.Time
	marks  int
	getErr error
}

func (l *fakeLedger) LastAffirmationAt(_ context.Context, _ int64) (time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.last, l.getErr
}

func (l *fakeLedger) MarkAffirmationSent(_ context.Context, _ int64, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.last = at
	l.marks++
	return nil
}

func (l *fakeLedger) markCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.marks
}

type fakeHistory struct{ triggered bool }

func (h *fakeHistory) RecentHistoryHasTrigger(context.Context, int64, time.Duration, []string) (bool, error) {
	return h.triggered, nil
}

type fakeSender struct {
	mu   sync.Mutex
	err  error
	sent chan string
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(chan string, 16)}
}

func (s *fakeSender) Deliver(_ context.Context, _ int64, text string) error {
	s.mu.Lock()
	err := s.err
	s.mu.Unlock()
	if err != nil {
		s.sent <- "ERROR:" + text
		return err
	}
	s.sent <- text
	return nil
}

func waitText(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
		return ""
	}
}

func waitSleep(t *testing.T, clk *fakeClock) time.Duration {
	t.Helper()
	select {
	case d := <-clk.waited:
		return d
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for scheduler to sleep")
		return 0
	}
}

func startScheduler(t *testing.T, cfg reminder.Config, ledger *fakeLedger, history *fakeHistory, sender *fakeSender, clk *fakeClock) context.CancelFunc {
	t.Helper()
	s := reminder.NewWithClock(cfg, ledger, history, sender, script.NewLoader(), clk, rand.New(rand.NewSource(7)))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("scheduler did not stop on cancel")
		}
	})
	return cancel
}

// --- Run loop ---

func TestScheduler_SendsAndMarks(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))
	ledger := &fakeLedger{}
	sender := newFakeSender()
	startScheduler(t, reminder.Config{ChatID: 1}, ledger, &fakeHistory{}, sender, clk)

	// Never sent before: the first sleep is until the randomized target.
	d := waitSleep(t, clk)
	clk.Advance(d)

	text := waitText(t, sender.sent)
	if text != script.Default().Scripts.Affirmation {
		t.Errorf("delivered %q, want plain affirmation", text)
	}
	if ledger.markCount() != 1 {
		t.Errorf("mark count: got %d, want 1", ledger.markCount())
	}

	// Now inside the 48h gate: next sleep is the coarse poll interval.
	if d := waitSleep(t, clk); d != time.Hour {
		t.Errorf("gated sleep: got %v, want 1h", d)
	}
}

func TestScheduler_EscalatesOnRecentTriggers(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))
	sender := newFakeSender()
	startScheduler(t, reminder.Config{ChatID: 1}, &fakeLedger{}, &fakeHistory{triggered: true}, sender, clk)

	clk.Advance(waitSleep(t, clk))

	if text := waitText(t, sender.sent); text != script.Default().Scripts.AffirmationEscalated {
		t.Errorf("delivered %q, want escalated affirmation", text)
	}
}

func TestScheduler_GateBlocksEarlySend(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	clk := newFakeClock(now)
	ledger := &fakeLedger{last: now.Add(-3 * time.Hour)} // sent 3h ago
	sender := newFakeSender()
	startScheduler(t, reminder.Config{ChatID: 1}, ledger, &fakeHistory{}, sender, clk)

	// Gated: the scheduler polls instead of scheduling a send.
	if d := waitSleep(t, clk); d != time.Hour {
		t.Fatalf("expected 1h poll sleep while gated, got %v", d)
	}
	select {
	case text := <-sender.sent:
		t.Fatalf("unexpected delivery while gated: %q", text)
	default:
	}
	if ledger.markCount() != 0 {
		t.Errorf("ledger advanced while gated: %d marks", ledger.markCount())
	}
}

func TestScheduler_RechecksGateAfterLongSleep(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local)
	clk := newFakeClock(now)
	ledger := &fakeLedger{}
	sender := newFakeSender()
	startScheduler(t, reminder.Config{ChatID: 1}, ledger, &fakeHistory{}, sender, clk)

	d := waitSleep(t, clk)
	// While the scheduler sleeps toward its target, an external process
	// sends and marks; the wake-up re-check must skip this cycle.
	ledger.MarkAffirmationSent(context.Background(), 1, clk.Now().Add(d))
	clk.Advance(d)

	// The skipped cycle goes straight back to the poll gate.
	if d := waitSleep(t, clk); d != time.Hour {
		t.Fatalf("expected 1h poll sleep after skipped cycle, got %v", d)
	}
	select {
	case text := <-sender.sent:
		t.Fatalf("unexpected delivery after external mark: %q", text)
	default:
	}
	if ledger.markCount() != 1 {
		t.Errorf("mark count: got %d, want only the external mark", ledger.markCount())
	}
}

func TestScheduler_FailedSendDoesNotAdvanceLedger(t *testing.T) {
	clk := newFakeClock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.Local))
	ledger := &fakeLedger{}
	sender := newFakeSender()
	sender.err = errors.New("transport down")
	startScheduler(t, reminder.Config{ChatID: 1}, ledger, &fakeHistory{}, sender, clk)

	clk.Advance(waitSleep(t, clk))
	waitText(t, sender.sent) // the failed attempt

	if ledger.markCount() != 0 {
		t.Errorf("ledger advanced despite failed send: %d marks", ledger.markCount())
	}

	// No busy-loop: the next iteration schedules a fresh target sleep
	// rather than retrying immediately.
	if d := waitSleep(t, clk); d <= 0 {
		t.Errorf("expected a positive re-schedule sleep, got %v", d)
	}
}
