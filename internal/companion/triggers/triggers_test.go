package triggers_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pmarkelov/teplo/internal/companion/triggers"
)

func TestContainsAny(t *testing.T) {
	words := []string{"lonely", "abandoned"}

	cases := []struct {
		text string
		want bool
	}{
		{"I feel so LONELY tonight", true},
		{"completely abandoned again", true},
		{"had a lovely day", false},
		{"", false},
		{"a lonelyhearts club song", true}, // substring semantics
	}
	for _, tc := range cases {
		if got := triggers.ContainsAny(tc.text, words); got != tc.want {
			t.Errorf("ContainsAny(%q) = %v, want %v", tc.text, got, tc.want)
		}
	}
}

func TestContainsAny_EmptyWordList(t *testing.T) {
	if triggers.ContainsAny("anything at all", nil) {
		t.Error("empty word list must never match")
	}
}

// fakeHistory is a canned HistorySource recording the cutoff it was asked for.
type fakeHistory struct {
	bodies []string
	err    error
	cutoff time.Time
}

func (f *fakeHistory) RecentUserBodiesSince(_ context.Context, _ int64, cutoff time.Time) ([]string, error) {
	f.cutoff = cutoff
	return f.bodies, f.err
}

func TestRecentHistoryHasTrigger(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	src := &fakeHistory{bodies: []string{"just a normal message", "feeling so sad today"}}
	sc := triggers.NewScannerAt(src, func() time.Time { return now })

	got, err := sc.RecentHistoryHasTrigger(context.Background(), 1, 24*time.Hour, []string{"sad"})
	if err != nil {
		t.Fatalf("RecentHistoryHasTrigger: %v", err)
	}
	if !got {
		t.Error("expected a trigger match")
	}
	if want := now.Add(-24 * time.Hour); !src.cutoff.Equal(want) {
		t.Errorf("cutoff: got %v, want %v", src.cutoff, want)
	}
}

func TestRecentHistoryHasTrigger_NoMatch(t *testing.T) {
	src := &fakeHistory{bodies: []string{"sunshine", "walks in the park"}}
	sc := triggers.NewScanner(src)

	got, err := sc.RecentHistoryHasTrigger(context.Background(), 1, 24*time.Hour, []string{"sad", "lonely"})
	if err != nil {
		t.Fatalf("RecentHistoryHasTrigger: %v", err)
	}
	if got {
		t.Error("expected no trigger match")
	}
}

func TestRecentHistoryHasTrigger_SourceError(t *testing.T) {
	boom := errors.New("db gone")
	sc := triggers.NewScanner(&fakeHistory{err: boom})

	_, err := sc.RecentHistoryHasTrigger(context.Background(), 1, time.Hour, []string{"sad"})
	if !errors.Is(err, boom) {
		t.Errorf("expected source error, got %v", err)
	}
}
