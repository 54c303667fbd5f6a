// Package triggers implements the keyword scanning used by the safety
// heuristics: an inline check on inbound text and a retrospective check over
// recent user messages before a scheduled reminder fires.
package triggers

import (
	"context"
	"strings"
	"time"
)

// ContainsAny reports whether text contains any of the words, matched
// case-insensitively as substrings.
func ContainsAny(text string, words []string) bool {
	lower := strings.ToLower(text)
	for _, w := range words {
		if w == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// HistorySource yields recent user-message bodies for the retrospective scan.
// Satisfied by *store.Store.
type HistorySource interface {
	RecentUserBodiesSince(ctx context.Context, chatID int64, cutoff time.Time) ([]string, error)
}

// Scanner checks recent conversation history for emotionally salient keywords.
type Scanner struct {
	src HistorySource
	now func() time.Time
}

// NewScanner returns a Scanner reading from src.
func NewScanner(src HistorySource) *Scanner {
	return &Scanner{src: src, now: time.Now}
}

// NewScannerAt is like NewScanner with an injected clock for tests.
func NewScannerAt(src HistorySource, now func() time.Time) *Scanner {
	return &Scanner{src: src, now: now}
}

// RecentHistoryHasTrigger reports whether any user message newer than
// now − within contains one of the given words. It short-circuits on the
// first match.
func (s *Scanner) RecentHistoryHasTrigger(ctx context.Context, chatID int64, within time.Duration, words []string) (bool, error) {
	cutoff := s.now().Add(-within)
	bodies, err := s.src.RecentUserBodiesSince(ctx, chatID, cutoff)
	if err != nil {
		return false, err
	}
	for _, body := range bodies {
		if ContainsAny(body, words) {
			return true, nil
		}
	}
	return false, nil
}
