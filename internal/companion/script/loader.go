package script

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
)

// Loader holds the live playbook and supports atomic replacement. Reading the
// playbook is safe from any goroutine; a failed load never disturbs the
// current playbook.
type Loader struct {
	mu sync.RWMutex
	pb *Playbook
}

// NewLoader returns a Loader primed with the built-in default playbook.
func NewLoader() *Loader {
	return &Loader{pb: Default()}
}

// LoadFile reads a playbook YAML file from disk, validates it, and applies it.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read playbook file: %w", err)
	}
	pb, err := Parse(data)
	if err != nil {
		return fmt.Errorf("invalid playbook %s: %w", path, err)
	}

	l.mu.Lock()
	l.pb = pb
	l.mu.Unlock()

	slog.Info("playbook applied", "file", path,
		"trigger_words", len(pb.TriggerWords),
		"escalation_words", len(pb.EscalationWords),
		"anxiety_words", len(pb.AnxietyWords))
	return nil
}

// Playbook returns the current live playbook.
func (l *Loader) Playbook() *Playbook {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.pb
}
