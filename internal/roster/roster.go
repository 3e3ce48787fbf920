// Package roster resolves sender identities against a file-backed
// allow-list of collaborators.
package roster

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/fotolote/intake-bot-go/internal/util"
)

// Roster maps phone numbers to collaborator display names. Matching is
// digit-normalized and accepts substring containment in either direction,
// since gateways disagree about country-code prefixes.
type Roster struct {
	mu                sync.RWMutex
	path              string
	entries           map[string]string // digits -> display name
	allowAllWhenEmpty bool
}

func New(path string, allowAllWhenEmpty bool) *Roster {
	return &Roster{
		path:              path,
		entries:           map[string]string{},
		allowAllWhenEmpty: allowAllWhenEmpty,
	}
}

// Load reads the roster file. A missing file is not an error: the roster
// stays empty. A malformed file is an error and keeps the previous entries.
func (r *Roster) Load() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", r.path).Msg("roster file not found, allow-list empty")
			return nil
		}
		return fmt.Errorf("read roster: %w", err)
	}

	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse roster: %w", err)
	}

	entries := make(map[string]string, len(raw))
	for phone, name := range raw {
		digits := util.Digits(phone)
		if digits == "" {
			continue
		}
		entries[digits] = name
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()

	log.Info().Int("count", len(entries)).Str("path", r.path).Msg("roster loaded")
	return nil
}

// Watch reloads the roster whenever its file changes, until done is closed.
func (r *Roster) Watch(done <-chan struct{}) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("roster watcher: %w", err)
	}
	if err := watcher.Add(r.path); err != nil {
		watcher.Close()
		return fmt.Errorf("watch roster file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := r.Load(); err != nil {
					log.Error().Err(err).Msg("roster reload failed, keeping previous entries")
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("roster watcher error")
			}
		}
	}()

	return nil
}

func matches(identityDigits, entryDigits string) bool {
	if identityDigits == "" || entryDigits == "" {
		return false
	}
	return strings.Contains(identityDigits, entryDigits) ||
		strings.Contains(entryDigits, identityDigits)
}

// Allowed reports whether the sender identity may use the bot.
func (r *Roster) Allowed(identity string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.entries) == 0 {
		return r.allowAllWhenEmpty
	}

	digits := util.Digits(identity)
	for entry := range r.entries {
		if matches(digits, entry) {
			return true
		}
	}
	return false
}

// DisplayName returns the collaborator name for the identity, or "" when
// unknown.
func (r *Roster) DisplayName(identity string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	digits := util.Digits(identity)
	for entry, name := range r.entries {
		if matches(digits, entry) {
			return name
		}
	}
	return ""
}
