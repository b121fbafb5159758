// Package chats persists conversations for baldi.
// Chats are stored as a JSON file in the user's config directory and guarded
// by a file lock so the CLI and the local server can share it.
package chats

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/config"
)

const (
	fileName    = "chats.json"
	lockName    = "chats.lock"
	defaultName = "Nuevo chat"
	nameRunes   = 30

	// Greeting opens every new chat.
	Greeting = "🔵 Hola, soy Baldionna-ai. ¿En qué te ayudo hoy?"
)

// ErrNotFound is returned when no chat has the requested id.
var ErrNotFound = errors.New("chat not found")

// Message is one turn of a chat. Outcome is set on assistant turns.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Outcome   string    `json:"outcome,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Chat is a named conversation.
type Chat struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// History returns the chat as completion history, skipping the greeting.
func (c *Chat) History() []ai.Message {
	var out []ai.Message
	for i, m := range c.Messages {
		if i == 0 && m.Role == ai.RoleAssistant && m.Content == Greeting {
			continue
		}
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		out = append(out, ai.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

// Store reads and rewrites the chat file. Every mutation holds both an
// in-process mutex and the cross-process file lock.
type Store struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// Open returns a store rooted at dir.
func Open(dir string) *Store {
	return &Store{dir: dir, now: time.Now}
}

// Default returns the store in the configuration directory.
func Default() *Store {
	return Open(config.Dir())
}

func (s *Store) path() string { return filepath.Join(s.dir, fileName) }

// withLock runs fn with the chat list loaded. When write is set the list
// returned by fn replaces the file.
func (s *Store) withLock(write bool, fn func(chats []*Chat) ([]*Chat, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	lock := flock.New(filepath.Join(s.dir, lockName))
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("failed to lock chat store: %w", err)
	}
	defer lock.Unlock()

	all, err := s.loadAll()
	if err != nil {
		return err
	}
	updated, err := fn(all)
	if err != nil || !write {
		return err
	}

	data, err := json.MarshalIndent(updated, "", "  ")
	if err != nil {
		return err
	}
	return s.replaceFile(data)
}

// replaceFile writes data to a temp file next to the store and renames it
// over chats.json, so readers see either the old list or the new one.
func (s *Store) replaceFile(data []byte) error {
	tmp, err := os.CreateTemp(s.dir, fileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to write chat store: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chat store: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write chat store: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write chat store: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path())
}

func (s *Store) loadAll() ([]*Chat, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var all []*Chat
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path(), err)
	}
	return all, nil
}

func find(all []*Chat, id string) (int, *Chat) {
	for i, c := range all {
		if c.ID == id {
			return i, c
		}
	}
	return -1, nil
}

// Create adds a new chat opened with the greeting.
func (s *Store) Create() (*Chat, error) {
	now := s.now()
	chat := &Chat{
		ID:        uuid.NewString(),
		Name:      defaultName,
		Messages:  []Message{{Role: ai.RoleAssistant, Content: Greeting, Timestamp: now}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.withLock(true, func(all []*Chat) ([]*Chat, error) {
		return append(all, chat), nil
	})
	if err != nil {
		return nil, err
	}
	return chat, nil
}

// List returns all chats, most recently updated first.
func (s *Store) List() ([]*Chat, error) {
	var out []*Chat
	err := s.withLock(false, func(all []*Chat) ([]*Chat, error) {
		out = all
		return nil, nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out, err
}

// Get returns the chat with id.
func (s *Store) Get(id string) (*Chat, error) {
	var out *Chat
	err := s.withLock(false, func(all []*Chat) ([]*Chat, error) {
		if _, out = find(all, id); out == nil {
			return nil, ErrNotFound
		}
		return nil, nil
	})
	return out, err
}

// Rename sets the chat name. Blank names are rejected.
func (s *Store) Rename(id, name string) (*Chat, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("chat name is empty")
	}
	return s.mutate(id, func(c *Chat) {
		c.Name = name
	})
}

// Delete removes the chat with id.
func (s *Store) Delete(id string) error {
	return s.withLock(true, func(all []*Chat) ([]*Chat, error) {
		i, _ := find(all, id)
		if i < 0 {
			return nil, ErrNotFound
		}
		return append(all[:i], all[i+1:]...), nil
	})
}

// Reply builds the assistant message for a finished session. The guard
// marker is display-only and is not stored, so it never returns to the model
// as history. ok is false when the session produced no text.
func Reply(out ai.Outcome) (msg Message, ok bool) {
	text := strings.TrimSuffix(out.Text, out.Marker)
	if strings.TrimSpace(text) == "" {
		return Message{}, false
	}
	return Message{Role: ai.RoleAssistant, Content: text, Outcome: string(out.Kind)}, true
}

// Append adds a message to the chat. The first user message also names a
// chat that still has its default name.
func (s *Store) Append(id string, msg Message) (*Chat, error) {
	if msg.Timestamp.IsZero() {
		msg.Timestamp = s.now()
	}
	return s.mutate(id, func(c *Chat) {
		if msg.Role == ai.RoleUser && c.Name == defaultName && !hasUserMessage(c) {
			c.Name = chatName(msg.Content)
		}
		c.Messages = append(c.Messages, msg)
	})
}

func (s *Store) mutate(id string, fn func(c *Chat)) (*Chat, error) {
	var out *Chat
	err := s.withLock(true, func(all []*Chat) ([]*Chat, error) {
		if _, out = find(all, id); out == nil {
			return nil, ErrNotFound
		}
		fn(out)
		out.UpdatedAt = s.now()
		return all, nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func hasUserMessage(c *Chat) bool {
	for _, m := range c.Messages {
		if m.Role == ai.RoleUser {
			return true
		}
	}
	return false
}

// chatName is the first line of text, cut to nameRunes runes.
func chatName(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = strings.TrimSpace(text[:i])
	}
	if utf8.RuneCountInString(text) > nameRunes {
		text = string([]rune(text)[:nameRunes])
	}
	if text == "" {
		return defaultName
	}
	return text
}
