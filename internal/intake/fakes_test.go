package intake

import (
	"context"
	"errors"
	"sync"

	"github.com/m3rciful/intakebot/core/telegram/state"
)

type sent struct {
	Kind     string
	ChatID   int64
	Text     string
	Handle   string
	Keyboard *Keyboard
}

type fakeMessenger struct {
	mu     sync.Mutex
	sent   []sent
	failTo map[int64]error
}

func newFakeMessenger() *fakeMessenger {
	return &fakeMessenger{failTo: make(map[int64]error)}
}

func (m *fakeMessenger) record(s sent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failTo[s.ChatID]; err != nil {
		return err
	}
	m.sent = append(m.sent, s)
	return nil
}

func (m *fakeMessenger) SendText(_ context.Context, chatID int64, text string, kb *Keyboard) error {
	return m.record(sent{Kind: "text", ChatID: chatID, Text: text, Keyboard: kb})
}

func (m *fakeMessenger) SendPhoto(_ context.Context, chatID int64, handle, caption string) error {
	return m.record(sent{Kind: "photo", ChatID: chatID, Text: caption, Handle: handle})
}

func (m *fakeMessenger) SendVideo(_ context.Context, chatID int64, handle, caption string) error {
	return m.record(sent{Kind: "video", ChatID: chatID, Text: caption, Handle: handle})
}

func (m *fakeMessenger) SendDocument(_ context.Context, chatID int64, handle, caption string) error {
	return m.record(sent{Kind: "document", ChatID: chatID, Text: caption, Handle: handle})
}

func (m *fakeMessenger) to(chatID int64) []sent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sent
	for _, s := range m.sent {
		if s.ChatID == chatID {
			out = append(out, s)
		}
	}
	return out
}

func (m *fakeMessenger) last(chatID int64) (sent, bool) {
	msgs := m.to(chatID)
	if len(msgs) == 0 {
		return sent{}, false
	}
	return msgs[len(msgs)-1], true
}

var errStoreDown = errors.New("store down")

// brokenStore fails every operation.
type brokenStore struct{}

func (brokenStore) Get(context.Context, int64) (state.Session, error) {
	return state.Session{}, errStoreDown
}

func (brokenStore) Update(context.Context, int64, func(*state.Session) error) error {
	return errStoreDown
}

func (brokenStore) Clear(context.Context, int64) error { return errStoreDown }

func (brokenStore) Close() error { return nil }
