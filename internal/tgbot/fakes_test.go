package tgbot

import (
	"errors"
	"sync"

	tele "gopkg.in/telebot.v4"
)

type sentMsg struct {
	To     string
	What   interface{}
	Markup *tele.ReplyMarkup
}

type fakeBot struct {
	mu     sync.Mutex
	sent   []sentMsg
	failTo map[string]bool
}

func (b *fakeBot) Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failTo[to.Recipient()] {
		return nil, errors.New("telegram: chat not found (400)")
	}
	msg := sentMsg{To: to.Recipient(), What: what}
	for _, o := range opts {
		if m, ok := o.(*tele.ReplyMarkup); ok {
			msg.Markup = m
		}
	}
	b.sent = append(b.sent, msg)
	return &tele.Message{}, nil
}

func (b *fakeBot) to(recipient string) []sentMsg {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []sentMsg
	for _, s := range b.sent {
		if s.To == recipient {
			out = append(out, s)
		}
	}
	return out
}

func (b *fakeBot) lastText(recipient string) string {
	msgs := b.to(recipient)
	if len(msgs) == 0 {
		return ""
	}
	s, _ := msgs[len(msgs)-1].What.(string)
	return s
}

// fakeContext implements the parts of tele.Context the handlers touch.
type fakeContext struct {
	tele.Context

	update    tele.Update
	store     map[string]interface{}
	responses []*tele.CallbackResponse
}

func newMessageContext(updateID int, chatID int64, msg *tele.Message) *fakeContext {
	msg.Chat = &tele.Chat{ID: chatID, Type: tele.ChatPrivate}
	msg.Sender = &tele.User{ID: chatID}
	return &fakeContext{
		update: tele.Update{ID: updateID, Message: msg},
		store:  make(map[string]interface{}),
	}
}

func newCallbackContext(updateID int, chatID int64, unique string) *fakeContext {
	cb := &tele.Callback{
		ID:      "cb",
		Sender:  &tele.User{ID: chatID},
		Message: &tele.Message{Chat: &tele.Chat{ID: chatID, Type: tele.ChatPrivate}},
		Data:    "\f" + unique,
	}
	return &fakeContext{
		update: tele.Update{ID: updateID, Callback: cb},
		store:  make(map[string]interface{}),
	}
}

func (c *fakeContext) Update() tele.Update { return c.update }

func (c *fakeContext) Message() *tele.Message {
	if c.update.Message != nil {
		return c.update.Message
	}
	if c.update.Callback != nil {
		return c.update.Callback.Message
	}
	return nil
}

func (c *fakeContext) Callback() *tele.Callback { return c.update.Callback }

func (c *fakeContext) Chat() *tele.Chat {
	if m := c.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (c *fakeContext) Sender() *tele.User {
	if c.update.Callback != nil {
		return c.update.Callback.Sender
	}
	if c.update.Message != nil {
		return c.update.Message.Sender
	}
	return nil
}

func (c *fakeContext) Text() string {
	if c.update.Message != nil {
		return c.update.Message.Text
	}
	return ""
}

func (c *fakeContext) Get(key string) interface{} { return c.store[key] }

func (c *fakeContext) Set(key string, val interface{}) { c.store[key] = val }

func (c *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		c.responses = append(c.responses, &tele.CallbackResponse{})
		return nil
	}
	c.responses = append(c.responses, resp...)
	return nil
}
