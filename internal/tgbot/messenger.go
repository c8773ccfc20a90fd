package tgbot

import (
	"context"
	"fmt"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/telegram/middleware"
	"github.com/m3rciful/intakebot/core/telegram/sender"
	"github.com/m3rciful/intakebot/internal/intake"
)

// Bot is the part of *tele.Bot the messenger needs.
type Bot interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Messenger delivers intake messages through the Telegram Bot API. Every call
// runs through the dispatcher, which retries transient failures.
type Messenger struct {
	bot  Bot
	disp *sender.Dispatcher
}

var _ intake.Messenger = (*Messenger)(nil)

// NewMessenger wraps bot. A nil dispatcher sends directly.
func NewMessenger(bot Bot, disp *sender.Dispatcher) *Messenger {
	return &Messenger{bot: bot, disp: disp}
}

// SendText sends plain text with an optional keyboard.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string, kb *intake.Keyboard) error {
	var opts []interface{}
	markup := replyMarkup(kb)
	if markup != nil {
		opts = append(opts, markup)
	}
	return m.send(ctx, "send.text", "sendMessage", chatID, text, markup != nil, opts...)
}

// SendPhoto re-sends a photo by its Telegram file id.
func (m *Messenger) SendPhoto(ctx context.Context, chatID int64, handle, caption string) error {
	photo := &tele.Photo{File: tele.File{FileID: handle}, Caption: caption}
	return m.send(ctx, "send.photo", "sendPhoto", chatID, photo, false)
}

// SendVideo re-sends a video by its Telegram file id.
func (m *Messenger) SendVideo(ctx context.Context, chatID int64, handle, caption string) error {
	video := &tele.Video{File: tele.File{FileID: handle}, Caption: caption}
	return m.send(ctx, "send.video", "sendVideo", chatID, video, false)
}

// SendDocument re-sends a document by its Telegram file id.
func (m *Messenger) SendDocument(ctx context.Context, chatID int64, handle, caption string) error {
	doc := &tele.Document{File: tele.File{FileID: handle}, Caption: caption}
	return m.send(ctx, "send.document", "sendDocument", chatID, doc, false)
}

func (m *Messenger) send(ctx context.Context, action, endpoint string, chatID int64, what interface{}, hasKB bool, opts ...interface{}) error {
	run := func() error {
		_, err := m.bot.Send(tele.ChatID(chatID), what, opts...)
		return err
	}
	var err error
	if m.disp != nil {
		err = m.disp.Do(ctx, action, endpoint, run)
	} else {
		err = run()
	}
	if err != nil {
		return fmt.Errorf("%s to %d: %w", endpoint, chatID, err)
	}
	middleware.CountMessage(ctx, hasKB)
	return nil
}
