package tgbot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/core/telegram/keyboard"
	"github.com/m3rciful/intakebot/internal/intake"
)

// replyMarkup renders a transport-neutral keyboard. Button tokens become the
// callback unique key, so the registry routes them without a payload.
func replyMarkup(kb *intake.Keyboard) *tele.ReplyMarkup {
	if kb == nil {
		return nil
	}
	if len(kb.Inline) > 0 {
		rows := make([][]keyboard.InlineBtn, 0, len(kb.Inline))
		for _, row := range kb.Inline {
			btns := make([]keyboard.InlineBtn, 0, len(row))
			for _, b := range row {
				btns = append(btns, keyboard.InlineBtn{Text: b.Label, Unique: b.Token})
			}
			rows = append(rows, btns)
		}
		return keyboard.InlineButtonsRows(rows...)
	}
	if len(kb.Reply) > 0 {
		return keyboard.ReplyButtons(kb.Reply...)
	}
	return nil
}
