package tgbot

import (
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/intakebot/internal/intake"
)

// attachmentFrom extracts the media of an incoming message. Telegram also
// fills Document for animations, so animations are checked first.
func attachmentFrom(m *tele.Message) intake.Attachment {
	var att intake.Attachment
	if m == nil {
		return att
	}
	switch {
	case m.Photo != nil:
		att.Photos = []intake.PhotoSize{{
			Handle: m.Photo.FileID,
			Width:  m.Photo.Width,
			Height: m.Photo.Height,
		}}
	case m.Video != nil:
		att.Video = m.Video.FileID
	case m.Animation != nil:
		att.Other = "animation"
	case m.Document != nil:
		att.Document = &intake.Document{Handle: m.Document.FileID, Filename: m.Document.FileName}
	case m.Audio != nil:
		att.Other = "audio"
	case m.Voice != nil:
		att.Other = "voice"
	case m.Sticker != nil:
		att.Other = "sticker"
	case m.VideoNote != nil:
		att.Other = "video_note"
	default:
		att.Other = "unknown"
	}
	return att
}
