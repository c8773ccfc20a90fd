package intake

import "context"

// Button is an inline keyboard button. Token is delivered back as a callback.
type Button struct {
	Label string
	Token string
}

// Keyboard is a transport-neutral keyboard: either inline buttons or a
// persistent reply keyboard of text buttons.
type Keyboard struct {
	Inline [][]Button
	Reply  [][]string
}

// Messenger delivers outgoing messages.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, kb *Keyboard) error
	SendPhoto(ctx context.Context, chatID int64, handle, caption string) error
	SendVideo(ctx context.Context, chatID int64, handle, caption string) error
	SendDocument(ctx context.Context, chatID int64, handle, caption string) error
}

// StartKeyboard is the persistent reply keyboard with the start button.
func StartKeyboard() *Keyboard {
	return &Keyboard{Reply: [][]string{{StartButtonLabel}}}
}

// PickerKeyboard offers the available flows.
func PickerKeyboard() *Keyboard {
	return &Keyboard{Inline: [][]Button{
		{{Label: LabelParking, Token: TokenStartParking}},
		{{Label: LabelBuilding, Token: TokenStartBuilding}},
	}}
}

// StepKeyboard returns the inline keyboard shown with a step's prompt.
func StepKeyboard(def StepDef) *Keyboard {
	kb := &Keyboard{}
	switch def.Input {
	case InputChoice:
		for _, opt := range def.Options {
			kb.Inline = append(kb.Inline, []Button{{Label: opt.Label, Token: opt.Token}})
		}
	case InputMedia:
		kb.Inline = append(kb.Inline, []Button{{Label: LabelSkip, Token: TokenSkip}})
	}
	kb.Inline = append(kb.Inline, []Button{{Label: LabelBack, Token: TokenBack}})
	return kb
}
