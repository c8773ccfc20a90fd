package intake

import "errors"

// Validation errors are recovered by re-prompting; the conversation is left as is.
var (
	ErrMalformedAnswer         = errors.New("intake: malformed answer")
	ErrUnknownChoice           = errors.New("intake: unknown choice")
	ErrUnexpectedInput         = errors.New("intake: input does not match step")
	ErrUnsupportedFormat       = errors.New("intake: unsupported attachment format")
	ErrUnsupportedDocumentType = errors.New("intake: unsupported document type")
)

var (
	// ErrNoActiveFlow is reported when an event arrives outside of a flow.
	ErrNoActiveFlow = errors.New("intake: no active flow")
	// ErrHistoryEmpty is reported when back is pressed at the first step.
	ErrHistoryEmpty = errors.New("intake: history is empty")
	// ErrIncompleteAnswers means a submission lacks a required field.
	ErrIncompleteAnswers = errors.New("intake: incomplete answers")
	// ErrUnknownFlow is returned for a flow missing from the registry.
	ErrUnknownFlow = errors.New("intake: unknown flow")
	// ErrStore wraps session store failures.
	ErrStore = errors.New("intake: session store")
)

// IsValidation reports whether err is recovered by re-prompting the user.
func IsValidation(err error) bool {
	return errors.Is(err, ErrMalformedAnswer) ||
		errors.Is(err, ErrUnknownChoice) ||
		errors.Is(err, ErrUnexpectedInput) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnsupportedDocumentType)
}
