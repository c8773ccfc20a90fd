package intake

import (
	"errors"
	"fmt"
	"strings"
)

// MediaKind is the normalized kind of an accepted attachment.
type MediaKind string

const (
	MediaPhoto    MediaKind = "photo"
	MediaVideo    MediaKind = "video"
	MediaDocument MediaKind = "document"
)

// Media describes an accepted attachment. Filename is set only for documents.
type Media struct {
	Kind     MediaKind `json:"kind"`
	Handle   string    `json:"handle"`
	Filename string    `json:"filename,omitempty"`
}

// AllowedDocumentExtensions lists the accepted document suffixes.
var AllowedDocumentExtensions = []string{".xls", ".xlsx", ".doc", ".docx", ".pdf"}

// PhotoSize is one resolution variant of a photo.
type PhotoSize struct {
	Handle string
	Width  int
	Height int
}

// Document is a file attachment.
type Document struct {
	Handle   string
	Filename string
}

// Attachment is a transport-neutral view of an incoming message's media.
// Other names an attachment kind that is never accepted, such as audio.
type Attachment struct {
	Photos   []PhotoSize
	Video    string
	Document *Document
	Other    string
}

// Kind names the attachment for logging.
func (a Attachment) Kind() string {
	switch {
	case len(a.Photos) > 0:
		return string(MediaPhoto)
	case a.Video != "":
		return string(MediaVideo)
	case a.Document != nil:
		return string(MediaDocument)
	case a.Other != "":
		return a.Other
	default:
		return "none"
	}
}

// Classify normalizes an attachment. Photos win over videos, videos over
// documents; anything else is rejected with ErrUnsupportedFormat.
func Classify(a Attachment) (Media, error) {
	switch {
	case len(a.Photos) > 0:
		best := a.Photos[0]
		for _, p := range a.Photos[1:] {
			if p.Width*p.Height >= best.Width*best.Height {
				best = p
			}
		}
		if best.Handle == "" {
			return Media{}, ErrUnsupportedFormat
		}
		return Media{Kind: MediaPhoto, Handle: best.Handle}, nil
	case a.Video != "":
		return Media{Kind: MediaVideo, Handle: a.Video}, nil
	case a.Document != nil:
		if a.Document.Handle == "" {
			return Media{}, ErrUnsupportedFormat
		}
		if !AllowedDocument(a.Document.Filename) {
			return Media{}, fmt.Errorf("%w: %q", ErrUnsupportedDocumentType, a.Document.Filename)
		}
		return Media{Kind: MediaDocument, Handle: a.Document.Handle, Filename: a.Document.Filename}, nil
	default:
		return Media{}, ErrUnsupportedFormat
	}
}

// AllowedDocument reports whether filename ends with an allowed extension,
// ignoring case. The name is matched as stored.
func AllowedDocument(filename string) bool {
	lower := strings.ToLower(filename)
	for _, ext := range AllowedDocumentExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func rejectionText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUnsupportedDocumentType):
		return TextUnsupportedDocument
	default:
		return TextUnsupportedFormat
	}
}
