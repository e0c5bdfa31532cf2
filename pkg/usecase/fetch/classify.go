package fetch

import (
	"bytes"

	"github.com/h2non/filetype"
	"github.com/memvault/memvault/pkg/model"
)

// PayloadKind tags what the retrieval endpoint actually returned. The
// decision is made from leading binary signature bytes, never from the
// declared content type, since the remote mislabels responses under
// load.
type PayloadKind int

const (
	PayloadUnrecognized PayloadKind = iota
	PayloadArchive
	PayloadImage
	PayloadVideo
	PayloadHTML
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadArchive:
		return "archive"
	case PayloadImage:
		return "image"
	case PayloadVideo:
		return "video"
	case PayloadHTML:
		return "html"
	default:
		return "unrecognized"
	}
}

// Classification is the tagged result of payload inspection.
type Classification struct {
	Kind PayloadKind
	Ext  string // canonical extension for raw media payloads
}

// MediaKind maps a raw media classification onto the export's kind
// enum.
func (c Classification) MediaKind() model.MediaKind {
	if c.Kind == PayloadVideo {
		return model.KindVideo
	}
	return model.KindImage
}

// Classify inspects the leading bytes of a response body. An HTML
// document where media was expected is reported distinctly because it
// is the endpoint's rate-limit error page.
func Classify(data []byte) Classification {
	if looksLikeHTML(data) {
		return Classification{Kind: PayloadHTML}
	}

	t, err := filetype.Match(data)
	if err != nil || t == filetype.Unknown {
		return Classification{Kind: PayloadUnrecognized}
	}

	switch {
	case t.Extension == "zip":
		return Classification{Kind: PayloadArchive, Ext: "zip"}
	case t.MIME.Type == "image":
		return Classification{Kind: PayloadImage, Ext: t.Extension}
	case t.MIME.Type == "video":
		return Classification{Kind: PayloadVideo, Ext: t.Extension}
	default:
		return Classification{Kind: PayloadUnrecognized}
	}
}

func looksLikeHTML(data []byte) bool {
	head := bytes.TrimLeft(data[:min(len(data), 256)], " \t\r\n")
	if len(head) == 0 || head[0] != '<' {
		return false
	}
	lower := bytes.ToLower(head)
	return bytes.HasPrefix(lower, []byte("<!doctype")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.HasPrefix(lower, []byte("<head")) ||
		bytes.HasPrefix(lower, []byte("<body"))
}
