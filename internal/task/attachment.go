package task

import (
	"encoding/base64"
	"strings"

	"git.home.luguber.info/inful/pagesmith/internal/errors"
)

// Attachment is a named, self-describing payload attached to a build task.
// DataURL must match data:<mime>;base64,<payload>; anything else is a hard
// input error and the task never reaches the generator.
type Attachment struct {
	Name    string `json:"name"`
	DataURL string `json:"url"`
}

// DecodedAttachment is an attachment with its data URL split apart.
type DecodedAttachment struct {
	Name      string
	MIMEType  string
	Data      []byte
	RawBase64 string
}

// IsText reports whether the attachment can be inlined into a prompt as a
// quoted text block. Everything else goes through the generator's file store.
func (d DecodedAttachment) IsText() bool {
	mt := d.MIMEType
	if strings.HasPrefix(mt, "text/") {
		return true
	}
	switch mt {
	case "application/json", "application/xml", "application/javascript":
		return true
	}
	return strings.HasSuffix(mt, "+json") || strings.HasSuffix(mt, "+xml")
}

// Decode splits and base64-decodes the attachment's data URL.
func (a Attachment) Decode() (DecodedAttachment, error) {
	rest, ok := strings.CutPrefix(a.DataURL, "data:")
	if !ok {
		return DecodedAttachment{}, errors.MalformedAttachment(a.Name, "missing data: prefix")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return DecodedAttachment{}, errors.MalformedAttachment(a.Name, "missing payload separator")
	}
	mime, enc, ok := strings.Cut(meta, ";")
	if !ok || enc != "base64" || mime == "" {
		return DecodedAttachment{}, errors.MalformedAttachment(a.Name, "expected data:<mime>;base64,<payload>")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return DecodedAttachment{}, errors.MalformedAttachment(a.Name, "invalid base64 payload")
	}
	return DecodedAttachment{Name: a.Name, MIMEType: mime, Data: data, RawBase64: payload}, nil
}

// NewTextAttachment wraps raw bytes as a base64 data-URL attachment. Used on
// the update path to feed current repository content back into generation.
func NewTextAttachment(name, mimeType string, data []byte) Attachment {
	return Attachment{
		Name:    name,
		DataURL: "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data),
	}
}
