package gmail

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrMissingTo is returned when a message is built without a recipient.
	ErrMissingTo = errors.New("missing required field: to")

	// ErrNoRecipients is returned when no address could be parsed from To, Cc or Bcc.
	ErrNoRecipients = errors.New("no valid recipient addresses")
)

// Headers are the addressing fields of an outgoing message. To is required.
// A zero Date is replaced by the current local time.
type Headers struct {
	To      string
	From    string
	Subject string
	Cc      string
	Bcc     string
	Date    time.Time
}

// Validate checks that To is present and that no field smuggles in extra header lines.
func (h Headers) Validate() error {
	if strings.TrimSpace(h.To) == "" {
		return ErrMissingTo
	}
	fields := map[string]string{
		"to": h.To, "from": h.From, "subject": h.Subject, "cc": h.Cc, "bcc": h.Bcc,
	}
	for name, v := range fields {
		if strings.ContainsAny(v, "\r\n") {
			return fmt.Errorf("header %s contains a line break", name)
		}
	}
	return nil
}

// Recipients returns the bare addresses from To, Cc and Bcc.
func (h Headers) Recipients() ([]string, error) {
	var out []string
	for _, list := range []string{h.To, h.Cc, h.Bcc} {
		if strings.TrimSpace(list) == "" {
			continue
		}
		addrs, err := mail.ParseAddressList(list)
		if err != nil {
			return nil, fmt.Errorf("failed to parse address list %q: %w", list, err)
		}
		for _, a := range addrs {
			out = append(out, a.Address)
		}
	}
	if len(out) == 0 {
		return nil, ErrNoRecipients
	}
	return out, nil
}

// Part is a single body part, rendered once with its transfer encoding applied.
type Part struct {
	ContentType string
	Filename    string
	raw         []byte
}

// Size is the rendered size of the part, headers included.
func (p *Part) Size() int {
	return len(p.raw)
}

// Bytes returns the rendered part.
func (p *Part) Bytes() []byte {
	return p.raw
}

// newPart renders a base64 part. Parts with a filename are marked as attachments.
func newPart(contentType, filename string, data []byte) *Part {
	var buf bytes.Buffer
	writeHeader(&buf, "Content-Type", contentType)
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Transfer-Encoding", "base64")
	if filename != "" {
		writeHeader(&buf, "Content-Disposition",
			mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	buf.WriteString("\r\n")
	writeBase64Lines(&buf, data)
	return &Part{ContentType: contentType, Filename: filename, raw: buf.Bytes()}
}

// Message is a multipart/mixed email under construction.
type Message struct {
	Headers  Headers
	boundary string
	parts    []*Part
}

// BuildMessage constructs a message from headers and an optional body.
// The body part is added only when body is non-empty.
func BuildMessage(h Headers, body string, asHTML bool) (*Message, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}
	if h.Date.IsZero() {
		h.Date = time.Now().Local()
	}

	m := &Message{
		Headers:  h,
		boundary: "=_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
	}
	if body != "" {
		subtype := "plain"
		if asHTML {
			subtype = "html"
		}
		ct := mime.FormatMediaType("text/"+subtype, map[string]string{"charset": "utf-8"})
		m.parts = append(m.parts, newPart(ct, "", []byte(body)))
	}
	return m, nil
}

// Attach appends a rendered part.
func (m *Message) Attach(p *Part) {
	m.parts = append(m.parts, p)
}

// Parts returns the message parts in order.
func (m *Message) Parts() []*Part {
	return m.parts
}

// Attachments returns the file names of the attached parts in order.
func (m *Message) Attachments() []string {
	var names []string
	for _, p := range m.parts {
		if p.Filename != "" {
			names = append(names, p.Filename)
		}
	}
	return names
}

// Size is the exact length of Bytes().
func (m *Message) Size() int {
	n := len(m.header(true)) + len(m.closeDelimiter())
	for _, p := range m.parts {
		n += m.framedSize(p)
	}
	return n
}

// framedSize is what adding p contributes to the message size.
func (m *Message) framedSize(p *Part) int {
	return len(m.openDelimiter()) + p.Size() + len("\r\n")
}

// Bytes renders the full RFC 822 message, Bcc header included.
func (m *Message) Bytes() []byte {
	return m.render(true)
}

// BytesWithoutBcc renders the message for direct SMTP delivery.
func (m *Message) BytesWithoutBcc() []byte {
	return m.render(false)
}

func (m *Message) render(withBcc bool) []byte {
	var buf bytes.Buffer
	buf.Grow(m.Size())
	buf.Write(m.header(withBcc))
	for _, p := range m.parts {
		buf.WriteString(m.openDelimiter())
		buf.Write(p.Bytes())
		buf.WriteString("\r\n")
	}
	buf.WriteString(m.closeDelimiter())
	return buf.Bytes()
}

func (m *Message) header(withBcc bool) []byte {
	var buf bytes.Buffer
	writeHeader(&buf, "Content-Type",
		mime.FormatMediaType("multipart/mixed", map[string]string{"boundary": m.boundary}))
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "To", m.Headers.To)
	if m.Headers.From != "" {
		writeHeader(&buf, "From", m.Headers.From)
	}
	if m.Headers.Subject != "" {
		writeHeader(&buf, "Subject", mime.BEncoding.Encode("utf-8", m.Headers.Subject))
	}
	if m.Headers.Cc != "" {
		writeHeader(&buf, "Cc", m.Headers.Cc)
	}
	if withBcc && m.Headers.Bcc != "" {
		writeHeader(&buf, "Bcc", m.Headers.Bcc)
	}
	writeHeader(&buf, "Date", m.Headers.Date.Format(time.RFC1123Z))
	buf.WriteString("\r\n")
	return buf.Bytes()
}

func (m *Message) openDelimiter() string {
	return "--" + m.boundary + "\r\n"
}

func (m *Message) closeDelimiter() string {
	return "--" + m.boundary + "--\r\n"
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(value)
	buf.WriteString("\r\n")
}

const base64LineLength = 76

func writeBase64Lines(buf *bytes.Buffer, data []byte) {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > base64LineLength {
		buf.WriteString(encoded[:base64LineLength])
		buf.WriteString("\r\n")
		encoded = encoded[base64LineLength:]
	}
	if encoded != "" {
		buf.WriteString(encoded)
		buf.WriteString("\r\n")
	}
}
