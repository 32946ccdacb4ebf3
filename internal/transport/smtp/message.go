package smtp

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"net/textproto"
	"strings"
	"time"

	"github.com/sumire/issuemail/internal/domain"
)

// BuildMessage renders msg as an RFC 5322 message. Bcc recipients are not
// written to the headers.
func BuildMessage(msg domain.ComposedMessage, date time.Time) ([]byte, error) {
	var buf bytes.Buffer

	writeHeader(&buf, "Date", date.Format(time.RFC1123Z))
	writeHeader(&buf, "From", encodeAddress(msg.From))
	if len(msg.To) > 0 {
		writeHeader(&buf, "To", strings.Join(msg.To, ", "))
	}
	if len(msg.Cc) > 0 {
		writeHeader(&buf, "Cc", strings.Join(msg.Cc, ", "))
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	for _, h := range msg.Headers {
		if strings.EqualFold(h.Name, "Bcc") {
			continue
		}
		writeHeader(&buf, h.Name, mime.QEncoding.Encode("utf-8", h.Value))
	}
	writeHeader(&buf, "MIME-Version", "1.0")

	if msg.Body.HTML == "" {
		writeHeader(&buf, "Content-Type", "text/plain; charset=UTF-8")
		writeHeader(&buf, "Content-Transfer-Encoding", "quoted-printable")
		buf.WriteString("\r\n")
		if err := writeQuoted(&buf, msg.Body.Text); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	writeHeader(&buf, "Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", msg.Body.Text},
		{"text/html; charset=UTF-8", msg.Body.HTML},
	} {
		w, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {part.contentType},
			"Content-Transfer-Encoding": {"quoted-printable"},
		})
		if err != nil {
			return nil, fmt.Errorf("create %s part: %w", part.contentType, err)
		}
		if err := writeQuoted(w, part.content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}
	buf.Write(body.Bytes())
	return buf.Bytes(), nil
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	value = strings.NewReplacer("\r", "", "\n", "").Replace(value)
	buf.WriteString(name + ": " + value + "\r\n")
}

func writeQuoted(w interface{ Write([]byte) (int, error) }, s string) error {
	qp := quotedprintable.NewWriter(w)
	if _, err := qp.Write([]byte(s)); err != nil {
		return fmt.Errorf("encode body: %w", err)
	}
	return qp.Close()
}

// encodeAddress Q-encodes the display name of a "Name <addr>" string.
func encodeAddress(s string) string {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return s
	}
	return addr.String()
}

// envelopeAddress strips any display name from s.
func envelopeAddress(s string) string {
	if addr, err := mail.ParseAddress(s); err == nil {
		return addr.Address
	}
	return s
}
