package domain

import "strings"

// NormalizeAddress lowercases and trims an email address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Audience is the recipient set of a message.
type Audience struct {
	To  []string `json:"to,omitempty"`
	Cc  []string `json:"cc,omitempty"`
	Bcc []string `json:"bcc,omitempty"`
}

// Count returns the number of addresses across all fields.
func (a Audience) Count() int {
	return len(a.To) + len(a.Cc) + len(a.Bcc)
}

// Actor is the user whose action triggered a notification.
type Actor struct {
	ID                     int64
	Login                  string
	Address                string
	WantsSelfNotifications bool
	LoggedIn               bool
}

// Header is a single mail header field.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered list of header fields. Insertion order is kept and
// the same name may appear more than once via Add.
type Headers []Header

// Set replaces the value of the first field called name, dropping any later
// duplicates, or appends the field when absent.
func (h *Headers) Set(name, value string) {
	idx := -1
	out := (*h)[:0]
	for _, f := range *h {
		if strings.EqualFold(f.Name, name) {
			if idx >= 0 {
				continue
			}
			idx = len(out)
			f.Value = value
		}
		out = append(out, f)
	}
	if idx < 0 {
		out = append(out, Header{Name: name, Value: value})
	}
	*h = out
}

// Add appends a field without touching existing ones.
func (h *Headers) Add(name, value string) {
	*h = append(*h, Header{Name: name, Value: value})
}

// Get returns the first value for name.
func (h Headers) Get(name string) string {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value
		}
	}
	return ""
}

// Values returns every value for name in insertion order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			out = append(out, f.Value)
		}
	}
	return out
}

// Body holds the rendered variants of a message.
type Body struct {
	Text string
	HTML string
}

// ComposedMessage is a fully addressed message ready for a transport. It is
// passed by value and not modified after handoff.
type ComposedMessage struct {
	Headers Headers
	From    string
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    Body
}

// Recipients returns the envelope recipients: to, then cc, then bcc.
func (m ComposedMessage) Recipients() []string {
	out := make([]string, 0, len(m.To)+len(m.Cc)+len(m.Bcc))
	out = append(out, m.To...)
	out = append(out, m.Cc...)
	return append(out, m.Bcc...)
}

// Audience returns the message's recipient fields.
func (m ComposedMessage) Audience() Audience {
	return Audience{To: m.To, Cc: m.Cc, Bcc: m.Bcc}
}
