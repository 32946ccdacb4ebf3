// Package messageid derives deterministic Message-ID and References values
// for entities, so that the same record always threads the same way.
package messageid

import (
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"
	"unicode"

	"github.com/sumire/issuemail/internal/domain"
)

const timestampLayout = "20060102150405"

// Ref identifies an entity a message is about.
type Ref struct {
	Type      string
	ID        int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IssueRef returns the reference of an issue.
func IssueRef(i domain.Issue) Ref {
	return Ref{Type: "Issue", ID: i.ID, CreatedAt: i.CreatedAt, UpdatedAt: i.UpdatedAt}
}

// JournalRef returns the reference of a journal entry.
func JournalRef(j domain.Journal) Ref {
	return Ref{Type: "Journal", ID: j.ID, CreatedAt: j.CreatedAt}
}

// Builder computes identifiers under a namespace and mail domain.
type Builder struct {
	namespace string
	domain    string
}

// NewBuilder takes the domain from the part of mailFrom after '@'. When
// mailFrom has no domain, the local host name suffixed with the namespace is
// used instead.
func NewBuilder(namespace, mailFrom string) Builder {
	if addr, err := mail.ParseAddress(mailFrom); err == nil {
		mailFrom = addr.Address
	}
	host := ""
	if at := strings.LastIndex(mailFrom, "@"); at >= 0 {
		host = strings.TrimSpace(mailFrom[at+1:])
	}
	if host == "" {
		name, err := os.Hostname()
		if err != nil || name == "" {
			name = "localhost"
		}
		host = name + "." + namespace
	}
	return Builder{namespace: namespace, domain: host}
}

// Domain returns the right-hand side used for identifiers.
func (b Builder) Domain() string { return b.domain }

// For returns the bare identifier for ref.
func (b Builder) For(ref Ref) (string, error) {
	ts := ref.CreatedAt
	if ts.IsZero() {
		ts = ref.UpdatedAt
	}
	if ts.IsZero() {
		return "", fmt.Errorf("message id for %s #%d: %w", ref.Type, ref.ID, domain.ErrMissingTimestamp)
	}
	local := fmt.Sprintf("%s.%s-%d.%s", b.namespace, Underscore(ref.Type), ref.ID, ts.UTC().Format(timestampLayout))
	return local + "@" + b.domain, nil
}

// MessageIDHeader returns the identifier wrapped in angle brackets.
func (b Builder) MessageIDHeader(ref Ref) (string, error) {
	id, err := b.For(ref)
	if err != nil {
		return "", err
	}
	return "<" + id + ">", nil
}

// References joins the bracketed identifiers of refs with spaces, in the
// order given.
func (b Builder) References(refs ...Ref) (string, error) {
	parts := make([]string, 0, len(refs))
	for _, ref := range refs {
		id, err := b.MessageIDHeader(ref)
		if err != nil {
			return "", err
		}
		parts = append(parts, id)
	}
	return strings.Join(parts, " "), nil
}

// Underscore converts a type name such as "TimeEntry" or "pkg::Issue" to
// "time_entry" or "issue".
func Underscore(name string) string {
	if i := strings.LastIndexAny(name, ".:"); i >= 0 {
		name = name[i+1:]
	}
	runes := []rune(name)
	var sb strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(runes[i-1]) ||
				(i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				sb.WriteByte('_')
			}
			sb.WriteRune(unicode.ToLower(r))
			continue
		}
		if r == '-' || r == ' ' {
			sb.WriteByte('_')
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
