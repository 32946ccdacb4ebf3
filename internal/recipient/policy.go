// Package recipient resolves the final To/Cc/Bcc of a notification.
package recipient

import (
	"github.com/sumire/issuemail/internal/domain"
)

// Apply normalizes the audience, drops the actor from To and Cc when the
// actor is signed in and opted out of notices about their own actions, and,
// when bccEnabled, moves every visible recipient into Bcc.
//
// Apply is idempotent: Apply(Apply(a, x, b), x, b) == Apply(a, x, b).
func Apply(a domain.Audience, actor *domain.Actor, bccEnabled bool) domain.Audience {
	out := domain.Audience{
		To:  dedupe(a.To),
		Cc:  dedupe(a.Cc),
		Bcc: dedupe(a.Bcc),
	}

	if suppressesSelf(actor) {
		out.To = without(out.To, actor.Address)
		out.Cc = without(out.Cc, actor.Address)
	}

	if bccEnabled {
		out.Bcc = dedupe(out.To, out.Cc, out.Bcc)
		out.To = nil
		out.Cc = nil
	}
	return out
}

// ShouldSend reports whether any non-blank recipient remains.
func ShouldSend(a domain.Audience) bool {
	for _, list := range [][]string{a.To, a.Cc, a.Bcc} {
		for _, addr := range list {
			if domain.NormalizeAddress(addr) != "" {
				return true
			}
		}
	}
	return false
}

func suppressesSelf(actor *domain.Actor) bool {
	return actor != nil && actor.LoggedIn && !actor.WantsSelfNotifications &&
		domain.NormalizeAddress(actor.Address) != ""
}

// dedupe concatenates lists, normalizing each address and keeping the first
// occurrence. Blank entries are dropped.
func dedupe(lists ...[]string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, addr := range list {
			addr = domain.NormalizeAddress(addr)
			if addr == "" {
				continue
			}
			if _, ok := seen[addr]; ok {
				continue
			}
			seen[addr] = struct{}{}
			out = append(out, addr)
		}
	}
	return out
}

func without(list []string, addr string) []string {
	addr = domain.NormalizeAddress(addr)
	var out []string
	for _, a := range list {
		if a != addr {
			out = append(out, a)
		}
	}
	return out
}
