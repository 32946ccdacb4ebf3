// Package i18n translates notification strings. The active language travels
// in a context.Context, so selecting a language for one message never
// changes it for the caller.
package i18n

import (
	"context"
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

type contextKey struct{}

// Translator resolves languages and formats translated strings.
type Translator struct {
	catalog  catalog.Catalog
	matcher  language.Matcher
	tags     []language.Tag
	fallback language.Tag
}

// New builds a Translator over the bundled catalog. defaultLang must be one
// of the supported languages.
func New(defaultLang string) (*Translator, error) {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, entries := range bundled {
		for key, msg := range entries {
			if err := b.SetString(tag, key, msg); err != nil {
				return nil, fmt.Errorf("load %s/%s: %w", tag, key, err)
			}
		}
	}

	tags := b.Languages()
	fallback, err := language.Parse(defaultLang)
	if err != nil {
		return nil, fmt.Errorf("parse default language %q: %w", defaultLang, err)
	}
	if !supported(tags, fallback) {
		return nil, fmt.Errorf("default language %q is not supported", defaultLang)
	}

	// The matcher returns its first tag when nothing matches, so the default
	// goes first.
	ordered := append([]language.Tag{fallback}, tags...)
	return &Translator{
		catalog:  b,
		matcher:  language.NewMatcher(ordered),
		tags:     tags,
		fallback: fallback,
	}, nil
}

// Resolve returns the supported language for raw, or the default when raw is
// empty, malformed or unsupported.
func (t *Translator) Resolve(raw string) language.Tag {
	if raw == "" {
		return t.fallback
	}
	tag, err := language.Parse(raw)
	if err != nil {
		return t.fallback
	}
	_, idx, conf := t.matcher.Match(tag)
	if conf < language.High {
		return t.fallback
	}
	if idx == 0 {
		return t.fallback
	}
	return t.tags[idx-1]
}

// WithLanguage returns a child context carrying tag.
func WithLanguage(ctx context.Context, tag language.Tag) context.Context {
	return context.WithValue(ctx, contextKey{}, tag)
}

// FromContext returns the language carried by ctx.
func FromContext(ctx context.Context) (language.Tag, bool) {
	tag, ok := ctx.Value(contextKey{}).(language.Tag)
	return tag, ok
}

// Language returns the language carried by ctx or the default.
func (t *Translator) Language(ctx context.Context) language.Tag {
	if tag, ok := FromContext(ctx); ok {
		return tag
	}
	return t.fallback
}

// T translates key in the language carried by ctx.
func (t *Translator) T(ctx context.Context, key string, args ...any) string {
	return t.Printer(t.Language(ctx)).Sprintf(key, args...)
}

// Printer returns a message printer for tag.
func (t *Translator) Printer(tag language.Tag) *message.Printer {
	return message.NewPrinter(tag, message.Catalog(t.catalog))
}

func supported(tags []language.Tag, tag language.Tag) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
