// Package render produces the text and HTML bodies of notification emails.
package render

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/i18n"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Templates names the built-in templates, one per event kind.
var Templates = []string{
	string(domain.EventIssueCreated),
	string(domain.EventIssueClosed),
	string(domain.EventAccountActivationRequested),
	string(domain.EventAccountActivated),
	string(domain.EventTestMessage),
}

// IssueData feeds the issue templates.
type IssueData struct {
	ID          int64
	Subject     string
	Project     string
	Author      string
	Assignee    string
	Status      string
	Description string
	URL         string
	Notes       string
	ClosedBy    string
}

// AccountData feeds the account templates.
type AccountData struct {
	Login string
	Name  string
	Email string
	URL   string
}

// TestData feeds the test message template.
type TestData struct {
	URL string
}

// view is the root value handed to every template.
type view struct {
	Site string
	Data any
}

// Renderer holds the parsed template sets.
type Renderer struct {
	tr   *i18n.Translator
	site string
	text map[string]*texttemplate.Template
	html map[string]*htmltemplate.Template
}

// New parses the embedded templates.
func New(tr *i18n.Translator, site string) (*Renderer, error) {
	r := &Renderer{
		tr:   tr,
		site: site,
		text: make(map[string]*texttemplate.Template, len(Templates)),
		html: make(map[string]*htmltemplate.Template, len(Templates)),
	}
	for _, name := range Templates {
		tt, err := texttemplate.New("layout.txt.tmpl").
			Funcs(texttemplate.FuncMap{"t": placeholder, "id": formatID}).
			ParseFS(templateFS, "templates/layout.txt.tmpl", "templates/"+name+".txt.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse text template %s: %w", name, err)
		}
		ht, err := htmltemplate.New("layout.html.tmpl").
			Funcs(htmltemplate.FuncMap{"t": placeholder, "id": formatID}).
			ParseFS(templateFS, "templates/layout.html.tmpl", "templates/"+name+".html.tmpl")
		if err != nil {
			return nil, fmt.Errorf("parse html template %s: %w", name, err)
		}
		r.text[name] = tt
		r.html[name] = ht
	}
	return r, nil
}

// Render executes template name in the language carried by ctx. The HTML
// variant is skipped when withHTML is false.
func (r *Renderer) Render(ctx context.Context, name string, data any, withHTML bool) (domain.Body, error) {
	tt, ok := r.text[name]
	if !ok {
		return domain.Body{}, fmt.Errorf("%w: unknown template %q", domain.ErrInvalidInput, name)
	}
	translate := func(key string, args ...any) string {
		return r.tr.T(ctx, key, args...)
	}
	v := view{Site: r.site, Data: data}

	tc, err := tt.Clone()
	if err != nil {
		return domain.Body{}, fmt.Errorf("clone text template %s: %w", name, err)
	}
	var text bytes.Buffer
	if err := tc.Funcs(texttemplate.FuncMap{"t": translate}).Execute(&text, v); err != nil {
		return domain.Body{}, fmt.Errorf("render text %s: %w", name, err)
	}
	body := domain.Body{Text: strings.TrimSpace(text.String()) + "\n"}
	if !withHTML {
		return body, nil
	}

	hc, err := r.html[name].Clone()
	if err != nil {
		return domain.Body{}, fmt.Errorf("clone html template %s: %w", name, err)
	}
	var html bytes.Buffer
	if err := hc.Funcs(htmltemplate.FuncMap{"t": translate}).Execute(&html, v); err != nil {
		return domain.Body{}, fmt.Errorf("render html %s: %w", name, err)
	}
	body.HTML = html.String()
	return body, nil
}

func placeholder(key string, _ ...any) string { return key }

func formatID(id int64) string { return strconv.FormatInt(id, 10) }
