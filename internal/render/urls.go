package render

import (
	"net/url"
	"strconv"
)

// URLBuilder builds absolute links into the web application.
type URLBuilder struct {
	Protocol string
	Host     string
}

func (b URLBuilder) build(path string, query url.Values) string {
	scheme := b.Protocol
	if scheme == "" {
		scheme = "http"
	}
	u := url.URL{Scheme: scheme, Host: b.Host, Path: path}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// Home links to the welcome page.
func (b URLBuilder) Home() string { return b.build("/", nil) }

// Issue links to an issue.
func (b URLBuilder) Issue(id int64) string {
	return b.build("/issues/"+strconv.FormatInt(id, 10), nil)
}

// Login links to the login page.
func (b URLBuilder) Login() string { return b.build("/login", nil) }

// PendingUsers links to the user list filtered to accounts awaiting
// activation, newest first.
func (b URLBuilder) PendingUsers() string {
	return b.build("/users", url.Values{
		"status":     {"registered"},
		"sort_key":   {"created_on"},
		"sort_order": {"desc"},
	})
}
