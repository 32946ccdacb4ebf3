package smtp

import (
	"context"
	"errors"
	"fmt"
	"net/smtp"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GmailScope grants SMTP access to a Google mailbox.
const GmailScope = "https://mail.google.com/"

// OAuthConfig describes the refresh-token grant used for XOAUTH2.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	// Endpoint defaults to Google's.
	Endpoint oauth2.Endpoint
}

// TokenSource returns a caching token source for cfg.
func (cfg OAuthConfig) TokenSource(ctx context.Context) oauth2.TokenSource {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	conf := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     endpoint,
		Scopes:       []string{GmailScope},
	}
	return conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
}

// PlainAuth returns PLAIN authentication for host.
func PlainAuth(user, password, host string) smtp.Auth {
	return smtp.PlainAuth("", user, password, host)
}

type xoauth2Auth struct {
	user   string
	tokens oauth2.TokenSource
}

// XOAuth2Auth returns SASL XOAUTH2 authentication that fetches bearer tokens
// from tokens.
func XOAuth2Auth(user string, tokens oauth2.TokenSource) smtp.Auth {
	return &xoauth2Auth{user: user, tokens: tokens}
}

func (a *xoauth2Auth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS && !isLocalhost(server.Name) {
		return "", nil, errors.New("xoauth2 requires an encrypted connection")
	}
	tok, err := a.tokens.Token()
	if err != nil {
		return "", nil, fmt.Errorf("fetch oauth2 token: %w", err)
	}
	return "XOAUTH2", xoauth2Response(a.user, tok.AccessToken), nil
}

// Next acknowledges the server's error challenge so it can report the
// failure.
func (a *xoauth2Auth) Next(fromServer []byte, more bool) ([]byte, error) {
	if more {
		return []byte{}, nil
	}
	return nil, nil
}

func xoauth2Response(user, token string) []byte {
	return []byte("user=" + user + "\x01auth=Bearer " + token + "\x01\x01")
}

func isLocalhost(name string) bool {
	return name == "localhost" || name == "127.0.0.1" || name == "::1"
}
