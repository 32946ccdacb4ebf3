// Package smtp delivers composed messages to an SMTP relay.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"time"

	"github.com/sumire/issuemail/internal/domain"
)

// Config holds the relay address and credentials.
type Config struct {
	Host string
	Port int
	// Auth is nil for unauthenticated relays.
	Auth smtp.Auth
	// LocalName is sent in HELO/EHLO. Defaults to localhost.
	LocalName string
}

// Client sends messages over SMTP, opening one connection per message.
type Client struct {
	cfg    Config
	dialer net.Dialer
	now    func() time.Time
}

// New creates a new Client.
func New(cfg Config) *Client {
	if cfg.LocalName == "" {
		cfg.LocalName = "localhost"
	}
	return &Client{cfg: cfg, dialer: net.Dialer{Timeout: 30 * time.Second}, now: time.Now}
}

// Send implements delivery.Transport.
func (c *Client) Send(ctx context.Context, msg domain.ComposedMessage) error {
	rcpts := msg.Recipients()
	if len(rcpts) == 0 {
		return fmt.Errorf("%w: message has no recipients", domain.ErrInvalidInput)
	}
	data, err := BuildMessage(msg, c.now())
	if err != nil {
		return fmt.Errorf("build message: %w", err)
	}

	addr := net.JoinHostPort(c.cfg.Host, fmt.Sprint(c.cfg.Port))
	conn, err := c.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, c.cfg.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if err := c.transmit(client, envelopeAddress(msg.From), rcpts, data); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return client.Quit()
}

func (c *Client) transmit(client *smtp.Client, from string, rcpts []string, data []byte) error {
	if err := client.Hello(c.cfg.LocalName); err != nil {
		return fmt.Errorf("hello: %w", err)
	}
	if ok, _ := client.Extension("STARTTLS"); ok {
		if err := client.StartTLS(&tls.Config{ServerName: c.cfg.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if c.cfg.Auth != nil {
		if err := client.Auth(c.cfg.Auth); err != nil {
			return fmt.Errorf("auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("mail from %s: %w", from, err)
	}
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("rcpt to %s: %w", rcpt, err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("close data: %w", err)
	}
	return nil
}
