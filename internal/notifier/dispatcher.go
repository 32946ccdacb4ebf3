package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"

	"github.com/sumire/issuemail/internal/delivery"
	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/i18n"
	"github.com/sumire/issuemail/internal/messageid"
	"github.com/sumire/issuemail/internal/recipient"
)

// HeaderPrefix is prepended to application specific header names.
const HeaderPrefix = "X-Issues-"

// Config holds the site-wide settings applied to every message.
type Config struct {
	// Namespace prefixes message identifiers.
	Namespace string
	// MailerName is the X-Mailer value.
	MailerName string
	HostName   string
	SiteName   string
	// MailFrom is the default sender and the source of the List-Id.
	MailFrom            string
	BCCRecipients       bool
	PlainTextMail       bool
	RaiseDeliveryErrors bool
	PerformDeliveries   bool
}

// Renderer produces message bodies.
type Renderer interface {
	Render(ctx context.Context, name string, data any, withHTML bool) (domain.Body, error)
}

// Request is everything needed to compose one notification.
type Request struct {
	Event    domain.NotificationEvent
	Audience domain.Audience
	Actor    *domain.Actor
	// From overrides Config.MailFrom.
	From    string
	Subject string
	// Template defaults to the event kind.
	Template string
	Data     any
	// Headers are emitted as X-Issues-<Name>, in order.
	Headers    []domain.Header
	MessageID  *messageid.Ref
	References []messageid.Ref
	// Language is used when supported, otherwise the default applies.
	Language string
}

// Option adjusts a single Dispatch call.
type Option func(*callOptions)

type callOptions struct {
	gate        delivery.Options
	synchronous bool
}

// WithRaiseErrors overrides whether transport failures are returned.
func WithRaiseErrors(raise bool) Option {
	return func(o *callOptions) { o.gate.RaiseErrors = raise }
}

// WithDeliveries enables or disables the transport for this call.
func WithDeliveries(enabled bool) Option {
	return func(o *callOptions) { o.gate.PerformDeliveries = enabled }
}

// WithSynchronousDelivery bypasses a queueing transport and sends in line.
func WithSynchronousDelivery() Option {
	return func(o *callOptions) { o.synchronous = true }
}

// Syncer is implemented by transports that queue messages and can expose the
// transport they wrap.
type Syncer interface {
	Sync() delivery.Transport
}

// Dispatcher composes and delivers notifications.
type Dispatcher struct {
	cfg      Config
	ids      messageid.Builder
	tr       *i18n.Translator
	renderer Renderer
	gate     *delivery.Gate
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg Config, tr *i18n.Translator, renderer Renderer, gate *delivery.Gate, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "issues"
	}
	return &Dispatcher{
		cfg:      cfg,
		ids:      messageid.NewBuilder(cfg.Namespace, cfg.MailFrom),
		tr:       tr,
		renderer: renderer,
		gate:     gate,
		logger:   logger.With("component", "dispatcher"),
	}
}

// Dispatch composes req and hands it to the delivery gate. Errors other than
// raised transport failures indicate a malformed request.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, opts ...Option) (domain.DeliveryOutcome, error) {
	o := callOptions{gate: delivery.Options{
		RaiseErrors:       d.cfg.RaiseDeliveryErrors,
		PerformDeliveries: d.cfg.PerformDeliveries,
	}}
	for _, opt := range opts {
		opt(&o)
	}

	headers, err := d.identityHeaders(req)
	if err != nil {
		return domain.DeliveryOutcome{}, err
	}

	audience := recipient.Apply(req.Audience, req.Actor, d.cfg.BCCRecipients)
	if !recipient.ShouldSend(audience) {
		d.logger.DebugContext(ctx, "notification has no recipients",
			"event", req.Event.Kind,
			"entity_id", req.Event.SubjectEntityID,
		)
		return domain.DeliveryOutcome{MessageID: headers.Get("Message-ID")}, nil
	}

	lang := d.tr.Resolve(req.Language)
	msgCtx := i18n.WithLanguage(ctx, lang)

	tmpl := req.Template
	if tmpl == "" {
		tmpl = string(req.Event.Kind)
	}
	body, err := d.renderer.Render(msgCtx, tmpl, req.Data, !d.cfg.PlainTextMail)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("render %s: %w", tmpl, err)
	}

	from := req.From
	if from == "" {
		from = d.cfg.MailFrom
	}
	msg := domain.ComposedMessage{
		Headers: append(d.infrastructureHeaders(lang.String()), headers...),
		From:    from,
		To:      audience.To,
		Cc:      audience.Cc,
		Bcc:     audience.Bcc,
		Subject: req.Subject,
		Body:    body,
	}

	transport := d.gate.Transport()
	if s, ok := transport.(Syncer); ok && o.synchronous {
		transport = s.Sync()
	}

	outcome, err := d.gate.DeliverVia(msgCtx, transport, msg, o.gate)
	d.logger.InfoContext(ctx, "notification dispatched",
		"event", req.Event.Kind,
		"entity_id", req.Event.SubjectEntityID,
		"status", outcome.Status(),
		"message_id", outcome.MessageID,
		"recipients", audience.Count(),
		"language", lang.String(),
	)
	return outcome, err
}

func (d *Dispatcher) identityHeaders(req Request) (domain.Headers, error) {
	var h domain.Headers
	h.Set(HeaderPrefix+"Event", string(req.Event.Kind))
	h.Set(HeaderPrefix+"Entity-Id", strconv.FormatInt(req.Event.SubjectEntityID, 10))
	for _, f := range req.Headers {
		h.Set(HeaderPrefix+f.Name, f.Value)
	}
	if req.Actor != nil && req.Actor.LoggedIn && req.Actor.Login != "" {
		h.Set(HeaderPrefix+"Sender", req.Actor.Login)
	}
	if req.MessageID != nil {
		id, err := d.ids.MessageIDHeader(*req.MessageID)
		if err != nil {
			return nil, err
		}
		h.Set("Message-ID", id)
	}
	if len(req.References) > 0 {
		refs, err := d.ids.References(req.References...)
		if err != nil {
			return nil, err
		}
		h.Set("References", refs)
	}
	return h, nil
}

func (d *Dispatcher) infrastructureHeaders(lang string) domain.Headers {
	var h domain.Headers
	h.Set("X-Mailer", d.cfg.MailerName)
	h.Set(HeaderPrefix+"Host", d.cfg.HostName)
	h.Set(HeaderPrefix+"Site", d.cfg.SiteName)
	h.Set("X-Auto-Response-Suppress", "OOF")
	h.Set("Auto-Submitted", "auto-generated")
	h.Set("List-Id", listID(d.cfg.MailFrom))
	h.Set("Content-Language", lang)
	return h
}

// listID turns "noreply@example.com" into "<noreply.example.com>".
func listID(from string) string {
	if addr, err := mail.ParseAddress(from); err == nil {
		from = addr.Address
	}
	return "<" + strings.ReplaceAll(from, "@", ".") + ">"
}
