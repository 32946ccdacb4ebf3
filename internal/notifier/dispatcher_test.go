package notifier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/sumire/issuemail/internal/delivery"
	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/i18n"
	"github.com/sumire/issuemail/internal/messageid"
	"github.com/sumire/issuemail/internal/render"
	"github.com/sumire/issuemail/internal/transport/memory"
)

var created = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		Namespace:         "issues",
		MailerName:        "Issues",
		HostName:          "tracker.example.com",
		SiteName:          "Tracker",
		MailFrom:          "noreply@example.com",
		PerformDeliveries: true,
	}
}

type fixture struct {
	d         *Dispatcher
	transport *memory.Transport
	logs      *bytes.Buffer
}

func newFixture(t *testing.T, cfg Config) fixture {
	t.Helper()
	tr, err := i18n.New("en")
	require.NoError(t, err)
	r, err := render.New(tr, cfg.SiteName)
	require.NoError(t, err)

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	mem := memory.New()
	gate := delivery.NewGate(mem, logger)
	return fixture{d: NewDispatcher(cfg, tr, r, gate, logger), transport: mem, logs: &logs}
}

func issueRequest(to ...string) Request {
	ref := messageid.Ref{Type: "Issue", ID: 42, CreatedAt: created}
	return Request{
		Event:    domain.NotificationEvent{Kind: domain.EventIssueCreated, SubjectEntityID: 42, ActorID: 7},
		Audience: domain.Audience{To: to},
		Actor:    &domain.Actor{ID: 7, Login: "bob", Address: "bob@x.com", LoggedIn: true},
		Subject:  "Core - Crash",
		Data:     render.IssueData{ID: 42, Subject: "Crash", Project: "Core", Author: "Bob"},
		Headers: []domain.Header{
			{Name: "Project", Value: "core"},
			{Name: "Issue-Id", Value: "42"},
		},
		MessageID: &ref,
	}
}

func TestDispatch_ComposesHeaders(t *testing.T) {
	f := newFixture(t, testConfig())

	out, err := f.d.Dispatch(context.Background(), issueRequest("alice@x.com"))
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusDelivered, out.Status())

	msg, ok := f.transport.Last()
	require.True(t, ok)

	names := make([]string, 0, len(msg.Headers))
	for _, h := range msg.Headers {
		names = append(names, h.Name)
	}
	assert.Equal(t, []string{
		"X-Mailer", "X-Issues-Host", "X-Issues-Site", "X-Auto-Response-Suppress",
		"Auto-Submitted", "List-Id", "Content-Language",
		"X-Issues-Event", "X-Issues-Entity-Id", "X-Issues-Project", "X-Issues-Issue-Id",
		"X-Issues-Sender", "Message-ID",
	}, names)

	assert.Equal(t, "Issues", msg.Headers.Get("X-Mailer"))
	assert.Equal(t, "tracker.example.com", msg.Headers.Get("X-Issues-Host"))
	assert.Equal(t, "Tracker", msg.Headers.Get("X-Issues-Site"))
	assert.Equal(t, "OOF", msg.Headers.Get("X-Auto-Response-Suppress"))
	assert.Equal(t, "auto-generated", msg.Headers.Get("Auto-Submitted"))
	assert.Equal(t, "<noreply.example.com>", msg.Headers.Get("List-Id"))
	assert.Equal(t, "issue_created", msg.Headers.Get("X-Issues-Event"))
	assert.Equal(t, "bob", msg.Headers.Get("X-Issues-Sender"))
	assert.Equal(t, "<issues.issue-42.20240301100000@example.com>", msg.Headers.Get("Message-ID"))
	assert.Equal(t, "<issues.issue-42.20240301100000@example.com>", out.MessageID)

	assert.Equal(t, "noreply@example.com", msg.From)
	assert.Equal(t, []string{"alice@x.com"}, msg.To)
	assert.Equal(t, "Core - Crash", msg.Subject)
	assert.Contains(t, msg.Body.Text, "Issue #42 has been reported by Bob.")
	assert.NotEmpty(t, msg.Body.HTML)
}

func TestDispatch_ReferencesAndFromOverride(t *testing.T) {
	f := newFixture(t, testConfig())
	req := issueRequest("alice@x.com")
	req.From = "core@example.com"
	req.References = []messageid.Ref{
		{Type: "Issue", ID: 42, CreatedAt: created},
		{Type: "Journal", ID: 9, CreatedAt: created},
	}

	_, err := f.d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	msg, _ := f.transport.Last()
	assert.Equal(t, "core@example.com", msg.From)
	assert.Equal(t,
		"<issues.issue-42.20240301100000@example.com> <issues.journal-9.20240301100000@example.com>",
		msg.Headers.Get("References"))
}

func TestDispatch_SelfNotificationSuppressed(t *testing.T) {
	f := newFixture(t, testConfig())
	req := issueRequest("bob@x.com", "alice@x.com")
	req.Actor = &domain.Actor{ID: 7, Login: "bob", Address: "bob@x.com", LoggedIn: true, WantsSelfNotifications: false}

	_, err := f.d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	msg, _ := f.transport.Last()
	assert.Equal(t, []string{"alice@x.com"}, msg.To)
}

func TestDispatch_OnlyActorOptedOutIsSuppressed(t *testing.T) {
	f := newFixture(t, testConfig())
	req := issueRequest("bob@x.com")
	req.Actor = &domain.Actor{ID: 7, Login: "bob", Address: "bob@x.com", LoggedIn: true}

	out, err := f.d.Dispatch(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, out.Attempted)
	assert.Equal(t, domain.DeliveryStatusSuppressed, out.Status())
	assert.Empty(t, f.transport.Sent())
}

func TestDispatch_BlindCopy(t *testing.T) {
	cfg := testConfig()
	cfg.BCCRecipients = true
	f := newFixture(t, cfg)
	req := issueRequest("a@x.com")
	req.Audience.Cc = []string{"a@x.com", "b@x.com"}
	req.Actor = nil

	_, err := f.d.Dispatch(context.Background(), req)
	require.NoError(t, err)

	msg, _ := f.transport.Last()
	assert.Empty(t, msg.To)
	assert.Empty(t, msg.Cc)
	assert.Equal(t, []string{"a@x.com", "b@x.com"}, msg.Bcc)
	assert.Empty(t, msg.Headers.Get("X-Issues-Sender"))
}

func TestDispatch_PlainTextMail(t *testing.T) {
	cfg := testConfig()
	cfg.PlainTextMail = true
	f := newFixture(t, cfg)

	_, err := f.d.Dispatch(context.Background(), issueRequest("alice@x.com"))
	require.NoError(t, err)

	msg, _ := f.transport.Last()
	assert.NotEmpty(t, msg.Body.Text)
	assert.Empty(t, msg.Body.HTML)
}

func TestDispatch_MissingTimestampPropagates(t *testing.T) {
	f := newFixture(t, testConfig())
	req := issueRequest("alice@x.com")
	req.MessageID = &messageid.Ref{Type: "Issue", ID: 42}

	_, err := f.d.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrMissingTimestamp)
	assert.Empty(t, f.transport.Sent())
}

func TestDispatch_UnknownTemplate(t *testing.T) {
	f := newFixture(t, testConfig())
	req := issueRequest("alice@x.com")
	req.Template = "issue_edit"

	_, err := f.d.Dispatch(context.Background(), req)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDispatch_TransportFailureSwallowed(t *testing.T) {
	f := newFixture(t, testConfig())
	f.transport.FailWith(errors.New("smtp: connection refused"))

	out, err := f.d.Dispatch(context.Background(), issueRequest("alice@x.com"))
	require.NoError(t, err)
	assert.True(t, out.Attempted)
	assert.False(t, out.Succeeded)
	assert.ErrorIs(t, out.Err, domain.ErrDelivery)
	assert.Contains(t, f.logs.String(), "connection refused")
	assert.Contains(t, f.logs.String(), "level=ERROR")

	// the site-wide setting is untouched by the call
	assert.False(t, f.d.cfg.RaiseDeliveryErrors)
}

func TestDispatch_TransportFailureRaised(t *testing.T) {
	cfg := testConfig()
	cfg.RaiseDeliveryErrors = true
	f := newFixture(t, cfg)
	f.transport.FailWith(errors.New("smtp: 554 rejected"))

	out, err := f.d.Dispatch(context.Background(), issueRequest("alice@x.com"))
	assert.ErrorIs(t, err, domain.ErrDelivery)
	assert.True(t, out.Attempted)

	// a per-call override wins over the site-wide setting
	out, err = f.d.Dispatch(context.Background(), issueRequest("alice@x.com"), WithRaiseErrors(false))
	require.NoError(t, err)
	assert.Equal(t, domain.DeliveryStatusFailed, out.Status())
}

func TestDispatch_WithDeliveriesDisabled(t *testing.T) {
	f := newFixture(t, testConfig())

	out, err := f.d.Dispatch(context.Background(), issueRequest("alice@x.com"), WithDeliveries(false))
	require.NoError(t, err)
	assert.False(t, out.Attempted)
	assert.Empty(t, f.transport.Sent())

	_, err = f.d.Dispatch(context.Background(), issueRequest("alice@x.com"))
	require.NoError(t, err)
	assert.Len(t, f.transport.Sent(), 1)
}

func TestDispatch_LanguageIsCallScoped(t *testing.T) {
	f := newFixture(t, testConfig())
	caller := i18n.WithLanguage(context.Background(), language.French)

	req := Request{
		Event:    domain.NotificationEvent{Kind: domain.EventAccountActivated, SubjectEntityID: 3},
		Audience: domain.Audience{To: []string{"carol@x.com"}},
		Subject:  "activated",
		Data:     render.AccountData{URL: "http://x/login"},
		Language: "de",
	}
	_, err := f.d.Dispatch(caller, req)
	require.NoError(t, err)

	msg, _ := f.transport.Last()
	assert.Contains(t, msg.Body.Text, "Ihr Konto wurde aktiviert.")
	assert.Equal(t, "de", msg.Headers.Get("Content-Language"))

	tag, ok := i18n.FromContext(caller)
	require.True(t, ok)
	assert.Equal(t, language.French, tag)

	req.Language = "ja"
	_, err = f.d.Dispatch(caller, req)
	require.NoError(t, err)
	msg, _ = f.transport.Last()
	assert.Contains(t, msg.Body.Text, "Your account has been activated.")
}

func TestDispatch_ConcurrentRaiseModesDoNotInterfere(t *testing.T) {
	f := newFixture(t, testConfig())
	f.transport.FailWith(errors.New("unavailable"))

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			raise := i%2 == 0
			req := issueRequest(fmt.Sprintf("user%d@x.com", i))
			_, errs[i] = f.d.Dispatch(context.Background(), req, WithRaiseErrors(raise))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if i%2 == 0 {
			assert.ErrorIs(t, err, domain.ErrDelivery, "dispatch %d", i)
		} else {
			assert.NoError(t, err, "dispatch %d", i)
		}
	}
	assert.False(t, f.d.cfg.RaiseDeliveryErrors)
}

type queued struct {
	*memory.Transport
	inner *memory.Transport
}

func (q queued) Sync() delivery.Transport { return q.inner }

func TestDispatch_SynchronousDelivery(t *testing.T) {
	tr, err := i18n.New("en")
	require.NoError(t, err)
	r, err := render.New(tr, "Tracker")
	require.NoError(t, err)

	q := queued{Transport: memory.New(), inner: memory.New()}
	d := NewDispatcher(testConfig(), tr, r, delivery.NewGate(q, nil), nil)

	_, err = d.Dispatch(context.Background(), issueRequest("alice@x.com"))
	require.NoError(t, err)
	assert.Len(t, q.Transport.Sent(), 1)
	assert.Empty(t, q.inner.Sent())

	_, err = d.Dispatch(context.Background(), issueRequest("alice@x.com"), WithSynchronousDelivery())
	require.NoError(t, err)
	assert.Len(t, q.Transport.Sent(), 1)
	assert.Len(t, q.inner.Sent(), 1)
}

func TestListID(t *testing.T) {
	assert.Equal(t, "<noreply.example.com>", listID("noreply@example.com"))
	assert.Equal(t, "<noreply.example.com>", listID("Tracker <noreply@example.com>"))
}
