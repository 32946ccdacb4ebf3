package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/i18n"
	"github.com/sumire/issuemail/internal/messageid"
	"github.com/sumire/issuemail/internal/notifier"
	"github.com/sumire/issuemail/internal/render"
)

// UserFinder defines the user lookups consumed by NotificationService.
type UserFinder interface {
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	ActiveAdmins(ctx context.Context) ([]domain.User, error)
}

// IssueFinder defines the issue lookups consumed by NotificationService.
type IssueFinder interface {
	FindDetails(ctx context.Context, id int64) (*domain.IssueDetails, error)
	Recipients(ctx context.Context, issueID int64) ([]string, error)
	FindJournal(ctx context.Context, id int64) (*domain.Journal, error)
}

// DeliveryRecorder persists dispatch outcomes.
type DeliveryRecorder interface {
	Record(ctx context.Context, d domain.Delivery) (int64, error)
}

// Dispatcher composes and sends a single notification.
type Dispatcher interface {
	Dispatch(ctx context.Context, req notifier.Request, opts ...notifier.Option) (domain.DeliveryOutcome, error)
}

// NotificationConfig holds the site settings used to build messages.
type NotificationConfig struct {
	AppTitle string
	MailFrom string
	URLs     render.URLBuilder
}

// NotificationService builds the notifications sent by the tracker.
type NotificationService struct {
	users      UserFinder
	issues     IssueFinder
	deliveries DeliveryRecorder
	dispatcher Dispatcher
	tr         *i18n.Translator
	cfg        NotificationConfig
	logger     *slog.Logger
}

// NewNotificationService creates a new NotificationService. deliveries may be
// nil, in which case outcomes are only logged.
func NewNotificationService(
	users UserFinder,
	issues IssueFinder,
	deliveries DeliveryRecorder,
	dispatcher Dispatcher,
	tr *i18n.Translator,
	cfg NotificationConfig,
	logger *slog.Logger,
) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		users:      users,
		issues:     issues,
		deliveries: deliveries,
		dispatcher: dispatcher,
		tr:         tr,
		cfg:        cfg,
		logger:     logger,
	}
}

// IssueAddForAuthor notifies the author of a newly created issue. The
// message has no actor, so it reaches authors who opted out of notices
// about their own actions.
func (s *NotificationService) IssueAddForAuthor(ctx context.Context, issueID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error) {
	details, err := s.issues.FindDetails(ctx, issueID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find issue %d: %w", issueID, err)
	}
	audience := domain.Audience{To: []string{details.Author.Email}}
	return s.issueMessage(ctx, domain.EventIssueCreated, details, audience, nil, details.Author.ID, nil, opts)
}

// IssueAddForUsers notifies everyone involved in a newly created issue.
func (s *NotificationService) IssueAddForUsers(ctx context.Context, issueID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error) {
	return s.issueAddForUsers(ctx, issueID, false, opts)
}

// issueAddForUsers sends the users message. excludeAuthor drops the author
// from the audience when they get a message of their own.
func (s *NotificationService) issueAddForUsers(ctx context.Context, issueID int64, excludeAuthor bool, opts []notifier.Option) (domain.DeliveryOutcome, error) {
	details, err := s.issues.FindDetails(ctx, issueID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find issue %d: %w", issueID, err)
	}
	recipients, err := s.issues.Recipients(ctx, issueID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("issue %d recipients: %w", issueID, err)
	}
	if excludeAuthor {
		author := domain.NormalizeAddress(details.Author.Email)
		recipients = slices.DeleteFunc(slices.Clone(recipients), func(addr string) bool {
			return domain.NormalizeAddress(addr) == author
		})
	}
	audience := domain.Audience{To: recipients}
	return s.issueMessage(ctx, domain.EventIssueCreated, details, audience, &details.Author, details.Author.ID, nil, opts)
}

// IssueClosedForAuthor notifies the author that their issue was closed by
// the change recorded in journalID. A journal whose user no longer exists is
// sent without an actor.
func (s *NotificationService) IssueClosedForAuthor(ctx context.Context, issueID, journalID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error) {
	details, err := s.issues.FindDetails(ctx, issueID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find issue %d: %w", issueID, err)
	}
	if !details.Issue.IsClosed() {
		return domain.DeliveryOutcome{}, fmt.Errorf("%w: issue %d is %s, not closed",
			domain.ErrInvalidInput, issueID, details.Issue.Status)
	}
	journal, err := s.issues.FindJournal(ctx, journalID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find journal %d: %w", journalID, err)
	}
	if journal.IssueID != issueID {
		return domain.DeliveryOutcome{}, fmt.Errorf("%w: journal %d does not belong to issue %d",
			domain.ErrInvalidInput, journalID, issueID)
	}
	closer, err := s.users.FindByID(ctx, journal.UserID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return domain.DeliveryOutcome{}, fmt.Errorf("find journal user %d: %w", journal.UserID, err)
		}
		closer = nil
	}
	audience := domain.Audience{To: []string{details.Author.Email}}
	return s.issueMessage(ctx, domain.EventIssueClosed, details, audience, closer, journal.UserID, journal, opts)
}

// issueMessage builds an issue notification. actor may be nil; actorID is
// recorded on the event either way.
func (s *NotificationService) issueMessage(
	ctx context.Context,
	kind domain.EventKind,
	details *domain.IssueDetails,
	audience domain.Audience,
	actor *domain.User,
	actorID int64,
	journal *domain.Journal,
	opts []notifier.Option,
) (domain.DeliveryOutcome, error) {
	issue := details.Issue
	headers := []domain.Header{
		{Name: "Project", Value: details.Project.Identifier},
		{Name: "Issue-Id", Value: strconv.FormatInt(issue.ID, 10)},
		{Name: "Issue-Author", Value: details.Author.Login},
	}
	if details.Assignee != nil {
		headers = append(headers, domain.Header{Name: "Issue-Assignee", Value: details.Assignee.Login})
	}

	data := render.IssueData{
		ID:      issue.ID,
		Subject: issue.Subject,
		Project: details.Project.Name,
		Author:  details.Author.DisplayName,
		Status:  string(issue.Status),
		URL:     s.cfg.URLs.Issue(issue.ID),
	}
	if actor != nil {
		data.ClosedBy = actor.DisplayName
	}
	if details.Assignee != nil {
		data.Assignee = details.Assignee.DisplayName
	}
	if issue.Description != nil {
		data.Description = *issue.Description
	}

	issueRef := messageid.IssueRef(issue)
	req := notifier.Request{
		Audience:  audience,
		Actor:     actor.Actor(),
		From:      details.Project.SenderAddress(s.cfg.MailFrom),
		Subject:   details.Project.Name + " - " + issue.Subject,
		Data:      data,
		Headers:   headers,
		MessageID: &issueRef,
	}
	payload := map[string]string{"project": details.Project.Identifier}
	if journal != nil {
		journalRef := messageid.JournalRef(*journal)
		req.MessageID = &journalRef
		req.References = []messageid.Ref{issueRef}
		if journal.Notes != nil {
			req.Data = withNotes(data, *journal.Notes)
		}
		payload["journal_id"] = strconv.FormatInt(journal.ID, 10)
	}
	req.Event = domain.NewNotificationEvent(kind, issue.ID, actorID, payload)
	return s.dispatch(ctx, req, opts)
}

func withNotes(d render.IssueData, notes string) render.IssueData {
	d.Notes = notes
	return d
}

// AccountActivationRequest asks every active administrator to approve the
// registration of userID.
func (s *NotificationService) AccountActivationRequest(ctx context.Context, userID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find user %d: %w", userID, err)
	}
	admins, err := s.users.ActiveAdmins(ctx)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("list active admins: %w", err)
	}
	recipients := make([]string, 0, len(admins))
	for _, a := range admins {
		recipients = append(recipients, a.Email)
	}

	req := notifier.Request{
		Event:    domain.NewNotificationEvent(domain.EventAccountActivationRequested, user.ID, 0, nil),
		Audience: domain.Audience{To: recipients},
		Subject:  s.translate("", i18n.MailSubjectActivationRequest, s.cfg.AppTitle),
		Data: render.AccountData{
			Login: user.Login,
			Name:  user.DisplayName,
			Email: user.Email,
			URL:   s.cfg.URLs.PendingUsers(),
		},
	}
	return s.dispatch(ctx, req, opts)
}

// AccountActivated tells userID, in their own language, that an
// administrator activated the account.
func (s *NotificationService) AccountActivated(ctx context.Context, userID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find user %d: %w", userID, err)
	}
	req := notifier.Request{
		Event:    domain.NewNotificationEvent(domain.EventAccountActivated, user.ID, 0, nil),
		Audience: domain.Audience{To: []string{user.Email}},
		Subject:  s.translate(user.Language, i18n.MailSubjectRegister, s.cfg.AppTitle),
		Data: render.AccountData{
			Login: user.Login,
			Name:  user.DisplayName,
			Email: user.Email,
			URL:   s.cfg.URLs.Login(),
		},
		Language: user.Language,
	}
	return s.dispatch(ctx, req, opts)
}

// TestEmail sends a test message to userID.
func (s *NotificationService) TestEmail(ctx context.Context, userID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.DeliveryOutcome{}, fmt.Errorf("find user %d: %w", userID, err)
	}
	req := notifier.Request{
		Event:    domain.NewNotificationEvent(domain.EventTestMessage, user.ID, 0, nil),
		Audience: domain.Audience{To: []string{user.Email}},
		Subject:  s.translate(user.Language, i18n.MailSubjectTest, s.cfg.AppTitle),
		Data:     render.TestData{URL: s.cfg.URLs.Home()},
		Language: user.Language,
	}
	return s.dispatch(ctx, req, opts)
}

// Issue event payload keys.
const (
	PayloadAudience  = "audience"
	PayloadJournalID = "journal_id"

	AudienceAuthor = "author"
	AudienceUsers  = "users"
)

// HandleEvent routes a domain event to the matching notification. An
// issue_created event without an audience notifies the author and then the
// other users, leaving the author out of the second message.
func (s *NotificationService) HandleEvent(ctx context.Context, ev domain.NotificationEvent, opts ...notifier.Option) ([]domain.DeliveryOutcome, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	one := func(out domain.DeliveryOutcome, err error) ([]domain.DeliveryOutcome, error) {
		if err != nil {
			return nil, err
		}
		return []domain.DeliveryOutcome{out}, nil
	}

	switch ev.Kind {
	case domain.EventIssueCreated:
		switch ev.Payload[PayloadAudience] {
		case AudienceAuthor:
			return one(s.IssueAddForAuthor(ctx, ev.SubjectEntityID, opts...))
		case AudienceUsers:
			return one(s.IssueAddForUsers(ctx, ev.SubjectEntityID, opts...))
		case "":
			// The author already has their own message.
			author, err := s.IssueAddForAuthor(ctx, ev.SubjectEntityID, opts...)
			if err != nil {
				return nil, err
			}
			users, err := s.issueAddForUsers(ctx, ev.SubjectEntityID, true, opts)
			if err != nil {
				return []domain.DeliveryOutcome{author}, err
			}
			return []domain.DeliveryOutcome{author, users}, nil
		default:
			return nil, &domain.ValidationError{Field: PayloadAudience, Message: "must be author or users"}
		}
	case domain.EventIssueClosed:
		journalID, err := strconv.ParseInt(ev.Payload[PayloadJournalID], 10, 64)
		if err != nil || journalID <= 0 {
			return nil, &domain.ValidationError{Field: PayloadJournalID, Message: "must be a positive integer"}
		}
		return one(s.IssueClosedForAuthor(ctx, ev.SubjectEntityID, journalID, opts...))
	case domain.EventAccountActivationRequested:
		return one(s.AccountActivationRequest(ctx, ev.SubjectEntityID, opts...))
	case domain.EventAccountActivated:
		return one(s.AccountActivated(ctx, ev.SubjectEntityID, opts...))
	case domain.EventTestMessage:
		return one(s.TestEmail(ctx, ev.SubjectEntityID, opts...))
	}
	return nil, fmt.Errorf("%w: unhandled event kind %q", domain.ErrInvalidInput, ev.Kind)
}

func (s *NotificationService) translate(lang, key string, args ...any) string {
	return s.tr.Printer(s.tr.Resolve(lang)).Sprintf(key, args...)
}

func (s *NotificationService) dispatch(ctx context.Context, req notifier.Request, opts []notifier.Option) (domain.DeliveryOutcome, error) {
	outcome, err := s.dispatcher.Dispatch(ctx, req, opts...)
	if err != nil && !errors.Is(err, domain.ErrDelivery) {
		return outcome, err
	}
	s.record(ctx, req, outcome)
	return outcome, err
}

func (s *NotificationService) record(ctx context.Context, req notifier.Request, outcome domain.DeliveryOutcome) {
	if s.deliveries == nil {
		return
	}
	d := domain.Delivery{
		EventKind:      req.Event.Kind,
		EntityID:       req.Event.SubjectEntityID,
		Status:         outcome.Status(),
		RecipientCount: req.Audience.Count(),
	}
	if outcome.MessageID != "" {
		d.MessageID = &outcome.MessageID
	}
	if outcome.Err != nil {
		msg := outcome.Err.Error()
		d.ErrorMsg = &msg
	}
	if _, err := s.deliveries.Record(ctx, d); err != nil {
		s.logger.ErrorContext(ctx, "failed to record delivery",
			"event", d.EventKind,
			"entity_id", d.EntityID,
			"error", err,
		)
	}
}
