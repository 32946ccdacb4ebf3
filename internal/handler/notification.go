package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/sumire/issuemail/internal/domain"
	"github.com/sumire/issuemail/internal/notifier"
	"github.com/sumire/issuemail/internal/service"
)

// NotificationSender defines the mailer operations exposed over HTTP.
type NotificationSender interface {
	IssueAddForAuthor(ctx context.Context, issueID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error)
	IssueAddForUsers(ctx context.Context, issueID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error)
	IssueClosedForAuthor(ctx context.Context, issueID, journalID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error)
	AccountActivationRequest(ctx context.Context, userID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error)
	AccountActivated(ctx context.Context, userID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error)
	TestEmail(ctx context.Context, userID int64, opts ...notifier.Option) (domain.DeliveryOutcome, error)
}

// NotificationHandler triggers notifications on behalf of the tracker.
type NotificationHandler struct {
	notifications NotificationSender
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications NotificationSender) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// OutcomeResponse describes one dispatch.
type OutcomeResponse struct {
	Status    domain.DeliveryStatus `json:"status"`
	MessageID string                `json:"message_id,omitempty"`
	Error     string                `json:"error,omitempty"`
}

func newOutcomeResponse(o domain.DeliveryOutcome) OutcomeResponse {
	r := OutcomeResponse{Status: o.Status(), MessageID: o.MessageID}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

type issueCreatedRequest struct {
	Audience string `json:"audience" validate:"required,oneof=author users"`
}

// IssueCreated notifies the author or the other users of a new issue.
func (h *NotificationHandler) IssueCreated(c echo.Context) error {
	issueID, err := pathID(c)
	if err != nil {
		return err
	}
	var body issueCreatedRequest
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}

	send := h.notifications.IssueAddForUsers
	if body.Audience == service.AudienceAuthor {
		send = h.notifications.IssueAddForAuthor
	}
	outcome, err := send(c.Request().Context(), issueID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, newOutcomeResponse(outcome))
}

type issueClosedRequest struct {
	JournalID int64 `json:"journal_id" validate:"required,gt=0"`
}

// IssueClosed notifies the author that their issue was closed.
func (h *NotificationHandler) IssueClosed(c echo.Context) error {
	issueID, err := pathID(c)
	if err != nil {
		return err
	}
	var body issueClosedRequest
	if err := bindAndValidate(c, &body); err != nil {
		return err
	}

	outcome, err := h.notifications.IssueClosedForAuthor(c.Request().Context(), issueID, body.JournalID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, newOutcomeResponse(outcome))
}

// ActivationRequest asks the administrators to approve a registration.
func (h *NotificationHandler) ActivationRequest(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return err
	}
	outcome, err := h.notifications.AccountActivationRequest(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, newOutcomeResponse(outcome))
}

// Activated tells a user their account is active.
func (h *NotificationHandler) Activated(c echo.Context) error {
	userID, err := pathID(c)
	if err != nil {
		return err
	}
	outcome, err := h.notifications.AccountActivated(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusAccepted, newOutcomeResponse(outcome))
}

// Test sends a test message to the authenticated user. It bypasses any
// queue and reports transport failures as errors.
func (h *NotificationHandler) Test(c echo.Context) error {
	userID, ok := GetUserID(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	outcome, err := h.notifications.TestEmail(c.Request().Context(), userID,
		notifier.WithSynchronousDelivery(),
		notifier.WithRaiseErrors(true),
		notifier.WithDeliveries(true),
	)
	if err != nil {
		return err
	}
	return JSON(c, http.StatusOK, newOutcomeResponse(outcome))
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Message: fmt.Sprintf("invalid id %q", c.Param("id"))}
	}
	return id, nil
}
