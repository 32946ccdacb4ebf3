package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "bob@x.com", NormalizeAddress("  Bob@X.com "))
	assert.Equal(t, "", NormalizeAddress("   "))
}

func TestHeaders_SetKeepsPosition(t *testing.T) {
	var h Headers
	h.Set("X-Mailer", "Issues")
	h.Set("Subject", "a")
	h.Set("x-mailer", "Other")

	require.Len(t, h, 2)
	assert.Equal(t, "X-Mailer", h[0].Name)
	assert.Equal(t, "Other", h[0].Value)
	assert.Equal(t, "Subject", h[1].Name)
}

func TestHeaders_SetCollapsesDuplicates(t *testing.T) {
	var h Headers
	h.Add("Received", "one")
	h.Add("Other", "x")
	h.Add("Received", "two")
	h.Set("Received", "three")

	assert.Equal(t, Headers{{"Received", "three"}, {"Other", "x"}}, h)
}

func TestHeaders_AddAndValues(t *testing.T) {
	var h Headers
	h.Add("Received", "one")
	h.Add("Received", "two")

	assert.Equal(t, []string{"one", "two"}, h.Values("received"))
	assert.Equal(t, "one", h.Get("Received"))
	assert.Equal(t, "", h.Get("Missing"))
}

func TestUser_Actor(t *testing.T) {
	u := &User{ID: 7, Login: "bob", Email: "Bob@X.com", NoSelfNotified: true}
	a := u.Actor()
	require.NotNil(t, a)
	assert.Equal(t, "bob@x.com", a.Address)
	assert.True(t, a.LoggedIn)
	assert.False(t, a.WantsSelfNotifications)

	var nilUser *User
	assert.Nil(t, nilUser.Actor())

	anon := &User{}
	assert.False(t, anon.Actor().LoggedIn)
}

func TestDeliveryOutcome_Status(t *testing.T) {
	assert.Equal(t, DeliveryStatusDelivered, DeliveryOutcome{Attempted: true, Succeeded: true}.Status())
	assert.Equal(t, DeliveryStatusFailed, DeliveryOutcome{Attempted: true}.Status())
	assert.Equal(t, DeliveryStatusSuppressed, DeliveryOutcome{}.Status())
}

func TestNotificationEvent_Validate(t *testing.T) {
	ev := NewNotificationEvent(EventIssueCreated, 42, 7, map[string]string{"k": "v"})
	require.NoError(t, ev.Validate())
	assert.False(t, ev.OccurredAt.IsZero())

	bad := NewNotificationEvent("issue_edited", 42, 0, nil)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidInput)

	var vErr *ValidationError
	assert.ErrorAs(t, NewNotificationEvent(EventIssueClosed, 0, 0, nil).Validate(), &vErr)
}

func TestProject_SenderAddress(t *testing.T) {
	email := "proj@x.com"
	assert.Equal(t, "proj@x.com", Project{Email: &email}.SenderAddress("noreply@x.com"))
	assert.Equal(t, "noreply@x.com", Project{}.SenderAddress("noreply@x.com"))
}
