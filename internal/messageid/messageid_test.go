package messageid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/issuemail/internal/domain"
)

var ts = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func TestFor_Deterministic(t *testing.T) {
	b := NewBuilder("issues", "Tracker <noreply@example.net>")
	ref := Ref{Type: "Issue", ID: 42, CreatedAt: ts}

	first, err := b.For(ref)
	require.NoError(t, err)
	second, err := b.For(ref)
	require.NoError(t, err)

	assert.Equal(t, "issues.issue-42.20240301100000@example.net", first)
	assert.Equal(t, first, second)
}

func TestFor_PlainAddress(t *testing.T) {
	b := NewBuilder("issues", "noreply@example.net")
	id, err := b.For(Ref{Type: "Issue", ID: 42, CreatedAt: ts})
	require.NoError(t, err)
	assert.Equal(t, "issues.issue-42.20240301100000@example.net", id)
}

func TestFor_DiffersByIDAndTimestamp(t *testing.T) {
	b := NewBuilder("issues", "noreply@example.net")
	base, err := b.For(Ref{Type: "Issue", ID: 42, CreatedAt: ts})
	require.NoError(t, err)

	otherID, err := b.For(Ref{Type: "Issue", ID: 43, CreatedAt: ts})
	require.NoError(t, err)
	otherTime, err := b.For(Ref{Type: "Issue", ID: 42, CreatedAt: ts.Add(time.Second)})
	require.NoError(t, err)

	assert.NotEqual(t, base, otherID)
	assert.NotEqual(t, base, otherTime)
}

func TestFor_FallsBackToUpdatedAt(t *testing.T) {
	b := NewBuilder("issues", "noreply@example.net")
	id, err := b.For(Ref{Type: "WikiContent", ID: 3, UpdatedAt: ts})
	require.NoError(t, err)
	assert.Equal(t, "issues.wiki_content-3.20240301100000@example.net", id)
}

func TestFor_NormalizesToUTC(t *testing.T) {
	b := NewBuilder("issues", "noreply@example.net")
	local := ts.In(time.FixedZone("UTC+3", 3*3600))
	id, err := b.For(Ref{Type: "Issue", ID: 42, CreatedAt: local})
	require.NoError(t, err)
	assert.Equal(t, "issues.issue-42.20240301100000@example.net", id)
}

func TestFor_MissingTimestamp(t *testing.T) {
	b := NewBuilder("issues", "noreply@example.net")
	_, err := b.For(Ref{Type: "Issue", ID: 42})
	assert.ErrorIs(t, err, domain.ErrMissingTimestamp)

	_, err = b.References(Ref{Type: "Issue", ID: 1, CreatedAt: ts}, Ref{Type: "Journal", ID: 2})
	assert.ErrorIs(t, err, domain.ErrMissingTimestamp)
}

func TestNewBuilder_HostnameFallback(t *testing.T) {
	b := NewBuilder("issues", "")
	assert.True(t, len(b.Domain()) > len(".issues"))
	assert.Contains(t, b.Domain(), ".issues")
}

func TestReferences_PreservesOrder(t *testing.T) {
	b := NewBuilder("issues", "noreply@example.net")
	refs, err := b.References(
		Ref{Type: "Journal", ID: 9, CreatedAt: ts},
		Ref{Type: "Issue", ID: 42, CreatedAt: ts},
	)
	require.NoError(t, err)
	assert.Equal(t,
		"<issues.journal-9.20240301100000@example.net> <issues.issue-42.20240301100000@example.net>",
		refs)

	empty, err := b.References()
	require.NoError(t, err)
	assert.Equal(t, "", empty)
}

func TestUnderscore(t *testing.T) {
	cases := map[string]string{
		"Issue":        "issue",
		"TimeEntry":    "time_entry",
		"tracker.News": "news",
		"HTTPRequest":  "http_request",
		"journal":      "journal",
	}
	for in, want := range cases {
		assert.Equal(t, want, Underscore(in), in)
	}
}

func TestIssueRef(t *testing.T) {
	ref := IssueRef(domain.Issue{ID: 5, CreatedAt: ts})
	assert.Equal(t, Ref{Type: "Issue", ID: 5, CreatedAt: ts}, ref)
}
