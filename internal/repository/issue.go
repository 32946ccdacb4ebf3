package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/issuemail/internal/domain"
)

// IssueRepository reads the issue graph a notification is built from.
type IssueRepository struct {
	db *sqlx.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *sqlx.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

type issueRow struct {
	domain.Issue
	Project  domain.Project `db:"p"`
	Author   domain.User    `db:"a"`
	Assignee nullableUser   `db:"u"`
}

// nullableUser scans a LEFT JOINed user that may be absent.
type nullableUser struct {
	ID             sql.NullInt64  `db:"id"`
	Login          sql.NullString `db:"login"`
	Email          sql.NullString `db:"email"`
	DisplayName    sql.NullString `db:"display_name"`
	Language       sql.NullString `db:"language"`
	Admin          sql.NullBool   `db:"admin"`
	Status         sql.NullString `db:"status"`
	NoSelfNotified sql.NullBool   `db:"no_self_notified"`
}

func (n nullableUser) user() *domain.User {
	if !n.ID.Valid {
		return nil
	}
	return &domain.User{
		ID:             n.ID.Int64,
		Login:          n.Login.String,
		Email:          n.Email.String,
		DisplayName:    n.DisplayName.String,
		Language:       n.Language.String,
		Admin:          n.Admin.Bool,
		Status:         domain.UserStatus(n.Status.String),
		NoSelfNotified: n.NoSelfNotified.Bool,
	}
}

// FindDetails retrieves an issue with its project, author and assignee.
func (r *IssueRepository) FindDetails(ctx context.Context, id int64) (*domain.IssueDetails, error) {
	var row issueRow
	err := r.db.QueryRowxContext(ctx,
		`SELECT i.id, i.project_id, i.author_id, i.assigned_to_id, i.subject, i.description,
		        i.status, i.created_at, i.updated_at,
		        p.id AS "p.id", p.identifier AS "p.identifier", p.name AS "p.name",
		        p.description AS "p.description", p.email AS "p.email", p.owner_id AS "p.owner_id",
		        p.created_at AS "p.created_at", p.updated_at AS "p.updated_at",
		        a.id AS "a.id", a.login AS "a.login", a.email AS "a.email",
		        a.display_name AS "a.display_name", a.language AS "a.language", a.admin AS "a.admin",
		        a.status AS "a.status", a.no_self_notified AS "a.no_self_notified",
		        a.created_at AS "a.created_at", a.updated_at AS "a.updated_at",
		        u.id AS "u.id", u.login AS "u.login", u.email AS "u.email",
		        u.display_name AS "u.display_name", u.language AS "u.language", u.admin AS "u.admin",
		        u.status AS "u.status", u.no_self_notified AS "u.no_self_notified"
		 FROM issues i
		 JOIN projects p ON p.id = i.project_id
		 JOIN users a ON a.id = i.author_id
		 LEFT JOIN users u ON u.id = i.assigned_to_id
		 WHERE i.id = $1`, id).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find issue details %d: %w", id, err)
	}
	return &domain.IssueDetails{
		Issue:    row.Issue,
		Project:  row.Project,
		Author:   row.Author,
		Assignee: row.Assignee.user(),
	}, nil
}

// Recipients returns the addresses of the active users involved in an issue:
// its author, its assignee and its watchers.
func (r *IssueRepository) Recipients(ctx context.Context, issueID int64) ([]string, error) {
	emails := []string{}
	err := r.db.SelectContext(ctx, &emails,
		`SELECT u.email FROM (
		     SELECT author_id AS user_id, 0 AS ord FROM issues WHERE id = $1
		     UNION ALL
		     SELECT assigned_to_id, 1 FROM issues WHERE id = $1 AND assigned_to_id IS NOT NULL
		     UNION ALL
		     SELECT user_id, 2 FROM issue_watchers WHERE issue_id = $1
		 ) involved
		 JOIN users u ON u.id = involved.user_id
		 WHERE u.status = $2 AND u.email <> ''
		 GROUP BY u.email
		 ORDER BY MIN(involved.ord), MIN(u.id)`, issueID, domain.UserStatusActive)
	if err != nil {
		return nil, fmt.Errorf("issue %d recipients: %w", issueID, err)
	}
	return emails, nil
}

// FindJournal retrieves a journal entry by its ID.
func (r *IssueRepository) FindJournal(ctx context.Context, id int64) (*domain.Journal, error) {
	var j domain.Journal
	err := r.db.GetContext(ctx, &j,
		`SELECT id, issue_id, user_id, notes, created_at FROM journals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find journal %d: %w", id, err)
	}
	return &j, nil
}
