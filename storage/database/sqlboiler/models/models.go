// Package models holds the row types of the postgres schema and the sqlboiler query plumbing they share.
package models

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/boil"
	"github.com/volatiletech/sqlboiler/v4/drivers"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"
	"github.com/volatiletech/strmangle"
)

var dialect = drivers.Dialect{
	LQ: 0x22,
	RQ: 0x22,

	UseIndexPlaceholders:    true,
	UseLastInsertID:         false,
	UseSchema:               false,
	UseDefaultKeyword:       true,
	UseAutoColumns:          false,
	UseTopClause:            false,
	UseOutputClause:         false,
	UseCaseWhenExistsClause: false,
}

var TableNames = struct {
	User              string
	Group             string
	UserGroup         string
	Class             string
	ClassAllowedUser  string
	ClassAllowedGroup string
	Subcategory       string
	Tag               string
	Topic             string
	TopicTag          string
	Reply             string
	Vote              string
	Post              string
}{
	User:              "user",
	Group:             "group",
	UserGroup:         "user_group",
	Class:             "class",
	ClassAllowedUser:  "class_allowed_user",
	ClassAllowedGroup: "class_allowed_group",
	Subcategory:       "subcategory",
	Tag:               "tag",
	Topic:             "topic",
	TopicTag:          "topic_tag",
	Reply:             "reply",
	Vote:              "vote",
	Post:              "post",
}

// NewQuery initializes a new postgres Query using the passed in QueryMods.
func NewQuery(mods ...qm.QueryMod) *queries.Query {
	q := &queries.Query{}
	queries.SetDialect(q, &dialect)
	qm.Apply(q, mods...)
	return q
}

// Quote quotes a table or column name.
func Quote(name string) string {
	return fmt.Sprintf("%c%s%c", dialect.LQ, name, dialect.RQ)
}

// Insert inserts a single row made of cols and vals.
func Insert(ctx context.Context, exec boil.ContextExecutor, table string, cols []string, vals ...interface{}) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (\"%s\") VALUES (%s)",
		Quote(table),
		strings.Join(cols, "\",\""),
		strmangle.Placeholders(dialect.UseIndexPlaceholders, len(cols), 1, 1),
	)
	if boil.DebugMode {
		fmt.Fprintln(boil.DebugWriter, query)
		fmt.Fprintln(boil.DebugWriter, vals...)
	}
	_, err := exec.ExecContext(ctx, query, vals...)
	return err
}

// Update sets cols to vals on the row with the given id, returning the number of rows affected.
func Update(ctx context.Context, exec boil.ContextExecutor, table, id string, cols []string, vals ...interface{}) (int64, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET %s WHERE %s",
		Quote(table),
		strmangle.SetParamNames("\"", "\"", 1, cols),
		strmangle.WhereClause("\"", "\"", len(cols)+1, []string{"id"}),
	)
	if boil.DebugMode {
		fmt.Fprintln(boil.DebugWriter, query)
		fmt.Fprintln(boil.DebugWriter, vals...)
	}
	res, err := exec.ExecContext(ctx, query, append(vals, id)...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Count runs a SELECT COUNT(*) over the query mods.
func Count(ctx context.Context, exec boil.ContextExecutor, mods ...qm.QueryMod) (int, error) {
	var n int
	q := NewQuery(append([]qm.QueryMod{qm.Select("COUNT(*)")}, mods...)...)
	err := q.QueryRowContext(ctx, exec).Scan(&n)
	return n, err
}

// Args converts ids to query arguments, as expected by qm.WhereIn.
func Args(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

type (
	User struct {
		ID           string    `boil:"id"`
		Username     string    `boil:"username"`
		Email        string    `boil:"email"`
		PasswordHash []byte    `boil:"password_hash"`
		Bio          string    `boil:"bio"`
		IsActive     bool      `boil:"is_active"`
		IsSuperuser  bool      `boil:"is_superuser"`
		CreatedAt    time.Time `boil:"created_at"`
		UpdatedAt    time.Time `boil:"updated_at"`
		LastLogin    null.Time `boil:"last_login"`
	}

	Group struct {
		ID   string `boil:"id"`
		Name string `boil:"name"`
	}

	// UserGroup is a membership row joined with its group.
	UserGroup struct {
		UserID    string `boil:"user_id"`
		GroupID   string `boil:"group_id"`
		GroupName string `boil:"group_name"`
	}

	Class struct {
		ID          string    `boil:"id"`
		Name        string    `boil:"name"`
		Description string    `boil:"description"`
		IsPublic    bool      `boil:"is_public"`
		CreatedAt   time.Time `boil:"created_at"`
	}

	// ClassMember is a row of either allow-list of a class.
	ClassMember struct {
		ClassID  string `boil:"class_id"`
		MemberID string `boil:"member_id"`
	}

	Subcategory struct {
		ID          string    `boil:"id"`
		ClassID     string    `boil:"class_id"`
		Name        string    `boil:"name"`
		Description string    `boil:"description"`
		CreatedAt   time.Time `boil:"created_at"`
	}

	Tag struct {
		ID   string `boil:"id"`
		Name string `boil:"name"`
	}

	TopicTag struct {
		TopicID string `boil:"topic_id"`
		TagID   string `boil:"tag_id"`
	}

	Topic struct {
		ID            string      `boil:"id"`
		SubcategoryID string      `boil:"subcategory_id"`
		AuthorID      null.String `boil:"author_id"`
		Title         string      `boil:"title"`
		Content       string      `boil:"content"`
		CreatedAt     time.Time   `boil:"created_at"`
		UpdatedAt     time.Time   `boil:"updated_at"`
	}

	Reply struct {
		ID        string      `boil:"id"`
		TopicID   string      `boil:"topic_id"`
		AuthorID  null.String `boil:"author_id"`
		Content   string      `boil:"content"`
		VoteCount int         `boil:"vote_count"`
		CreatedAt time.Time   `boil:"created_at"`
		UpdatedAt time.Time   `boil:"updated_at"`
	}

	Vote struct {
		ID        string      `boil:"id"`
		VoterID   null.String `boil:"voter_id"`
		ReplyID   string      `boil:"reply_id"`
		CreatedAt time.Time   `boil:"created_at"`
	}

	Post struct {
		ID        string      `boil:"id"`
		AuthorID  null.String `boil:"author_id"`
		Title     string      `boil:"title"`
		Content   string      `boil:"content"`
		CreatedAt time.Time   `boil:"created_at"`
		UpdatedAt time.Time   `boil:"updated_at"`
	}
)
