package testutil

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	"github.com/trezcool/jukwaa/storage/database"
)

// PrepareDB connects to the postgres test database on TEST_DATABASE_HOST,
// migrates it and empties it after the test. The test is skipped when TEST_DATABASE_HOST is not set.
func PrepareDB(t *testing.T) *sql.DB {
	host := os.Getenv("TEST_DATABASE_HOST")
	if host == "" {
		t.Skip("TEST_DATABASE_HOST not set")
	}

	conf := core.NewTestConfig()
	conf.Database = core.DatabaseConfig{
		Engine:        "postgres",
		Host:          host,
		Port:          5432,
		Name:          "jukwaa_test",
		User:          "jukwaa",
		Password:      "jukwaa",
		AdminUser:     "postgres",
		AdminPassword: os.Getenv("TEST_DATABASE_ADMIN_PASSWORD"),
		DisableTLS:    true,
	}
	if err := database.CreateIfNotExist(conf); err != nil {
		t.Fatalf("CreateIfNotExist() failed: %v", err)
	}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err = database.Migrate(db); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	t.Cleanup(func() {
		tables := []string{"vote", "reply", "topic_tag", "topic", "tag", "subcategory",
			"class_allowed_group", "class_allowed_user", "class", "post", "user_group", `"user"`}
		if _, err := db.Exec("TRUNCATE " + strings.Join(tables, ", ") + " CASCADE"); err != nil {
			t.Errorf("truncating tables failed: %v", err)
		}
		_ = db.Close()
	})
	return db
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	uname, pwd string,
	isSuperuser bool,
	groups ...core.Group,
) user.User {
	tstamp := core.NowFunc()
	usr := user.User{
		Username:    uname,
		Email:       uname + "@test.cd",
		IsActive:    true,
		IsSuperuser: isSuperuser,
		Groups:      groups,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// Group returns the existing group called name.
func Group(t *testing.T, repo user.Repository, name string) core.Group {
	groups, err := repo.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("ListGroups() failed: %v", err)
	}
	for _, g := range groups {
		if g.Name == name {
			return g
		}
	}
	t.Fatalf("group %q not found", name)
	return core.Group{}
}

func CreateClass(t *testing.T, repo forum.Repository, name string, public bool, userIDs, groupIDs []string) forum.Class {
	class, err := repo.CreateClass(context.Background(), forum.Class{
		Name:            name,
		IsPublic:        public,
		AllowedUserIDs:  userIDs,
		AllowedGroupIDs: groupIDs,
		CreatedAt:       core.NowFunc(),
	})
	if err != nil {
		t.Fatalf("createClass() failed: %v", err)
	}
	return class
}

func CreateSubCategory(t *testing.T, repo forum.Repository, classID, name string) forum.SubCategory {
	sub, err := repo.CreateSubCategory(context.Background(), forum.SubCategory{
		ClassID:   classID,
		Name:      name,
		CreatedAt: core.NowFunc(),
	})
	if err != nil {
		t.Fatalf("createSubCategory() failed: %v", err)
	}
	return sub
}

func CreateTag(t *testing.T, repo forum.Repository, name string) forum.Tag {
	tag, err := repo.CreateTag(context.Background(), forum.Tag{Name: name})
	if err != nil {
		t.Fatalf("createTag() failed: %v", err)
	}
	return tag
}

func CreateTopic(t *testing.T, repo forum.Repository, subID, authorID, title string, createdAt time.Time, tagIDs ...string) forum.Topic {
	topic, err := repo.CreateTopic(context.Background(), forum.Topic{
		SubCategoryID: subID,
		AuthorID:      authorID,
		Title:         title,
		Content:       title + " content",
		TagIDs:        tagIDs,
		CreatedAt:     createdAt.UTC(),
		UpdatedAt:     createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("createTopic() failed: %v", err)
	}
	return topic
}

func CreateReply(t *testing.T, repo forum.Repository, topicID, authorID string, createdAt time.Time) forum.Reply {
	reply, err := repo.CreateReply(context.Background(), forum.Reply{
		TopicID:   topicID,
		AuthorID:  authorID,
		Content:   "a reply",
		CreatedAt: createdAt.UTC(),
		UpdatedAt: createdAt.UTC(),
	})
	if err != nil {
		t.Fatalf("createReply() failed: %v", err)
	}
	return reply
}
