package forum

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/jukwaa/core"
)

type (
	// Class is the top-level, access-scoped container of the forum.
	Class struct {
		ID              string    `json:"id"`
		Name            string    `json:"name"`
		Description     string    `json:"description"`
		IsPublic        bool      `json:"is_public"`
		AllowedUserIDs  []string  `json:"allowed_user_ids"`
		AllowedGroupIDs []string  `json:"allowed_group_ids"`
		CreatedAt       time.Time `json:"created_at"`
	}

	SubCategory struct {
		ID          string    `json:"id"`
		ClassID     string    `json:"class_id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		CreatedAt   time.Time `json:"created_at"`
	}

	Tag struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}

	Topic struct {
		ID            string    `json:"id"`
		SubCategoryID string    `json:"subcategory_id"`
		AuthorID      string    `json:"author_id"` // empty once the author is deleted
		Title         string    `json:"title"`
		Content       string    `json:"content"`
		TagIDs        []string  `json:"tag_ids"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}

	Reply struct {
		ID        string    `json:"id"`
		TopicID   string    `json:"topic_id"`
		AuthorID  string    `json:"author_id"` // empty once the author is deleted
		Content   string    `json:"content"`
		VoteCount int       `json:"vote_count"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Vote struct {
		ID        string    `json:"id"`
		VoterID   string    `json:"voter_id"`
		ReplyID   string    `json:"reply_id"`
		CreatedAt time.Time `json:"created_at"`
	}

	// TopicDetail is a Topic along with its tags and ranked replies.
	TopicDetail struct {
		Topic
		Tags    []Tag   `json:"tags"`
		Replies []Reply `json:"replies"`
	}
)

const (
	VoteAdded   = "added"
	VoteRemoved = "removed"
)

type VoteResult struct {
	State string `json:"state"` // VoteAdded | VoteRemoved
	Count int    `json:"count"`
}

// DeleteSummary counts the rows removed by a delete, cascades included.
type DeleteSummary struct {
	Classes       int `json:"classes"`
	SubCategories int `json:"subcategories"`
	Topics        int `json:"topics"`
	Replies       int `json:"replies"`
	Votes         int `json:"votes"`
	Tags          int `json:"tags"`
}

// VoteDrift is a Reply whose cached counter differs from its votes.
type VoteDrift struct {
	ReplyID string `json:"reply_id" db:"reply_id"`
	Cached  int    `json:"cached" db:"cached"`
	Actual  int    `json:"actual" db:"actual"`
}

// payloads

type ClassPayload struct {
	Name            string   `json:"name" validate:"required,max=100,notblank"`
	Description     string   `json:"description" validate:"max=5000"`
	IsPublic        *bool    `json:"is_public"`
	AllowedUserIDs  []string `json:"allowed_user_ids" validate:"omitempty,uuids"`
	AllowedGroupIDs []string `json:"allowed_group_ids" validate:"omitempty,uuids"`
}

func (p *ClassPayload) Validate(validate *validator.Validate) error {
	p.Name = core.CleanString(p.Name)
	p.Description = core.CleanString(p.Description)
	p.AllowedUserIDs = core.UniqueStrings(p.AllowedUserIDs)
	p.AllowedGroupIDs = core.UniqueStrings(p.AllowedGroupIDs)
	return validate.Struct(p)
}

// isPublic returns the requested visibility, or current when is_public was omitted.
func (p ClassPayload) isPublic(current bool) bool {
	if p.IsPublic == nil {
		return current
	}
	return *p.IsPublic
}

type SubCategoryPayload struct {
	Name        string `json:"name" validate:"required,max=100,notblank"`
	Description string `json:"description" validate:"max=5000"`
}

func (p *SubCategoryPayload) Validate(validate *validator.Validate) error {
	p.Name = core.CleanString(p.Name)
	p.Description = core.CleanString(p.Description)
	return validate.Struct(p)
}

type TagPayload struct {
	Name string `json:"name" validate:"required,max=50,notblank"`
}

func (p *TagPayload) Validate(validate *validator.Validate) error {
	p.Name = core.CleanString(p.Name)
	return validate.Struct(p)
}

type TopicPayload struct {
	Title   string   `json:"title" validate:"required,max=200,notblank"`
	Content string   `json:"content" validate:"required,notblank"`
	TagIDs  []string `json:"tag_ids" validate:"omitempty,uuids"`
}

func (p *TopicPayload) Validate(validate *validator.Validate) error {
	p.Title = core.CleanString(p.Title)
	p.TagIDs = core.UniqueStrings(p.TagIDs)
	return validate.Struct(p)
}

type ReplyPayload struct {
	Content string `json:"content" validate:"required,notblank"`
}

func (p *ReplyPayload) Validate(validate *validator.Validate) error {
	return validate.Struct(p)
}
