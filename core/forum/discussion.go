package forum

import (
	"context"
	"fmt"
	"net/mail"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/jukwaa/core"
)

const excerptLen = 280

// ListTopics returns the topics of a subcategory, newest first.
func (svc *Service) ListTopics(ctx context.Context, identity core.Identity, subCategoryID string) ([]Topic, error) {
	if _, _, err := svc.accessibleSubCategory(ctx, identity, subCategoryID); err != nil {
		return nil, err
	}
	topics, err := svc.repo.QueryTopics(ctx, TopicFilter{SubCategoryID: subCategoryID})
	return topics, errors.Wrap(err, "querying topics")
}

// TagsForSubCategory returns the distinct tags used by the topics of a subcategory.
func (svc *Service) TagsForSubCategory(ctx context.Context, identity core.Identity, subCategoryID string) ([]Tag, error) {
	if _, _, err := svc.accessibleSubCategory(ctx, identity, subCategoryID); err != nil {
		return nil, err
	}
	tags, err := svc.repo.SubCategoryTags(ctx, subCategoryID)
	return tags, errors.Wrap(err, "querying subcategory tags")
}

// TopicsByTag returns the tagged topics of the classes identity can access, newest first.
func (svc *Service) TopicsByTag(ctx context.Context, identity core.Identity, tagID string) ([]Topic, error) {
	if _, err := svc.repo.GetTag(ctx, tagID); err != nil {
		return nil, err
	}
	classIDs, err := svc.accessibleClassIDs(ctx, identity)
	if err != nil {
		return nil, err
	}
	if len(classIDs) == 0 {
		return []Topic{}, nil
	}
	topics, err := svc.repo.QueryTopics(ctx, TopicFilter{TagID: tagID, ClassIDs: classIDs})
	return topics, errors.Wrap(err, "querying topics by tag")
}

// GetTopic returns a topic with its tags and ranked replies.
func (svc *Service) GetTopic(ctx context.Context, identity core.Identity, id string) (TopicDetail, error) {
	topic, err := svc.accessibleTopic(ctx, identity, id)
	if err != nil {
		return TopicDetail{}, err
	}
	tags, err := svc.repo.TopicTags(ctx, id)
	if err != nil {
		return TopicDetail{}, errors.Wrap(err, "querying topic tags")
	}
	replies, err := svc.repo.QueryReplies(ctx, id)
	if err != nil {
		return TopicDetail{}, errors.Wrap(err, "querying replies")
	}
	return TopicDetail{Topic: topic, Tags: tags, Replies: replies}, nil
}

func (svc *Service) CreateTopic(ctx context.Context, identity core.Identity, subCategoryID string, p TopicPayload) (Topic, error) {
	if identity.IsAnonymous() {
		return Topic{}, ErrUnauthorized
	}
	if _, _, err := svc.accessibleSubCategory(ctx, identity, subCategoryID); err != nil {
		return Topic{}, err
	}
	if err := p.Validate(svc.validate); err != nil {
		return Topic{}, err
	}

	now := core.NowFunc()
	topic, err := svc.repo.CreateTopic(ctx, Topic{
		ID:            uuid.New().String(),
		SubCategoryID: subCategoryID,
		AuthorID:      identity.ID,
		Title:         p.Title,
		Content:       p.Content,
		TagIDs:        p.TagIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return Topic{}, trapTopicErr(err, "creating topic")
	}
	return topic, nil
}

func (svc *Service) UpdateTopic(ctx context.Context, identity core.Identity, id string, p TopicPayload) (Topic, error) {
	topic, err := svc.authoredTopic(ctx, identity, id)
	if err != nil {
		return Topic{}, err
	}
	if err = p.Validate(svc.validate); err != nil {
		return Topic{}, err
	}

	topic.Title = p.Title
	topic.Content = p.Content
	topic.TagIDs = p.TagIDs
	topic.UpdatedAt = core.NowFunc()
	if topic, err = svc.repo.UpdateTopic(ctx, topic); err != nil {
		return Topic{}, trapTopicErr(err, "updating topic")
	}
	return topic, nil
}

// DeleteTopic deletes a topic along with its replies and their votes.
func (svc *Service) DeleteTopic(ctx context.Context, identity core.Identity, id string) (DeleteSummary, error) {
	if _, err := svc.authoredTopic(ctx, identity, id); err != nil {
		return DeleteSummary{}, err
	}
	sum, err := svc.repo.DeleteTopic(ctx, id)
	return sum, errors.Wrap(err, "deleting topic")
}

func (svc *Service) authoredTopic(ctx context.Context, identity core.Identity, id string) (Topic, error) {
	topic, err := svc.accessibleTopic(ctx, identity, id)
	if err != nil {
		return Topic{}, err
	}
	if !IsAuthor(identity, topic.AuthorID) {
		return Topic{}, ErrUnauthorized
	}
	return topic, nil
}

// ListReplies returns the replies of a topic, most voted first then newest first.
func (svc *Service) ListReplies(ctx context.Context, identity core.Identity, topicID string) ([]Reply, error) {
	if _, err := svc.accessibleTopic(ctx, identity, topicID); err != nil {
		return nil, err
	}
	replies, err := svc.repo.QueryReplies(ctx, topicID)
	return replies, errors.Wrap(err, "querying replies")
}

func (svc *Service) CreateReply(ctx context.Context, identity core.Identity, topicID string, p ReplyPayload) (Reply, error) {
	if identity.IsAnonymous() {
		return Reply{}, ErrUnauthorized
	}
	topic, err := svc.accessibleTopic(ctx, identity, topicID)
	if err != nil {
		return Reply{}, err
	}
	if err = p.Validate(svc.validate); err != nil {
		return Reply{}, err
	}

	now := core.NowFunc()
	reply, err := svc.repo.CreateReply(ctx, Reply{
		ID:        uuid.New().String(),
		TopicID:   topicID,
		AuthorID:  identity.ID,
		Content:   p.Content,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Reply{}, errors.Wrap(err, "creating reply")
	}

	svc.notifyTopicAuthor(ctx, identity, topic, reply)
	return reply, nil
}

func (svc *Service) UpdateReply(ctx context.Context, identity core.Identity, id string, p ReplyPayload) (Reply, error) {
	reply, err := svc.authoredReply(ctx, identity, id)
	if err != nil {
		return Reply{}, err
	}
	if err = p.Validate(svc.validate); err != nil {
		return Reply{}, err
	}

	reply.Content = p.Content
	reply.UpdatedAt = core.NowFunc()
	reply, err = svc.repo.UpdateReply(ctx, reply)
	return reply, errors.Wrap(err, "updating reply")
}

// DeleteReply deletes a reply along with its votes.
func (svc *Service) DeleteReply(ctx context.Context, identity core.Identity, id string) (DeleteSummary, error) {
	if _, err := svc.authoredReply(ctx, identity, id); err != nil {
		return DeleteSummary{}, err
	}
	sum, err := svc.repo.DeleteReply(ctx, id)
	return sum, errors.Wrap(err, "deleting reply")
}

func (svc *Service) authoredReply(ctx context.Context, identity core.Identity, id string) (Reply, error) {
	reply, err := svc.accessibleReply(ctx, identity, id)
	if err != nil {
		return Reply{}, err
	}
	if !IsAuthor(identity, reply.AuthorID) {
		return Reply{}, ErrUnauthorized
	}
	return reply, nil
}

// PurgeUser deletes a user along with their votes, replies and topics.
func (svc *Service) PurgeUser(ctx context.Context, userID string) error {
	sum, err := svc.repo.PurgeUser(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "purging user")
	}
	svc.logInfo("user content purged", map[string]interface{}{"user_id": userID, "summary": sum})
	return nil
}

type newReplyData struct {
	AuthorName  string
	ReplierName string
	TopicTitle  string
	TopicID     string
	Excerpt     string
}

// notifyTopicAuthor emails the author of topic about reply. Failures are logged only.
func (svc *Service) notifyTopicAuthor(ctx context.Context, replier core.Identity, topic Topic, reply Reply) {
	if !svc.conf.NotifyReplies || svc.mailer == nil || topic.AuthorID == "" || topic.AuthorID == replier.ID {
		return
	}
	author, err := svc.repo.UserContact(ctx, topic.AuthorID)
	if err != nil {
		svc.logError(fmt.Sprintf("finding topic author: %v", err), err, replier)
		return
	}
	if author.Email == "" {
		return
	}

	replierName := replier.Username
	if replierName == "" {
		replierName = "Someone"
	}
	svc.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: author.Username, Address: author.Email}},
		Subject:      "New reply to " + topic.Title,
		TemplateName: "new_reply",
		TemplateData: newReplyData{
			AuthorName:  author.Username,
			ReplierName: replierName,
			TopicTitle:  topic.Title,
			TopicID:     topic.ID,
			Excerpt:     excerpt(reply.Content),
		},
	})
}

func excerpt(s string) string {
	if utf8.RuneCountInString(s) <= excerptLen {
		return s
	}
	return string([]rune(s)[:excerptLen]) + "…"
}

func trapTopicErr(err error, msg string) error {
	if errors.Cause(err) == ErrUnknownTag {
		return core.NewFieldValidationError("tag_ids", ErrUnknownTag)
	}
	return errors.Wrap(err, msg)
}
