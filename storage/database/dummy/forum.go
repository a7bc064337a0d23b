package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
)

type forumRepository struct {
	db *DB
}

var _ forum.Repository = (*forumRepository)(nil)

func NewForumRepository(db *DB) forum.Repository {
	return &forumRepository{db: db}
}

// classes

func copyClass(c *forum.Class) forum.Class {
	out := *c
	out.AllowedUserIDs = copyStrings(c.AllowedUserIDs)
	out.AllowedGroupIDs = copyStrings(c.AllowedGroupIDs)
	return out
}

func (repo *forumRepository) QueryClasses(_ context.Context) ([]forum.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	classes := make([]forum.Class, 0, len(repo.db.classes))
	for _, c := range repo.db.classes {
		classes = append(classes, copyClass(c))
	}
	sort.Slice(classes, func(i, j int) bool {
		if classes[i].Name != classes[j].Name {
			return classes[i].Name < classes[j].Name
		}
		return classes[i].ID < classes[j].ID
	})
	return classes, nil
}

func (repo *forumRepository) GetClass(_ context.Context, id string) (forum.Class, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.classes[id]; ok {
		return copyClass(c), nil
	}
	return forum.Class{}, forum.ErrNotFound
}

func (repo *forumRepository) checkAllowLists(class forum.Class) error {
	for _, uid := range class.AllowedUserIDs {
		if _, ok := repo.db.users[uid]; !ok {
			return forum.ErrUnknownUser
		}
	}
	for _, gid := range class.AllowedGroupIDs {
		if _, ok := repo.db.groups[gid]; !ok {
			return forum.ErrUnknownGroup
		}
	}
	return nil
}

func (repo *forumRepository) CreateClass(_ context.Context, class forum.Class) (forum.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkAllowLists(class); err != nil {
		return forum.Class{}, err
	}
	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	stored := copyClass(&class)
	repo.db.classes[class.ID] = &stored
	return copyClass(&stored), nil
}

func (repo *forumRepository) UpdateClass(_ context.Context, class forum.Class) (forum.Class, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.classes[class.ID]
	if !ok {
		return forum.Class{}, forum.ErrNotFound
	}
	if err := repo.checkAllowLists(class); err != nil {
		return forum.Class{}, err
	}
	stored := copyClass(&class)
	stored.CreatedAt = orig.CreatedAt
	repo.db.classes[class.ID] = &stored
	return copyClass(&stored), nil
}

func (repo *forumRepository) DeleteClass(_ context.Context, id string) (forum.DeleteSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var sum forum.DeleteSummary
	if _, ok := repo.db.classes[id]; !ok {
		return sum, forum.ErrNotFound
	}
	for sid, s := range repo.db.subs {
		if s.ClassID == id {
			repo.deleteSubCategory(sid, &sum)
		}
	}
	delete(repo.db.classes, id)
	sum.Classes++
	return sum, nil
}

// subcategories

func (repo *forumRepository) QuerySubCategories(_ context.Context, classID string) ([]forum.SubCategory, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	subs := make([]forum.SubCategory, 0)
	for _, s := range repo.db.subs {
		if s.ClassID == classID {
			subs = append(subs, *s)
		}
	}
	sort.Slice(subs, func(i, j int) bool {
		if subs[i].Name != subs[j].Name {
			return subs[i].Name < subs[j].Name
		}
		return subs[i].ID < subs[j].ID
	})
	return subs, nil
}

func (repo *forumRepository) GetSubCategory(_ context.Context, id string) (forum.SubCategory, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.subs[id]; ok {
		return *s, nil
	}
	return forum.SubCategory{}, forum.ErrNotFound
}

func (repo *forumRepository) CreateSubCategory(_ context.Context, sub forum.SubCategory) (forum.SubCategory, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.classes[sub.ClassID]; !ok {
		return forum.SubCategory{}, forum.ErrNotFound
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	stored := sub
	repo.db.subs[sub.ID] = &stored
	return sub, nil
}

func (repo *forumRepository) UpdateSubCategory(_ context.Context, sub forum.SubCategory) (forum.SubCategory, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.subs[sub.ID]
	if !ok {
		return forum.SubCategory{}, forum.ErrNotFound
	}
	orig.Name = sub.Name
	orig.Description = sub.Description
	return *orig, nil
}

func (repo *forumRepository) DeleteSubCategory(_ context.Context, id string) (forum.DeleteSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var sum forum.DeleteSummary
	if _, ok := repo.db.subs[id]; !ok {
		return sum, forum.ErrNotFound
	}
	repo.deleteSubCategory(id, &sum)
	return sum, nil
}

func (repo *forumRepository) deleteSubCategory(id string, sum *forum.DeleteSummary) {
	for tid, t := range repo.db.topics {
		if t.SubCategoryID == id {
			repo.deleteTopic(tid, sum)
		}
	}
	delete(repo.db.subs, id)
	sum.SubCategories++
}

// tags

func (repo *forumRepository) QueryTags(_ context.Context) ([]forum.Tag, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tags := make([]forum.Tag, 0, len(repo.db.tags))
	for _, t := range repo.db.tags {
		tags = append(tags, *t)
	}
	sortTags(tags)
	return tags, nil
}

func sortTags(tags []forum.Tag) {
	sort.Slice(tags, func(i, j int) bool {
		return strings.ToLower(tags[i].Name) < strings.ToLower(tags[j].Name)
	})
}

func (repo *forumRepository) GetTag(_ context.Context, id string) (forum.Tag, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.tags[id]; ok {
		return *t, nil
	}
	return forum.Tag{}, forum.ErrNotFound
}

func (repo *forumRepository) checkTagName(tag forum.Tag) error {
	for _, t := range repo.db.tags {
		if t.ID != tag.ID && strings.EqualFold(t.Name, tag.Name) {
			return forum.ErrTagExists
		}
	}
	return nil
}

func (repo *forumRepository) CreateTag(_ context.Context, tag forum.Tag) (forum.Tag, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if err := repo.checkTagName(tag); err != nil {
		return forum.Tag{}, err
	}
	stored := tag
	repo.db.tags[tag.ID] = &stored
	return tag, nil
}

func (repo *forumRepository) UpdateTag(_ context.Context, tag forum.Tag) (forum.Tag, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.tags[tag.ID]
	if !ok {
		return forum.Tag{}, forum.ErrNotFound
	}
	if err := repo.checkTagName(tag); err != nil {
		return forum.Tag{}, err
	}
	orig.Name = tag.Name
	return *orig, nil
}

func (repo *forumRepository) DeleteTag(_ context.Context, id string) (forum.DeleteSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var sum forum.DeleteSummary
	if _, ok := repo.db.tags[id]; !ok {
		return sum, forum.ErrNotFound
	}
	for _, t := range repo.db.topics {
		t.TagIDs = removeString(t.TagIDs, id)
	}
	delete(repo.db.tags, id)
	sum.Tags++
	return sum, nil
}

func (repo *forumRepository) TopicTags(_ context.Context, topicID string) ([]forum.Tag, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	t, ok := repo.db.topics[topicID]
	if !ok {
		return nil, forum.ErrNotFound
	}
	tags := make([]forum.Tag, 0, len(t.TagIDs))
	for _, id := range t.TagIDs {
		if tag, ok := repo.db.tags[id]; ok {
			tags = append(tags, *tag)
		}
	}
	sortTags(tags)
	return tags, nil
}

func (repo *forumRepository) SubCategoryTags(_ context.Context, subCategoryID string) ([]forum.Tag, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	seen := make(map[string]struct{})
	tags := make([]forum.Tag, 0)
	for _, t := range repo.db.topics {
		if t.SubCategoryID != subCategoryID {
			continue
		}
		for _, id := range t.TagIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if tag, ok := repo.db.tags[id]; ok {
				tags = append(tags, *tag)
			}
		}
	}
	sortTags(tags)
	return tags, nil
}

// topics

func copyTopic(t *forum.Topic) forum.Topic {
	out := *t
	out.TagIDs = copyStrings(t.TagIDs)
	return out
}

func (repo *forumRepository) QueryTopics(_ context.Context, filter forum.TopicFilter) ([]forum.Topic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var classIDs map[string]struct{}
	if filter.ClassIDs != nil {
		classIDs = make(map[string]struct{}, len(filter.ClassIDs))
		for _, id := range filter.ClassIDs {
			classIDs[id] = struct{}{}
		}
	}

	topics := make([]forum.Topic, 0)
	for _, t := range repo.db.topics {
		if filter.SubCategoryID != "" && t.SubCategoryID != filter.SubCategoryID {
			continue
		}
		if filter.TagID != "" && !hasString(t.TagIDs, filter.TagID) {
			continue
		}
		if classIDs != nil {
			sub, ok := repo.db.subs[t.SubCategoryID]
			if !ok {
				continue
			}
			if _, ok = classIDs[sub.ClassID]; !ok {
				continue
			}
		}
		topics = append(topics, copyTopic(t))
	}
	sort.Slice(topics, func(i, j int) bool {
		if !topics[i].CreatedAt.Equal(topics[j].CreatedAt) {
			return topics[i].CreatedAt.After(topics[j].CreatedAt)
		}
		return topics[i].ID > topics[j].ID
	})
	return topics, nil
}

func hasString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}

func (repo *forumRepository) GetTopic(_ context.Context, id string) (forum.Topic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.topics[id]; ok {
		return copyTopic(t), nil
	}
	return forum.Topic{}, forum.ErrNotFound
}

func (repo *forumRepository) checkTags(ids []string) error {
	for _, id := range ids {
		if _, ok := repo.db.tags[id]; !ok {
			return forum.ErrUnknownTag
		}
	}
	return nil
}

func (repo *forumRepository) CreateTopic(_ context.Context, topic forum.Topic) (forum.Topic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.subs[topic.SubCategoryID]; !ok {
		return forum.Topic{}, forum.ErrNotFound
	}
	if err := repo.checkTags(topic.TagIDs); err != nil {
		return forum.Topic{}, err
	}
	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	stored := copyTopic(&topic)
	repo.db.topics[topic.ID] = &stored
	return copyTopic(&stored), nil
}

func (repo *forumRepository) UpdateTopic(_ context.Context, topic forum.Topic) (forum.Topic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.topics[topic.ID]
	if !ok {
		return forum.Topic{}, forum.ErrNotFound
	}
	if err := repo.checkTags(topic.TagIDs); err != nil {
		return forum.Topic{}, err
	}
	orig.Title = topic.Title
	orig.Content = topic.Content
	orig.TagIDs = copyStrings(topic.TagIDs)
	orig.UpdatedAt = topic.UpdatedAt
	return copyTopic(orig), nil
}

func (repo *forumRepository) DeleteTopic(_ context.Context, id string) (forum.DeleteSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var sum forum.DeleteSummary
	if _, ok := repo.db.topics[id]; !ok {
		return sum, forum.ErrNotFound
	}
	repo.deleteTopic(id, &sum)
	return sum, nil
}

func (repo *forumRepository) deleteTopic(id string, sum *forum.DeleteSummary) {
	for rid, r := range repo.db.replies {
		if r.TopicID == id {
			repo.deleteReply(rid, sum)
		}
	}
	delete(repo.db.topics, id)
	sum.Topics++
}

// replies

func (repo *forumRepository) QueryReplies(_ context.Context, topicID string) ([]forum.Reply, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	replies := make([]forum.Reply, 0)
	for _, r := range repo.db.replies {
		if r.TopicID == topicID {
			replies = append(replies, *r)
		}
	}
	sort.Slice(replies, func(i, j int) bool {
		a, b := replies[i], replies[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return replies, nil
}

func (repo *forumRepository) GetReply(_ context.Context, id string) (forum.Reply, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.replies[id]; ok {
		return *r, nil
	}
	return forum.Reply{}, forum.ErrNotFound
}

func (repo *forumRepository) CreateReply(_ context.Context, reply forum.Reply) (forum.Reply, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.topics[reply.TopicID]; !ok {
		return forum.Reply{}, forum.ErrNotFound
	}
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	reply.VoteCount = 0
	stored := reply
	repo.db.replies[reply.ID] = &stored
	return reply, nil
}

func (repo *forumRepository) UpdateReply(_ context.Context, reply forum.Reply) (forum.Reply, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.replies[reply.ID]
	if !ok {
		return forum.Reply{}, forum.ErrNotFound
	}
	orig.Content = reply.Content
	orig.UpdatedAt = reply.UpdatedAt
	return *orig, nil
}

func (repo *forumRepository) DeleteReply(_ context.Context, id string) (forum.DeleteSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var sum forum.DeleteSummary
	if _, ok := repo.db.replies[id]; !ok {
		return sum, forum.ErrNotFound
	}
	repo.deleteReply(id, &sum)
	return sum, nil
}

func (repo *forumRepository) deleteReply(id string, sum *forum.DeleteSummary) {
	for vid, v := range repo.db.votes {
		if v.ReplyID == id {
			delete(repo.db.votes, vid)
			sum.Votes++
		}
	}
	delete(repo.db.replies, id)
	sum.Replies++
}

// votes

func (repo *forumRepository) ToggleVote(_ context.Context, voterID, replyID string) (forum.VoteResult, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	reply, ok := repo.db.replies[replyID]
	if !ok {
		return forum.VoteResult{}, forum.ErrNotFound
	}
	for vid, v := range repo.db.votes {
		if v.ReplyID == replyID && v.VoterID == voterID {
			delete(repo.db.votes, vid)
			reply.VoteCount--
			return forum.VoteResult{State: forum.VoteRemoved, Count: reply.VoteCount}, nil
		}
	}

	id := uuid.New().String()
	repo.db.votes[id] = &forum.Vote{ID: id, VoterID: voterID, ReplyID: replyID, CreatedAt: core.NowFunc()}
	reply.VoteCount++
	return forum.VoteResult{State: forum.VoteAdded, Count: reply.VoteCount}, nil
}

func (repo *forumRepository) PurgeUser(_ context.Context, userID string) (forum.DeleteSummary, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var sum forum.DeleteSummary
	if _, ok := repo.db.users[userID]; !ok {
		return sum, forum.ErrUnknownUser
	}
	for vid, v := range repo.db.votes {
		if v.VoterID != userID {
			continue
		}
		if r, ok := repo.db.replies[v.ReplyID]; ok {
			r.VoteCount--
		}
		delete(repo.db.votes, vid)
		sum.Votes++
	}
	for tid, t := range repo.db.topics {
		if t.AuthorID == userID {
			repo.deleteTopic(tid, &sum)
		}
	}
	for rid, r := range repo.db.replies {
		if r.AuthorID == userID {
			repo.deleteReply(rid, &sum)
		}
	}
	repo.db.deleteUser(userID)
	return sum, nil
}

func (repo *forumRepository) UserContact(_ context.Context, userID string) (forum.Contact, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	usr, ok := repo.db.users[userID]
	if !ok {
		return forum.Contact{}, forum.ErrNotFound
	}
	return forum.Contact{Username: usr.Username, Email: usr.Email}, nil
}
