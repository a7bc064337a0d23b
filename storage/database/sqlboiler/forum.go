package boiledrepos

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"
	"github.com/volatiletech/sqlboiler/v4/queries"
	"github.com/volatiletech/sqlboiler/v4/queries/qm"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/storage/database/sqlboiler/models"
)

type forumRepository struct {
	db core.DB
}

var _ forum.Repository = (*forumRepository)(nil) // interface compliance check

func NewForumRepository(db core.DB) forum.Repository {
	return &forumRepository{db: db}
}

func nullID(id string) null.String {
	return null.NewString(id, id != "")
}

// cascade levels, from the subcategory down to its votes
var cascades = []struct {
	table string
	alias string
	join  string // joins the level to its parent
}{
	{table: "subcategory", alias: "s"},
	{table: "topic", alias: "t", join: "INNER JOIN subcategory s ON s.id = t.subcategory_id"},
	{table: "reply", alias: "r", join: "INNER JOIN topic t ON t.id = r.topic_id"},
	{table: "vote", alias: "v", join: "INNER JOIN reply r ON r.id = v.reply_id"},
}

const (
	levelSubCategory = iota
	levelTopic
	levelReply
)

// countCascade counts the rows below (and including) level matching pred, which is expressed on the level alias.
func countCascade(ctx context.Context, exec core.DBExecutor, level int, pred string, arg interface{}) (forum.DeleteSummary, error) {
	counts := make([]int, len(cascades))
	for i := level; i < len(cascades); i++ {
		joins := make([]string, 0, i-level)
		for j := i; j > level; j-- {
			joins = append(joins, cascades[j].join)
		}
		query := fmt.Sprintf(
			"SELECT COUNT(*) FROM %s %s %s WHERE %s",
			cascades[i].table, cascades[i].alias, strings.Join(joins, " "), pred,
		)
		if err := queries.Raw(query, arg).QueryRowContext(ctx, exec).Scan(&counts[i]); err != nil {
			return forum.DeleteSummary{}, errors.Wrapf(err, "counting %s rows", cascades[i].table)
		}
	}
	return forum.DeleteSummary{
		SubCategories: counts[0],
		Topics:        counts[1],
		Replies:       counts[2],
		Votes:         counts[3],
	}, nil
}

func addSummary(sum *forum.DeleteSummary, other forum.DeleteSummary) {
	sum.Classes += other.Classes
	sum.SubCategories += other.SubCategories
	sum.Topics += other.Topics
	sum.Replies += other.Replies
	sum.Votes += other.Votes
	sum.Tags += other.Tags
}

// deleteByID deletes the row id of table, reporting whether it existed.
func deleteByID(ctx context.Context, exec core.DBExecutor, table, id string) (bool, error) {
	res, err := queries.Raw(fmt.Sprintf("DELETE FROM %s WHERE id = $1", models.Quote(table)), id).ExecContext(ctx, exec)
	if err != nil {
		return false, errors.Wrapf(err, "deleting %s", table)
	}
	n, err := res.RowsAffected()
	return n > 0, errors.Wrapf(err, "deleting %s", table)
}

// cascadeDelete counts what deleting the row id of the given level takes along, then deletes it.
func (repo *forumRepository) cascadeDelete(ctx context.Context, level int, id string) (forum.DeleteSummary, error) {
	var sum forum.DeleteSummary
	if !validID(id) {
		return sum, forum.ErrNotFound
	}
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		var err error
		sum, err = countCascade(ctx, tx, level, cascades[level].alias+".id = $1", id)
		if err != nil {
			return err
		}
		found, err := deleteByID(ctx, tx, cascades[level].table, id)
		if err != nil {
			return err
		}
		if !found {
			return forum.ErrNotFound
		}
		return nil
	})
	return sum, err
}

// classes

func (repo *forumRepository) unboilClass(c models.Class, users, groups map[string][]string) forum.Class {
	class := forum.Class{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		IsPublic:        c.IsPublic,
		AllowedUserIDs:  users[c.ID],
		AllowedGroupIDs: groups[c.ID],
		CreatedAt:       c.CreatedAt.UTC(),
	}
	if class.AllowedUserIDs == nil {
		class.AllowedUserIDs = []string{}
	}
	if class.AllowedGroupIDs == nil {
		class.AllowedGroupIDs = []string{}
	}
	return class
}

// allowLists loads both allow-lists of the given classes.
func (repo *forumRepository) allowLists(ctx context.Context, exec core.DBExecutor, classIDs []string) (users, groups map[string][]string, err error) {
	load := func(table, col string) (map[string][]string, error) {
		members := make(map[string][]string, len(classIDs))
		if len(classIDs) == 0 {
			return members, nil
		}
		var rows []models.ClassMember
		err := models.NewQuery(
			qm.Select("class_id", col+" AS member_id"),
			qm.From(table),
			qm.WhereIn("class_id IN ?", models.Args(classIDs)...),
			qm.OrderBy(col),
		).Bind(ctx, exec, &rows)
		if err != nil {
			return nil, errors.Wrapf(err, "selecting %s", table)
		}
		for _, r := range rows {
			members[r.ClassID] = append(members[r.ClassID], r.MemberID)
		}
		return members, nil
	}

	if users, err = load(models.TableNames.ClassAllowedUser, "user_id"); err != nil {
		return nil, nil, err
	}
	if groups, err = load(models.TableNames.ClassAllowedGroup, "group_id"); err != nil {
		return nil, nil, err
	}
	return users, groups, nil
}

func (repo *forumRepository) QueryClasses(ctx context.Context) ([]forum.Class, error) {
	var rows []models.Class
	err := models.NewQuery(
		qm.Select("*"),
		qm.From(models.TableNames.Class),
		qm.OrderBy("name, id"),
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting classes")
	}

	ids := make([]string, 0, len(rows))
	for _, c := range rows {
		ids = append(ids, c.ID)
	}
	users, groups, err := repo.allowLists(ctx, repo.db, ids)
	if err != nil {
		return nil, err
	}
	classes := make([]forum.Class, 0, len(rows))
	for _, c := range rows {
		classes = append(classes, repo.unboilClass(c, users, groups))
	}
	return classes, nil
}

func (repo *forumRepository) getClass(ctx context.Context, exec core.DBExecutor, id string) (forum.Class, error) {
	if !validID(id) {
		return forum.Class{}, forum.ErrNotFound
	}
	var c models.Class
	err := models.NewQuery(qm.Select("*"), qm.From(models.TableNames.Class), qm.Where("id = ?", id)).Bind(ctx, exec, &c)
	if err != nil {
		return forum.Class{}, trapNoRowsErr(err, forum.ErrNotFound, "selecting class")
	}
	users, groups, err := repo.allowLists(ctx, exec, []string{id})
	if err != nil {
		return forum.Class{}, err
	}
	return repo.unboilClass(c, users, groups), nil
}

func (repo *forumRepository) GetClass(ctx context.Context, id string) (forum.Class, error) {
	return repo.getClass(ctx, repo.db, id)
}

func trapAllowListErr(err error, msg string) error {
	if code, constraint, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
		switch {
		case strings.HasPrefix(constraint, "class_allowed_user_user_id"):
			return forum.ErrUnknownUser
		case strings.HasPrefix(constraint, "class_allowed_group_group_id"):
			return forum.ErrUnknownGroup
		case strings.HasPrefix(constraint, "class_allowed_"):
			return forum.ErrNotFound
		}
	}
	return errors.Wrap(err, msg)
}

func (repo *forumRepository) insertAllowLists(ctx context.Context, exec core.DBExecutor, class forum.Class) error {
	if !validIDs(class.AllowedUserIDs) {
		return forum.ErrUnknownUser
	}
	if !validIDs(class.AllowedGroupIDs) {
		return forum.ErrUnknownGroup
	}
	for _, uid := range class.AllowedUserIDs {
		err := models.Insert(ctx, exec, models.TableNames.ClassAllowedUser, []string{"class_id", "user_id"}, class.ID, uid)
		if err != nil {
			return trapAllowListErr(err, "inserting allowed user")
		}
	}
	for _, gid := range class.AllowedGroupIDs {
		err := models.Insert(ctx, exec, models.TableNames.ClassAllowedGroup, []string{"class_id", "group_id"}, class.ID, gid)
		if err != nil {
			return trapAllowListErr(err, "inserting allowed group")
		}
	}
	return nil
}

func (repo *forumRepository) CreateClass(ctx context.Context, class forum.Class) (forum.Class, error) {
	if class.ID == "" {
		class.ID = uuid.New().String()
	}
	var created forum.Class
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		err := models.Insert(ctx, tx, models.TableNames.Class,
			[]string{"id", "name", "description", "is_public", "created_at"},
			class.ID, class.Name, class.Description, class.IsPublic, class.CreatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting class")
		}
		if err = repo.insertAllowLists(ctx, tx, class); err != nil {
			return err
		}
		created, err = repo.getClass(ctx, tx, class.ID)
		return err
	})
	return created, err
}

func (repo *forumRepository) UpdateClass(ctx context.Context, class forum.Class) (forum.Class, error) {
	if !validID(class.ID) {
		return forum.Class{}, forum.ErrNotFound
	}
	var updated forum.Class
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		n, err := models.Update(ctx, tx, models.TableNames.Class, class.ID,
			[]string{"name", "description", "is_public"},
			class.Name, class.Description, class.IsPublic)
		if err != nil {
			return errors.Wrap(err, "updating class")
		}
		if n == 0 {
			return forum.ErrNotFound
		}
		for _, table := range []string{models.TableNames.ClassAllowedUser, models.TableNames.ClassAllowedGroup} {
			if _, err = queries.Raw("DELETE FROM "+table+" WHERE class_id = $1", class.ID).ExecContext(ctx, tx); err != nil {
				return errors.Wrapf(err, "clearing %s", table)
			}
		}
		if err = repo.insertAllowLists(ctx, tx, class); err != nil {
			return err
		}
		updated, err = repo.getClass(ctx, tx, class.ID)
		return err
	})
	return updated, err
}

func (repo *forumRepository) DeleteClass(ctx context.Context, id string) (forum.DeleteSummary, error) {
	var sum forum.DeleteSummary
	if !validID(id) {
		return sum, forum.ErrNotFound
	}
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		var err error
		if sum, err = countCascade(ctx, tx, levelSubCategory, "s.class_id = $1", id); err != nil {
			return err
		}
		found, err := deleteByID(ctx, tx, models.TableNames.Class, id)
		if err != nil {
			return err
		}
		if !found {
			return forum.ErrNotFound
		}
		sum.Classes = 1
		return nil
	})
	return sum, err
}

// subcategories

func unboilSubCategory(s models.Subcategory) forum.SubCategory {
	return forum.SubCategory{
		ID:          s.ID,
		ClassID:     s.ClassID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt.UTC(),
	}
}

func (repo *forumRepository) QuerySubCategories(ctx context.Context, classID string) ([]forum.SubCategory, error) {
	subs := make([]forum.SubCategory, 0)
	if !validID(classID) {
		return subs, nil
	}
	var rows []models.Subcategory
	err := models.NewQuery(
		qm.Select("*"),
		qm.From(models.TableNames.Subcategory),
		qm.Where("class_id = ?", classID),
		qm.OrderBy("name, id"),
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting subcategories")
	}
	for _, s := range rows {
		subs = append(subs, unboilSubCategory(s))
	}
	return subs, nil
}

func (repo *forumRepository) GetSubCategory(ctx context.Context, id string) (forum.SubCategory, error) {
	if !validID(id) {
		return forum.SubCategory{}, forum.ErrNotFound
	}
	var s models.Subcategory
	err := models.NewQuery(qm.Select("*"), qm.From(models.TableNames.Subcategory), qm.Where("id = ?", id)).Bind(ctx, repo.db, &s)
	if err != nil {
		return forum.SubCategory{}, trapNoRowsErr(err, forum.ErrNotFound, "selecting subcategory")
	}
	return unboilSubCategory(s), nil
}

// trapParentErr maps a foreign key violation on the parent row to forum.ErrNotFound.
func trapParentErr(err error, msg string) error {
	if code, _, ok := pqConstraint(err); ok && code == pqForeignKeyViolation {
		return forum.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo *forumRepository) CreateSubCategory(ctx context.Context, sub forum.SubCategory) (forum.SubCategory, error) {
	if !validID(sub.ClassID) {
		return forum.SubCategory{}, forum.ErrNotFound
	}
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	sub.CreatedAt = sub.CreatedAt.UTC()
	err := models.Insert(ctx, repo.db, models.TableNames.Subcategory,
		[]string{"id", "class_id", "name", "description", "created_at"},
		sub.ID, sub.ClassID, sub.Name, sub.Description, sub.CreatedAt)
	if err != nil {
		return forum.SubCategory{}, trapParentErr(err, "inserting subcategory")
	}
	return sub, nil
}

func (repo *forumRepository) UpdateSubCategory(ctx context.Context, sub forum.SubCategory) (forum.SubCategory, error) {
	if !validID(sub.ID) {
		return forum.SubCategory{}, forum.ErrNotFound
	}
	n, err := models.Update(ctx, repo.db, models.TableNames.Subcategory, sub.ID,
		[]string{"name", "description"}, sub.Name, sub.Description)
	if err != nil {
		return forum.SubCategory{}, errors.Wrap(err, "updating subcategory")
	}
	if n == 0 {
		return forum.SubCategory{}, forum.ErrNotFound
	}
	return repo.GetSubCategory(ctx, sub.ID)
}

func (repo *forumRepository) DeleteSubCategory(ctx context.Context, id string) (forum.DeleteSummary, error) {
	return repo.cascadeDelete(ctx, levelSubCategory, id)
}

// tags

func (repo *forumRepository) queryTags(ctx context.Context, mods ...qm.QueryMod) ([]forum.Tag, error) {
	var rows []models.Tag
	mods = append([]qm.QueryMod{qm.Select("tag.id", "tag.name"), qm.From(models.TableNames.Tag)}, mods...)
	if err := models.NewQuery(append(mods, qm.OrderBy("LOWER(tag.name)"))...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting tags")
	}
	tags := make([]forum.Tag, 0, len(rows))
	for _, t := range rows {
		tags = append(tags, forum.Tag{ID: t.ID, Name: t.Name})
	}
	return tags, nil
}

func (repo *forumRepository) QueryTags(ctx context.Context) ([]forum.Tag, error) {
	return repo.queryTags(ctx)
}

func (repo *forumRepository) GetTag(ctx context.Context, id string) (forum.Tag, error) {
	if !validID(id) {
		return forum.Tag{}, forum.ErrNotFound
	}
	tags, err := repo.queryTags(ctx, qm.Where("tag.id = ?", id))
	if err != nil {
		return forum.Tag{}, err
	}
	if len(tags) == 0 {
		return forum.Tag{}, forum.ErrNotFound
	}
	return tags[0], nil
}

func trapTagNameErr(err error, msg string) error {
	if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "tag_name_key" {
		return forum.ErrTagExists
	}
	return errors.Wrap(err, msg)
}

func (repo *forumRepository) CreateTag(ctx context.Context, tag forum.Tag) (forum.Tag, error) {
	if tag.ID == "" {
		tag.ID = uuid.New().String()
	}
	if err := models.Insert(ctx, repo.db, models.TableNames.Tag, []string{"id", "name"}, tag.ID, tag.Name); err != nil {
		return forum.Tag{}, trapTagNameErr(err, "inserting tag")
	}
	return tag, nil
}

func (repo *forumRepository) UpdateTag(ctx context.Context, tag forum.Tag) (forum.Tag, error) {
	if !validID(tag.ID) {
		return forum.Tag{}, forum.ErrNotFound
	}
	n, err := models.Update(ctx, repo.db, models.TableNames.Tag, tag.ID, []string{"name"}, tag.Name)
	if err != nil {
		return forum.Tag{}, trapTagNameErr(err, "updating tag")
	}
	if n == 0 {
		return forum.Tag{}, forum.ErrNotFound
	}
	return tag, nil
}

// DeleteTag detaches the tag from its topics, through the topic_tag cascade.
func (repo *forumRepository) DeleteTag(ctx context.Context, id string) (forum.DeleteSummary, error) {
	var sum forum.DeleteSummary
	if !validID(id) {
		return sum, forum.ErrNotFound
	}
	found, err := deleteByID(ctx, repo.db, models.TableNames.Tag, id)
	if err != nil {
		return sum, err
	}
	if !found {
		return sum, forum.ErrNotFound
	}
	sum.Tags = 1
	return sum, nil
}

func (repo *forumRepository) TopicTags(ctx context.Context, topicID string) ([]forum.Tag, error) {
	if _, err := repo.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	return repo.queryTags(ctx,
		qm.InnerJoin("topic_tag tt ON tt.tag_id = tag.id"),
		qm.Where("tt.topic_id = ?", topicID),
	)
}

func (repo *forumRepository) SubCategoryTags(ctx context.Context, subCategoryID string) ([]forum.Tag, error) {
	if !validID(subCategoryID) {
		return []forum.Tag{}, nil
	}
	return repo.queryTags(ctx, qm.Where(
		"tag.id IN (SELECT tt.tag_id FROM topic_tag tt INNER JOIN topic t ON t.id = tt.topic_id WHERE t.subcategory_id = ?)",
		subCategoryID,
	))
}

// topics

func unboilTopic(t models.Topic, tagIDs []string) forum.Topic {
	if tagIDs == nil {
		tagIDs = []string{}
	}
	return forum.Topic{
		ID:            t.ID,
		SubCategoryID: t.SubcategoryID,
		AuthorID:      t.AuthorID.String,
		Title:         t.Title,
		Content:       t.Content,
		TagIDs:        tagIDs,
		CreatedAt:     t.CreatedAt.UTC(),
		UpdatedAt:     t.UpdatedAt.UTC(),
	}
}

func (repo *forumRepository) topicTagIDs(ctx context.Context, exec core.DBExecutor, topicIDs []string) (map[string][]string, error) {
	byTopic := make(map[string][]string, len(topicIDs))
	if len(topicIDs) == 0 {
		return byTopic, nil
	}
	var rows []models.TopicTag
	err := models.NewQuery(
		qm.Select("topic_id", "tag_id"),
		qm.From(models.TableNames.TopicTag),
		qm.WhereIn("topic_id IN ?", models.Args(topicIDs)...),
		qm.OrderBy("tag_id"),
	).Bind(ctx, exec, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting topic tags")
	}
	for _, r := range rows {
		byTopic[r.TopicID] = append(byTopic[r.TopicID], r.TagID)
	}
	return byTopic, nil
}

func (repo *forumRepository) QueryTopics(ctx context.Context, filter forum.TopicFilter) ([]forum.Topic, error) {
	topics := make([]forum.Topic, 0)
	mods := []qm.QueryMod{qm.Select("*"), qm.From(models.TableNames.Topic)}

	if filter.SubCategoryID != "" {
		if !validID(filter.SubCategoryID) {
			return topics, nil
		}
		mods = append(mods, qm.Where("subcategory_id = ?", filter.SubCategoryID))
	}
	if filter.TagID != "" {
		if !validID(filter.TagID) {
			return topics, nil
		}
		mods = append(mods, qm.Where("id IN (SELECT topic_id FROM topic_tag WHERE tag_id = ?)", filter.TagID))
	}
	if filter.ClassIDs != nil {
		if len(filter.ClassIDs) == 0 || !validIDs(filter.ClassIDs) {
			return topics, nil
		}
		mods = append(mods, qm.WhereIn(
			"subcategory_id IN (SELECT id FROM subcategory WHERE class_id IN ?)", models.Args(filter.ClassIDs)...))
	}

	var rows []models.Topic
	if err := models.NewQuery(append(mods, qm.OrderBy("created_at DESC, id DESC"))...).Bind(ctx, repo.db, &rows); err != nil {
		return nil, errors.Wrap(err, "selecting topics")
	}

	ids := make([]string, 0, len(rows))
	for _, t := range rows {
		ids = append(ids, t.ID)
	}
	tagIDs, err := repo.topicTagIDs(ctx, repo.db, ids)
	if err != nil {
		return nil, err
	}
	for _, t := range rows {
		topics = append(topics, unboilTopic(t, tagIDs[t.ID]))
	}
	return topics, nil
}

func (repo *forumRepository) getTopic(ctx context.Context, exec core.DBExecutor, id string) (forum.Topic, error) {
	if !validID(id) {
		return forum.Topic{}, forum.ErrNotFound
	}
	var t models.Topic
	err := models.NewQuery(qm.Select("*"), qm.From(models.TableNames.Topic), qm.Where("id = ?", id)).Bind(ctx, exec, &t)
	if err != nil {
		return forum.Topic{}, trapNoRowsErr(err, forum.ErrNotFound, "selecting topic")
	}
	tagIDs, err := repo.topicTagIDs(ctx, exec, []string{id})
	if err != nil {
		return forum.Topic{}, err
	}
	return unboilTopic(t, tagIDs[id]), nil
}

func (repo *forumRepository) GetTopic(ctx context.Context, id string) (forum.Topic, error) {
	return repo.getTopic(ctx, repo.db, id)
}

func (repo *forumRepository) insertTopicTags(ctx context.Context, exec core.DBExecutor, topic forum.Topic) error {
	if !validIDs(topic.TagIDs) {
		return forum.ErrUnknownTag
	}
	for _, tagID := range topic.TagIDs {
		err := models.Insert(ctx, exec, models.TableNames.TopicTag, []string{"topic_id", "tag_id"}, topic.ID, tagID)
		if err != nil {
			if code, constraint, ok := pqConstraint(err); ok && code == pqForeignKeyViolation && strings.HasPrefix(constraint, "topic_tag_tag_id") {
				return forum.ErrUnknownTag
			}
			return errors.Wrap(err, "inserting topic tag")
		}
	}
	return nil
}

func (repo *forumRepository) CreateTopic(ctx context.Context, topic forum.Topic) (forum.Topic, error) {
	if !validID(topic.SubCategoryID) {
		return forum.Topic{}, forum.ErrNotFound
	}
	if topic.ID == "" {
		topic.ID = uuid.New().String()
	}
	var created forum.Topic
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		err := models.Insert(ctx, tx, models.TableNames.Topic,
			[]string{"id", "subcategory_id", "author_id", "title", "content", "created_at", "updated_at"},
			topic.ID, topic.SubCategoryID, nullID(topic.AuthorID), topic.Title, topic.Content,
			topic.CreatedAt.UTC(), topic.UpdatedAt.UTC())
		if err != nil {
			return trapParentErr(err, "inserting topic")
		}
		if err = repo.insertTopicTags(ctx, tx, topic); err != nil {
			return err
		}
		created, err = repo.getTopic(ctx, tx, topic.ID)
		return err
	})
	return created, err
}

func (repo *forumRepository) UpdateTopic(ctx context.Context, topic forum.Topic) (forum.Topic, error) {
	if !validID(topic.ID) {
		return forum.Topic{}, forum.ErrNotFound
	}
	var updated forum.Topic
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		n, err := models.Update(ctx, tx, models.TableNames.Topic, topic.ID,
			[]string{"title", "content", "updated_at"}, topic.Title, topic.Content, topic.UpdatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "updating topic")
		}
		if n == 0 {
			return forum.ErrNotFound
		}
		if _, err = queries.Raw("DELETE FROM topic_tag WHERE topic_id = $1", topic.ID).ExecContext(ctx, tx); err != nil {
			return errors.Wrap(err, "clearing topic tags")
		}
		if err = repo.insertTopicTags(ctx, tx, topic); err != nil {
			return err
		}
		updated, err = repo.getTopic(ctx, tx, topic.ID)
		return err
	})
	return updated, err
}

func (repo *forumRepository) DeleteTopic(ctx context.Context, id string) (forum.DeleteSummary, error) {
	return repo.cascadeDelete(ctx, levelTopic, id)
}

// replies

func unboilReply(r models.Reply) forum.Reply {
	return forum.Reply{
		ID:        r.ID,
		TopicID:   r.TopicID,
		AuthorID:  r.AuthorID.String,
		Content:   r.Content,
		VoteCount: r.VoteCount,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

func (repo *forumRepository) QueryReplies(ctx context.Context, topicID string) ([]forum.Reply, error) {
	replies := make([]forum.Reply, 0)
	if !validID(topicID) {
		return replies, nil
	}
	var rows []models.Reply
	err := models.NewQuery(
		qm.Select("*"),
		qm.From(models.TableNames.Reply),
		qm.Where("topic_id = ?", topicID),
		qm.OrderBy("vote_count DESC, created_at DESC, id DESC"),
	).Bind(ctx, repo.db, &rows)
	if err != nil {
		return nil, errors.Wrap(err, "selecting replies")
	}
	for _, r := range rows {
		replies = append(replies, unboilReply(r))
	}
	return replies, nil
}

func (repo *forumRepository) GetReply(ctx context.Context, id string) (forum.Reply, error) {
	if !validID(id) {
		return forum.Reply{}, forum.ErrNotFound
	}
	var r models.Reply
	err := models.NewQuery(qm.Select("*"), qm.From(models.TableNames.Reply), qm.Where("id = ?", id)).Bind(ctx, repo.db, &r)
	if err != nil {
		return forum.Reply{}, trapNoRowsErr(err, forum.ErrNotFound, "selecting reply")
	}
	return unboilReply(r), nil
}

func (repo *forumRepository) CreateReply(ctx context.Context, reply forum.Reply) (forum.Reply, error) {
	if !validID(reply.TopicID) {
		return forum.Reply{}, forum.ErrNotFound
	}
	if reply.ID == "" {
		reply.ID = uuid.New().String()
	}
	reply.VoteCount = 0
	reply.CreatedAt = reply.CreatedAt.UTC()
	reply.UpdatedAt = reply.UpdatedAt.UTC()
	err := models.Insert(ctx, repo.db, models.TableNames.Reply,
		[]string{"id", "topic_id", "author_id", "content", "vote_count", "created_at", "updated_at"},
		reply.ID, reply.TopicID, nullID(reply.AuthorID), reply.Content, reply.VoteCount, reply.CreatedAt, reply.UpdatedAt)
	if err != nil {
		return forum.Reply{}, trapParentErr(err, "inserting reply")
	}
	return reply, nil
}

func (repo *forumRepository) UpdateReply(ctx context.Context, reply forum.Reply) (forum.Reply, error) {
	if !validID(reply.ID) {
		return forum.Reply{}, forum.ErrNotFound
	}
	n, err := models.Update(ctx, repo.db, models.TableNames.Reply, reply.ID,
		[]string{"content", "updated_at"}, reply.Content, reply.UpdatedAt.UTC())
	if err != nil {
		return forum.Reply{}, errors.Wrap(err, "updating reply")
	}
	if n == 0 {
		return forum.Reply{}, forum.ErrNotFound
	}
	return repo.GetReply(ctx, reply.ID)
}

func (repo *forumRepository) DeleteReply(ctx context.Context, id string) (forum.DeleteSummary, error) {
	return repo.cascadeDelete(ctx, levelReply, id)
}

// votes

// ToggleVote locks the reply row so that concurrent toggles on it are serialized.
func (repo *forumRepository) ToggleVote(ctx context.Context, voterID, replyID string) (forum.VoteResult, error) {
	var res forum.VoteResult
	if !validID(replyID) {
		return res, forum.ErrNotFound
	}
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		var count int
		err := queries.Raw("SELECT vote_count FROM reply WHERE id = $1 FOR UPDATE", replyID).
			QueryRowContext(ctx, tx).Scan(&count)
		if err != nil {
			return trapNoRowsErr(err, forum.ErrNotFound, "locking reply")
		}

		del, err := queries.Raw("DELETE FROM vote WHERE voter_id = $1 AND reply_id = $2", voterID, replyID).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "deleting vote")
		}
		delta, state := 1, forum.VoteAdded
		n, err := del.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "counting deleted votes")
		}
		if n > 0 {
			delta, state = -1, forum.VoteRemoved
		} else {
			err = models.Insert(ctx, tx, models.TableNames.Vote, []string{"id", "voter_id", "reply_id", "created_at"},
				uuid.New().String(), voterID, replyID, core.NowFunc().UTC())
			if err != nil {
				if code, constraint, ok := pqConstraint(err); ok && code == pqUniqueViolation && constraint == "vote_voter_id_reply_id_key" {
					return forum.ErrConflict
				}
				return errors.Wrap(err, "inserting vote")
			}
		}

		err = queries.Raw("UPDATE reply SET vote_count = vote_count + $1 WHERE id = $2 RETURNING vote_count", delta, replyID).
			QueryRowContext(ctx, tx).Scan(&count)
		if err != nil {
			return errors.Wrap(err, "updating vote count")
		}
		res = forum.VoteResult{State: state, Count: count}
		return nil
	})
	return res, err
}

func (repo *forumRepository) PurgeUser(ctx context.Context, userID string) (forum.DeleteSummary, error) {
	var sum forum.DeleteSummary
	if !validID(userID) {
		return sum, forum.ErrUnknownUser
	}
	err := core.RunInTx(ctx, repo.db, func(tx core.DBTransactor) error {
		var id string
		err := queries.Raw(`SELECT id FROM "user" WHERE id = $1 FOR UPDATE`, userID).QueryRowContext(ctx, tx).Scan(&id)
		if err != nil {
			return trapNoRowsErr(err, forum.ErrUnknownUser, "locking user")
		}

		_, err = queries.Raw(`
			UPDATE reply r SET vote_count = r.vote_count - v.n
			FROM (SELECT reply_id, COUNT(*) AS n FROM vote WHERE voter_id = $1 GROUP BY reply_id) v
			WHERE r.id = v.reply_id`, userID).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "decrementing vote counts")
		}
		res, err := queries.Raw("DELETE FROM vote WHERE voter_id = $1", userID).ExecContext(ctx, tx)
		if err != nil {
			return errors.Wrap(err, "deleting votes")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return errors.Wrap(err, "counting deleted votes")
		}
		sum.Votes = int(n)

		purges := []struct {
			level int
			pred  string
		}{
			{level: levelTopic, pred: "t.author_id = $1"},
			{level: levelReply, pred: "r.author_id = $1"},
		}
		for _, p := range purges {
			counted, err := countCascade(ctx, tx, p.level, p.pred, userID)
			if err != nil {
				return err
			}
			addSummary(&sum, counted)
			table := cascades[p.level].table
			if _, err = queries.Raw("DELETE FROM "+table+" WHERE author_id = $1", userID).ExecContext(ctx, tx); err != nil {
				return errors.Wrapf(err, "deleting %s", table)
			}
		}

		_, err = queries.Raw(`DELETE FROM "user" WHERE id = $1`, userID).ExecContext(ctx, tx)
		return errors.Wrap(err, "deleting user")
	})
	return sum, err
}

func (repo *forumRepository) UserContact(ctx context.Context, userID string) (forum.Contact, error) {
	if !validID(userID) {
		return forum.Contact{}, forum.ErrNotFound
	}
	var u models.User
	err := models.NewQuery(
		qm.Select("username", "email"),
		qm.From(models.Quote(models.TableNames.User)),
		qm.Where("id = ?", userID),
	).Bind(ctx, repo.db, &u)
	if err != nil {
		return forum.Contact{}, trapNoRowsErr(err, forum.ErrNotFound, "selecting user contact")
	}
	return forum.Contact{Username: u.Username, Email: u.Email}, nil
}
