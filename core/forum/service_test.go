package forum_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	"github.com/trezcool/jukwaa/storage/database/dummy"
	"github.com/trezcool/jukwaa/tests"
)

type mockMailer struct {
	mu       sync.Mutex
	messages []*core.EmailMessage
}

func (m *mockMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, messages...)
}

func (m *mockMailer) sent() []*core.EmailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*core.EmailMessage(nil), m.messages...)
}

type fixture struct {
	db      *dummydb.DB
	usrRepo user.Repository
	repo    forum.Repository
	svc     *forum.Service
	mailer  *mockMailer

	// admin is a moderator, alice and bob are regular users
	admin, alice, bob core.Identity
}

func setup(t *testing.T, conf ...*core.Config) *fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)

	cfg := core.NewTestConfig()
	if len(conf) > 0 {
		cfg = conf[0]
	}

	f := &fixture{
		db:      db,
		usrRepo: dummydb.NewUserRepository(db),
		repo:    dummydb.NewForumRepository(db),
		mailer:  new(mockMailer),
	}
	f.svc = forum.NewService(forum.Deps{
		Repo:    f.repo,
		Auditor: dummydb.NewAuditor(db),
		Mailer:  f.mailer,
		Conf:    cfg,
	})

	mods := testutil.Group(t, f.usrRepo, "Moderators")
	f.admin = testutil.CreateUser(t, f.usrRepo, "admin", "", false, mods).Identity()
	f.alice = testutil.CreateUser(t, f.usrRepo, "alice", "", false).Identity()
	f.bob = testutil.CreateUser(t, f.usrRepo, "bob", "", false).Identity()
	return f
}

// forumTree creates a public class with one subcategory and a topic authored by alice.
func (f *fixture) forumTree(t *testing.T) (forum.Class, forum.SubCategory, forum.Topic) {
	class := testutil.CreateClass(t, f.repo, "Maths", true, nil, nil)
	sub := testutil.CreateSubCategory(t, f.repo, class.ID, "Algebra")
	topic := testutil.CreateTopic(t, f.repo, sub.ID, f.alice.ID, "Groups", time.Now())
	return class, sub, topic
}

func TestService_EvaluateAccess(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	alumni := testutil.Group(t, f.usrRepo, "Alumni")
	graduate := testutil.CreateUser(t, f.usrRepo, "graduate", "", false, alumni).Identity()
	private := testutil.CreateClass(t, f.repo, "Private", false, []string{f.alice.ID}, []string{alumni.ID})
	public := testutil.CreateClass(t, f.repo, "Public", true, nil, nil)

	tests := []struct {
		name     string
		identity core.Identity
		classID  string
		want     bool
		wantErr  error
	}{
		{name: "unknown class", identity: f.alice, classID: "nope", wantErr: forum.ErrNotFound},
		{name: "anonymous, public", identity: core.Anonymous, classID: public.ID, want: true},
		{name: "anonymous, private", identity: core.Anonymous, classID: private.ID},
		{name: "allowed user", identity: f.alice, classID: private.ID, want: true},
		{name: "allowed group", identity: graduate, classID: private.ID, want: true},
		{name: "not allowed", identity: f.bob, classID: private.ID},
		{name: "moderator not allowed", identity: f.admin, classID: private.ID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.EvaluateAccess(ctx, tt.identity, tt.classID)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestService_ListClasses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	testutil.CreateClass(t, f.repo, "Physics", true, nil, nil)
	testutil.CreateClass(t, f.repo, "Chemistry", true, nil, nil)
	testutil.CreateClass(t, f.repo, "Biology", false, []string{f.alice.ID}, nil)

	names := func(classes []forum.Class) []string {
		out := make([]string, 0, len(classes))
		for _, c := range classes {
			out = append(out, c.Name)
		}
		return out
	}

	classes, err := f.svc.ListClasses(ctx, core.Anonymous)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chemistry", "Physics"}, names(classes))

	classes, err = f.svc.ListClasses(ctx, f.alice)
	require.NoError(t, err)
	assert.Equal(t, []string{"Biology", "Chemistry", "Physics"}, names(classes))

	classes, err = f.svc.ListClasses(ctx, f.bob)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chemistry", "Physics"}, names(classes))
}

func TestService_CreateClass(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateClass(ctx, core.Anonymous, forum.ClassPayload{Name: "Maths"})
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.CreateClass(ctx, f.alice, forum.ClassPayload{Name: "Maths"})
	assert.Equal(t, forum.ErrUnauthorized, err)

	_, err = f.svc.CreateClass(ctx, f.admin, forum.ClassPayload{Name: "   "})
	assert.IsType(t, validator.ValidationErrors{}, err)

	_, err = f.svc.CreateClass(ctx, f.admin, forum.ClassPayload{Name: "Maths", AllowedUserIDs: []string{"not-a-uuid"}})
	assert.IsType(t, validator.ValidationErrors{}, err)

	_, err = f.svc.CreateClass(ctx, f.admin, forum.ClassPayload{
		Name:           "Maths",
		AllowedUserIDs: []string{"2c5ea4c0-4067-11e9-8bad-9b1deb4d3b7d"},
	})
	require.Error(t, err)
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T", err)
	assert.Equal(t, "allowed_user_ids", verr.Fields[0].Field)

	class, err := f.svc.CreateClass(ctx, f.admin, forum.ClassPayload{Name: "  Maths  "})
	require.NoError(t, err)
	assert.Equal(t, "Maths", class.Name)
	assert.True(t, class.IsPublic)
	assert.NotEmpty(t, class.ID)

	private := false
	class, err = f.svc.CreateClass(ctx, f.admin, forum.ClassPayload{
		Name:           "Staff room",
		IsPublic:       &private,
		AllowedUserIDs: []string{f.admin.ID, f.admin.ID},
	})
	require.NoError(t, err)
	assert.False(t, class.IsPublic)
	assert.Equal(t, []string{f.admin.ID}, class.AllowedUserIDs)
}

func TestService_UpdateAndDeleteClass_gates(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	public := testutil.CreateClass(t, f.repo, "Public", true, nil, nil)
	private := testutil.CreateClass(t, f.repo, "Private", false, []string{f.alice.ID}, nil)
	payload := forum.ClassPayload{Name: "Renamed"}

	_, err := f.svc.UpdateClass(ctx, f.admin, "nope", payload)
	assert.Equal(t, forum.ErrNotFound, errors.Cause(err))
	_, err = f.svc.UpdateClass(ctx, f.alice, public.ID, payload)
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.UpdateClass(ctx, f.admin, private.ID, payload) // admin without access
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.DeleteClass(ctx, f.admin, private.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)

	got, err := f.svc.GetClass(ctx, f.alice, private.ID)
	require.NoError(t, err)
	assert.Equal(t, "Private", got.Name)

	updated, err := f.svc.UpdateClass(ctx, f.admin, public.ID, payload)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, public.CreatedAt, updated.CreatedAt)
}

func TestService_UpdateClass_visibility(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	private := testutil.CreateClass(t, f.repo, "Private", false, []string{f.admin.ID}, nil)
	ok, err := f.svc.EvaluateAccess(ctx, core.Anonymous, private.ID)
	require.NoError(t, err)
	require.False(t, ok)

	updated, err := f.svc.UpdateClass(ctx, f.admin, private.ID, forum.ClassPayload{
		Name:           "Renamed",
		AllowedUserIDs: []string{f.admin.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.False(t, updated.IsPublic)
	ok, err = f.svc.EvaluateAccess(ctx, core.Anonymous, private.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	public := true
	updated, err = f.svc.UpdateClass(ctx, f.admin, private.ID, forum.ClassPayload{Name: "Open", IsPublic: &public})
	require.NoError(t, err)
	assert.True(t, updated.IsPublic)
	ok, err = f.svc.EvaluateAccess(ctx, core.Anonymous, private.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestService_DeleteClass_cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	const n, m, k = 2, 3, 4
	class := testutil.CreateClass(t, f.repo, "Maths", true, nil, nil)
	other := testutil.CreateClass(t, f.repo, "Other", true, nil, nil)
	otherSub := testutil.CreateSubCategory(t, f.repo, other.ID, "Kept")
	otherTopic := testutil.CreateTopic(t, f.repo, otherSub.ID, f.alice.ID, "Kept", time.Now())
	otherReply := testutil.CreateReply(t, f.repo, otherTopic.ID, f.bob.ID, time.Now())
	_, err := f.svc.ToggleVote(ctx, f.alice, otherReply.ID)
	require.NoError(t, err)

	votes := 0
	for i := 0; i < n; i++ {
		sub := testutil.CreateSubCategory(t, f.repo, class.ID, "Sub")
		for j := 0; j < m; j++ {
			topic := testutil.CreateTopic(t, f.repo, sub.ID, f.alice.ID, "Topic", time.Now())
			for l := 0; l < k; l++ {
				reply := testutil.CreateReply(t, f.repo, topic.ID, f.bob.ID, time.Now())
				if l%2 == 0 {
					_, err = f.svc.ToggleVote(ctx, f.alice, reply.ID)
					require.NoError(t, err)
					_, err = f.svc.ToggleVote(ctx, f.bob, reply.ID)
					require.NoError(t, err)
					votes += 2
				}
			}
		}
	}

	sum, err := f.svc.DeleteClass(ctx, f.admin, class.ID)
	require.NoError(t, err)
	assert.Equal(t, forum.DeleteSummary{
		Classes:       1,
		SubCategories: n,
		Topics:        n * m,
		Replies:       n * m * k,
		Votes:         votes,
	}, sum)

	_, err = f.svc.GetClass(ctx, f.admin, class.ID)
	assert.Equal(t, forum.ErrNotFound, errors.Cause(err))

	// untouched
	r, err := f.repo.GetReply(ctx, otherReply.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, r.VoteCount)
	assert.Equal(t, 1, f.db.CountVotes(otherReply.ID))
}

func TestService_SubCategories(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	private := testutil.CreateClass(t, f.repo, "Private", false, []string{f.alice.ID, f.admin.ID}, nil)

	_, err := f.svc.CreateSubCategory(ctx, f.alice, private.ID, forum.SubCategoryPayload{Name: "Algebra"})
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.CreateSubCategory(ctx, f.admin, "nope", forum.SubCategoryPayload{Name: "Algebra"})
	assert.Equal(t, forum.ErrNotFound, errors.Cause(err))

	sub, err := f.svc.CreateSubCategory(ctx, f.admin, private.ID, forum.SubCategoryPayload{Name: "Algebra"})
	require.NoError(t, err)
	assert.Equal(t, private.ID, sub.ClassID)

	_, err = f.svc.GetSubCategory(ctx, f.bob, sub.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.ListSubCategories(ctx, core.Anonymous, private.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)

	subs, err := f.svc.ListSubCategories(ctx, f.alice, private.ID)
	require.NoError(t, err)
	assert.Len(t, subs, 1)

	sub, err = f.svc.UpdateSubCategory(ctx, f.admin, sub.ID, forum.SubCategoryPayload{Name: "Geometry"})
	require.NoError(t, err)
	assert.Equal(t, "Geometry", sub.Name)

	_, err = f.svc.DeleteSubCategory(ctx, f.alice, sub.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)
	sum, err := f.svc.DeleteSubCategory(ctx, f.admin, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.SubCategories)
}

func TestService_Tags(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.CreateTag(ctx, f.alice, forum.TagPayload{Name: "go"})
	assert.Equal(t, forum.ErrUnauthorized, err)

	tag, err := f.svc.CreateTag(ctx, f.admin, forum.TagPayload{Name: "Go"})
	require.NoError(t, err)

	_, err = f.svc.CreateTag(ctx, f.admin, forum.TagPayload{Name: "go"})
	require.Error(t, err)
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "name", verr.Fields[0].Field)

	_, _, topic := f.forumTree(t)
	_, err = f.svc.UpdateTopic(ctx, f.alice, topic.ID, forum.TopicPayload{
		Title:   topic.Title,
		Content: topic.Content,
		TagIDs:  []string{tag.ID},
	})
	require.NoError(t, err)

	_, err = f.svc.DeleteTag(ctx, f.alice, tag.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)

	sum, err := f.svc.DeleteTag(ctx, f.admin, tag.ID)
	require.NoError(t, err)
	assert.Equal(t, forum.DeleteSummary{Tags: 1}, sum)

	detail, err := f.svc.GetTopic(ctx, f.alice, topic.ID)
	require.NoError(t, err, "tagged topic must survive tag deletion")
	assert.Empty(t, detail.Tags)
	assert.Empty(t, detail.TagIDs)

	tags, err := f.svc.ListTags(ctx)
	require.NoError(t, err)
	assert.Empty(t, tags)
}

func TestService_Topics(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	class := testutil.CreateClass(t, f.repo, "Maths", true, nil, nil)
	sub := testutil.CreateSubCategory(t, f.repo, class.ID, "Algebra")
	tag := testutil.CreateTag(t, f.repo, "homework")

	_, err := f.svc.CreateTopic(ctx, core.Anonymous, sub.ID, forum.TopicPayload{Title: "Hi", Content: "there"})
	assert.Equal(t, forum.ErrUnauthorized, err)

	_, err = f.svc.CreateTopic(ctx, f.alice, sub.ID, forum.TopicPayload{
		Title:   "Hi",
		Content: "there",
		TagIDs:  []string{"2c5ea4c0-4067-11e9-8bad-9b1deb4d3b7d"},
	})
	require.Error(t, err)
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok)
	assert.Equal(t, "tag_ids", verr.Fields[0].Field)

	topic, err := f.svc.CreateTopic(ctx, f.alice, sub.ID, forum.TopicPayload{
		Title:   "Hi",
		Content: "there",
		TagIDs:  []string{tag.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, f.alice.ID, topic.AuthorID)

	// only the author may edit or delete
	_, err = f.svc.UpdateTopic(ctx, f.bob, topic.ID, forum.TopicPayload{Title: "Mine", Content: "now"})
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.DeleteTopic(ctx, f.bob, topic.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.DeleteTopic(ctx, f.admin, topic.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.GetTopic(ctx, f.bob, topic.ID)
	assert.NoError(t, err, "topic must still exist after a denied delete")

	tags, err := f.svc.TagsForSubCategory(ctx, f.bob, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, []forum.Tag{tag}, tags)

	updated, err := f.svc.UpdateTopic(ctx, f.alice, topic.ID, forum.TopicPayload{Title: "Hello", Content: "there"})
	require.NoError(t, err)
	assert.Equal(t, "Hello", updated.Title)
	assert.Empty(t, updated.TagIDs)

	sum, err := f.svc.DeleteTopic(ctx, f.alice, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Topics)
	_, err = f.svc.GetTopic(ctx, f.alice, topic.ID)
	assert.Equal(t, forum.ErrNotFound, errors.Cause(err))
}

func TestService_ListTopics_newestFirst(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	class := testutil.CreateClass(t, f.repo, "Maths", true, nil, nil)
	sub := testutil.CreateSubCategory(t, f.repo, class.ID, "Algebra")
	t0 := time.Now()
	old := testutil.CreateTopic(t, f.repo, sub.ID, f.alice.ID, "old", t0)
	recent := testutil.CreateTopic(t, f.repo, sub.ID, f.alice.ID, "recent", t0.Add(time.Hour))
	middle := testutil.CreateTopic(t, f.repo, sub.ID, f.alice.ID, "middle", t0.Add(time.Minute))

	topics, err := f.svc.ListTopics(ctx, core.Anonymous, sub.ID)
	require.NoError(t, err)
	require.Len(t, topics, 3)
	assert.Equal(t, []string{recent.ID, middle.ID, old.ID}, []string{topics[0].ID, topics[1].ID, topics[2].ID})
}

func TestService_TopicsByTag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tag := testutil.CreateTag(t, f.repo, "exam")
	public := testutil.CreateClass(t, f.repo, "Public", true, nil, nil)
	private := testutil.CreateClass(t, f.repo, "Private", false, []string{f.alice.ID}, nil)
	pubSub := testutil.CreateSubCategory(t, f.repo, public.ID, "Sub")
	privSub := testutil.CreateSubCategory(t, f.repo, private.ID, "Sub")

	t0 := time.Now()
	pubTopic := testutil.CreateTopic(t, f.repo, pubSub.ID, f.alice.ID, "public", t0, tag.ID)
	privTopic := testutil.CreateTopic(t, f.repo, privSub.ID, f.alice.ID, "private", t0.Add(time.Minute), tag.ID)
	testutil.CreateTopic(t, f.repo, pubSub.ID, f.alice.ID, "untagged", t0)

	_, err := f.svc.TopicsByTag(ctx, f.alice, "nope")
	assert.Equal(t, forum.ErrNotFound, errors.Cause(err))

	topics, err := f.svc.TopicsByTag(ctx, f.bob, tag.ID)
	require.NoError(t, err)
	require.Len(t, topics, 1)
	assert.Equal(t, pubTopic.ID, topics[0].ID)

	topics, err = f.svc.TopicsByTag(ctx, f.alice, tag.ID)
	require.NoError(t, err)
	require.Len(t, topics, 2)
	assert.Equal(t, privTopic.ID, topics[0].ID)
	assert.Equal(t, pubTopic.ID, topics[1].ID)
}

func TestService_ListReplies_ranking(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, topic := f.forumTree(t)
	t1 := time.Now()
	r1 := testutil.CreateReply(t, f.repo, topic.ID, f.alice.ID, t1)
	r2 := testutil.CreateReply(t, f.repo, topic.ID, f.alice.ID, t1.Add(time.Second))
	r3 := testutil.CreateReply(t, f.repo, topic.ID, f.alice.ID, t1.Add(2*time.Second))

	voters := make([]core.Identity, 3)
	for i := range voters {
		voters[i] = testutil.CreateUser(t, f.usrRepo, "voter"+string(rune('a'+i)), "", false).Identity()
	}
	vote := func(reply forum.Reply, n int) {
		for _, v := range voters[:n] {
			_, err := f.svc.ToggleVote(ctx, v, reply.ID)
			require.NoError(t, err)
		}
	}
	vote(r1, 3)
	vote(r2, 1)
	vote(r3, 3)

	replies, err := f.svc.ListReplies(ctx, core.Anonymous, topic.ID)
	require.NoError(t, err)
	require.Len(t, replies, 3)
	assert.Equal(t, []string{r3.ID, r1.ID, r2.ID}, []string{replies[0].ID, replies[1].ID, replies[2].ID})
	assert.Equal(t, []int{3, 3, 1}, []int{replies[0].VoteCount, replies[1].VoteCount, replies[2].VoteCount})

	detail, err := f.svc.GetTopic(ctx, core.Anonymous, topic.ID)
	require.NoError(t, err)
	assert.Equal(t, replies, detail.Replies)
}

func TestService_Replies(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, topic := f.forumTree(t)

	_, err := f.svc.CreateReply(ctx, core.Anonymous, topic.ID, forum.ReplyPayload{Content: "hi"})
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.CreateReply(ctx, f.bob, "nope", forum.ReplyPayload{Content: "hi"})
	assert.Equal(t, forum.ErrNotFound, errors.Cause(err))
	_, err = f.svc.CreateReply(ctx, f.bob, topic.ID, forum.ReplyPayload{Content: " "})
	assert.IsType(t, validator.ValidationErrors{}, err)

	reply, err := f.svc.CreateReply(ctx, f.bob, topic.ID, forum.ReplyPayload{Content: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 0, reply.VoteCount)

	_, err = f.svc.UpdateReply(ctx, f.alice, reply.ID, forum.ReplyPayload{Content: "edited"})
	assert.Equal(t, forum.ErrUnauthorized, err)
	reply, err = f.svc.UpdateReply(ctx, f.bob, reply.ID, forum.ReplyPayload{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", reply.Content)

	_, err = f.svc.ToggleVote(ctx, f.alice, reply.ID)
	require.NoError(t, err)

	_, err = f.svc.DeleteReply(ctx, f.alice, reply.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)
	sum, err := f.svc.DeleteReply(ctx, f.bob, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, forum.DeleteSummary{Replies: 1, Votes: 1}, sum)
}

func TestService_CreateReply_notifiesTopicAuthor(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, topic := f.forumTree(t)

	_, err := f.svc.CreateReply(ctx, f.alice, topic.ID, forum.ReplyPayload{Content: "self reply"})
	require.NoError(t, err)
	assert.Empty(t, f.mailer.sent(), "author replying to their own topic")

	_, err = f.svc.CreateReply(ctx, f.bob, topic.ID, forum.ReplyPayload{Content: "hello alice"})
	require.NoError(t, err)
	sent := f.mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "alice@test.cd", sent[0].To[0].Address)
	assert.Equal(t, "new_reply", sent[0].TemplateName)
	assert.Contains(t, sent[0].Subject, topic.Title)

	conf := core.NewTestConfig()
	conf.Forum.NotifyReplies = false
	g := setup(t, conf)
	_, _, topic = g.forumTree(t)
	_, err = g.svc.CreateReply(ctx, g.bob, topic.ID, forum.ReplyPayload{Content: "hello alice"})
	require.NoError(t, err)
	assert.Empty(t, g.mailer.sent())
}

func TestService_orphanedContentIsFrozen(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, topic := f.forumTree(t)
	require.NoError(t, f.usrRepo.DeleteUser(ctx, f.alice.ID))

	got, err := f.repo.GetTopic(ctx, topic.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AuthorID)

	_, err = f.svc.UpdateTopic(ctx, f.bob, topic.ID, forum.TopicPayload{Title: "Mine", Content: "now"})
	assert.Equal(t, forum.ErrUnauthorized, err)
	_, err = f.svc.DeleteTopic(ctx, f.alice, topic.ID)
	assert.Equal(t, forum.ErrUnauthorized, err)
}

func TestService_PurgeUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, _, aliceTopic := f.forumTree(t)
	bobTopic := testutil.CreateTopic(t, f.repo, aliceTopic.SubCategoryID, f.bob.ID, "Bob's", time.Now())
	bobReply := testutil.CreateReply(t, f.repo, bobTopic.ID, f.bob.ID, time.Now())
	aliceReply := testutil.CreateReply(t, f.repo, bobTopic.ID, f.alice.ID, time.Now())
	for _, r := range []forum.Reply{bobReply, aliceReply} {
		_, err := f.svc.ToggleVote(ctx, f.alice, r.ID)
		require.NoError(t, err)
		_, err = f.svc.ToggleVote(ctx, f.bob, r.ID)
		require.NoError(t, err)
	}

	usrSvc := user.NewService(f.usrRepo, f.svc, core.NewTestConfig())
	bob, err := usrSvc.GetByID(ctx, f.bob.ID)
	require.NoError(t, err)
	_, err = usrSvc.SetPassword(ctx, bob, "s3cr3t!PASS")
	require.NoError(t, err)

	err = usrSvc.DeleteAccount(ctx, f.bob.ID, user.DeleteAccount{Password: "s3cr3t!PASS", Purge: true})
	require.NoError(t, err)

	_, err = f.repo.GetTopic(ctx, bobTopic.ID)
	assert.Equal(t, forum.ErrNotFound, err, "purged topic")
	_, err = f.repo.GetTopic(ctx, aliceTopic.ID)
	assert.NoError(t, err)
	_, err = usrSvc.GetByID(ctx, f.bob.ID)
	assert.Equal(t, user.ErrNotFound, err)

	drifts, err := f.svc.ReconcileVotes(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, drifts)

	err = f.svc.PurgeUser(ctx, f.bob.ID)
	assert.Equal(t, forum.ErrUnknownUser, errors.Cause(err))
	_, err = f.repo.GetTopic(ctx, aliceTopic.ID)
	assert.NoError(t, err)
}
