package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/user"
	"github.com/trezcool/jukwaa/storage/database/dummy"
	"github.com/trezcool/jukwaa/tests"
)

type purger struct {
	purged []string
	err    error
}

func (p *purger) PurgeUser(_ context.Context, userID string) error {
	if p.err != nil {
		return p.err
	}
	p.purged = append(p.purged, userID)
	return nil
}

func setup(t *testing.T) (*user.Service, user.Repository, *purger) {
	db, err := dummydb.Open()
	require.NoError(t, err)
	repo := dummydb.NewUserRepository(db)
	p := new(purger)
	return user.NewService(repo, p, core.NewTestConfig()), repo, p
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	verr, ok := errors.Cause(err).(*core.ValidationError)
	require.True(t, ok, "want *core.ValidationError, got %T (%v)", err, err)
	require.NotEmpty(t, verr.Fields)
	return verr.Fields[0].Field
}

func TestService_Register(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	alumni := testutil.Group(t, repo, "Alumni")

	usr, err := svc.Register(ctx, user.NewUser{Username: "jane", Email: "jane@test.cd", Password: "x7#Kq!9zRt", GroupID: alumni.ID})
	require.NoError(t, err)
	assert.True(t, usr.IsActive)
	assert.False(t, usr.IsSuperuser)
	assert.Equal(t, []core.Group{alumni}, usr.Groups)
	assert.NoError(t, usr.CheckPassword("x7#Kq!9zRt"))

	_, err = svc.Register(ctx, user.NewUser{Username: "jane", Email: "other@test.cd", Password: "x7#Kq!9zRt"})
	assert.Equal(t, "username", fieldOf(t, err))
	_, err = svc.Register(ctx, user.NewUser{Username: "other", Email: "jane@test.cd", Password: "x7#Kq!9zRt"})
	assert.Equal(t, "email", fieldOf(t, err))
	_, err = svc.Register(ctx, user.NewUser{Username: "other", Email: "other@test.cd", Password: "x7#Kq!9zRt", GroupID: "2c5ea4c0-4067-11e9-8bad-9b1deb4d3b7d"})
	assert.Equal(t, "group_id", fieldOf(t, err))
}

func TestService_Register_moderatorGroup(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	moderators := testutil.Group(t, repo, core.NewTestConfig().Forum.ModeratorGroup)

	_, err := svc.Register(ctx, user.NewUser{Username: "jane", Email: "jane@test.cd", Password: "x7#Kq!9zRt", GroupID: moderators.ID})
	assert.Equal(t, "group_id", fieldOf(t, err))
	_, err = svc.GetByUsernameOrEmail(ctx, "jane")
	assert.Equal(t, user.ErrNotFound, err)

	// membership is still granted explicitly
	usr, err := svc.Register(ctx, user.NewUser{Username: "jane", Email: "jane@test.cd", Password: "x7#Kq!9zRt"})
	require.NoError(t, err)
	require.NoError(t, svc.AddToGroup(ctx, usr.ID, moderators.ID))
	usr, err = svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, usr.InGroup(moderators.Name))
}

func TestService_Authenticate(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "jane", "s3cr3t", false)
	assert.Nil(t, usr.LastLogin)

	_, err := svc.Authenticate(ctx, "nobody", "s3cr3t")
	assert.Equal(t, user.ErrInvalidCredentials, err)
	_, err = svc.Authenticate(ctx, "jane", "wrong")
	assert.Equal(t, user.ErrInvalidCredentials, err)

	got, err := svc.Authenticate(ctx, " JANE@test.cd ", "s3cr3t")
	require.NoError(t, err)
	assert.Equal(t, usr.ID, got.ID)
	assert.NotNil(t, got.LastLogin)

	usr.IsActive = false
	_, err = svc.Save(ctx, usr)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "jane", "s3cr3t")
	assert.Equal(t, user.ErrAccountDeactivated, err)
	_, err = svc.Identity(ctx, usr.ID)
	assert.Equal(t, user.ErrAccountDeactivated, err)
}

func TestService_Identity(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	mods := testutil.Group(t, repo, "Moderators")

	usr := testutil.CreateUser(t, repo, "jane", "", false)
	require.NoError(t, svc.AddToGroup(ctx, usr.ID, mods.ID))

	identity, err := svc.Identity(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, identity.ID)
	assert.True(t, identity.InGroup("Moderators"))

	groups, err := svc.UserGroups(ctx, usr.ID)
	require.NoError(t, err)
	assert.Equal(t, []core.Group{mods}, groups)

	require.NoError(t, svc.RemoveFromGroup(ctx, usr.ID, mods.ID))
	identity, err = svc.Identity(ctx, usr.ID)
	require.NoError(t, err)
	assert.Empty(t, identity.Groups)

	_, err = svc.Identity(ctx, "nope")
	assert.Equal(t, user.ErrNotFound, err)
}

func TestService_UpdateProfile(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "jane", "", false)
	testutil.CreateUser(t, repo, "john", "", false)

	taken := "john@test.cd"
	_, err := svc.UpdateProfile(ctx, usr.ID, user.UpdateProfile{Email: &taken})
	assert.Equal(t, "email", fieldOf(t, err))

	email, bio := "jane@new.cd", "maths teacher"
	got, err := svc.UpdateProfile(ctx, usr.ID, user.UpdateProfile{Email: &email, Bio: &bio})
	require.NoError(t, err)
	assert.Equal(t, email, got.Email)
	assert.Equal(t, bio, got.Bio)

	got, err = svc.UpdateProfile(ctx, usr.ID, user.UpdateProfile{})
	require.NoError(t, err)
	assert.Equal(t, email, got.Email, "unset fields are kept")
}

func TestService_Query(t *testing.T) {
	svc, repo, _ := setup(t)
	ctx := context.Background()
	alumni := testutil.Group(t, repo, "Alumni")

	testutil.CreateUser(t, repo, "carol", "", false, alumni)
	testutil.CreateUser(t, repo, "alice", "", false)
	testutil.CreateUser(t, repo, "bob", "", false, alumni)

	usernames := func(users []user.User) []string {
		out := make([]string, 0, len(users))
		for _, u := range users {
			out = append(out, u.Username)
		}
		return out
	}

	users, err := svc.Query(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob", "carol"}, usernames(users))

	users, err = svc.Query(ctx, nil, core.ParseOrdering("-username", user.OrderingFields...))
	require.NoError(t, err)
	assert.Equal(t, []string{"carol", "bob", "alice"}, usernames(users))

	users, err = svc.Query(ctx, &user.QueryFilter{Group: "Alumni"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob", "carol"}, usernames(users))

	users, err = svc.Query(ctx, &user.QueryFilter{Search: "AL"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, usernames(users))
}

func TestService_Groups(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	grp, err := svc.CreateGroup(ctx, user.NewGroup{Name: "Teachers"})
	require.NoError(t, err)
	assert.NotEmpty(t, grp.ID)

	_, err = svc.CreateGroup(ctx, user.NewGroup{Name: "Teachers"})
	assert.Equal(t, "name", fieldOf(t, err))

	got, err := svc.GroupByName(ctx, "Teachers")
	require.NoError(t, err)
	assert.Equal(t, grp, got)
	_, err = svc.GroupByName(ctx, "Nope")
	assert.Equal(t, user.ErrGroupNotFound, err)

	groups, err := svc.ListGroups(ctx)
	require.NoError(t, err)
	assert.Len(t, groups, 4) // seeded + Teachers

	assert.Equal(t, user.ErrNotFound, svc.AddToGroup(ctx, "nope", grp.ID))
	assert.Equal(t, user.ErrGroupNotFound, svc.AddToGroup(ctx, "nope", "nope"))
}

func TestService_DeleteAccount(t *testing.T) {
	svc, repo, p := setup(t)
	ctx := context.Background()

	jane := testutil.CreateUser(t, repo, "jane", "s3cr3t", false)
	john := testutil.CreateUser(t, repo, "john", "s3cr3t", false)

	err := svc.DeleteAccount(ctx, jane.ID, user.DeleteAccount{Password: "wrong"})
	assert.Equal(t, "password", fieldOf(t, err))

	require.NoError(t, svc.DeleteAccount(ctx, jane.ID, user.DeleteAccount{Password: "s3cr3t"}))
	assert.Empty(t, p.purged)
	_, err = svc.GetByID(ctx, jane.ID)
	assert.Equal(t, user.ErrNotFound, err)

	require.NoError(t, svc.DeleteAccount(ctx, john.ID, user.DeleteAccount{Password: "s3cr3t", Purge: true}))
	assert.Equal(t, []string{john.ID}, p.purged)
}

func TestService_DeleteAccount_purgeFails(t *testing.T) {
	svc, repo, p := setup(t)
	ctx := context.Background()
	p.err = errors.New("connection reset")

	jane := testutil.CreateUser(t, repo, "jane", "s3cr3t", false)
	err := svc.DeleteAccount(ctx, jane.ID, user.DeleteAccount{Password: "s3cr3t", Purge: true})
	assert.Equal(t, p.err, errors.Cause(err))

	// the account is left alone
	got, err := svc.GetByID(ctx, jane.ID)
	require.NoError(t, err)
	assert.True(t, got.IsActive)
}
