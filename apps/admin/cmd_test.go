package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	"github.com/trezcool/jukwaa/storage/database/dummy"
	"github.com/trezcool/jukwaa/tests"
)

type fixture struct {
	cli       *commandLine
	db        *dummydb.DB
	usrRepo   user.Repository
	forumRepo forum.Repository
	out       *bytes.Buffer
}

func setup(t *testing.T) *fixture {
	db, err := dummydb.Open()
	require.NoError(t, err)

	conf := core.NewTestConfig()
	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	f := &fixture{
		db:        db,
		usrRepo:   dummydb.NewUserRepository(db),
		forumRepo: dummydb.NewForumRepository(db),
		out:       new(bytes.Buffer),
	}
	forumSvc := forum.NewService(forum.Deps{
		Repo:     f.forumRepo,
		Auditor:  dummydb.NewAuditor(db),
		Validate: validate,
		Conf:     conf,
	})
	f.cli = &commandLine{
		usrSvc:   user.NewService(f.usrRepo, forumSvc, conf),
		forumSvc: forumSvc,
		validate: validate,
		out:      f.out,
	}
	return f
}

// mockPassword makes the password prompt return pwd.
func mockPassword(t *testing.T, pwd string) {
	orig := readPasswordFunc
	readPasswordFunc = func(int) ([]byte, error) { return []byte(pwd), nil }
	t.Cleanup(func() { readPasswordFunc = orig })
}

type cliTest struct {
	name       string
	args       []string // without program name
	pwd        string
	wantErr    error
	wantErrStr string
}

func (f *fixture) run(t *testing.T, tests []cliTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			mockPassword(t, tt.pwd)
			err := f.cli.run(append([]string{"admin"}, tt.args...))
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			case tt.wantErrStr != "":
				if assert.Error(t, err) {
					assert.Equal(t, tt.wantErrStr, err.Error())
				}
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_migrate(t *testing.T) {
	f := setup(t)

	orig := gooseRunFunc
	t.Cleanup(func() { gooseRunFunc = orig })
	gooseRunFunc = func(db *sql.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	f.run(t, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "add_bookmarks", "sql"}},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	f.run(t, []cliTest{
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "root"}, pwd: "x", wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "root", "-email", "root@test.cd"}, wantErr: errHelp},
		{name: "unknown group", args: []string{"adduser", "-username", "root", "-email", "root@test.cd", "-group", "Nope"}, pwd: "x", wantErr: user.ErrGroupNotFound},
		{name: "create", args: []string{"adduser", "-username", "Root", "-email", "root@test.cd", "-superuser"}, pwd: "weak"},
		{name: "update", args: []string{"adduser", "-username", "root", "-email", "admin@test.cd", "-group", "Moderators"}, pwd: "weaker"},
		{name: "create moderator", args: []string{"adduser", "-username", "mod", "-email", "mod@test.cd", "-group", "Moderators"}, pwd: "x"},
	})

	usr, err := f.usrRepo.GetUser(ctx, user.GetFilter{Username: "root"})
	require.NoError(t, err)
	assert.Equal(t, "admin@test.cd", usr.Email)
	assert.True(t, usr.IsSuperuser)
	assert.True(t, usr.IsActive)
	assert.True(t, usr.InGroup("Moderators"))
	assert.NoError(t, usr.CheckPassword("weaker"))
	assert.Contains(t, f.out.String(), `user "root" created`)
	assert.Contains(t, f.out.String(), `user "root" updated`)

	mod, err := f.usrRepo.GetUser(ctx, user.GetFilter{Username: "mod"})
	require.NoError(t, err)
	assert.True(t, mod.InGroup("Moderators"))
	assert.False(t, mod.IsSuperuser)
}

func Test_commandLine_addGroup(t *testing.T) {
	f := setup(t)

	f.run(t, []cliTest{
		{name: "no name", args: []string{"addgroup"}, wantErr: errHelp},
		{name: "create", args: []string{"addgroup", "-name", "Teachers"}},
		{name: "duplicate", args: []string{"addgroup", "-name", "Teachers"}, wantErrStr: user.ErrGroupExists.Error()},
	})

	testutil.Group(t, f.usrRepo, "Teachers")
}

func Test_commandLine_resetPassword(t *testing.T) {
	f := setup(t)
	usr := testutil.CreateUser(t, f.usrRepo, "awe", "Old#Passw0rd", false)

	f.run(t, []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, pwd: "lol", wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, pwd: "lol"},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, pwd: "lmao"},
	})

	refreshed, err := f.usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.NoError(t, refreshed.CheckPassword("lmao"))
}

func Test_commandLine_reconcileVotes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, f.usrRepo, "awe", "", false)
	class := testutil.CreateClass(t, f.forumRepo, "Algebra", true, nil, nil)
	sub := testutil.CreateSubCategory(t, f.forumRepo, class.ID, "General")
	topic := testutil.CreateTopic(t, f.forumRepo, sub.ID, usr.ID, "Hello", time.Now())
	reply := testutil.CreateReply(t, f.forumRepo, topic.ID, usr.ID, time.Now())
	_, err := f.forumRepo.ToggleVote(ctx, usr.ID, reply.ID)
	require.NoError(t, err)
	require.True(t, f.db.SetReplyVoteCount(reply.ID, 4))

	f.run(t, []cliTest{{name: "report", args: []string{"reconcilevotes"}}})
	assert.True(t, strings.Contains(f.out.String(), reply.ID))
	got, err := f.forumRepo.GetReply(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.VoteCount)

	f.run(t, []cliTest{{name: "fix", args: []string{"reconcilevotes", "-fix"}}})
	assert.Contains(t, f.out.String(), "1 counters repaired")
	got, err = f.forumRepo.GetReply(ctx, reply.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.VoteCount)

	f.out.Reset()
	f.run(t, []cliTest{{name: "no drift", args: []string{"reconcilevotes"}}})
	assert.Equal(t, "no drift\n", f.out.String())
}
