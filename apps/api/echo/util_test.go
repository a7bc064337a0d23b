package echoapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/trezcool/jukwaa/core"
	"github.com/trezcool/jukwaa/core/blog"
	"github.com/trezcool/jukwaa/core/dashboard"
	"github.com/trezcool/jukwaa/core/forum"
	"github.com/trezcool/jukwaa/core/user"
	appfs "github.com/trezcool/jukwaa/fs"
	emailsvc "github.com/trezcool/jukwaa/services/email"
	logsvc "github.com/trezcool/jukwaa/services/logger"
	"github.com/trezcool/jukwaa/storage/database/dummy"
	"github.com/trezcool/jukwaa/tests"
)

const strongPassword = "Sup3r$ecretPwd"

var errMissingToken = echoErr{Error: "missing or malformed jwt"}

type echoErr struct {
	Error string `json:"error"`
}

type testApp struct {
	server    Server
	auth      *authenticator
	db        *dummydb.DB
	usrRepo   user.Repository
	forumRepo forum.Repository
	mailer    *emailsvc.ConsoleServiceMock

	// admin is a moderator, alice and bob are regular users
	admin, alice, bob user.User
}

func setup(t *testing.T) *testApp {
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf))

	db, err := dummydb.Open()
	require.NoError(t, err)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)
	logger := logsvc.NewRollbarLogger(zaptest.NewLogger(t), conf).Named("API")

	app := &testApp{
		db:        db,
		usrRepo:   dummydb.NewUserRepository(db),
		forumRepo: dummydb.NewForumRepository(db),
		mailer:    emailsvc.NewConsoleServiceMock(conf),
	}
	forumSvc := forum.NewService(forum.Deps{
		Repo:     app.forumRepo,
		Auditor:  dummydb.NewAuditor(db),
		Mailer:   app.mailer,
		Logger:   logger,
		Validate: validate,
		Conf:     conf,
	})
	usrSvc := user.NewService(app.usrRepo, forumSvc, conf)

	app.server = NewServer(ServerDeps{
		Conf:         conf,
		Logger:       logger,
		Validate:     validate,
		Translator:   translator,
		UserSvc:      usrSvc,
		Membership:   usrSvc,
		ForumSvc:     forumSvc,
		BlogSvc:      blog.NewService(dummydb.NewBlogRepository(db), validate, conf),
		DashboardSvc: dashboard.NewService(dummydb.NewStatsRepository(db), conf),
	})
	app.auth = newAuthenticator(conf, usrSvc, usrSvc)

	moderators := testutil.Group(t, app.usrRepo, conf.Forum.ModeratorGroup)
	app.admin = testutil.CreateUser(t, app.usrRepo, "admin", strongPassword, false, moderators)
	app.alice = testutil.CreateUser(t, app.usrRepo, "alice", strongPassword, false)
	app.bob = testutil.CreateUser(t, app.usrRepo, "bob", strongPassword, false)
	return app
}

func (app *testApp) getToken(t *testing.T, usr user.User) string {
	token, err := app.auth.GenerateToken(app.auth.userClaims(usr))
	require.NoError(t, err)
	return token
}

// do serves a request and returns the recorded response.
func (app *testApp) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	app.server.ServeHTTP(rec, req)
	return rec
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func (app *testApp) run(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, httptest.NewRecorder()
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	require.NoError(t, err)
	return data
}

func unmarshallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), obj), rec.Body.String())
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
	if tt.wantData != nil {
		assert.JSONEq(t, string(tt.wantData), rec.Body.String())
	}
}
