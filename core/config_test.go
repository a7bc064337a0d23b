package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_defaults(t *testing.T) {
	t.Setenv("ENV", "")

	conf := NewConfig()
	assert.Equal(t, "DEV", conf.Env)
	assert.Equal(t, "Jukwaa", conf.AppName)
	assert.Equal(t, "localhost:4000", conf.Server.DebugHost)
	assert.Equal(t, 5*time.Second, conf.Server.ShutdownTimeout)
	assert.Equal(t, "Moderators", conf.Forum.ModeratorGroup)
	assert.Equal(t, 3, conf.Forum.VoteMaxRetries)
	assert.True(t, conf.Forum.NotifyReplies)
	assert.Equal(t, []string{"Alumni", "Visitors"}, conf.Forum.DashboardGroups)
}

func TestNewConfig_env(t *testing.T) {
	t.Setenv("ENV", "qa")
	t.Setenv("QA_APP_NAME", "Baraza")
	t.Setenv("QA_SECRET_KEY", "qa-secret")
	t.Setenv("QA_SERVER_PORT", "9000")
	t.Setenv("QA_SERVER_DEBUG_HOST", "0.0.0.0:4001")
	t.Setenv("QA_SERVER_SHUTDOWN_TIMEOUT", "12s")
	t.Setenv("QA_SERVER_DISABLE_REQ_LOGS", "true")
	t.Setenv("QA_DATABASE_ADMIN_USER", "root")
	t.Setenv("QA_DATABASE_DISABLE_TLS", "false")
	t.Setenv("QA_MODERATOR_GROUP", "Staff")
	t.Setenv("QA_VOTE_MAX_RETRIES", "7")
	t.Setenv("QA_NOTIFY_REPLIES", "false")
	t.Setenv("QA_DASHBOARD_GROUPS", " Alumni , Parents ")

	conf := NewConfig()
	assert.Equal(t, "QA", conf.Env)
	assert.Equal(t, "Baraza", conf.AppName)
	assert.Equal(t, "qa-secret", conf.SecretKey)
	assert.Equal(t, 9000, conf.Server.Port)
	assert.Equal(t, "0.0.0.0:4001", conf.Server.DebugHost)
	assert.Equal(t, 12*time.Second, conf.Server.ShutdownTimeout)
	assert.True(t, conf.Server.DisableReqLogs)
	assert.Equal(t, "root", conf.Database.AdminUser)
	assert.False(t, conf.Database.DisableTLS)
	assert.Equal(t, "Staff", conf.Forum.ModeratorGroup)
	assert.Equal(t, 7, conf.Forum.VoteMaxRetries)
	assert.False(t, conf.Forum.NotifyReplies)
	assert.Equal(t, []string{"Alumni", "Parents"}, conf.Forum.DashboardGroups)
}
