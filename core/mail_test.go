package core

import (
	"net/mail"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appfs "github.com/trezcool/jukwaa/fs"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := NewTestConfig()
	require.NoError(t, ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf))

	msg := &EmailMessage{
		To:           []mail.Address{{Address: "jane@test.io"}},
		Subject:      "New reply",
		TemplateName: "new_reply",
		TemplateData: struct {
			AuthorName, ReplierName, TopicTitle, TopicID, Excerpt string
		}{"jane", "joe", "Go modules", "t1", "have you tried go mod tidy?"},
	}
	require.NoError(t, msg.Render())
	assert.True(t, msg.HasContent())
	assert.True(t, strings.Contains(msg.TextContent, `joe replied to your topic "Go modules"`))
	assert.True(t, strings.Contains(msg.TextContent, conf.FrontendBaseURL+"/topics/t1"))
	assert.True(t, strings.Contains(msg.HTMLContent, "<strong>joe</strong>"))

	plain := &EmailMessage{BodyStr: "hello"}
	require.NoError(t, plain.Render())
	assert.Equal(t, "hello", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)

	unknown := &EmailMessage{TemplateName: "nope"}
	require.NoError(t, unknown.Render())
	assert.False(t, unknown.HasContent())
}
