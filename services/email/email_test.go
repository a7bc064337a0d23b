package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"

	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/jukwaa/core"
	appfs "github.com/trezcool/jukwaa/fs"
)

func newReplyMessage() *core.EmailMessage {
	return &core.EmailMessage{
		To:           []mail.Address{{Name: "alice", Address: "alice@test.cd"}},
		Subject:      "New reply",
		TemplateName: "new_reply",
		TemplateData: map[string]interface{}{
			"AuthorName":  "alice",
			"ReplierName": "bob",
			"TopicTitle":  "Limits",
			"TopicID":     "t1",
			"Excerpt":     "Have you tried L'Hôpital?",
		},
	}
}

func TestConsoleServiceMock(t *testing.T) {
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf))
	svc := NewConsoleServiceMock(conf)

	svc.SendMessages(newReplyMessage(), &core.EmailMessage{Subject: "no recipients", BodyStr: "x"})

	sent := svc.SentMessages()
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0].TextContent, `bob replied to your topic "Limits"`)
	assert.Contains(t, sent[0].TextContent, "http://localhost:3000/topics/t1")
	assert.NotEmpty(t, sent[0].HTMLContent)

	svc.Reset()
	assert.Empty(t, svc.SentMessages())
}

func TestSendgridService_sendMessage(t *testing.T) {
	conf := core.NewTestConfig()
	require.NoError(t, core.ParseEmailTemplates(appfs.FS, appfs.EmailTemplatesDir, conf))

	var got map[string]interface{}
	svc := NewSendgridService(conf, nil).(*sendgridService)
	svc.api = func(req rest.Request) (*rest.Response, error) {
		assert.Equal(t, http.MethodPost, string(req.Method))
		require.NoError(t, json.Unmarshal(req.Body, &got))
		return &rest.Response{StatusCode: http.StatusAccepted}, nil
	}

	require.NoError(t, svc.sendMessage(newReplyMessage()))
	personalizations := got["personalizations"].([]interface{})
	assert.Equal(t, "[Jukwaa] New reply", personalizations[0].(map[string]interface{})["subject"])
	assert.Len(t, got["content"], 2)

	svc.api = func(rest.Request) (*rest.Response, error) {
		return &rest.Response{StatusCode: http.StatusUnauthorized, Body: "bad key"}, nil
	}
	assert.Error(t, svc.sendMessage(newReplyMessage()))
}
