package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlack_OK(t *testing.T) {
	var got slackPayload
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	s := NewSlack(ts.URL, "#alerts", "AWS CloudWatch (DEV)")
	require.NotNil(t, s)
	err := s.Send(context.Background(), Message{
		Title:  "Title",
		Color:  ColorRed,
		Fields: []Field{{Title: "Region", Value: "ap-northeast-1", Short: true}},
		Link:   "https://console",
	})
	require.NoError(t, err)

	assert.Equal(t, "#alerts", got.Channel)
	assert.Equal(t, "AWS CloudWatch (DEV)", got.Username)
	require.Len(t, got.Attachments, 1)
	att := got.Attachments[0]
	assert.Equal(t, ColorRed, att.Color)
	assert.Equal(t, "Title", att.Title)
	assert.Equal(t, []slackField{{Title: "Region", Value: "ap-northeast-1", Short: true}}, att.Fields)
	require.Len(t, att.Actions, 1)
	assert.Equal(t, "https://console", att.Actions[0].URL)
}

func TestSlack_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(500)
	}))
	defer ts.Close()

	err := NewSlack(ts.URL, "", "").Send(context.Background(), Message{Title: "X"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}

func TestSlack_Disabled(t *testing.T) {
	assert.Nil(t, NewSlack("", "#c", "u"))
	var s *Slack
	assert.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoWebhook)
}
