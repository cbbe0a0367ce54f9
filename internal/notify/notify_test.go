package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type recorder struct {
	got []Message
	err error
}

func (r *recorder) Send(_ context.Context, m Message) error {
	r.got = append(r.got, m)
	return r.err
}

func TestMulti_SendsToAllAndCombinesErrors(t *testing.T) {
	a := &recorder{err: errors.New("a down")}
	b := &recorder{}
	c := &recorder{err: errors.New("c down")}

	err := Multi{a, nil, b, c}.Send(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1)
	assert.Len(t, c.got, 1)

	assert.NoError(t, Multi{b}.Send(context.Background(), Message{}))
}

func TestFromWebhooks(t *testing.T) {
	_, err := FromWebhooks("", "", "", "")
	assert.ErrorIs(t, err, ErrNoWebhook)

	m, err := FromWebhooks("https://hooks.slack", "#c", "u", "https://teams")
	require.NoError(t, err)
	assert.Len(t, m, 2)

	m, err = FromWebhooks("", "", "", "https://teams")
	require.NoError(t, err)
	require.Len(t, m, 1)
	_, isTeams := m[0].(*Teams)
	assert.True(t, isTeams)
}

func TestTeams_MessageCard(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(200)
	}))
	defer ts.Close()

	err := NewTeams(ts.URL).Send(context.Background(), Message{
		Title:    "🚨 Alarm triggered: cpu-high",
		Color:    ColorRed,
		Fields:   []Field{{Title: "Region", Value: "eu-west-1"}},
		Link:     "https://console",
		LinkText: "Open",
	})
	require.NoError(t, err)

	assert.Equal(t, "MessageCard", got["@type"])
	assert.Equal(t, "FF0000", got["themeColor"])
	sections := got["sections"].([]any)
	require.Len(t, sections, 1)
	facts := sections[0].(map[string]any)["facts"].([]any)
	assert.Equal(t, "eu-west-1", facts[0].(map[string]any)["value"])
	actions := got["potentialAction"].([]any)
	assert.Equal(t, "OpenUri", actions[0].(map[string]any)["@type"])
}

func TestTeams_Non2xx(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()
	assert.Error(t, NewTeams(ts.URL).Send(context.Background(), Message{Title: "x"}))
}
