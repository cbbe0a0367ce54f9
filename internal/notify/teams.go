package notify

import (
	"context"
	"net/http"
	"strings"
)

// Teams posts legacy Office 365 connector MessageCards.
type Teams struct {
	Webhook string
	Client  *http.Client
}

func NewTeams(webhook string) *Teams {
	if webhook == "" {
		return nil
	}
	return &Teams{
		Webhook: webhook,
		Client:  &http.Client{Timeout: DefaultTimeout},
	}
}

type teamsFact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type teamsSection struct {
	ActivityTitle string      `json:"activityTitle"`
	ActivityText  string      `json:"activityText,omitempty"`
	Facts         []teamsFact `json:"facts,omitempty"`
	Markdown      bool        `json:"markdown"`
}

type teamsTarget struct {
	OS  string `json:"os"`
	URI string `json:"uri"`
}

type teamsAction struct {
	Type    string        `json:"@type"`
	Name    string        `json:"name"`
	Targets []teamsTarget `json:"targets"`
}

type teamsCard struct {
	Type            string         `json:"@type"`
	Context         string         `json:"@context"`
	ThemeColor      string         `json:"themeColor"`
	Summary         string         `json:"summary"`
	Sections        []teamsSection `json:"sections"`
	PotentialAction []teamsAction  `json:"potentialAction,omitempty"`
}

func (t *Teams) payload(m Message) teamsCard {
	sec := teamsSection{ActivityTitle: m.Title, ActivityText: m.Text, Markdown: true}
	for _, f := range m.Fields {
		sec.Facts = append(sec.Facts, teamsFact{Name: f.Title, Value: f.Value})
	}
	card := teamsCard{
		Type:       "MessageCard",
		Context:    "http://schema.org/extensions",
		ThemeColor: strings.TrimPrefix(m.Color, "#"),
		Summary:    m.Title,
		Sections:   []teamsSection{sec},
	}
	if m.Link != "" {
		card.PotentialAction = []teamsAction{{
			Type:    "OpenUri",
			Name:    m.LinkText,
			Targets: []teamsTarget{{OS: "default", URI: m.Link}},
		}}
	}
	return card
}

func (t *Teams) Send(ctx context.Context, m Message) error {
	if t == nil || t.Webhook == "" {
		return ErrNoWebhook
	}
	return postJSON(ctx, t.Client, "teams", t.Webhook, t.payload(m))
}
