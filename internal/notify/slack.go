package notify

import (
	"context"
	"net/http"
)

type Slack struct {
	Webhook  string
	Channel  string
	Username string
	Client   *http.Client
}

func NewSlack(webhook, channel, username string) *Slack {
	if webhook == "" {
		return nil
	}
	return &Slack{
		Webhook:  webhook,
		Channel:  channel,
		Username: username,
		Client:   &http.Client{Timeout: DefaultTimeout},
	}
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type slackAction struct {
	Type string `json:"type"`
	Text string `json:"text"`
	URL  string `json:"url"`
}

type slackAttachment struct {
	Color      string        `json:"color"`
	Title      string        `json:"title"`
	Text       string        `json:"text,omitempty"`
	Fields     []slackField  `json:"fields,omitempty"`
	Footer     string        `json:"footer,omitempty"`
	FooterIcon string        `json:"footer_icon,omitempty"`
	Ts         int64         `json:"ts,omitempty"`
	Actions    []slackAction `json:"actions,omitempty"`
}

type slackPayload struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments"`
}

func (s *Slack) payload(m Message) slackPayload {
	att := slackAttachment{
		Color:  m.Color,
		Title:  m.Title,
		Text:   m.Text,
		Footer: m.Footer,
	}
	if m.Footer == "AWS CloudWatch" {
		att.FooterIcon = "https://aws.amazon.com/favicon.ico"
	}
	if !m.Timestamp.IsZero() {
		att.Ts = m.Timestamp.Unix()
	}
	for _, f := range m.Fields {
		att.Fields = append(att.Fields, slackField(f))
	}
	if m.Link != "" {
		att.Actions = []slackAction{{Type: "button", Text: m.LinkText, URL: m.Link}}
	}
	return slackPayload{
		Channel:     s.Channel,
		Username:    s.Username,
		IconEmoji:   ":warning:",
		Text:        m.Title, // fallback for clients without attachments
		Attachments: []slackAttachment{att},
	}
}

func (s *Slack) Send(ctx context.Context, m Message) error {
	if s == nil || s.Webhook == "" {
		return ErrNoWebhook
	}
	return postJSON(ctx, s.Client, "slack", s.Webhook, s.payload(m))
}
