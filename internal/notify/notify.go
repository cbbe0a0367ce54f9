package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/multierr"
)

// ErrNoWebhook means no notification channel is configured at all.
var ErrNoWebhook = errors.New("no webhook configured")

// DefaultTimeout bounds every webhook POST. Deliveries are not retried.
const DefaultTimeout = 10 * time.Second

const (
	ColorRed    = "#FF0000"
	ColorGreen  = "#00FF00"
	ColorOrange = "#FFA500"
)

type Field struct {
	Title string
	Value string
	Short bool
}

// Message is a channel-neutral notification; each sender renders it in its
// own payload format.
type Message struct {
	Title     string
	Text      string
	Color     string
	Fields    []Field
	Link      string // optional "open in console" target
	LinkText  string
	Footer    string
	Timestamp time.Time
}

type Notifier interface {
	Send(ctx context.Context, m Message) error
}

// Multi fans a message out to every notifier. One failing channel does not
// stop the others; all errors are returned combined.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, msg Message) error {
	var err error
	for _, n := range m {
		if n == nil {
			continue
		}
		err = multierr.Append(err, n.Send(ctx, msg))
	}
	return err
}

// FromWebhooks builds a Multi from whichever webhooks are set.
func FromWebhooks(slackURL, slackChannel, username, teamsURL string) (Multi, error) {
	var m Multi
	if s := NewSlack(slackURL, slackChannel, username); s != nil {
		m = append(m, s)
	}
	if t := NewTeams(teamsURL); t != nil {
		m = append(m, t)
	}
	if len(m) == 0 {
		return nil, ErrNoWebhook
	}
	return m, nil
}

func postJSON(ctx context.Context, client *http.Client, channel, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode payload: %w", channel, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", channel, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%s: non-2xx response: %d", channel, resp.StatusCode)
	}
	return nil
}
