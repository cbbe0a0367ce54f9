package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Alarm is the CloudWatch alarm state-change document SNS delivers.
type Alarm struct {
	AlarmName        string  `json:"AlarmName"`
	AlarmDescription string  `json:"AlarmDescription"`
	NewStateValue    string  `json:"NewStateValue"`
	OldStateValue    string  `json:"OldStateValue"`
	NewStateReason   string  `json:"NewStateReason"`
	StateChangeTime  string  `json:"StateChangeTime"`
	Region           string  `json:"Region"`
	AlarmArn         string  `json:"AlarmArn"`
	Trigger          Trigger `json:"Trigger"`
}

type Trigger struct {
	MetricName         string  `json:"MetricName"`
	Namespace          string  `json:"Namespace"`
	Threshold          float64 `json:"Threshold"`
	ComparisonOperator string  `json:"ComparisonOperator"`
}

// ParseAlarm decodes an SNS message body.
func ParseAlarm(snsMessage string) (Alarm, error) {
	var a Alarm
	if err := json.Unmarshal([]byte(snsMessage), &a); err != nil {
		return Alarm{}, fmt.Errorf("decode alarm: %w", err)
	}
	if a.AlarmName == "" && a.NewStateValue == "" {
		return Alarm{}, errors.New("decode alarm: not a CloudWatch alarm notification")
	}
	if a.AlarmName == "" {
		a.AlarmName = "Unknown Alarm"
	}
	if a.NewStateValue == "" {
		a.NewStateValue = "UNKNOWN"
	}
	if a.OldStateValue == "" {
		a.OldStateValue = "UNKNOWN"
	}
	// SNS carries a display name such as "US West (Oregon)"; the ARN has the code
	if a.Region == "" || strings.Contains(a.Region, " ") {
		if r := regionFromARN(a.AlarmArn); r != "" {
			a.Region = r
		}
	}
	return a, nil
}

// arn:aws:cloudwatch:<region>:<account>:alarm:<name>
func regionFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) > 3 {
		return parts[3]
	}
	return ""
}

// ChangedAt parses StateChangeTime; CloudWatch uses a +0000 style offset.
func (a Alarm) ChangedAt() (time.Time, bool) {
	for _, layout := range []string{"2006-01-02T15:04:05.000-0700", time.RFC3339Nano} {
		if t, err := time.Parse(layout, a.StateChangeTime); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ConsoleURL links to the alarm in the CloudWatch console.
func (a Alarm) ConsoleURL() string {
	if a.Region == "" {
		return ""
	}
	return fmt.Sprintf("https://%s.console.aws.amazon.com/cloudwatch/home?region=%s#alarmsV2:alarm/%s",
		a.Region, a.Region, url.PathEscape(a.AlarmName))
}

func (a Alarm) severity() (color, emoji, label string) {
	switch a.NewStateValue {
	case "ALARM":
		return ColorRed, "🚨", "Alarm triggered"
	case "OK":
		return ColorGreen, "✅", "Recovered"
	default:
		return ColorOrange, "⚠️", "Insufficient data"
	}
}

// Message renders the alarm for the given environment and project.
func (a Alarm) Message(env, project string) Message {
	color, emoji, label := a.severity()

	when := a.StateChangeTime
	if t, ok := a.ChangedAt(); ok {
		when = t.Format("2006-01-02 15:04:05 UTC")
	}
	desc := a.AlarmDescription
	if desc == "" {
		desc = "No description"
	}

	fields := []Field{
		{Title: "Project", Value: strings.ToUpper(project), Short: true},
		{Title: "Environment", Value: strings.ToUpper(env), Short: true},
		{Title: "Region", Value: a.Region, Short: true},
		{Title: "State change", Value: a.OldStateValue + " → " + a.NewStateValue, Short: true},
		{Title: "Description", Value: desc},
		{Title: "Reason", Value: a.NewStateReason},
		{Title: "Time", Value: when},
	}
	if a.Trigger.MetricName != "" {
		fields = append(fields, Field{
			Title: "Metric",
			Value: fmt.Sprintf("%s/%s %s %g", a.Trigger.Namespace, a.Trigger.MetricName,
				a.Trigger.ComparisonOperator, a.Trigger.Threshold),
		})
	}

	m := Message{
		Title:     fmt.Sprintf("%s %s: %s", emoji, label, a.AlarmName),
		Color:     color,
		Fields:    fields,
		Footer:    "AWS CloudWatch",
		Timestamp: time.Now(),
	}
	if a.NewStateValue == "ALARM" {
		m.Link = a.ConsoleURL()
		m.LinkText = "Open CloudWatch console"
	}
	return m
}
