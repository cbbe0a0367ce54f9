// Command alarm-notifier forwards CloudWatch alarm notifications delivered
// through SNS to Slack and Microsoft Teams.
package main

import (
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/config"
	"github.com/hamed0406/infraprobe/internal/logging"
	"github.com/hamed0406/infraprobe/internal/notify"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(logging.Options{Name: "alarm-notifier", Level: cfg.Level})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	notifier, err := notify.FromWebhooks(cfg.SlackWebhookURL, cfg.SlackChannel, "AWS CloudWatch", cfg.TeamsWebhookURL)
	if err != nil {
		logger.Fatal("notifier_config_error",
			zap.Error(err),
			zap.String("hint", "set SLACK_WEBHOOK_URL and/or TEAMS_WEBHOOK_URL"),
		)
	}

	h := &notify.AlarmHandler{
		Logger:   logger,
		Notifier: notifier,
		Env:      cfg.Environment,
		Project:  cfg.ProjectName,
	}
	lambda.Start(h.Handle)
}
