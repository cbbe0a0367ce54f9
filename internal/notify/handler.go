package notify

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/metrics"
)

// Response is the Lambda invocation result.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// AlarmHandler forwards CloudWatch alarms arriving through SNS.
type AlarmHandler struct {
	Logger   *zap.Logger
	Notifier Notifier
	Env      string
	Project  string
}

type handlerSummary struct {
	Sent    int `json:"sent"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Handle sends one message per SNS record. Records that are not alarms are
// logged and skipped. The error return is always nil so SNS does not
// redeliver a batch that was partly sent.
func (h *AlarmHandler) Handle(ctx context.Context, ev events.SNSEvent) (Response, error) {
	var sum handlerSummary
	for _, rec := range ev.Records {
		if rec.EventSource != "" && rec.EventSource != "aws:sns" {
			sum.Skipped++
			continue
		}
		alarm, err := ParseAlarm(rec.SNS.Message)
		if err != nil {
			h.Logger.Warn("alarm_parse_error", zap.String("message_id", rec.SNS.MessageID), zap.Error(err))
			sum.Skipped++
			continue
		}

		err = h.Notifier.Send(ctx, alarm.Message(h.Env, h.Project))
		metrics.RecordNotification("alarm", err)
		if err != nil {
			h.Logger.Error("alarm_send_error",
				zap.String("alarm", alarm.AlarmName),
				zap.String("state", alarm.NewStateValue),
				zap.Error(err),
			)
			sum.Failed++
			continue
		}
		h.Logger.Info("alarm_sent",
			zap.String("alarm", alarm.AlarmName),
			zap.String("state", alarm.NewStateValue),
		)
		sum.Sent++
	}

	status := http.StatusOK
	if sum.Failed > 0 {
		status = http.StatusBadGateway
	}
	body, _ := json.Marshal(sum)
	return Response{StatusCode: status, Body: string(body)}, nil
}
