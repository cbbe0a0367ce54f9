// Command genai-lambda serves the question API from AWS Lambda, behind API
// Gateway or by direct invocation.
package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/config"
	"github.com/hamed0406/infraprobe/internal/genai"
	"github.com/hamed0406/infraprobe/internal/httpapi"
	apimw "github.com/hamed0406/infraprobe/internal/httpapi/middleware"
	"github.com/hamed0406/infraprobe/internal/logging"
)

func main() {
	cfg := config.FromEnv()
	logger, err := logging.NewLogger(logging.Options{Name: "genai-lambda", Level: cfg.Level})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	assistant, dataAPI, err := genai.FromConfig(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("genai_setup_failed", zap.Error(err))
	}

	api := httpapi.NewServer(logger, assistant, nil)
	api.Service = "genai-lambda"
	api.DataAPI = dataAPI

	// API Gateway already throttles; keys still apply when configured.
	keys := apimw.Keys{Public: cfg.PublicAPIKeys, Admin: cfg.AdminAPIKeys}
	h := &httpapi.LambdaHandler{
		Logger:    logger,
		Router:    api.Router(keys, nil, 0, 0),
		Assistant: assistant,
	}
	lambda.Start(h.Invoke)
}
