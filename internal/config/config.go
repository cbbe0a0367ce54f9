package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

const (
	DefaultRegion  = "ap-northeast-1"
	DefaultModelID = "anthropic.claude-3-haiku-20240307-v1:0"
)

type Config struct {
	Addr   string // genai API bind address, e.g. "127.0.0.1:8080" or ":8080" (Docker)
	LogDir string // empty logs to stdout only
	Level  string

	PublicAPIKeys []string
	AdminAPIKeys  []string
	PublicRPM     int
	PublicBurst   int

	Region         string
	BedrockRegion  string
	BedrockModelID string

	DBClusterARN string
	DBSecretARN  string
	DBName       string
	DatabaseURL  string // history store; empty means in-memory

	SlackWebhookURL string
	SlackChannel    string
	TeamsWebhookURL string

	Environment string
	ProjectName string

	AlertCooldown   time.Duration
	AlertOnRecovery bool
}

func FromEnv() Config {
	region := env("AWS_REGION", DefaultRegion)
	return Config{
		Addr:   env("API_ADDR", "127.0.0.1:8080"),
		LogDir: os.Getenv("LOG_DIR"),
		Level:  env("LOG_LEVEL", "info"),

		PublicAPIKeys: list("PUBLIC_API_KEYS"),
		AdminAPIKeys:  list("ADMIN_API_KEYS"),
		PublicRPM:     intEnv("PUBLIC_RPM", 60),
		PublicBurst:   intEnv("PUBLIC_BURST", 20),

		Region:         region,
		BedrockRegion:  env("BEDROCK_REGION", region),
		BedrockModelID: env("BEDROCK_MODEL_ID", DefaultModelID),

		DBClusterARN: os.Getenv("DB_CLUSTER_ARN"),
		DBSecretARN:  os.Getenv("DB_SECRET_ARN"),
		DBName:       env("DB_NAME", "petclinic"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),

		SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		SlackChannel:    os.Getenv("SLACK_CHANNEL"),
		TeamsWebhookURL: os.Getenv("TEAMS_WEBHOOK_URL"),

		Environment: env("ENVIRONMENT", "dev"),
		ProjectName: env("PROJECT_NAME", "petclinic"),

		AlertCooldown:   time.Duration(intEnv("ALERT_COOLDOWN_MS", 15*60*1000)) * time.Millisecond,
		AlertOnRecovery: boolEnv("ALERT_ON_RECOVERY", true),
	}
}

// AWS loads the shared AWS configuration (env, profile, IMDS) pinned to
// region.
func AWS(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func list(key string) []string {
	var out []string
	for _, p := range strings.Split(os.Getenv(key), ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return def
}

func boolEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
