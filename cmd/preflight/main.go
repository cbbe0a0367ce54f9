// cmd/preflight/main.go
package main

import (
	"fmt"
	"os"
	"strings"
)

func main() {
	failed := false
	fail := func(msg string) {
		fmt.Fprintln(os.Stderr, "✖", msg)
		failed = true
	}
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }
	get := func(k string) string { return strings.TrimSpace(os.Getenv(k)) }

	region := get("AWS_REGION")
	if region == "" {
		warn("AWS_REGION is empty; ap-northeast-1 will be used.")
	} else {
		ok("AWS_REGION=" + region)
	}
	if get("AWS_PROFILE") == "" && get("AWS_ACCESS_KEY_ID") == "" && get("AWS_WEB_IDENTITY_TOKEN_FILE") == "" {
		warn("no AWS_PROFILE, access key or web identity set; relying on instance/task role credentials.")
	}

	// genai
	if get("BEDROCK_MODEL_ID") == "" {
		warn("BEDROCK_MODEL_ID empty; the default Claude 3 Haiku model will be used.")
	}
	cluster, secret := get("DB_CLUSTER_ARN"), get("DB_SECRET_ARN")
	switch {
	case cluster != "" && secret != "":
		ok("RDS Data API configured")
	case cluster != "" || secret != "":
		fail("set both DB_CLUSTER_ARN and DB_SECRET_ARN, or neither.")
	default:
		warn("DB_CLUSTER_ARN/DB_SECRET_ARN empty; database questions fall back to general advice.")
	}

	// API keys (genai-api)
	admin, pub := get("ADMIN_API_KEYS"), get("PUBLIC_API_KEYS")
	if pub == "" {
		warn("PUBLIC_API_KEYS is empty; POST /genai is open to anyone who can reach it.")
	}
	if admin == "" {
		warn("ADMIN_API_KEYS is empty; /api/results is unauthenticated.")
	}
	// Normalize and sanity-check lists (no spaces around commas).
	for name, v := range map[string]string{"ADMIN_API_KEYS": admin, "PUBLIC_API_KEYS": pub} {
		if strings.Contains(v, " ") {
			warn(name + " contains spaces; use comma-separated with no spaces, e.g. key1,key2")
		}
	}

	// notifications
	slack, teams := get("SLACK_WEBHOOK_URL"), get("TEAMS_WEBHOOK_URL")
	if slack == "" && teams == "" {
		warn("no SLACK_WEBHOOK_URL or TEAMS_WEBHOOK_URL; --notify and alarm-notifier will not deliver.")
	}
	for name, v := range map[string]string{"SLACK_WEBHOOK_URL": slack, "TEAMS_WEBHOOK_URL": teams} {
		if v != "" && !strings.HasPrefix(v, "https://") {
			fail(name + " must be an https:// URL.")
		}
	}

	if get("DATABASE_URL") == "" {
		warn("DATABASE_URL empty; run history and alert state are kept in memory for one run only.")
	} else {
		ok("DATABASE_URL present")
	}

	if failed {
		os.Exit(1)
	}
	ok("preflight passed")
}
