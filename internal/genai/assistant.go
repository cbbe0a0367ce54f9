package genai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/aws/smithy-go"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/metrics"
)

type QuestionType string

const (
	QuestionDatabase QuestionType = "DATABASE_QUERY"
	QuestionGeneral  QuestionType = "GENERAL_ADVICE"
)

const (
	SourceDatabase        = "aurora_rds_data_api"
	SourceGeneral         = "general_advice"
	SourceGeneralFallback = "general_advice_fallback"
)

const accessNotEnabled = "The AI model is not available for this account yet. " +
	"Enable model access for it in the Amazon Bedrock console and try again."

var (
	classifySampling = Sampling{MaxTokens: 500, Temperature: 0.1}
	answerSampling   = Sampling{MaxTokens: 1000, Temperature: 0.1}
)

type Classification struct {
	Type   QuestionType `json:"type"`
	Reason string       `json:"reason"`
}

type SQLPlan struct {
	Database    string `json:"database"`
	SQL         string `json:"sql"`
	Description string `json:"description"`
}

type Answer struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	DataSource   string `json:"data_source"`
	QuestionType string `json:"question_type"`
	RequestID    string `json:"request_id,omitempty"`
}

// Querier runs read-only SQL. *DataAPI implements it.
type Querier interface {
	Query(ctx context.Context, database, sql string) ([]Row, error)
}

type Assistant struct {
	Logger   *zap.Logger
	Model    Model
	Data     Querier // optional
	Database string
}

func NewAssistant(logger *zap.Logger, model Model, data Querier, database string) *Assistant {
	if logger == nil {
		logger = zap.NewNop()
	}
	if database == "" {
		database = "petclinic"
	}
	return &Assistant{Logger: logger, Model: model, Data: data, Database: database}
}

// Classify never fails; anything unexpected routes the question to general advice.
func (a *Assistant) Classify(ctx context.Context, q string) Classification {
	out, err := a.Model.Complete(ctx, classifyPrompt(q), classifySampling)
	if err != nil {
		a.Logger.Warn("classify_failed", zap.Error(err))
		return Classification{Type: QuestionGeneral, Reason: "analysis failed"}
	}
	var c Classification
	if err := decodeJSON(out, &c); err != nil {
		return Classification{Type: QuestionGeneral, Reason: "parse failed"}
	}
	switch c.Type {
	case QuestionDatabase, QuestionGeneral:
		return c
	}
	return Classification{Type: QuestionGeneral, Reason: fmt.Sprintf("unknown type %q", c.Type)}
}

func (a *Assistant) GenerateSQL(ctx context.Context, q string) SQLPlan {
	fallback := SQLPlan{Database: a.Database, SQL: DefaultQuery, Description: "owners and their pets"}

	out, err := a.Model.Complete(ctx, sqlPrompt(q, a.Database), answerSampling)
	if err != nil {
		a.Logger.Warn("sql_generation_failed", zap.Error(err))
		return fallback
	}
	var plan SQLPlan
	if err := decodeJSON(out, &plan); err != nil {
		a.Logger.Warn("sql_parse_failed", zap.Error(err))
		return fallback
	}
	plan.SQL = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(plan.SQL), ";"))
	if !ReadOnly(plan.SQL) {
		a.Logger.Warn("sql_rejected", zap.String("sql", plan.SQL))
		return fallback
	}
	if plan.Database == "" {
		plan.Database = a.Database
	}
	return plan
}

// writeWords are SQL words that modify data or schema, or take row locks
// (SELECT ... FOR UPDATE).
var writeWords = map[string]bool{
	"insert": true, "update": true, "delete": true, "merge": true, "into": true,
	"drop": true, "alter": true, "truncate": true, "create": true, "grant": true,
	"revoke": true, "copy": true, "lock": true, "share": true, "call": true,
	"execute": true, "vacuum": true,
}

// ReadOnly reports whether sql is a single SELECT statement. Words are split
// on anything that is not a letter, digit or underscore, so a keyword behind
// a newline or tab is still seen.
func ReadOnly(sql string) bool {
	s := strings.ToLower(strings.TrimSpace(sql))
	if s == "" || strings.Contains(s, ";") {
		return false
	}
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	if len(words) == 0 || (words[0] != "select" && words[0] != "with") {
		return false
	}
	for _, w := range words {
		if writeWords[w] {
			return false
		}
	}
	return true
}

// Answer classifies q and answers it, from the database when the question
// needs records. Model failures become the answer text, never an error.
func (a *Assistant) Answer(ctx context.Context, q string) Answer {
	c := a.Classify(ctx, q)
	ans := Answer{Question: q, QuestionType: string(c.Type)}

	if c.Type == QuestionDatabase {
		if rows, err := a.lookup(ctx, q); err == nil {
			ans.DataSource = SourceDatabase
			ans.Answer = a.complete(ctx, groundedPrompt(q, FormatContext(rows)))
		} else {
			a.Logger.Warn("database_lookup_failed", zap.Error(err))
			ans.DataSource = SourceGeneralFallback
			ans.Answer = a.complete(ctx, advicePrompt(q))
		}
	} else {
		ans.DataSource = SourceGeneral
		ans.Answer = a.complete(ctx, advicePrompt(q))
	}

	metrics.RecordGenAI(ans.QuestionType, ans.DataSource)
	a.Logger.Info("question_answered",
		zap.String("question_type", ans.QuestionType),
		zap.String("data_source", ans.DataSource))
	return ans
}

func (a *Assistant) lookup(ctx context.Context, q string) ([]Row, error) {
	if a.Data == nil {
		return nil, ErrDataAPINotConfigured
	}
	plan := a.GenerateSQL(ctx, q)
	rows, err := a.Data.Query(ctx, plan.Database, plan.SQL)
	if err != nil {
		return nil, err
	}
	a.Logger.Debug("database_lookup", zap.String("sql", plan.SQL), zap.Int("rows", len(rows)))
	return rows, nil
}

func (a *Assistant) complete(ctx context.Context, prompt string) string {
	out, err := a.Model.Complete(ctx, prompt, answerSampling)
	if err != nil {
		a.Logger.Error("model_error", zap.Error(err))
		if accessDenied(err) {
			return accessNotEnabled
		}
		return "AI service error: " + err.Error()
	}
	return strings.TrimSpace(out)
}

func accessDenied(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "AccessDeniedException" {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "accessdenied") || strings.Contains(msg, "marketplace")
}

// decodeJSON unmarshals the outermost {...} of a model reply, ignoring any
// prose around it.
func decodeJSON(s string, v any) error {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return errors.New("no json object in model output")
	}
	return json.Unmarshal([]byte(s[start:end+1]), v)
}
