package genai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// ---- fakes ----

type scriptedModel struct {
	classify string
	sql      string
	answer   string
	err      error
	prompts  []string
}

func (m *scriptedModel) Complete(_ context.Context, prompt string, _ Sampling) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	switch {
	case strings.HasPrefix(prompt, "You route questions"):
		return m.classify, nil
	case strings.HasPrefix(prompt, "Write one PostgreSQL"):
		return m.sql, nil
	}
	return m.answer, nil
}

type fakeQuerier struct {
	rows []Row
	err  error
	sql  string
	db   string
}

func (f *fakeQuerier) Query(_ context.Context, db, sql string) ([]Row, error) {
	f.db, f.sql = db, sql
	return f.rows, f.err
}

type fakeInvoke struct {
	in   *bedrockruntime.InvokeModelInput
	body string
	err  error
}

func (f *fakeInvoke) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

type fakeExec struct {
	in  *rdsdata.ExecuteStatementInput
	out *rdsdata.ExecuteStatementOutput
}

func (f *fakeExec) ExecuteStatement(_ context.Context, in *rdsdata.ExecuteStatementInput, _ ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error) {
	f.in = in
	return f.out, nil
}

func row(kv ...any) Row {
	var r Row
	for i := 0; i+1 < len(kv); i += 2 {
		r.Columns = append(r.Columns, kv[i].(string))
		r.Values = append(r.Values, kv[i+1])
	}
	return r
}

// ---- Bedrock ----

func TestBedrock_Complete(t *testing.T) {
	fi := &fakeInvoke{body: `{"content":[{"type":"text","text":"hello"}]}`}
	b := &Bedrock{Client: fi, ModelID: "m-1"}

	out, err := b.Complete(context.Background(), "hi", Sampling{MaxTokens: 500, Temperature: 0.1})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, "m-1", aws.ToString(fi.in.ModelId))

	var req map[string]any
	require.NoError(t, json.Unmarshal(fi.in.Body, &req))
	assert.Equal(t, "bedrock-2023-05-31", req["anthropic_version"])
	assert.EqualValues(t, 500, req["max_tokens"])
	assert.InDelta(t, 0.1, req["temperature"], 1e-9)
}

func TestBedrock_EmptyContent(t *testing.T) {
	b := &Bedrock{Client: &fakeInvoke{body: `{"content":[]}`}}
	_, err := b.Complete(context.Background(), "hi", Sampling{})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

// ---- Data API ----

func TestDataAPI_NotConfigured(t *testing.T) {
	d := &DataAPI{Client: &fakeExec{}}
	_, err := d.Query(context.Background(), "petclinic", "SELECT 1")
	assert.ErrorIs(t, err, ErrDataAPINotConfigured)
}

func TestDataAPI_DecodesFields(t *testing.T) {
	fe := &fakeExec{out: &rdsdata.ExecuteStatementOutput{
		ColumnMetadata: []types.ColumnMetadata{{Name: aws.String("first_name")}, {Name: aws.String("age")}, {Name: aws.String("weight")}, {Name: aws.String("active")}, {Name: aws.String("note")}, {Name: aws.String("tags")}},
		Records: [][]types.Field{{
			&types.FieldMemberStringValue{Value: "George"},
			&types.FieldMemberLongValue{Value: 4},
			&types.FieldMemberDoubleValue{Value: 3.5},
			&types.FieldMemberBooleanValue{Value: true},
			&types.FieldMemberIsNull{Value: true},
			&types.FieldMemberArrayValue{Value: &types.ArrayValueMemberStringValues{Value: []string{"a", "b"}}},
		}},
	}}
	d := &DataAPI{Client: fe, ClusterARN: "arn:cluster", SecretARN: "arn:secret"}

	rows, err := d.Query(context.Background(), "petclinic", "SELECT *")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"first_name", "age", "weight", "active", "note", "tags"}, rows[0].Columns)
	assert.Equal(t, []any{"George", int64(4), 3.5, true, nil, []string{"a", "b"}}, rows[0].Values)
	assert.True(t, fe.in.IncludeResultMetadata)
	assert.Equal(t, "petclinic", aws.ToString(fe.in.Database))
}

// ---- formatting ----

func TestFormatContext(t *testing.T) {
	assert.Equal(t, noResults, FormatContext(nil))

	out := FormatContext([]Row{
		row("pet_name", "Leo", "first_name", "George", "last_name", "Franklin", "pet_type", "cat"),
		row("owner_name", "Betty Davis", "visit_date", "2024-01-02", "description", nil),
		row("count", int64(0)),
	})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "- George Franklin | Pet name: Leo | Pet type: cat", lines[1])
	assert.Equal(t, "- Betty Davis | Visit date: 2024-01-02", lines[2])
	assert.Equal(t, "- Result: none", lines[3])
}

func TestFormatContext_CapsRows(t *testing.T) {
	rows := make([]Row, 60)
	for i := range rows {
		rows[i] = row("name", "x")
	}
	out := FormatContext(rows)
	assert.Equal(t, MaxContextRows, strings.Count(out, "- name: x"))
	assert.Contains(t, out, "... and 10 more")
}

// ---- assistant ----

func TestClassify_Fallbacks(t *testing.T) {
	a := NewAssistant(zap.NewNop(), &scriptedModel{classify: `Sure! {"type":"DATABASE_QUERY","reason":"needs owners"}`}, nil, "")
	c := a.Classify(context.Background(), "who owns Leo?")
	assert.Equal(t, QuestionDatabase, c.Type)
	assert.Equal(t, "needs owners", c.Reason)

	a.Model = &scriptedModel{classify: "no idea"}
	assert.Equal(t, Classification{Type: QuestionGeneral, Reason: "parse failed"}, a.Classify(context.Background(), "q"))

	a.Model = &scriptedModel{err: errors.New("boom")}
	assert.Equal(t, Classification{Type: QuestionGeneral, Reason: "analysis failed"}, a.Classify(context.Background(), "q"))
}

func TestGenerateSQL(t *testing.T) {
	a := NewAssistant(zap.NewNop(), &scriptedModel{sql: `{"database":"petclinic","sql":"SELECT name FROM pets LIMIT 20;","description":"pets"}`}, nil, "petclinic")
	plan := a.GenerateSQL(context.Background(), "list pets")
	assert.Equal(t, "SELECT name FROM pets LIMIT 20", plan.SQL)

	a.Model = &scriptedModel{sql: `{"sql":"DELETE FROM pets"}`}
	assert.Equal(t, DefaultQuery, a.GenerateSQL(context.Background(), "x").SQL)

	a.Model = &scriptedModel{sql: `{"sql":"WITH gone AS (DELETE\nFROM pets RETURNING *) SELECT * FROM gone"}`}
	assert.Equal(t, DefaultQuery, a.GenerateSQL(context.Background(), "x").SQL)

	a.Model = &scriptedModel{sql: "garbage"}
	assert.Equal(t, DefaultQuery, a.GenerateSQL(context.Background(), "x").SQL)
}

func TestReadOnly(t *testing.T) {
	assert.True(t, ReadOnly("SELECT * FROM owners"))
	assert.True(t, ReadOnly("with x as (select 1) select * from x"))
	assert.False(t, ReadOnly(""))
	assert.False(t, ReadOnly("SELECT 1; DROP TABLE owners"))
	assert.False(t, ReadOnly("UPDATE owners SET city = 'x'"))
	assert.False(t, ReadOnly("select * from owners where 1=1 or delete from x"))

	// column names that merely contain a keyword
	assert.True(t, ReadOnly("SELECT updated_at, created_by FROM owners"))

	for _, sql := range []string{
		"WITH gone AS (DELETE\nFROM owners RETURNING *) SELECT * FROM gone",
		"with x as (update\towners set city='x' returning id) select * from x",
		"with x as (insert\ninto owners(city) values('x') returning id) select * from x",
		"SELECT * FROM owners FOR UPDATE",
		"select * from owners for share",
		"SELECT * INTO backup FROM owners",
		"SELECT *\nFROM owners\nWHERE id IN (SELECT id FROM pets)\nFOR\tUPDATE",
	} {
		assert.False(t, ReadOnly(sql), sql)
	}
}

func TestAnswer_FromDatabase(t *testing.T) {
	m := &scriptedModel{
		classify: `{"type":"DATABASE_QUERY","reason":"records"}`,
		sql:      `{"database":"petclinic","sql":"SELECT first_name, last_name FROM owners","description":"owners"}`,
		answer:   " George Franklin owns Leo. ",
	}
	q := &fakeQuerier{rows: []Row{row("first_name", "George", "last_name", "Franklin")}}
	a := NewAssistant(zap.NewNop(), m, q, "petclinic")

	ans := a.Answer(context.Background(), "who owns Leo?")
	assert.Equal(t, SourceDatabase, ans.DataSource)
	assert.Equal(t, "DATABASE_QUERY", ans.QuestionType)
	assert.Equal(t, "George Franklin owns Leo.", ans.Answer)
	assert.Equal(t, "SELECT first_name, last_name FROM owners", q.sql)
	assert.Contains(t, m.prompts[len(m.prompts)-1], "- George Franklin")
}

func TestAnswer_DatabaseFailureFallsBack(t *testing.T) {
	m := &scriptedModel{classify: `{"type":"DATABASE_QUERY"}`, answer: "see a vet"}
	a := NewAssistant(zap.NewNop(), m, &fakeQuerier{err: errors.New("cluster paused")}, "")
	ans := a.Answer(context.Background(), "how many visits?")
	assert.Equal(t, SourceGeneralFallback, ans.DataSource)

	a.Data = nil
	assert.Equal(t, SourceGeneralFallback, a.Answer(context.Background(), "q").DataSource)
}

func TestAnswer_GeneralAndModelErrors(t *testing.T) {
	m := &scriptedModel{classify: `{"type":"GENERAL_ADVICE"}`, answer: "Brush weekly."}
	a := NewAssistant(zap.NewNop(), m, nil, "")
	ans := a.Answer(context.Background(), "how to groom a cat?")
	assert.Equal(t, SourceGeneral, ans.DataSource)
	assert.Equal(t, "Brush weekly.", ans.Answer)

	a.Model = &scriptedModel{err: errors.New("throttled")}
	ans = a.Answer(context.Background(), "q")
	assert.Equal(t, "GENERAL_ADVICE", ans.QuestionType)
	assert.Equal(t, "AI service error: throttled", ans.Answer)

	a.Model = &scriptedModel{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no access"}}
	assert.Equal(t, accessNotEnabled, a.Answer(context.Background(), "q").Answer)
}
