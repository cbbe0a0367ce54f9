package genai

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata"
	"github.com/aws/aws-sdk-go-v2/service/rdsdata/types"
)

// ErrDataAPINotConfigured means the cluster or secret ARN is missing.
var ErrDataAPINotConfigured = errors.New("rds data api not configured")

// ExecuteStatementAPI is the part of the RDS Data API client DataAPI uses.
type ExecuteStatementAPI interface {
	ExecuteStatement(ctx context.Context, in *rdsdata.ExecuteStatementInput, optFns ...func(*rdsdata.Options)) (*rdsdata.ExecuteStatementOutput, error)
}

// Row is one result record. Columns and Values are parallel and keep the
// order the database returned.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column.
func (r Row) Get(col string) (any, bool) {
	for i, c := range r.Columns {
		if c == col {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Map flattens the row, losing column order.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.Columns))
	for i, c := range r.Columns {
		m[c] = r.Values[i]
	}
	return m
}

// DataAPI runs SQL against an Aurora cluster through the RDS Data API.
type DataAPI struct {
	Client     ExecuteStatementAPI
	ClusterARN string
	SecretARN  string
}

func NewDataAPI(cfg aws.Config, clusterARN, secretARN string) *DataAPI {
	return &DataAPI{
		Client:     rdsdata.NewFromConfig(cfg),
		ClusterARN: clusterARN,
		SecretARN:  secretARN,
	}
}

func (d *DataAPI) Query(ctx context.Context, database, sql string) ([]Row, error) {
	if d == nil || d.ClusterARN == "" || d.SecretARN == "" {
		return nil, ErrDataAPINotConfigured
	}
	out, err := d.Client.ExecuteStatement(ctx, &rdsdata.ExecuteStatementInput{
		ResourceArn:           aws.String(d.ClusterARN),
		SecretArn:             aws.String(d.SecretARN),
		Database:              aws.String(database),
		Sql:                   aws.String(sql),
		IncludeResultMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("execute statement: %w", err)
	}

	cols := make([]string, len(out.ColumnMetadata))
	for i, c := range out.ColumnMetadata {
		cols[i] = aws.ToString(c.Name)
	}

	rows := make([]Row, 0, len(out.Records))
	for _, rec := range out.Records {
		row := Row{Columns: make([]string, len(rec)), Values: make([]any, len(rec))}
		for i, f := range rec {
			if i < len(cols) && cols[i] != "" {
				row.Columns[i] = cols[i]
			} else {
				row.Columns[i] = fmt.Sprintf("col_%d", i)
			}
			row.Values[i] = fieldValue(f)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func fieldValue(f types.Field) any {
	switch v := f.(type) {
	case *types.FieldMemberStringValue:
		return v.Value
	case *types.FieldMemberLongValue:
		return v.Value
	case *types.FieldMemberDoubleValue:
		return v.Value
	case *types.FieldMemberBooleanValue:
		return v.Value
	case *types.FieldMemberIsNull:
		return nil
	case *types.FieldMemberBlobValue:
		return v.Value
	case *types.FieldMemberArrayValue:
		return arrayValue(v.Value)
	}
	return fmt.Sprint(f)
}

func arrayValue(a types.ArrayValue) any {
	switch v := a.(type) {
	case *types.ArrayValueMemberStringValues:
		return v.Value
	case *types.ArrayValueMemberLongValues:
		return v.Value
	case *types.ArrayValueMemberDoubleValues:
		return v.Value
	case *types.ArrayValueMemberBooleanValues:
		return v.Value
	case *types.ArrayValueMemberArrayValues:
		out := make([]any, len(v.Value))
		for i, e := range v.Value {
			out[i] = arrayValue(e)
		}
		return out
	}
	return nil
}
