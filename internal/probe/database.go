package probe

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/jackc/pgx/v5"

	"github.com/hamed0406/infraprobe/internal/domain"
)

const (
	TargetAuroraCluster    = "aurora_cluster"
	TargetPostgresEndpoint = "postgres_endpoint"
)

const sqlPingTimeout = 5 * time.Second

func (p *Prober) database(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	switch spec.Target {
	case TargetAuroraCluster:
		if p.Clients.RDS == nil {
			return Outcome{}, fmt.Errorf("rds: %w", errNoClient)
		}
		return p.aurora(ctx, spec), nil
	case TargetPostgresEndpoint:
		return p.postgresEndpoint(ctx, spec)
	}
	return unknownTarget(KindDatabase, spec.Target), nil
}

func (p *Prober) aurora(ctx context.Context, spec domain.TestSpec) Outcome {
	id := p.auroraCluster(spec)

	out, err := p.Clients.RDS.DescribeDBClusters(ctx, &rds.DescribeDBClustersInput{
		DBClusterIdentifier: aws.String(id),
	})
	if err != nil {
		return apiFailure("Aurora cluster test", err)
	}
	if len(out.DBClusters) == 0 {
		return fail(fmt.Sprintf("Aurora cluster %s not found", id), nil)
	}

	cluster := out.DBClusters[0]
	status := aws.ToString(cluster.Status)
	if status != "available" {
		return fail(fmt.Sprintf("Aurora cluster is not available: %s", status), map[string]any{
			"cluster_id": id,
			"status":     status,
		})
	}

	writers := 0
	for _, m := range cluster.DBClusterMembers {
		if aws.ToBool(m.IsClusterWriter) {
			writers++
		}
	}
	readers := len(cluster.DBClusterMembers) - writers

	details := map[string]any{
		"cluster_id":     id,
		"status":         status,
		"engine":         aws.ToString(cluster.Engine),
		"engine_version": aws.ToString(cluster.EngineVersion),
		"writer_count":   writers,
		"reader_count":   readers,
		"total_members":  len(cluster.DBClusterMembers),
	}
	if writers >= 1 {
		return pass(fmt.Sprintf("Aurora cluster is healthy with %d writer(s) and %d reader(s)", writers, readers), details)
	}
	return fail("Aurora cluster has no writer instances", details)
}

// postgresEndpoint opens a direct connection and runs SELECT 1.
func (p *Prober) postgresEndpoint(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	envName := spec.Param("dsn_env")
	if envName == "" {
		envName = "DATABASE_URL"
	}
	dsn := os.Getenv(envName)
	if dsn == "" {
		return Outcome{}, fmt.Errorf("postgres_endpoint: environment variable %s is empty", envName)
	}

	cctx, cancel := context.WithTimeout(ctx, sqlPingTimeout)
	defer cancel()

	start := time.Now()
	conn, err := pgx.Connect(cctx, dsn)
	if err != nil {
		return apiFailure("Postgres connection", err), nil
	}
	defer conn.Close(context.Background())

	var one int
	if err := conn.QueryRow(cctx, "SELECT 1").Scan(&one); err != nil {
		return apiFailure("Postgres query", err), nil
	}
	latency := time.Since(start).Seconds() * 1000

	details := map[string]any{
		"host":       conn.Config().Host,
		"database":   conn.Config().Database,
		"latency_ms": latency,
	}
	return pass(fmt.Sprintf("Postgres endpoint answered in %.0f ms", latency), details), nil
}
