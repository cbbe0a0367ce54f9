package probe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/hamed0406/infraprobe/internal/domain"
)

const (
	TargetECSCluster      = "ecs_cluster"
	TargetLambdaFunctions = "lambda_functions"
)

// DescribeServices accepts at most this many services per call.
const ecsDescribeBatch = 10

func (p *Prober) service(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	switch spec.Target {
	case TargetECSCluster:
		if p.Clients.ECS == nil {
			return Outcome{}, fmt.Errorf("ecs: %w", errNoClient)
		}
		return p.ecsClusterHealth(ctx, spec), nil
	case TargetLambdaFunctions:
		if p.Clients.Lambda == nil {
			return Outcome{}, fmt.Errorf("lambda: %w", errNoClient)
		}
		return p.lambdaFunctions(ctx, spec), nil
	}
	return unknownTarget(KindService, spec.Target), nil
}

func (p *Prober) ecsClusterHealth(ctx context.Context, spec domain.TestSpec) Outcome {
	name := p.ecsCluster(spec)

	clusters, err := p.Clients.ECS.DescribeClusters(ctx, &ecs.DescribeClustersInput{Clusters: []string{name}})
	if err != nil {
		return apiFailure("ECS cluster test", err)
	}
	if len(clusters.Clusters) == 0 {
		return fail(fmt.Sprintf("ECS cluster %s not found", name), nil)
	}
	cluster := clusters.Clusters[0]
	status := aws.ToString(cluster.Status)
	if status != "ACTIVE" {
		return fail(fmt.Sprintf("ECS cluster is not active: %s", status), map[string]any{
			"cluster_name": name,
			"status":       status,
		})
	}

	var arns []string
	var next *string
	for {
		page, err := p.Clients.ECS.ListServices(ctx, &ecs.ListServicesInput{
			Cluster:   cluster.ClusterArn,
			NextToken: next,
		})
		if err != nil {
			return apiFailure("ECS cluster test", err)
		}
		arns = append(arns, page.ServiceArns...)
		if page.NextToken == nil {
			break
		}
		next = page.NextToken
	}
	if len(arns) == 0 {
		return fail("No services found in cluster", map[string]any{"cluster_name": name})
	}

	services := make(map[string]any, len(arns))
	healthy, total := 0, 0
	for start := 0; start < len(arns); start += ecsDescribeBatch {
		end := min(start+ecsDescribeBatch, len(arns))
		out, err := p.Clients.ECS.DescribeServices(ctx, &ecs.DescribeServicesInput{
			Cluster:  cluster.ClusterArn,
			Services: arns[start:end],
		})
		if err != nil {
			return apiFailure("ECS cluster test", err)
		}
		for _, svc := range out.Services {
			svcStatus := aws.ToString(svc.Status)
			ok := svcStatus == "ACTIVE" && svc.RunningCount == svc.DesiredCount
			services[aws.ToString(svc.ServiceName)] = map[string]any{
				"status":        svcStatus,
				"running_count": svc.RunningCount,
				"desired_count": svc.DesiredCount,
				"healthy":       ok,
			}
			total++
			if ok {
				healthy++
			}
		}
		// listed services DescribeServices could not return (MISSING) are unhealthy
		for _, f := range out.Failures {
			services[serviceName(aws.ToString(f.Arn))] = map[string]any{
				"status":  aws.ToString(f.Reason),
				"healthy": false,
			}
			total++
		}
	}

	details := map[string]any{
		"cluster_name":     name,
		"total_services":   total,
		"healthy_services": healthy,
		"services":         services,
	}
	if healthy == total {
		return pass(fmt.Sprintf("All %d services are healthy", total), details)
	}
	return fail(fmt.Sprintf("Only %d/%d services are healthy", healthy, total), details)
}

func (p *Prober) lambdaFunctions(ctx context.Context, spec domain.TestSpec) Outcome {
	states := map[string]any{}

	if names := spec.ParamStrings("functions"); len(names) > 0 {
		for _, n := range names {
			out, err := p.Clients.Lambda.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(n)})
			var nf *lambdatypes.ResourceNotFoundException
			if errors.As(err, &nf) {
				states[n] = "NotFound"
				continue
			}
			if err != nil {
				return apiFailure("Lambda function test", err)
			}
			states[n] = functionState(out.Configuration)
		}
	} else {
		var marker *string
		for {
			page, err := p.Clients.Lambda.ListFunctions(ctx, &lambda.ListFunctionsInput{Marker: marker})
			if err != nil {
				return apiFailure("Lambda function test", err)
			}
			for _, fn := range page.Functions {
				name := aws.ToString(fn.FunctionName)
				if p.matchesEnv(name) {
					states[name] = functionState(&fn)
				}
			}
			if page.NextMarker == nil {
				break
			}
			marker = page.NextMarker
		}
	}

	if len(states) == 0 {
		return fail(fmt.Sprintf("No Lambda functions found for environment %s", p.Env), nil)
	}
	active := 0
	for _, s := range states {
		if s == string(lambdatypes.StateActive) {
			active++
		}
	}
	details := map[string]any{
		"functions":        states,
		"total_functions":  len(states),
		"active_functions": active,
	}
	if active == len(states) {
		return pass(fmt.Sprintf("All %d Lambda functions are active", active), details)
	}
	return fail(fmt.Sprintf("Only %d/%d Lambda functions are active", active, len(states)), details)
}

// serviceName is the last path segment of an ECS service ARN.
func serviceName(arn string) string {
	return arn[strings.LastIndex(arn, "/")+1:]
}

func functionState(cfg *lambdatypes.FunctionConfiguration) string {
	if cfg == nil {
		return "Unknown"
	}
	// functions created before state tracking report an empty state
	if cfg.State == "" {
		return string(lambdatypes.StateActive)
	}
	return string(cfg.State)
}
