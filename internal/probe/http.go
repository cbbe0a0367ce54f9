package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/domain"
)

const (
	TargetApplicationLoadBalancer = "application_load_balancer"
	TargetAPIGateway              = "api_gateway"
	TargetURL                     = "url"
)

var defaultALBEndpoints = []string{
	"/actuator/health",
	"/api/customers/actuator/health",
	"/api/vets/actuator/health",
	"/api/visits/actuator/health",
}

var defaultAPIGatewayEndpoints = []string{"/health"}

func (p *Prober) httpEndpoints(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	switch spec.Target {
	case TargetApplicationLoadBalancer:
		if p.Clients.ELB == nil {
			return Outcome{}, fmt.Errorf("elbv2: %w", errNoClient)
		}
		return p.albEndpoints(ctx, spec), nil
	case TargetAPIGateway:
		if p.Clients.APIGateway == nil {
			return Outcome{}, fmt.Errorf("apigateway: %w", errNoClient)
		}
		return p.apiGatewayEndpoints(ctx, spec), nil
	case TargetURL:
		base := spec.Param("base_url")
		paths := spec.ParamStrings("endpoints")
		if base == "" && len(paths) == 0 {
			return Outcome{}, fmt.Errorf("url target needs base_url or endpoints")
		}
		if len(paths) == 0 {
			paths = []string{"/"}
		}
		return p.endpoints(ctx, "URL", base, paths, map[string]any{"base_url": base}), nil
	}
	return unknownTarget(KindHTTP, spec.Target), nil
}

func (p *Prober) albEndpoints(ctx context.Context, spec domain.TestSpec) Outcome {
	var found *elbtypes.LoadBalancer
	var marker *string
	for found == nil {
		page, err := p.Clients.ELB.DescribeLoadBalancers(ctx, &elb.DescribeLoadBalancersInput{Marker: marker})
		if err != nil {
			return apiFailure("ALB endpoint test", err)
		}
		for i := range page.LoadBalancers {
			if p.matchesEnv(aws.ToString(page.LoadBalancers[i].LoadBalancerName)) {
				found = &page.LoadBalancers[i]
				break
			}
		}
		if page.NextMarker == nil {
			break
		}
		marker = page.NextMarker
	}
	if found == nil {
		return fail(fmt.Sprintf("No ALB found for environment %s", p.Env), nil)
	}

	name := aws.ToString(found.LoadBalancerName)
	state := ""
	if found.State != nil {
		state = string(found.State.Code)
	}
	if state != string(elbtypes.LoadBalancerStateEnumActive) {
		return fail(fmt.Sprintf("ALB is not active: %s", state), map[string]any{
			"alb_name": name,
			"state":    state,
		})
	}

	dns := aws.ToString(found.DNSName)
	paths := spec.ParamStrings("endpoints")
	if len(paths) == 0 {
		paths = defaultALBEndpoints
	}
	return p.endpoints(ctx, "ALB", "http://"+dns, paths, map[string]any{
		"alb_name": name,
		"dns_name": dns,
	})
}

func (p *Prober) apiGatewayEndpoints(ctx context.Context, spec domain.TestSpec) Outcome {
	want := spec.Param("api_name")
	var apiID, apiName string
	var position *string
	for apiID == "" {
		page, err := p.Clients.APIGateway.GetRestApis(ctx, &apigateway.GetRestApisInput{Position: position})
		if err != nil {
			return apiFailure("API Gateway endpoint test", err)
		}
		for _, api := range page.Items {
			n := aws.ToString(api.Name)
			if (want != "" && n == want) || (want == "" && strings.Contains(n, p.Naming.Project)) {
				apiID, apiName = aws.ToString(api.Id), n
				break
			}
		}
		if page.Position == nil {
			break
		}
		position = page.Position
	}
	if apiID == "" {
		return fail(fmt.Sprintf("No REST API found for project %s", p.Naming.Project), nil)
	}

	stage := spec.Param("stage")
	if stage == "" {
		stage = p.Env
	}
	base := fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com/%s", apiID, p.Region, stage)
	paths := spec.ParamStrings("endpoints")
	if len(paths) == 0 {
		paths = defaultAPIGatewayEndpoints
	}
	return p.endpoints(ctx, "API Gateway", base, paths, map[string]any{
		"api_id":   apiID,
		"api_name": apiName,
		"stage":    stage,
		"base_url": base,
	})
}

// endpoints runs the per-endpoint checks and folds them into one outcome.
// The probe passes when any endpoint answers 2xx.
func (p *Prober) endpoints(ctx context.Context, label, base string, paths []string, details map[string]any) Outcome {
	ok, results := p.HTTP.CheckEndpoints(ctx, base, paths)
	details["total_endpoints"] = len(results)
	details["successful_endpoints"] = ok
	details["endpoints"] = results

	if ok > 0 {
		return pass(fmt.Sprintf("%s responding: %d/%d endpoints healthy", label, ok, len(results)), details)
	}

	host := extractHost(joinURL(base, paths[0]))
	dns := p.DNS.Check(ctx, host)
	details["dns_class"] = dns.Class
	p.Logger.Debug("dns_check",
		zap.String("domain", dns.Domain),
		zap.String("class", dns.Class),
		zap.Strings("nameservers", dns.Nameservers),
		zap.String("cname", dns.CNAME),
		zap.String("resolver_error", dns.ResolverError),
	)
	return fail(fmt.Sprintf("%s not responding to any health check endpoints", label), details)
}
