package probe

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/hamed0406/infraprobe/internal/domain"
)

const (
	TargetPublicSubnets  = "public_subnets"
	TargetPrivateSubnets = "private_subnets"
	TargetVPCEndpoints   = "vpc_endpoints"
)

const defaultRoute = "0.0.0.0/0"

func (p *Prober) network(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	if p.Clients.EC2 == nil {
		return Outcome{}, fmt.Errorf("ec2: %w", errNoClient)
	}
	switch spec.Target {
	case TargetPublicSubnets:
		return p.publicSubnets(ctx), nil
	case TargetPrivateSubnets:
		return p.privateSubnets(ctx), nil
	case TargetVPCEndpoints:
		return p.vpcEndpoints(ctx, spec), nil
	}
	return unknownTarget(KindNetwork, spec.Target), nil
}

func filter(name string, values ...string) ec2types.Filter {
	return ec2types.Filter{Name: aws.String(name), Values: values}
}

// findVPC locates the environment VPC by its Environment and Name tags.
func (p *Prober) findVPC(ctx context.Context) (string, error) {
	out, err := p.Clients.EC2.DescribeVpcs(ctx, &ec2.DescribeVpcsInput{
		Filters: []ec2types.Filter{
			filter("tag:Environment", p.Env),
			filter("tag:Name", p.vpcNamePattern()),
		},
	})
	if err != nil {
		return "", err
	}
	if len(out.Vpcs) == 0 {
		return "", nil
	}
	return aws.ToString(out.Vpcs[0].VpcId), nil
}

func (p *Prober) subnetsByType(ctx context.Context, vpcID, typ string) ([]ec2types.Subnet, error) {
	out, err := p.Clients.EC2.DescribeSubnets(ctx, &ec2.DescribeSubnetsInput{
		Filters: []ec2types.Filter{
			filter("vpc-id", vpcID),
			filter("tag:Type", typ),
		},
	})
	if err != nil {
		return nil, err
	}
	return out.Subnets, nil
}

// routeTablesFor returns the tables associated with a subnet, or the VPC
// main table when the subnet has no explicit association.
func (p *Prober) routeTablesFor(ctx context.Context, vpcID, subnetID string) ([]ec2types.RouteTable, error) {
	out, err := p.Clients.EC2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{filter("association.subnet-id", subnetID)},
	})
	if err != nil {
		return nil, err
	}
	if len(out.RouteTables) > 0 {
		return out.RouteTables, nil
	}
	out, err = p.Clients.EC2.DescribeRouteTables(ctx, &ec2.DescribeRouteTablesInput{
		Filters: []ec2types.Filter{
			filter("vpc-id", vpcID),
			filter("association.main", "true"),
		},
	})
	if err != nil {
		return nil, err
	}
	return out.RouteTables, nil
}

func defaultRouteVia(tables []ec2types.RouteTable, prefix string) bool {
	for _, rt := range tables {
		for _, r := range rt.Routes {
			if aws.ToString(r.DestinationCidrBlock) != defaultRoute {
				continue
			}
			if strings.HasPrefix(aws.ToString(r.GatewayId), prefix) ||
				strings.HasPrefix(aws.ToString(r.NatGatewayId), prefix) {
				return true
			}
		}
	}
	return false
}

func (p *Prober) publicSubnets(ctx context.Context) Outcome {
	vpcID, err := p.findVPC(ctx)
	if err != nil {
		return apiFailure("Public subnet test", err)
	}
	if vpcID == "" {
		return fail("No VPC found for environment", nil)
	}

	subnets, err := p.subnetsByType(ctx, vpcID, "public")
	if err != nil {
		return apiFailure("Public subnet test", err)
	}
	if len(subnets) == 0 {
		return fail("No public subnets found", map[string]any{"vpc_id": vpcID})
	}

	igwRoutes := 0
	for _, sn := range subnets {
		tables, err := p.routeTablesFor(ctx, vpcID, aws.ToString(sn.SubnetId))
		if err != nil {
			return apiFailure("Public subnet test", err)
		}
		if defaultRouteVia(tables, "igw-") {
			igwRoutes++
		}
	}

	details := map[string]any{
		"vpc_id":         vpcID,
		"public_subnets": len(subnets),
	}
	if igwRoutes == 0 {
		return fail("No IGW routes found in public subnets", details)
	}
	details["igw_routes"] = igwRoutes
	return pass(fmt.Sprintf("Found %d public subnets with IGW routes", igwRoutes), details)
}

func (p *Prober) privateSubnets(ctx context.Context) Outcome {
	vpcID, err := p.findVPC(ctx)
	if err != nil {
		return apiFailure("Private subnet test", err)
	}
	if vpcID == "" {
		return fail("No VPC found for environment", nil)
	}

	subnets, err := p.subnetsByType(ctx, vpcID, "private")
	if err != nil {
		return apiFailure("Private subnet test", err)
	}
	if len(subnets) == 0 {
		return fail("No private subnets found", map[string]any{"vpc_id": vpcID})
	}

	natRoutes := 0
	exposed := []string{}
	for _, sn := range subnets {
		id := aws.ToString(sn.SubnetId)
		tables, err := p.routeTablesFor(ctx, vpcID, id)
		if err != nil {
			return apiFailure("Private subnet test", err)
		}
		if defaultRouteVia(tables, "igw-") {
			exposed = append(exposed, id)
			continue
		}
		if defaultRouteVia(tables, "nat-") {
			natRoutes++
		}
	}

	details := map[string]any{
		"vpc_id":          vpcID,
		"private_subnets": len(subnets),
		"nat_routes":      natRoutes,
		"exposed_subnets": exposed,
	}
	if len(exposed) > 0 {
		return fail(fmt.Sprintf("%d private subnets route directly to an internet gateway", len(exposed)), details)
	}
	return pass(fmt.Sprintf("All %d private subnets are isolated from the internet gateway", len(subnets)), details)
}

func (p *Prober) vpcEndpoints(ctx context.Context, spec domain.TestSpec) Outcome {
	vpcID, err := p.findVPC(ctx)
	if err != nil {
		return apiFailure("VPC endpoint test", err)
	}
	if vpcID == "" {
		return fail("No VPC found for environment", nil)
	}

	out, err := p.Clients.EC2.DescribeVpcEndpoints(ctx, &ec2.DescribeVpcEndpointsInput{
		Filters: []ec2types.Filter{filter("vpc-id", vpcID)},
	})
	if err != nil {
		return apiFailure("VPC endpoint test", err)
	}

	endpoints := make(map[string]any, len(out.VpcEndpoints))
	unavailable := 0
	for _, ep := range out.VpcEndpoints {
		state := string(ep.State)
		endpoints[aws.ToString(ep.ServiceName)] = state
		if !strings.EqualFold(state, "available") {
			unavailable++
		}
	}

	missing := []string{}
	for _, want := range spec.ExpectedStrings() {
		found := false
		for name := range endpoints {
			if strings.HasSuffix(name, "."+want) || name == want {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}

	details := map[string]any{
		"vpc_id":    vpcID,
		"endpoints": endpoints,
		"missing":   missing,
	}
	switch {
	case len(endpoints) == 0:
		return fail("No VPC endpoints found", details)
	case len(missing) > 0:
		return fail(fmt.Sprintf("Missing VPC endpoints: %s", strings.Join(missing, ", ")), details)
	case unavailable > 0:
		return fail(fmt.Sprintf("%d/%d VPC endpoints are not available", unavailable, len(endpoints)), details)
	}
	return pass(fmt.Sprintf("All %d VPC endpoints are available", len(endpoints)), details)
}
