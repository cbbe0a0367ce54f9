package probe

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigateway"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// fakeEC2 answers route table lookups from a subnet-id map; the main table
// is keyed by "main".
type fakeEC2 struct {
	vpcs     *ec2.DescribeVpcsOutput
	subnets  map[string]*ec2.DescribeSubnetsOutput // keyed by tag:Type value
	routes   map[string]*ec2.DescribeRouteTablesOutput
	epOut    *ec2.DescribeVpcEndpointsOutput
	sgOut    *ec2.DescribeSecurityGroupsOutput
	vpcsErr  error
	lastVPCs *ec2.DescribeVpcsInput
}

func valueOf(in any, name string) string {
	switch x := in.(type) {
	case *ec2.DescribeSubnetsInput:
		for _, f := range x.Filters {
			if *f.Name == name {
				return f.Values[0]
			}
		}
	case *ec2.DescribeRouteTablesInput:
		for _, f := range x.Filters {
			if *f.Name == name {
				return f.Values[0]
			}
		}
	}
	return ""
}

func (f *fakeEC2) DescribeVpcs(_ context.Context, in *ec2.DescribeVpcsInput, _ ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error) {
	f.lastVPCs = in
	if f.vpcsErr != nil {
		return nil, f.vpcsErr
	}
	if f.vpcs == nil {
		return &ec2.DescribeVpcsOutput{}, nil
	}
	return f.vpcs, nil
}

func (f *fakeEC2) DescribeSubnets(_ context.Context, in *ec2.DescribeSubnetsInput, _ ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error) {
	if out, ok := f.subnets[valueOf(in, "tag:Type")]; ok {
		return out, nil
	}
	return &ec2.DescribeSubnetsOutput{}, nil
}

func (f *fakeEC2) DescribeRouteTables(_ context.Context, in *ec2.DescribeRouteTablesInput, _ ...func(*ec2.Options)) (*ec2.DescribeRouteTablesOutput, error) {
	key := valueOf(in, "association.subnet-id")
	if key == "" && valueOf(in, "association.main") == "true" {
		key = "main"
	}
	if out, ok := f.routes[key]; ok {
		return out, nil
	}
	return &ec2.DescribeRouteTablesOutput{}, nil
}

func (f *fakeEC2) DescribeVpcEndpoints(context.Context, *ec2.DescribeVpcEndpointsInput, ...func(*ec2.Options)) (*ec2.DescribeVpcEndpointsOutput, error) {
	if f.epOut == nil {
		return &ec2.DescribeVpcEndpointsOutput{}, nil
	}
	return f.epOut, nil
}

func (f *fakeEC2) DescribeSecurityGroups(context.Context, *ec2.DescribeSecurityGroupsInput, ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error) {
	if f.sgOut == nil {
		return &ec2.DescribeSecurityGroupsOutput{}, nil
	}
	return f.sgOut, nil
}

type fakeECS struct {
	clusters *ecs.DescribeClustersOutput
	arns     []string
	services *ecs.DescribeServicesOutput
}

func (f *fakeECS) DescribeClusters(context.Context, *ecs.DescribeClustersInput, ...func(*ecs.Options)) (*ecs.DescribeClustersOutput, error) {
	return f.clusters, nil
}

func (f *fakeECS) ListServices(context.Context, *ecs.ListServicesInput, ...func(*ecs.Options)) (*ecs.ListServicesOutput, error) {
	return &ecs.ListServicesOutput{ServiceArns: f.arns}, nil
}

func (f *fakeECS) DescribeServices(context.Context, *ecs.DescribeServicesInput, ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error) {
	return f.services, nil
}

type fakeRDS struct {
	out    *rds.DescribeDBClustersOutput
	err    error
	lastID string
}

func (f *fakeRDS) DescribeDBClusters(_ context.Context, in *rds.DescribeDBClustersInput, _ ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error) {
	if in.DBClusterIdentifier != nil {
		f.lastID = *in.DBClusterIdentifier
	}
	return f.out, f.err
}

type fakeELB struct {
	out *elb.DescribeLoadBalancersOutput
}

func (f *fakeELB) DescribeLoadBalancers(context.Context, *elb.DescribeLoadBalancersInput, ...func(*elb.Options)) (*elb.DescribeLoadBalancersOutput, error) {
	return f.out, nil
}

type fakeLambda struct {
	list   *lambda.ListFunctionsOutput
	get    map[string]*lambda.GetFunctionOutput
	getErr error
}

func (f *fakeLambda) ListFunctions(context.Context, *lambda.ListFunctionsInput, ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error) {
	return f.list, nil
}

func (f *fakeLambda) GetFunction(_ context.Context, in *lambda.GetFunctionInput, _ ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if out, ok := f.get[*in.FunctionName]; ok {
		return out, nil
	}
	return nil, &lambdatypes.ResourceNotFoundException{Message: aws.String("Function not found: " + *in.FunctionName)}
}

type fakeAPIGateway struct {
	out *apigateway.GetRestApisOutput
}

func (f *fakeAPIGateway) GetRestApis(context.Context, *apigateway.GetRestApisInput, ...func(*apigateway.Options)) (*apigateway.GetRestApisOutput, error) {
	return f.out, nil
}
