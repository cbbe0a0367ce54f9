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

const TargetSecurityGroups = "security_groups"

var defaultPublicPorts = []int{80, 443}

func (p *Prober) security(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	switch spec.Target {
	case TargetSecurityGroups:
		if p.Clients.EC2 == nil {
			return Outcome{}, fmt.Errorf("ec2: %w", errNoClient)
		}
		return p.securityGroups(ctx, spec), nil
	}
	return unknownTarget(KindSecurity, spec.Target), nil
}

// securityGroups flags any ingress open to the internet on a port outside
// the allowed public set.
func (p *Prober) securityGroups(ctx context.Context, spec domain.TestSpec) Outcome {
	allowed := spec.ExpectedInts()
	if len(allowed) == 0 {
		allowed = defaultPublicPorts
	}

	vpcID, err := p.findVPC(ctx)
	if err != nil {
		return apiFailure("Security group test", err)
	}
	if vpcID == "" {
		return fail("No VPC found for environment", nil)
	}

	out, err := p.Clients.EC2.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		Filters: []ec2types.Filter{filter("vpc-id", vpcID)},
	})
	if err != nil {
		return apiFailure("Security group test", err)
	}

	violations := []any{}
	for _, sg := range out.SecurityGroups {
		for _, perm := range sg.IpPermissions {
			if !openToWorld(perm) {
				continue
			}
			from, to := portRange(perm)
			// ICMP rules carry type and code in the port fields; no public port covers them
			if !icmp(perm) && rangeAllowed(from, to, allowed) {
				continue
			}
			violations = append(violations, map[string]any{
				"group_id":   aws.ToString(sg.GroupId),
				"group_name": aws.ToString(sg.GroupName),
				"protocol":   aws.ToString(perm.IpProtocol),
				"from_port":  from,
				"to_port":    to,
			})
		}
	}

	details := map[string]any{
		"vpc_id":          vpcID,
		"security_groups": len(out.SecurityGroups),
		"allowed_ports":   allowed,
		"violations":      violations,
	}
	if len(violations) > 0 {
		return fail(fmt.Sprintf("%d ingress rules are open to the internet on non-public ports", len(violations)), details)
	}
	return pass(fmt.Sprintf("%d security groups expose only allowed public ports", len(out.SecurityGroups)), details)
}

func openToWorld(perm ec2types.IpPermission) bool {
	for _, r := range perm.IpRanges {
		if aws.ToString(r.CidrIp) == "0.0.0.0/0" {
			return true
		}
	}
	for _, r := range perm.Ipv6Ranges {
		if aws.ToString(r.CidrIpv6) == "::/0" {
			return true
		}
	}
	return false
}

// portRange returns the inclusive range of a rule; protocol "-1" (all
// traffic) carries no ports and is reported as 0-65535.
func portRange(perm ec2types.IpPermission) (int, int) {
	if aws.ToString(perm.IpProtocol) == "-1" || perm.FromPort == nil || perm.ToPort == nil {
		return 0, 65535
	}
	return int(aws.ToInt32(perm.FromPort)), int(aws.ToInt32(perm.ToPort))
}

func icmp(perm ec2types.IpPermission) bool {
	switch strings.ToLower(aws.ToString(perm.IpProtocol)) {
	case "icmp", "icmpv6", "1", "58":
		return true
	}
	return false
}

func rangeAllowed(from, to int, allowed []int) bool {
	if from > to {
		return false
	}
	for port := from; port <= to; port++ {
		ok := false
		for _, a := range allowed {
			if a == port {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
