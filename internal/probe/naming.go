package probe

import (
	"strings"

	"github.com/hamed0406/infraprobe/internal/domain"
)

const (
	defaultProject       = "petclinic"
	defaultVPCName       = "*{project}*"
	defaultECSCluster    = "{project}-cluster-{environment}"
	defaultAuroraCluster = "{project}-aurora-{environment}"
)

// Naming holds the resource naming templates probes use to locate
// environment resources.
type Naming domain.Naming

func (n Naming) withDefaults() Naming {
	if n.Project == "" {
		n.Project = defaultProject
	}
	if n.VPCName == "" {
		n.VPCName = defaultVPCName
	}
	if n.ECSCluster == "" {
		n.ECSCluster = defaultECSCluster
	}
	if n.AuroraCluster == "" {
		n.AuroraCluster = defaultAuroraCluster
	}
	return n
}

func (n Naming) expand(tmpl, env string) string {
	return strings.NewReplacer("{project}", n.Project, "{environment}", env).Replace(tmpl)
}

func (p *Prober) vpcNamePattern() string { return p.Naming.expand(p.Naming.VPCName, p.Env) }

func (p *Prober) ecsCluster(spec domain.TestSpec) string {
	if v := spec.Param("cluster"); v != "" {
		return v
	}
	return p.Naming.expand(p.Naming.ECSCluster, p.Env)
}

func (p *Prober) auroraCluster(spec domain.TestSpec) string {
	if v := spec.Param("cluster_id"); v != "" {
		return v
	}
	return p.Naming.expand(p.Naming.AuroraCluster, p.Env)
}

// matchesEnv reports whether a resource name belongs to this project and
// environment.
func (p *Prober) matchesEnv(name string) bool {
	return strings.Contains(name, p.Env) && strings.Contains(name, p.Naming.Project)
}
