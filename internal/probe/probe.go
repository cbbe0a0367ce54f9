package probe

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hamed0406/infraprobe/internal/domain"
)

// Outcome is what a probe reduces an infrastructure check to.
type Outcome struct {
	Success bool
	Message string
	Details map[string]any
}

// Kind is the closed set of probe families a test may declare.
type Kind int

const (
	KindNetwork Kind = iota + 1
	KindService
	KindDatabase
	KindSecurity
	KindHTTP
)

var kindNames = map[Kind]string{
	KindNetwork:  "network",
	KindService:  "service",
	KindDatabase: "database",
	KindSecurity: "security",
	KindHTTP:     "http",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// UnknownKindError is returned by ParseKind for a type tag outside the
// known set.
type UnknownKindError struct {
	Type string
}

func (e *UnknownKindError) Error() string {
	return "unknown test type: " + e.Type
}

// ParseKind maps a declared type tag to a Kind.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if strings.EqualFold(s, name) {
			return k, nil
		}
	}
	return 0, &UnknownKindError{Type: s}
}

// Prober runs probes against one environment with injected clients.
type Prober struct {
	Logger  *zap.Logger
	Clients Clients
	HTTP    *HTTPChecker
	DNS     *DNSChecker
	Env     string
	Region  string
	Naming  Naming
}

func NewProber(logger *zap.Logger, clients Clients, env, region string, naming Naming) *Prober {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prober{
		Logger:  logger,
		Clients: clients,
		HTTP:    NewHTTPChecker(DefaultHTTPTimeout),
		DNS:     NewDNSChecker(),
		Env:     env,
		Region:  region,
		Naming:  naming.withDefaults(),
	}
}

// Run dispatches spec to the probe for its kind. An unknown kind or target
// yields a failed Outcome. A returned error means the test could not be
// executed at all (for example a missing client or parameter).
func (p *Prober) Run(ctx context.Context, spec domain.TestSpec) (Outcome, error) {
	kind, err := ParseKind(spec.Type)
	if err != nil {
		return Outcome{
			Success: false,
			Message: err.Error(),
			Details: map[string]any{"type": spec.Type, "target": spec.Target},
		}, nil
	}

	switch kind {
	case KindNetwork:
		return p.network(ctx, spec)
	case KindService:
		return p.service(ctx, spec)
	case KindDatabase:
		return p.database(ctx, spec)
	case KindSecurity:
		return p.security(ctx, spec)
	case KindHTTP:
		return p.httpEndpoints(ctx, spec)
	}
	return Outcome{}, fmt.Errorf("no probe registered for kind %s", kind)
}

func unknownTarget(kind Kind, target string) Outcome {
	return Outcome{
		Success: false,
		Message: fmt.Sprintf("Unknown %s target: %s", kind, target),
		Details: map[string]any{},
	}
}

// apiFailure turns an AWS API error into a failed outcome.
func apiFailure(what string, err error) Outcome {
	return Outcome{
		Success: false,
		Message: fmt.Sprintf("%s failed: %v", what, err),
		Details: map[string]any{"exception": err.Error()},
	}
}

func fail(msg string, details map[string]any) Outcome {
	if details == nil {
		details = map[string]any{}
	}
	return Outcome{Success: false, Message: msg, Details: details}
}

func pass(msg string, details map[string]any) Outcome {
	return Outcome{Success: true, Message: msg, Details: details}
}
