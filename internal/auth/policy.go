package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/casbin/casbin/v2/util"

	"user-service/internal/domain"
)

// AnyMethod matches every HTTP method in a Rule.
const AnyMethod = "*"

type requirementKind int

const (
	requirePublic requirementKind = iota
	requireAuthenticated
	requireRole
)

// Requirement is what a rule demands of the caller.
type Requirement struct {
	kind requirementKind
	role domain.Role
}

func Public() Requirement           { return Requirement{kind: requirePublic} }
func AnyAuthenticated() Requirement { return Requirement{kind: requireAuthenticated} }

// RoleEquals requires a principal holding the capability granted by role.
func RoleEquals(role domain.Role) Requirement {
	return Requirement{kind: requireRole, role: role}
}

func (r Requirement) String() string {
	switch r.kind {
	case requirePublic:
		return "public"
	case requireAuthenticated:
		return "authenticated"
	default:
		return "role " + string(r.role)
	}
}

// Rule binds a method and a keyMatch2 path pattern to a requirement.
type Rule struct {
	Method      string
	Pattern     string
	Requirement Requirement
}

// Decision is the result of Policy.Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

// Policy evaluates rules in order; the first match wins and unmatched
// requests need any authenticated principal.
type Policy struct {
	rules []Rule
}

func NewPolicy(rules ...Rule) *Policy {
	copied := make([]Rule, len(rules))
	for i, r := range rules {
		r.Method = strings.ToUpper(r.Method)
		r.Pattern = normalizePath(r.Pattern)
		copied[i] = r
	}
	return &Policy{rules: copied}
}

// DefaultPolicy is the rule table for the user API mounted at basePath.
func DefaultPolicy(basePath string) *Policy {
	base := normalizePath(basePath)
	if base == "/" {
		base = ""
	}
	return NewPolicy(
		Rule{Method: http.MethodPost, Pattern: base + "/register", Requirement: Public()},
		Rule{Method: http.MethodPost, Pattern: base + "/login", Requirement: Public()},
		Rule{Method: http.MethodPost, Pattern: base + "/check-auth", Requirement: Public()},
		Rule{Method: http.MethodGet, Pattern: "/actuator/*", Requirement: Public()},
		Rule{Method: http.MethodGet, Pattern: base, Requirement: Public()},
		Rule{Method: http.MethodGet, Pattern: base + "/:id", Requirement: Public()},
		Rule{Method: http.MethodPut, Pattern: base + "/:id", Requirement: RoleEquals(domain.RoleAdmin)},
		Rule{Method: http.MethodDelete, Pattern: base + "/:id", Requirement: RoleEquals(domain.RoleAdmin)},
	)
}

// Authorize decides whether principal (nil when anonymous) may call method on path.
func (p *Policy) Authorize(method, path string, principal *domain.Principal) Decision {
	method = strings.ToUpper(method)
	path = normalizePath(path)

	req := AnyAuthenticated()
	for _, rule := range p.rules {
		if rule.Method != AnyMethod && rule.Method != method {
			continue
		}
		if util.KeyMatch2(path, rule.Pattern) {
			req = rule.Requirement
			break
		}
	}
	return evaluate(req, principal)
}

func evaluate(req Requirement, principal *domain.Principal) Decision {
	switch req.kind {
	case requirePublic:
		return Decision{Allowed: true, Reason: req.String()}
	case requireAuthenticated:
		if principal == nil {
			return Decision{Reason: "authentication required"}
		}
		return Decision{Allowed: true, Reason: req.String()}
	default:
		if principal == nil {
			return Decision{Reason: "authentication required"}
		}
		if !principal.Can(domain.Capability(req.role)) {
			return Decision{Reason: fmt.Sprintf("requires %s", req.role)}
		}
		return Decision{Allowed: true, Reason: req.String()}
	}
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	return p
}
