package rbac

import "strings"

// grants is one role's permissions, split into exact names and "prefix*" patterns.
type grants struct {
	all      bool
	exact    map[string]bool
	prefixes []string
}

// Policy answers permission checks for a fixed role table.
type Policy struct {
	roles map[string]grants
}

// NewPolicy compiles a role table. A nil table means RolePermissions.
func NewPolicy(table map[string][]string) *Policy {
	if table == nil {
		table = RolePermissions
	}
	p := &Policy{roles: make(map[string]grants, len(table))}
	for role, perms := range table {
		g := grants{exact: map[string]bool{}}
		for _, perm := range perms {
			switch {
			case perm == "*":
				g.all = true
			case strings.HasSuffix(perm, "*"):
				g.prefixes = append(g.prefixes, strings.TrimSuffix(perm, "*"))
			default:
				g.exact[perm] = true
			}
		}
		p.roles[role] = g
	}
	return p
}

// Allows reports whether role holds perm. Unknown roles hold nothing.
func (p *Policy) Allows(role, perm string) bool {
	g, ok := p.roles[role]
	if !ok {
		return false
	}
	if g.all || g.exact[perm] {
		return true
	}
	for _, prefix := range g.prefixes {
		if strings.HasPrefix(perm, prefix) {
			return true
		}
	}
	return false
}

// AllowsAny reports whether role holds at least one of perms.
func (p *Policy) AllowsAny(role string, perms ...string) bool {
	for _, perm := range perms {
		if p.Allows(role, perm) {
			return true
		}
	}
	return false
}
