package domain

import "sort"

// Capability names something a principal is allowed to do. Roles map onto
// capabilities one to one today.
type Capability string

// CapabilitySet is an immutable-by-convention set of capabilities.
type CapabilitySet map[Capability]struct{}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	set := make(CapabilitySet, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// List returns the capabilities in sorted order.
func (s CapabilitySet) List() []Capability {
	out := make([]Capability, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	User         User
	Capabilities CapabilitySet
}

// NewPrincipal derives a principal from a stored user record.
func NewPrincipal(user User) *Principal {
	return &Principal{
		User:         user,
		Capabilities: user.Role.Capabilities(),
	}
}

func (p *Principal) Username() string {
	return p.User.Username
}

func (p *Principal) Can(c Capability) bool {
	if p == nil {
		return false
	}
	return p.Capabilities.Has(c)
}
